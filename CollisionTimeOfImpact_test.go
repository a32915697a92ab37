package velcro

import (
	"math"
	"math/rand"
	"testing"
)

func TestTimeOfImpactApproachingCircles(t *testing.T) {
	a := NewCircleShape(Vec2{}, 0.5)
	b := NewCircleShape(Vec2{}, 0.5)

	input := TOIInput{
		ProxyA: MakeDistanceProxy(a, 0),
		ProxyB: MakeDistanceProxy(b, 0),
		SweepA: Sweep{C0: MakeVec2(-10, 0), C: MakeVec2(10, 0)},
		SweepB: Sweep{C0: MakeVec2(10, 0), C: MakeVec2(-10, 0)},
		TMax:   1.0,
	}

	output := TimeOfImpact(input)
	if output.State != TOIStateTouching {
		t.Fatalf("state %v, want touching", output.State)
	}
	if output.T <= 0.4 || output.T >= 0.5 {
		t.Fatalf("t = %v", output.T)
	}

	// The shapes are close but have not passed through each other.
	d := Distance(&SimplexCache{}, DistanceInput{
		ProxyA:     input.ProxyA,
		ProxyB:     input.ProxyB,
		TransformA: input.SweepA.Transform(output.T),
		TransformB: input.SweepB.Transform(output.T),
	})
	totalRadius := a.Radius() + b.Radius()
	if d.Distance < totalRadius-4.0*LinearSlop || d.Distance > totalRadius {
		t.Fatalf("core distance %v at impact, total radius %v", d.Distance, totalRadius)
	}
}

func TestTimeOfImpactSeparating(t *testing.T) {
	box := NewBoxShape(0.5, 0.5)

	output := TimeOfImpact(TOIInput{
		ProxyA: MakeDistanceProxy(box, 0),
		ProxyB: MakeDistanceProxy(box, 0),
		SweepA: Sweep{C0: MakeVec2(-2, 0), C: MakeVec2(-4, 0)},
		SweepB: Sweep{C0: MakeVec2(2, 0), C: MakeVec2(4, 0)},
		TMax:   1.0,
	})

	if output.State != TOIStateSeparated || output.T != 1.0 {
		t.Fatalf("got %v at %v, want separated at 1", output.State, output.T)
	}
}

func TestTimeOfImpactOverlapped(t *testing.T) {
	box := NewBoxShape(0.5, 0.5)

	output := TimeOfImpact(TOIInput{
		ProxyA: MakeDistanceProxy(box, 0),
		ProxyB: MakeDistanceProxy(box, 0),
		SweepA: Sweep{},
		SweepB: Sweep{C0: MakeVec2(0.1, 0), C: MakeVec2(3, 0)},
		TMax:   1.0,
	})

	if output.State != TOIStateOverlapped || output.T != 0.0 {
		t.Fatalf("got %v at %v, want overlapped at 0", output.State, output.T)
	}
}

func TestTimeOfImpactStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	box := NewBoxShape(0.5, 0.25)
	circle := NewCircleShape(Vec2{}, 0.3)
	shapes := []Shape{box, circle}

	randomPoint := func() Vec2 {
		return MakeVec2(10.0*rng.Float64()-5.0, 10.0*rng.Float64()-5.0)
	}

	for i := 0; i < 500; i++ {
		sA := shapes[rng.Intn(len(shapes))]
		sB := shapes[rng.Intn(len(shapes))]

		input := TOIInput{
			ProxyA: MakeDistanceProxy(sA, 0),
			ProxyB: MakeDistanceProxy(sB, 0),
			SweepA: Sweep{C0: randomPoint(), C: randomPoint(), A0: rng.Float64(), A: 4.0 * rng.Float64()},
			SweepB: Sweep{C0: randomPoint(), C: randomPoint(), A0: -rng.Float64(), A: -4.0 * rng.Float64()},
			TMax:   1.0,
		}

		output := TimeOfImpact(input)
		if output.T < 0.0 || output.T > 1.0 || math.IsNaN(output.T) {
			t.Fatalf("case %d: t = %v (%v)", i, output.T, output.State)
		}
		if output.State == TOIStateUnknown {
			t.Fatalf("case %d: state unknown", i)
		}
	}
}

func TestTimeOfImpactPassingSideways(t *testing.T) {
	a := NewCircleShape(Vec2{}, 0.5)
	b := NewCircleShape(Vec2{}, 0.5)

	sweep := func(offset float64) TOIOutput {
		return TimeOfImpact(TOIInput{
			ProxyA: MakeDistanceProxy(a, 0),
			ProxyB: MakeDistanceProxy(b, 0),
			SweepA: Sweep{C0: MakeVec2(-1, 0), C: MakeVec2(19, 0)},
			SweepB: Sweep{C0: MakeVec2(0, offset), C: MakeVec2(0, offset)},
			TMax:   1.0,
		})
	}

	// The cores never come closer than 1.2, beyond the target separation.
	if output := sweep(1.2); output.State != TOIStateSeparated || output.T != 1.0 {
		t.Fatalf("clear pass: got %v at %v, want separated at 1", output.State, output.T)
	}

	// A grazing pass still hits before the closest approach at t = 0.05.
	output := sweep(0.9)
	if output.State != TOIStateTouching {
		t.Fatalf("grazing pass: state %v, want touching", output.State)
	}
	if output.T <= 0.0 || output.T >= 0.05 {
		t.Fatalf("grazing pass: t = %v", output.T)
	}
}
