package velcro

import "math"

const maxTOIIterations = 20

// TOIInput holds two shape children and their motion. The sweeps cover the
// parameter range [0, TMax].
type TOIInput struct {
	ProxyA, ProxyB DistanceProxy
	SweepA, SweepB Sweep
	TMax           float64
}

type TOIState uint8

const (
	TOIStateUnknown TOIState = iota
	TOIStateFailed
	TOIStateOverlapped
	TOIStateTouching
	TOIStateSeparated
)

func (s TOIState) String() string {
	switch s {
	case TOIStateFailed:
		return "failed"
	case TOIStateOverlapped:
		return "overlapped"
	case TOIStateTouching:
		return "touching"
	case TOIStateSeparated:
		return "separated"
	}
	return "unknown"
}

// TOIOutput holds the result state and the sweep parameter T in [0, TMax].
type TOIOutput struct {
	State      TOIState
	T          float64
	Iterations int
}

// sweepRadius bounds the distance of any proxy vertex from the center of
// mass, which bounds the speed of a vertex under rotation.
func sweepRadius(p *DistanceProxy, localCenter Vec2) float64 {
	r := 0.0
	for i := 0; i < p.Count; i++ {
		r = math.Max(r, p.Vertices[i].DistanceSquared(localCenter))
	}
	return math.Sqrt(r)
}

// TimeOfImpact computes the upper bound on time before two shapes come
// within the target separation, using conservative advancement. Each
// iteration measures the core separation with GJK and advances by the
// remaining gap over an upper bound of the closing speed. The result never
// lets the shapes pass through each other and T is always in [0, TMax].
func TimeOfImpact(input TOIInput) TOIOutput {
	output := TOIOutput{State: TOIStateUnknown, T: input.TMax}

	sweepA := input.SweepA
	sweepB := input.SweepB

	// Large rotations can make the root finder fail, so keep angles bounded.
	sweepA.Normalize()
	sweepB.Normalize()

	proxyA := input.ProxyA
	proxyB := input.ProxyB
	tMax := input.TMax

	vA := sweepA.C.Sub(sweepA.C0)
	vB := sweepB.C.Sub(sweepB.C0)
	omegaA := math.Abs(sweepA.A - sweepA.A0)
	omegaB := math.Abs(sweepB.A - sweepB.A0)
	rA := sweepRadius(&proxyA, sweepA.LocalCenter)
	rB := sweepRadius(&proxyB, sweepB.LocalCenter)

	totalRadius := proxyA.Radius + proxyB.Radius
	base := math.Max(LinearSlop, totalRadius-3.0*LinearSlop)
	target := base
	tolerance := 0.25 * LinearSlop

	alpha := 0.0

	var cache SimplexCache
	distanceInput := DistanceInput{ProxyA: proxyA, ProxyB: proxyB}

	for iter := 0; ; iter++ {
		output.Iterations = iter

		distanceInput.TransformA = sweepA.Transform(alpha)
		distanceInput.TransformB = sweepB.Transform(alpha)

		// Get the distance between the cores, the shapes without radii.
		distanceOutput := Distance(&cache, distanceInput)
		distance := distanceOutput.Distance

		if iter == 0 {
			// Cores overlap: the shapes are deeply interpenetrating.
			if distance < epsilon {
				output.State = TOIStateOverlapped
				output.T = 0.0
				return output
			}

			// Already close. Leave some room to advance so the contact
			// solver sees the impact instead of a resting contact.
			if distance <= base+LinearSlop {
				target = math.Max(0.05*LinearSlop, math.Min(base, distance-0.5*LinearSlop))
			}
		}

		if distance-target < tolerance {
			output.State = TOIStateTouching
			output.T = alpha
			return output
		}

		if iter == maxTOIIterations {
			// Root finder got stuck. Alpha is still a safe lower bound.
			output.State = TOIStateFailed
			output.T = alpha
			return output
		}

		normal := distanceOutput.PointB.Sub(distanceOutput.PointA).Normalized()

		// Compute upper bound on remaining movement.
		bound := normal.Dot(vA.Sub(vB)) + omegaA*rA + omegaB*rB

		// Past the closest approach: the cores only move apart from here.
		if bound <= epsilon {
			output.State = TOIStateSeparated
			output.T = tMax
			return output
		}

		// Get the conservative time increment. Don't advance all the way.
		newAlpha := alpha + (distance-target)/bound

		// The target separation lies beyond the end of the sweep.
		if tMax < newAlpha {
			output.State = TOIStateSeparated
			output.T = tMax
			return output
		}

		// Ensure significant advancement.
		if newAlpha < (1.0+100.0*epsilon)*alpha {
			output.State = TOIStateTouching
			output.T = alpha
			return output
		}

		alpha = newAlpha
	}
}
