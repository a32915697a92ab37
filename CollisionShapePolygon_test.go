package velcro

import (
	"math"
	"testing"

	"github.com/pkg/errors"
)

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestPolygonRejectsBadInput(t *testing.T) {
	nine := make([]Vec2, 9)
	for i := range nine {
		angle := 2.0 * math.Pi * float64(i) / 9.0
		nine[i] = MakeVec2(math.Cos(angle), math.Sin(angle))
	}

	tests := []struct {
		name     string
		vertices []Vec2
		want     error
	}{
		{"nine points", nine, ErrTooManyVertices},
		{"two points", []Vec2{{0, 0}, {1, 0}}, ErrDegeneratePolygon},
		{"collinear", []Vec2{{0, 0}, {1, 0}, {2, 0}, {3, 0}}, ErrDegeneratePolygon},
		{"welded", []Vec2{{0, 0}, {0.001, 0}, {0, 0.001}}, ErrDegeneratePolygon},
		{"not finite", []Vec2{{0, 0}, {1, 0}, {math.NaN(), 1}}, ErrDegeneratePolygon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolygonShape(tt.vertices)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPolygonHull(t *testing.T) {
	// Unordered square with an interior point and a collinear point.
	poly, err := NewPolygonShape([]Vec2{
		{1, 1}, {-1, -1}, {0, 0}, {1, -1}, {-1, 1}, {1, 0},
	})
	if err != nil {
		t.Fatal(err)
	}

	if poly.Count != 4 {
		t.Fatalf("hull has %d vertices, want 4", poly.Count)
	}
	if !poly.Validate() {
		t.Fatal("hull is not convex")
	}

	// Counter-clockwise winding and unit outward normals.
	for i := 0; i < poly.Count; i++ {
		a := poly.Vertices[i]
		b := poly.Vertices[(i+1)%poly.Count]
		c := poly.Vertices[(i+2)%poly.Count]
		if b.Sub(a).Cross(c.Sub(b)) <= 0.0 {
			t.Fatalf("vertex %d turns clockwise", i)
		}
		if !near(poly.Normals[i].Length(), 1.0, 1e-12) {
			t.Fatalf("normal %d is not unit length", i)
		}
		if poly.Normals[i].Dot(a) <= 0.0 {
			t.Fatalf("normal %d points inwards", i)
		}
	}

	if poly.Centroid.Length() > 1e-12 {
		t.Fatalf("centroid %v, want origin", poly.Centroid)
	}
}

func TestBoxMass(t *testing.T) {
	box := NewOrientedBoxShape(1.0, 0.5, MakeVec2(2, 3), 0.0)
	md := box.ComputeMass(2.0)

	if !near(md.Mass, 4.0, 1e-12) {
		t.Fatalf("mass %v, want 4", md.Mass)
	}
	if md.Center.Distance(MakeVec2(2, 3)) > 1e-12 {
		t.Fatalf("center %v, want (2,3)", md.Center)
	}

	// I = m (w^2 + h^2) / 12 about the centroid.
	if want := 4.0 * (4.0 + 1.0) / 12.0; !near(md.I, want, 1e-9) {
		t.Fatalf("inertia %v, want %v", md.I, want)
	}
}

func TestCircleMass(t *testing.T) {
	circle := NewCircleShape(MakeVec2(1, 0), 0.5)
	md := circle.ComputeMass(1.0)

	if want := math.Pi * 0.25; !near(md.Mass, want, 1e-12) {
		t.Fatalf("mass %v, want %v", md.Mass, want)
	}
	if want := md.Mass * 0.5 * 0.25; !near(md.I, want, 1e-12) {
		t.Fatalf("inertia %v, want %v", md.I, want)
	}
}

func TestShapeTestPointAndRayCast(t *testing.T) {
	xf := MakeTransform(MakeVec2(5, 0), 0.25*math.Pi)
	box := NewBoxShape(1, 1)
	circle := NewCircleShape(Vec2{}, 1)

	for _, shape := range []Shape{box, circle} {
		if !shape.TestPoint(xf, MakeVec2(5, 0)) {
			t.Errorf("%v: center not inside", shape.Type())
		}
		if shape.TestPoint(xf, MakeVec2(7, 0)) {
			t.Errorf("%v: far point inside", shape.Type())
		}

		input := RayCastInput{P1: MakeVec2(0, 0), P2: MakeVec2(10, 0), MaxFraction: 1}
		out, hit := shape.RayCast(input, xf, 0)
		if !hit {
			t.Errorf("%v: ray missed", shape.Type())
			continue
		}
		if out.Fraction <= 0.0 || out.Fraction >= 0.5 {
			t.Errorf("%v: fraction %v", shape.Type(), out.Fraction)
		}
		if out.Normal.X >= 0.0 {
			t.Errorf("%v: normal %v faces away from the ray", shape.Type(), out.Normal)
		}

		// A short ray stops before the shape.
		input.MaxFraction = 0.2
		if _, hit := shape.RayCast(input, xf, 0); hit {
			t.Errorf("%v: short ray hit", shape.Type())
		}
	}
}

func TestChainValidation(t *testing.T) {
	if _, err := NewChainShape([]Vec2{{0, 0}}); !errors.Is(err, ErrInvalidChain) {
		t.Fatalf("single vertex: got %v", err)
	}
	if _, err := NewLoopShape([]Vec2{{0, 0}, {1, 0}}); !errors.Is(err, ErrInvalidChain) {
		t.Fatalf("two vertex loop: got %v", err)
	}
	if _, err := NewChainShape([]Vec2{{0, 0}, {1, 0}, {1, 0.001}}); !errors.Is(err, ErrInvalidChain) {
		t.Fatalf("close vertices: got %v", err)
	}
}

func TestChainChildEdges(t *testing.T) {
	open, err := NewChainShape([]Vec2{{0, 0}, {1, 0}, {2, 1}})
	if err != nil {
		t.Fatal(err)
	}
	if open.ChildCount() != 2 {
		t.Fatalf("open chain has %d children", open.ChildCount())
	}

	first := open.ChildEdge(0)
	if first.HasV0 || !first.HasV3 || first.V3 != MakeVec2(2, 1) {
		t.Fatalf("first edge adjacency %+v", first)
	}

	loop, err := NewLoopShape([]Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}})
	if err != nil {
		t.Fatal(err)
	}
	if loop.ChildCount() != 4 {
		t.Fatalf("loop has %d children", loop.ChildCount())
	}

	last := loop.ChildEdge(3)
	if last.V2 != MakeVec2(0, 0) {
		t.Fatalf("loop is not closed: %+v", last)
	}
	if !last.HasV0 || !last.HasV3 || last.V0 != MakeVec2(1, 1) || last.V3 != MakeVec2(1, 0) {
		t.Fatalf("last loop edge adjacency %+v", last)
	}
	if loop.ComputeMass(1.0).Mass != 0.0 {
		t.Fatal("chain has mass")
	}
}
