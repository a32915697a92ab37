package velcro

import (
	"testing"
)

func TestCollideCircles(t *testing.T) {
	a := NewCircleShape(Vec2{}, 1.0)
	b := NewCircleShape(Vec2{}, 1.0)
	xfA := MakeTransform(Vec2{}, 0.0)
	xfB := MakeTransform(MakeVec2(1.5, 0.0), 0.0)

	var m Manifold
	CollideCircles(&m, a, xfA, b, xfB)
	if m.PointCount != 1 || m.Type != ManifoldCircles {
		t.Fatalf("manifold %+v", m)
	}

	var wm WorldManifold
	wm.Initialize(&m, xfA, a.Radius(), xfB, b.Radius())
	if wm.Normal.Distance(MakeVec2(1, 0)) > 1e-12 {
		t.Fatalf("normal %v", wm.Normal)
	}
	if wm.Points[0].Distance(MakeVec2(0.75, 0)) > 1e-12 {
		t.Fatalf("point %v", wm.Points[0])
	}
	if !near(wm.Separations[0], -0.5, 1e-12) {
		t.Fatalf("separation %v", wm.Separations[0])
	}

	// Apart.
	CollideCircles(&m, a, xfA, b, MakeTransform(MakeVec2(2.5, 0.0), 0.0))
	if m.PointCount != 0 {
		t.Fatalf("separated circles have %d points", m.PointCount)
	}
}

func TestCollidePolygonAndCircle(t *testing.T) {
	box := NewBoxShape(1, 1)
	circle := NewCircleShape(Vec2{}, 0.5)
	xfA := MakeTransform(Vec2{}, 0.0)
	xfB := MakeTransform(MakeVec2(0, 1.4), 0.0)

	var m Manifold
	CollidePolygonAndCircle(&m, box, xfA, circle, xfB)
	if m.PointCount != 1 || m.Type != ManifoldFaceA {
		t.Fatalf("manifold %+v", m)
	}

	var wm WorldManifold
	wm.Initialize(&m, xfA, box.Radius(), xfB, circle.Radius())
	if wm.Normal.Distance(MakeVec2(0, 1)) > 1e-12 {
		t.Fatalf("normal %v", wm.Normal)
	}
	if wm.Separations[0] >= 0.0 {
		t.Fatalf("separation %v", wm.Separations[0])
	}
}

func TestCollidePolygons(t *testing.T) {
	a := NewBoxShape(1, 1)
	b := NewBoxShape(1, 1)
	xfA := MakeTransform(Vec2{}, 0.0)
	xfB := MakeTransform(MakeVec2(0.2, 1.9), 0.0)

	var m Manifold
	CollidePolygons(&m, a, xfA, b, xfB)
	if m.PointCount != 2 {
		t.Fatalf("stacked boxes have %d points", m.PointCount)
	}
	if m.Points[0].ID == m.Points[1].ID {
		t.Fatal("contact points share a feature id")
	}

	var wm WorldManifold
	wm.Initialize(&m, xfA, a.Radius(), xfB, b.Radius())
	if wm.Normal.Distance(MakeVec2(0, 1)) > 1e-9 {
		t.Fatalf("normal %v", wm.Normal)
	}
	for i := 0; i < m.PointCount; i++ {
		if s := wm.Separations[i]; s >= 0.0 || s < -0.2 {
			t.Fatalf("separation %d is %v", i, s)
		}
	}

	if !TestOverlap(a, 0, b, 0, xfA, xfB) {
		t.Fatal("overlapping boxes do not overlap")
	}

	xfB = MakeTransform(MakeVec2(0.2, 2.5), 0.0)
	CollidePolygons(&m, a, xfA, b, xfB)
	if m.PointCount != 0 {
		t.Fatalf("separated boxes have %d points", m.PointCount)
	}
	if TestOverlap(a, 0, b, 0, xfA, xfB) {
		t.Fatal("separated boxes overlap")
	}
}

func TestGetPointStates(t *testing.T) {
	idA := ContactFeature{ReferenceEdge: 0, IncidentEdge: 1}
	idB := ContactFeature{ReferenceEdge: 0, IncidentEdge: 2}
	idC := ContactFeature{ReferenceEdge: 1, IncidentVertex: 3}

	var m1, m2 Manifold
	m1.PointCount = 2
	m1.Points[0].ID = idA
	m1.Points[1].ID = idB
	m2.PointCount = 2
	m2.Points[0].ID = idB
	m2.Points[1].ID = idC

	s1, s2 := GetPointStates(&m1, &m2)
	if s1 != [MaxManifoldPoints]PointState{RemoveState, PersistState} {
		t.Fatalf("state1 %v", s1)
	}
	if s2 != [MaxManifoldPoints]PointState{PersistState, AddState} {
		t.Fatalf("state2 %v", s2)
	}

	// Unused slots stay null.
	m2.PointCount = 1
	_, s2 = GetPointStates(&m1, &m2)
	if s2[1] != NullState {
		t.Fatalf("unused slot %v", s2[1])
	}
}

func TestCollideEdgeAndPolygon(t *testing.T) {
	box := NewBoxShape(0.5, 0.5)
	xfA := MakeTransform(Vec2{}, 0.0)

	tests := []struct {
		name string
		edge *EdgeShape
		at   Vec2
	}{
		{"lone edge", NewEdgeShape(MakeVec2(-5, 0), MakeVec2(5, 0)), MakeVec2(0, 0.49)},
		{"across the junction", func() *EdgeShape {
			e := NewEdgeShape(MakeVec2(0, 0), MakeVec2(1, 0))
			e.SetGhostVertices(MakeVec2(-1, 0), true, MakeVec2(2, 0), true)
			return e
		}(), MakeVec2(1.0, 0.49)},
		{"near the start", func() *EdgeShape {
			e := NewEdgeShape(MakeVec2(0, 0), MakeVec2(1, 0))
			e.SetGhostVertices(MakeVec2(-1, 0), true, MakeVec2(2, 0), true)
			return e
		}(), MakeVec2(0.0, 0.49)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xfB := MakeTransform(tt.at, 0.0)

			var m Manifold
			CollideEdgeAndPolygon(&m, tt.edge, xfA, box, xfB)
			if m.PointCount == 0 {
				t.Fatal("no contact")
			}

			var wm WorldManifold
			wm.Initialize(&m, xfA, tt.edge.Radius(), xfB, box.Radius())
			if wm.Normal.Distance(MakeVec2(0, 1)) > 1e-9 {
				t.Fatalf("normal %v, want up", wm.Normal)
			}
		})
	}
}

func TestCollideEdgeAndCircle(t *testing.T) {
	edge := NewEdgeShape(MakeVec2(-1, 0), MakeVec2(1, 0))
	circle := NewCircleShape(Vec2{}, 0.5)
	xfA := MakeTransform(Vec2{}, 0.0)

	var m Manifold
	CollideEdgeAndCircle(&m, edge, xfA, circle, MakeTransform(MakeVec2(0.3, 0.45), 0.0))
	if m.PointCount != 1 || m.Type != ManifoldFaceA {
		t.Fatalf("face region manifold %+v", m)
	}

	// Past the end of the edge the contact comes from the vertex.
	CollideEdgeAndCircle(&m, edge, xfA, circle, MakeTransform(MakeVec2(1.3, 0.1), 0.0))
	if m.PointCount != 1 || m.Type != ManifoldCircles {
		t.Fatalf("vertex region manifold %+v", m)
	}

	CollideEdgeAndCircle(&m, edge, xfA, circle, MakeTransform(MakeVec2(0, 1.0), 0.0))
	if m.PointCount != 0 {
		t.Fatalf("separated circle has %d points", m.PointCount)
	}
}
