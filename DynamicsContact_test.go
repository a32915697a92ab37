package velcro

import "testing"

func TestMatchImpulsesByFeature(t *testing.T) {
	kept := ContactFeature{ReferenceEdge: 1, IncidentEdge: 3, IncidentVertex: 0, Flip: false}
	lost := ContactFeature{ReferenceEdge: 1, IncidentEdge: 3, IncidentVertex: 1, Flip: false}
	fresh := ContactFeature{ReferenceEdge: 2, IncidentEdge: 0, IncidentVertex: 1, Flip: true}

	oldManifold := Manifold{PointCount: 2}
	oldManifold.Points[0] = ManifoldPoint{ID: lost, NormalImpulse: 7.5, TangentImpulse: -0.25}
	oldManifold.Points[1] = ManifoldPoint{ID: kept, NormalImpulse: 1.25, TangentImpulse: 0.5}

	c := &Contact{}
	c.manifold.PointCount = 2
	c.manifold.Points[0] = ManifoldPoint{ID: kept, NormalImpulse: 99, TangentImpulse: 99}
	c.manifold.Points[1] = ManifoldPoint{ID: fresh, NormalImpulse: 99, TangentImpulse: 99}

	c.matchImpulses(&oldManifold)

	if p := c.manifold.Points[0]; p.NormalImpulse != 1.25 || p.TangentImpulse != 0.5 {
		t.Fatalf("matching feature: impulses %v %v, want 1.25 0.5", p.NormalImpulse, p.TangentImpulse)
	}
	if p := c.manifold.Points[1]; p.NormalImpulse != 0.0 || p.TangentImpulse != 0.0 {
		t.Fatalf("new feature: impulses %v %v, want 0 0", p.NormalImpulse, p.TangentImpulse)
	}
}

func TestMatchImpulsesEmptyOldManifold(t *testing.T) {
	c := &Contact{}
	c.manifold.PointCount = 1
	c.manifold.Points[0] = ManifoldPoint{NormalImpulse: 3, TangentImpulse: 4}

	c.matchImpulses(&Manifold{})

	if p := c.manifold.Points[0]; p.NormalImpulse != 0.0 || p.TangentImpulse != 0.0 {
		t.Fatalf("impulses %v %v carried from nothing", p.NormalImpulse, p.TangentImpulse)
	}
}
