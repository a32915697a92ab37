package velcro

// EdgeShape is a line segment. Edges can be connected in chains or loops;
// the optional ghost vertices V0 and V3 describe the neighbours so contact
// normals stay smooth across the joints between segments.
type EdgeShape struct {
	V1, V2 Vec2

	V0, V3       Vec2
	HasV0, HasV3 bool
}

func NewEdgeShape(v1, v2 Vec2) *EdgeShape {
	return &EdgeShape{V1: v1, V2: v2}
}

// SetGhostVertices records the neighbouring vertices of a smooth chain.
func (edge *EdgeShape) SetGhostVertices(v0 Vec2, hasV0 bool, v3 Vec2, hasV3 bool) {
	edge.V0, edge.HasV0 = v0, hasV0
	edge.V3, edge.HasV3 = v3, hasV3
}

func (edge *EdgeShape) Type() ShapeType { return ShapeEdge }
func (edge *EdgeShape) Radius() float64 { return PolygonRadius }
func (edge *EdgeShape) ChildCount() int { return 1 }

func (edge *EdgeShape) Clone() Shape {
	clone := *edge
	return &clone
}

// TestPoint always fails; an edge has no interior.
func (edge *EdgeShape) TestPoint(xf Transform, p Vec2) bool {
	return false
}

// RayCast intersects p1 + t*d with v1 + s*e.
func (edge *EdgeShape) RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool) {
	var output RayCastOutput

	// Put the ray into the edge's frame of reference.
	p1 := xf.MulTVec(input.P1)
	p2 := xf.MulTVec(input.P2)
	d := p2.Sub(p1)

	v1, v2 := edge.V1, edge.V2
	e := v2.Sub(v1)
	normal := MakeVec2(e.Y, -e.X).Normalized()

	// q = p1 + t * d
	// dot(normal, q - v1) = 0
	numerator := normal.Dot(v1.Sub(p1))
	denominator := normal.Dot(d)

	if denominator == 0.0 {
		return output, false
	}

	t := numerator / denominator
	if t < 0.0 || input.MaxFraction < t {
		return output, false
	}

	q := p1.Add(d.Mul(t))

	// q = v1 + s * r
	// s = dot(q - v1, r) / dot(r, r)
	rr := e.Dot(e)
	if rr == 0.0 {
		return output, false
	}

	s := q.Sub(v1).Dot(e) / rr
	if s < 0.0 || 1.0 < s {
		return output, false
	}

	output.Fraction = t
	if numerator > 0.0 {
		output.Normal = xf.Q.MulVec(normal).Neg()
	} else {
		output.Normal = xf.Q.MulVec(normal)
	}
	return output, true
}

func (edge *EdgeShape) ComputeAABB(xf Transform, childIndex int) AABB {
	v1 := xf.MulVec(edge.V1)
	v2 := xf.MulVec(edge.V2)

	r := MakeVec2(PolygonRadius, PolygonRadius)
	return AABB{LowerBound: v1.Min(v2).Sub(r), UpperBound: v1.Max(v2).Add(r)}
}

// ComputeMass returns zero mass centered on the segment midpoint.
func (edge *EdgeShape) ComputeMass(density float64) MassData {
	return MassData{Center: edge.V1.Add(edge.V2).Mul(0.5)}
}
