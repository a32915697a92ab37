package velcro

import (
	"github.com/pkg/errors"
)

// PolygonShape is a convex polygon. The interior is to the left of each edge
// and the vertex count never exceeds MaxPolygonVertices.
type PolygonShape struct {
	Centroid Vec2
	Vertices [MaxPolygonVertices]Vec2
	Normals  [MaxPolygonVertices]Vec2
	Count    int
}

// NewPolygonShape builds the convex hull of the given points. Points closer
// than half the linear slop are welded together. More than
// MaxPolygonVertices points is an error, as is a hull with no area.
func NewPolygonShape(vertices []Vec2) (*PolygonShape, error) {
	poly := &PolygonShape{}
	if err := poly.Set(vertices); err != nil {
		return nil, err
	}
	return poly, nil
}

// NewBoxShape builds a box centered on the body origin with the given half
// extents.
func NewBoxShape(hx, hy float64) *PolygonShape {
	poly := &PolygonShape{}
	poly.SetAsBox(hx, hy)
	return poly
}

// NewOrientedBoxShape builds a box with half extents hx, hy placed at center
// and rotated by angle in body coordinates.
func NewOrientedBoxShape(hx, hy float64, center Vec2, angle float64) *PolygonShape {
	poly := NewBoxShape(hx, hy)
	poly.Centroid = center

	xf := MakeTransform(center, angle)
	for i := 0; i < poly.Count; i++ {
		poly.Vertices[i] = xf.MulVec(poly.Vertices[i])
		poly.Normals[i] = xf.Q.MulVec(poly.Normals[i])
	}
	return poly
}

func (poly *PolygonShape) Type() ShapeType { return ShapePolygon }
func (poly *PolygonShape) Radius() float64 { return PolygonRadius }
func (poly *PolygonShape) ChildCount() int { return 1 }

func (poly *PolygonShape) Clone() Shape {
	clone := *poly
	return &clone
}

func (poly *PolygonShape) SetAsBox(hx, hy float64) {
	poly.Count = 4
	poly.Vertices[0] = MakeVec2(-hx, -hy)
	poly.Vertices[1] = MakeVec2(hx, -hy)
	poly.Vertices[2] = MakeVec2(hx, hy)
	poly.Vertices[3] = MakeVec2(-hx, hy)
	poly.Normals[0] = MakeVec2(0.0, -1.0)
	poly.Normals[1] = MakeVec2(1.0, 0.0)
	poly.Normals[2] = MakeVec2(0.0, 1.0)
	poly.Normals[3] = MakeVec2(-1.0, 0.0)
	poly.Centroid.SetZero()
}

// Set replaces the polygon with the convex hull of vertices.
func (poly *PolygonShape) Set(vertices []Vec2) error {
	if len(vertices) > MaxPolygonVertices {
		return errors.Wrapf(ErrTooManyVertices, "got %d, limit %d", len(vertices), MaxPolygonVertices)
	}
	if len(vertices) < 3 {
		return errors.Wrapf(ErrDegeneratePolygon, "need at least 3 vertices, got %d", len(vertices))
	}

	// Perform welding and copy vertices into local buffer.
	var ps [MaxPolygonVertices]Vec2
	n := 0
	const weld = (0.5 * LinearSlop) * (0.5 * LinearSlop)
	for _, v := range vertices {
		if !v.IsValid() {
			return errors.Wrap(ErrDegeneratePolygon, "vertex is not finite")
		}
		unique := true
		for j := 0; j < n; j++ {
			if v.DistanceSquared(ps[j]) < weld {
				unique = false
				break
			}
		}
		if unique {
			ps[n] = v
			n++
		}
	}

	if n < 3 {
		return errors.Wrapf(ErrDegeneratePolygon, "only %d distinct vertices", n)
	}

	// Create the convex hull using the gift wrapping algorithm, starting at
	// the right most point.
	i0 := 0
	x0 := ps[0].X
	for i := 1; i < n; i++ {
		x := ps[i].X
		if x > x0 || (x == x0 && ps[i].Y < ps[i0].Y) {
			i0 = i
			x0 = x
		}
	}

	var hull [MaxPolygonVertices]int
	m := 0
	ih := i0
	for {
		hull[m] = ih

		ie := 0
		for j := 1; j < n; j++ {
			if ie == ih {
				ie = j
				continue
			}

			r := ps[ie].Sub(ps[hull[m]])
			v := ps[j].Sub(ps[hull[m]])
			c := r.Cross(v)
			if c < 0.0 {
				ie = j
			}

			// Collinearity check
			if c == 0.0 && v.LengthSquared() > r.LengthSquared() {
				ie = j
			}
		}

		m++
		ih = ie

		if ie == i0 || m == n {
			break
		}
	}

	if m < 3 {
		return errors.Wrap(ErrDegeneratePolygon, "vertices are collinear")
	}

	var out PolygonShape
	out.Count = m
	for i := 0; i < m; i++ {
		out.Vertices[i] = ps[hull[i]]
	}

	// Compute normals. Ensure the edges have non-zero length.
	for i := 0; i < m; i++ {
		edge := out.Vertices[(i+1)%m].Sub(out.Vertices[i])
		if edge.LengthSquared() <= epsilon*epsilon {
			return errors.Wrap(ErrDegeneratePolygon, "zero length edge")
		}
		out.Normals[i] = edge.CrossScalar(1.0).Normalized()
	}

	centroid, area := computeCentroid(out.Vertices[:m])
	if area <= epsilon {
		return errors.Wrap(ErrDegeneratePolygon, "polygon has no area")
	}
	out.Centroid = centroid

	*poly = out
	return nil
}

func computeCentroid(vs []Vec2) (Vec2, float64) {
	var c Vec2
	area := 0.0

	// pRef is the reference point for forming triangles. Placing it inside
	// the polygon reduces rounding error.
	var pRef Vec2
	for _, v := range vs {
		pRef = pRef.Add(v)
	}
	pRef = pRef.Mul(1.0 / float64(len(vs)))

	const inv3 = 1.0 / 3.0
	for i := range vs {
		p1 := pRef
		p2 := vs[i]
		p3 := vs[(i+1)%len(vs)]

		e1 := p2.Sub(p1)
		e2 := p3.Sub(p1)

		triangleArea := 0.5 * e1.Cross(e2)
		area += triangleArea

		// Area weighted centroid
		c = c.Add(p1.Add(p2).Add(p3).Mul(triangleArea * inv3))
	}

	if area > epsilon {
		c = c.Mul(1.0 / area)
	}
	return c, area
}

func (poly *PolygonShape) TestPoint(xf Transform, p Vec2) bool {
	pLocal := xf.MulTVec(p)
	for i := 0; i < poly.Count; i++ {
		if poly.Normals[i].Dot(pLocal.Sub(poly.Vertices[i])) > 0.0 {
			return false
		}
	}
	return true
}

func (poly *PolygonShape) RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool) {
	var output RayCastOutput

	// Put the ray into the polygon's frame of reference.
	p1 := xf.MulTVec(input.P1)
	p2 := xf.MulTVec(input.P2)
	d := p2.Sub(p1)

	lower, upper := 0.0, input.MaxFraction
	index := -1

	for i := 0; i < poly.Count; i++ {
		// p = p1 + a * d
		// dot(normal, p - v) = 0
		// dot(normal, p1 - v) + a * dot(normal, d) = 0
		numerator := poly.Normals[i].Dot(poly.Vertices[i].Sub(p1))
		denominator := poly.Normals[i].Dot(d)

		if denominator == 0.0 {
			if numerator < 0.0 {
				return output, false
			}
		} else {
			// lower < numerator / denominator with denominator < 0 flips to
			// denominator * lower > numerator.
			if denominator < 0.0 && numerator < lower*denominator {
				// The segment enters this half-space.
				lower = numerator / denominator
				index = i
			} else if denominator > 0.0 && numerator < upper*denominator {
				// The segment exits this half-space.
				upper = numerator / denominator
			}
		}

		if upper < lower {
			return output, false
		}
	}

	if index >= 0 {
		output.Fraction = lower
		output.Normal = xf.Q.MulVec(poly.Normals[index])
		return output, true
	}

	return output, false
}

func (poly *PolygonShape) ComputeAABB(xf Transform, childIndex int) AABB {
	lower := xf.MulVec(poly.Vertices[0])
	upper := lower

	for i := 1; i < poly.Count; i++ {
		v := xf.MulVec(poly.Vertices[i])
		lower = lower.Min(v)
		upper = upper.Max(v)
	}

	r := MakeVec2(PolygonRadius, PolygonRadius)
	return AABB{LowerBound: lower.Sub(r), UpperBound: upper.Add(r)}
}

// ComputeMass integrates over the triangles fanned from an interior point.
// For a triangle (s, s+e1, s+e2) with D = cross(e1, e2) the second moment
// about s is D/12 * (|e1|^2 + e1.e2 + |e2|^2) per axis.
func (poly *PolygonShape) ComputeMass(density float64) MassData {
	var center Vec2
	area := 0.0
	I := 0.0

	var s Vec2
	for i := 0; i < poly.Count; i++ {
		s = s.Add(poly.Vertices[i])
	}
	s = s.Mul(1.0 / float64(poly.Count))

	const inv3 = 1.0 / 3.0

	for i := 0; i < poly.Count; i++ {
		e1 := poly.Vertices[i].Sub(s)
		e2 := poly.Vertices[(i+1)%poly.Count].Sub(s)

		D := e1.Cross(e2)

		triangleArea := 0.5 * D
		area += triangleArea

		center = center.Add(e1.Add(e2).Mul(triangleArea * inv3))

		intx2 := e1.X*e1.X + e2.X*e1.X + e2.X*e2.X
		inty2 := e1.Y*e1.Y + e2.Y*e1.Y + e2.Y*e2.Y

		I += (0.25 * inv3 * D) * (intx2 + inty2)
	}

	var md MassData
	md.Mass = density * area

	assert(area > epsilon)
	center = center.Mul(1.0 / area)
	md.Center = center.Add(s)

	// Shift the inertia from s to the centroid.
	md.I = density*I - md.Mass*center.Dot(center)
	return md
}

// Validate checks convexity. Polygons built by Set are always convex.
func (poly *PolygonShape) Validate() bool {
	for i := 0; i < poly.Count; i++ {
		i1 := i
		i2 := (i + 1) % poly.Count
		p := poly.Vertices[i1]
		e := poly.Vertices[i2].Sub(p)

		for j := 0; j < poly.Count; j++ {
			if j == i1 || j == i2 {
				continue
			}
			if e.Cross(poly.Vertices[j].Sub(p)) < 0.0 {
				return false
			}
		}
	}
	return true
}
