package velcro

import "math"

// CircleShape is a solid circle.
type CircleShape struct {
	P      Vec2
	radius float64
}

func NewCircleShape(center Vec2, radius float64) *CircleShape {
	return &CircleShape{P: center, radius: radius}
}

func (shape *CircleShape) Type() ShapeType { return ShapeCircle }
func (shape *CircleShape) Radius() float64 { return shape.radius }
func (shape *CircleShape) ChildCount() int { return 1 }

func (shape *CircleShape) Clone() Shape {
	clone := *shape
	return &clone
}

func (shape *CircleShape) TestPoint(xf Transform, p Vec2) bool {
	center := xf.MulVec(shape.P)
	d := p.Sub(center)
	return d.Dot(d) <= shape.radius*shape.radius
}

// RayCast solves |s + a*r| = radius for the smallest a.
// Collision Detection in Interactive 3D Environments by Gino van den Bergen,
// section 3.1.2.
func (shape *CircleShape) RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool) {
	var output RayCastOutput

	position := xf.MulVec(shape.P)
	s := input.P1.Sub(position)
	b := s.Dot(s) - shape.radius*shape.radius

	// Solve quadratic equation.
	r := input.P2.Sub(input.P1)
	c := s.Dot(r)
	rr := r.Dot(r)
	sigma := c*c - rr*b

	// Check for negative discriminant and short segment.
	if sigma < 0.0 || rr < epsilon {
		return output, false
	}

	// Find the point of intersection of the line with the circle.
	a := -(c + math.Sqrt(sigma))

	// Is the intersection point on the segment?
	if 0.0 <= a && a <= input.MaxFraction*rr {
		a /= rr
		output.Fraction = a
		output.Normal = s.Add(r.Mul(a)).Normalized()
		return output, true
	}

	return output, false
}

func (shape *CircleShape) ComputeAABB(xf Transform, childIndex int) AABB {
	p := xf.MulVec(shape.P)
	r := MakeVec2(shape.radius, shape.radius)
	return AABB{LowerBound: p.Sub(r), UpperBound: p.Add(r)}
}

func (shape *CircleShape) ComputeMass(density float64) MassData {
	mass := density * math.Pi * shape.radius * shape.radius
	return MassData{
		Mass:   mass,
		Center: shape.P,
		I:      mass * 0.5 * shape.radius * shape.radius,
	}
}
