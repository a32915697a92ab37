package velcro

// MassData holds the mass properties computed for a shape.
type MassData struct {
	// Mass of the shape, usually in kilograms.
	Mass float64

	// Center is the position of the centroid relative to the shape's origin.
	Center Vec2

	// I is the rotational inertia about the centroid.
	I float64
}

type ShapeType uint8

const (
	ShapeCircle ShapeType = iota
	ShapeEdge
	ShapePolygon
	ShapeChain
	shapeTypeCount
)

func (t ShapeType) String() string {
	switch t {
	case ShapeCircle:
		return "circle"
	case ShapeEdge:
		return "edge"
	case ShapePolygon:
		return "polygon"
	case ShapeChain:
		return "chain"
	}
	return "unknown"
}

// Shape is the geometry used for collision detection. A shape may hold more
// than one convex child; each child gets its own broad-phase proxy. Shapes are
// cloned into a Fixture and never change afterwards.
type Shape interface {
	Type() ShapeType

	// Radius is the skin radius. For polygons and edges it is PolygonRadius.
	Radius() float64

	// ChildCount is the number of child primitives.
	ChildCount() int

	Clone() Shape

	// TestPoint reports whether p, in world coordinates, lies inside the
	// shape. Only convex shapes can contain points.
	TestPoint(xf Transform, p Vec2) bool

	// RayCast casts a ray against a child shape.
	RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool)

	// ComputeAABB returns the world bounds of a child shape.
	ComputeAABB(xf Transform, childIndex int) AABB

	// ComputeMass computes mass properties from the shape dimensions and a
	// density in kilograms per square meter.
	ComputeMass(density float64) MassData
}
