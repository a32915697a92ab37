package velcro

import "github.com/pkg/errors"

// ChainShape is a free form sequence of line segments with two-sided
// collision, so any winding order works. Each segment is a child edge whose
// ghost vertices come from its neighbours. Self-intersecting chains do not
// collide properly.
type ChainShape struct {
	Vertices []Vec2

	PrevVertex, NextVertex       Vec2
	HasPrevVertex, HasNextVertex bool
}

func validateChain(vertices []Vec2, min int) error {
	if len(vertices) < min {
		return errors.Wrapf(ErrInvalidChain, "need at least %d vertices, got %d", min, len(vertices))
	}
	for i := 1; i < len(vertices); i++ {
		if vertices[i-1].DistanceSquared(vertices[i]) <= LinearSlop*LinearSlop {
			return errors.Wrapf(ErrInvalidChain, "vertices %d and %d are too close", i-1, i)
		}
	}
	return nil
}

// NewChainShape builds an open chain.
func NewChainShape(vertices []Vec2) (*ChainShape, error) {
	if err := validateChain(vertices, 2); err != nil {
		return nil, err
	}
	chain := &ChainShape{Vertices: append([]Vec2(nil), vertices...)}
	return chain, nil
}

// NewLoopShape builds a closed chain; the last vertex connects back to the
// first one.
func NewLoopShape(vertices []Vec2) (*ChainShape, error) {
	if err := validateChain(vertices, 3); err != nil {
		return nil, err
	}

	count := len(vertices)
	vs := make([]Vec2, count+1)
	copy(vs, vertices)
	vs[count] = vs[0]

	return &ChainShape{
		Vertices:      vs,
		PrevVertex:    vs[count-1],
		NextVertex:    vs[1],
		HasPrevVertex: true,
		HasNextVertex: true,
	}, nil
}

// SetPrevVertex sets the ghost vertex before the first segment, for
// connecting chains together.
func (chain *ChainShape) SetPrevVertex(v Vec2) {
	chain.PrevVertex = v
	chain.HasPrevVertex = true
}

// SetNextVertex sets the ghost vertex after the last segment.
func (chain *ChainShape) SetNextVertex(v Vec2) {
	chain.NextVertex = v
	chain.HasNextVertex = true
}

func (chain *ChainShape) Type() ShapeType { return ShapeChain }
func (chain *ChainShape) Radius() float64 { return PolygonRadius }

// ChildCount is the edge count.
func (chain *ChainShape) ChildCount() int {
	return len(chain.Vertices) - 1
}

func (chain *ChainShape) Clone() Shape {
	clone := *chain
	clone.Vertices = append([]Vec2(nil), chain.Vertices...)
	return &clone
}

// ChildEdge returns segment index as an edge with its adjacency filled in.
func (chain *ChainShape) ChildEdge(index int) EdgeShape {
	assert(0 <= index && index < len(chain.Vertices)-1)

	edge := EdgeShape{
		V1: chain.Vertices[index],
		V2: chain.Vertices[index+1],
	}

	if index > 0 {
		edge.V0 = chain.Vertices[index-1]
		edge.HasV0 = true
	} else {
		edge.V0 = chain.PrevVertex
		edge.HasV0 = chain.HasPrevVertex
	}

	if index < len(chain.Vertices)-2 {
		edge.V3 = chain.Vertices[index+2]
		edge.HasV3 = true
	} else {
		edge.V3 = chain.NextVertex
		edge.HasV3 = chain.HasNextVertex
	}

	return edge
}

// TestPoint always fails; a chain has no interior.
func (chain *ChainShape) TestPoint(xf Transform, p Vec2) bool {
	return false
}

func (chain *ChainShape) RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool) {
	edge := EdgeShape{V1: chain.Vertices[childIndex], V2: chain.Vertices[childIndex+1]}
	return edge.RayCast(input, xf, 0)
}

func (chain *ChainShape) ComputeAABB(xf Transform, childIndex int) AABB {
	v1 := xf.MulVec(chain.Vertices[childIndex])
	v2 := xf.MulVec(chain.Vertices[childIndex+1])

	r := MakeVec2(PolygonRadius, PolygonRadius)
	return AABB{LowerBound: v1.Min(v2).Sub(r), UpperBound: v1.Max(v2).Add(r)}
}

// ComputeMass returns zero mass; chains are meant for static geometry.
func (chain *ChainShape) ComputeMass(density float64) MassData {
	return MassData{}
}
