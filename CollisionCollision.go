package velcro

import "math"

// ContactFeature identifies the pair of features that produced a contact
// point. Points are matched across steps by plain equality of this value.
type ContactFeature struct {
	ReferenceEdge  uint8
	IncidentEdge   uint8
	IncidentVertex uint8
	Flip           bool
}

// ManifoldPoint is a contact point belonging to a contact manifold. It holds
// details related to the geometry and dynamics of the contact point. The
// local point usage depends on the manifold type:
//   - ManifoldCircles: the local center of circleB
//   - ManifoldFaceA: the local center of circleB or the clip point of polygonB
//   - ManifoldFaceB: the clip point of polygonA
type ManifoldPoint struct {
	LocalPoint     Vec2
	NormalImpulse  float64
	TangentImpulse float64
	ID             ContactFeature
}

type ManifoldType uint8

const (
	ManifoldCircles ManifoldType = iota
	ManifoldFaceA
	ManifoldFaceB
)

// Manifold describes how two shapes touch. Normal and point meaning depend on
// Type:
//   - ManifoldCircles: LocalPoint is the local center of circleA, the normal is unused
//   - ManifoldFaceA: LocalPoint is the center of faceA, LocalNormal its normal
//   - ManifoldFaceB: LocalPoint is the center of faceB, LocalNormal its normal
type Manifold struct {
	Points      [MaxManifoldPoints]ManifoldPoint
	LocalNormal Vec2
	LocalPoint  Vec2
	Type        ManifoldType
	PointCount  int
}

// WorldManifold is the manifold expressed in world coordinates.
type WorldManifold struct {
	Normal      Vec2
	Points      [MaxManifoldPoints]Vec2
	Separations [MaxManifoldPoints]float64
}

// Initialize evaluates the manifold with the supplied transforms and radii.
// This assumes modest motion from the original state. The points are the
// midpoints between the two surfaces.
func (wm *WorldManifold) Initialize(manifold *Manifold, xfA Transform, radiusA float64, xfB Transform, radiusB float64) {
	if manifold.PointCount == 0 {
		return
	}

	switch manifold.Type {
	case ManifoldCircles:
		wm.Normal = MakeVec2(1, 0)
		pointA := xfA.MulVec(manifold.LocalPoint)
		pointB := xfB.MulVec(manifold.Points[0].LocalPoint)
		if pointA.DistanceSquared(pointB) > epsilon*epsilon {
			wm.Normal = pointB.Sub(pointA).Normalized()
		}

		cA := pointA.Add(wm.Normal.Mul(radiusA))
		cB := pointB.Sub(wm.Normal.Mul(radiusB))
		wm.Points[0] = cA.Add(cB).Mul(0.5)
		wm.Separations[0] = cB.Sub(cA).Dot(wm.Normal)

	case ManifoldFaceA:
		wm.Normal = xfA.Q.MulVec(manifold.LocalNormal)
		planePoint := xfA.MulVec(manifold.LocalPoint)

		for i := 0; i < manifold.PointCount; i++ {
			clipPoint := xfB.MulVec(manifold.Points[i].LocalPoint)
			cA := clipPoint.Add(wm.Normal.Mul(radiusA - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cB := clipPoint.Sub(wm.Normal.Mul(radiusB))
			wm.Points[i] = cA.Add(cB).Mul(0.5)
			wm.Separations[i] = cB.Sub(cA).Dot(wm.Normal)
		}

	case ManifoldFaceB:
		wm.Normal = xfB.Q.MulVec(manifold.LocalNormal)
		planePoint := xfB.MulVec(manifold.LocalPoint)

		for i := 0; i < manifold.PointCount; i++ {
			clipPoint := xfA.MulVec(manifold.Points[i].LocalPoint)
			cB := clipPoint.Add(wm.Normal.Mul(radiusB - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cA := clipPoint.Sub(wm.Normal.Mul(radiusA))
			wm.Points[i] = cA.Add(cB).Mul(0.5)
			wm.Separations[i] = cA.Sub(cB).Dot(wm.Normal)
		}

		// Ensure normal points from A to B.
		wm.Normal = wm.Normal.Neg()
	}
}

// PointState is used for determining the state of contact points.
type PointState uint8

const (
	NullState    PointState = iota // point does not exist
	AddState                       // point was added in the update
	PersistState                   // point persisted across the update
	RemoveState                    // point was removed in the update
)

// GetPointStates computes the point states given two manifolds. The states
// pertain to the transition from manifold1 to manifold2, so state1 is either
// persist or remove while state2 is either add or persist.
func GetPointStates(manifold1, manifold2 *Manifold) (state1, state2 [MaxManifoldPoints]PointState) {
	for i := 0; i < manifold1.PointCount; i++ {
		id := manifold1.Points[i].ID
		state1[i] = RemoveState
		for j := 0; j < manifold2.PointCount; j++ {
			if manifold2.Points[j].ID == id {
				state1[i] = PersistState
				break
			}
		}
	}

	for i := 0; i < manifold2.PointCount; i++ {
		id := manifold2.Points[i].ID
		state2[i] = AddState
		for j := 0; j < manifold1.PointCount; j++ {
			if manifold1.Points[j].ID == id {
				state2[i] = PersistState
				break
			}
		}
	}

	return state1, state2
}

// ClipVertex is used for computing contact manifolds.
type ClipVertex struct {
	V  Vec2
	ID ContactFeature
}

// ClipSegmentToLine clips the segment vIn against the half plane
// dot(normal, v) <= offset. Points created by the clip inherit the feature of
// the vertex that was cut away.
func ClipSegmentToLine(vOut *[2]ClipVertex, vIn [2]ClipVertex, normal Vec2, offset float64) int {
	numOut := 0

	distance0 := normal.Dot(vIn[0].V) - offset
	distance1 := normal.Dot(vIn[1].V) - offset

	// If the points are behind the plane
	if distance0 <= 0.0 {
		vOut[numOut] = vIn[0]
		numOut++
	}
	if distance1 <= 0.0 {
		vOut[numOut] = vIn[1]
		numOut++
	}

	// If the points are on different sides of the plane
	if distance0*distance1 < 0.0 {
		interp := distance0 / (distance0 - distance1)
		vOut[numOut].V = vIn[0].V.Add(vIn[1].V.Sub(vIn[0].V).Mul(interp))
		if distance0 > 0.0 {
			vOut[numOut].ID = vIn[0].ID
		} else {
			vOut[numOut].ID = vIn[1].ID
		}
		numOut++
	}

	return numOut
}

// RayCastInput is the ray from P1 to P1 + MaxFraction * (P2 - P1).
type RayCastInput struct {
	P1, P2      Vec2
	MaxFraction float64
}

// RayCastOutput holds the hit normal and the fraction along the input ray.
type RayCastOutput struct {
	Normal   Vec2
	Fraction float64
}

// AABB is an axis aligned bounding box.
type AABB struct {
	LowerBound Vec2 `yaml:"lower"`
	UpperBound Vec2 `yaml:"upper"`
}

// MakeAABB builds a box from two corners, rejecting inverted corners.
func MakeAABB(lower, upper Vec2) (AABB, error) {
	bb := AABB{LowerBound: lower, UpperBound: upper}
	if !bb.IsValid() {
		return bb, ErrInvalidAABB
	}
	return bb, nil
}

func (bb AABB) Center() Vec2 {
	return bb.LowerBound.Add(bb.UpperBound).Mul(0.5)
}

func (bb AABB) Extents() Vec2 {
	return bb.UpperBound.Sub(bb.LowerBound).Mul(0.5)
}

func (bb AABB) Perimeter() float64 {
	wx := bb.UpperBound.X - bb.LowerBound.X
	wy := bb.UpperBound.Y - bb.LowerBound.Y
	return 2.0 * (wx + wy)
}

// Combine returns the union of two boxes.
func (bb AABB) Combine(o AABB) AABB {
	return AABB{
		LowerBound: bb.LowerBound.Min(o.LowerBound),
		UpperBound: bb.UpperBound.Max(o.UpperBound),
	}
}

// Contains reports whether o lies inside bb.
func (bb AABB) Contains(o AABB) bool {
	return bb.LowerBound.X <= o.LowerBound.X &&
		bb.LowerBound.Y <= o.LowerBound.Y &&
		o.UpperBound.X <= bb.UpperBound.X &&
		o.UpperBound.Y <= bb.UpperBound.Y
}

func (bb AABB) IsValid() bool {
	d := bb.UpperBound.Sub(bb.LowerBound)
	return d.X >= 0.0 && d.Y >= 0.0 && bb.LowerBound.IsValid() && bb.UpperBound.IsValid()
}

func (bb AABB) ContainsPoint(p Vec2) bool {
	return bb.LowerBound.X <= p.X && p.X <= bb.UpperBound.X &&
		bb.LowerBound.Y <= p.Y && p.Y <= bb.UpperBound.Y
}

// TestOverlapAABB reports whether two boxes overlap, touching included.
func TestOverlapAABB(a, b AABB) bool {
	if b.LowerBound.X-a.UpperBound.X > 0.0 || b.LowerBound.Y-a.UpperBound.Y > 0.0 {
		return false
	}
	if a.LowerBound.X-b.UpperBound.X > 0.0 || a.LowerBound.Y-b.UpperBound.Y > 0.0 {
		return false
	}
	return true
}

func axis(v Vec2, i int) float64 {
	if i == 0 {
		return v.X
	}
	return v.Y
}

// RayCast clips the ray against the box using the slab method.
func (bb AABB) RayCast(input RayCastInput) (RayCastOutput, bool) {
	var output RayCastOutput
	tmin := -maxFloat
	tmax := maxFloat

	p := input.P1
	d := input.P2.Sub(input.P1)
	absD := d.Abs()

	var normal Vec2

	for i := 0; i < 2; i++ {
		pi, lower, upper := axis(p, i), axis(bb.LowerBound, i), axis(bb.UpperBound, i)
		if axis(absD, i) < epsilon {
			// Parallel.
			if pi < lower || upper < pi {
				return output, false
			}
			continue
		}

		invD := 1.0 / axis(d, i)
		t1 := (lower - pi) * invD
		t2 := (upper - pi) * invD

		// Sign of the normal vector.
		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1.0
		}

		// Push the min up
		if t1 > tmin {
			normal.SetZero()
			if i == 0 {
				normal.X = s
			} else {
				normal.Y = s
			}
			tmin = t1
		}

		// Pull the max down
		tmax = math.Min(tmax, t2)

		if tmin > tmax {
			return output, false
		}
	}

	// Does the ray start inside the box?
	// Does the ray intersect beyond the max fraction?
	if tmin < 0.0 || input.MaxFraction < tmin {
		return output, false
	}

	output.Fraction = tmin
	output.Normal = normal
	return output, true
}

// TestOverlap determines if two generic shapes overlap.
func TestOverlap(shapeA Shape, indexA int, shapeB Shape, indexB int, xfA, xfB Transform) bool {
	input := DistanceInput{
		ProxyA:     MakeDistanceProxy(shapeA, indexA),
		ProxyB:     MakeDistanceProxy(shapeB, indexB),
		TransformA: xfA,
		TransformB: xfB,
		UseRadii:   true,
	}

	var cache SimplexCache
	output := Distance(&cache, input)

	return output.Distance < 10.0*epsilon
}
