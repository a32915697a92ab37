package velcro

// GJK using Voronoi regions (Christer Ericson) and barycentric coordinates.

const maxGJKIterations = 20

// DistanceProxy is the GJK view of a convex shape child: a point cloud plus
// a radius.
type DistanceProxy struct {
	Vertices [MaxPolygonVertices]Vec2
	Count    int
	Radius   float64
}

// MakeDistanceProxy captures child index of shape.
func MakeDistanceProxy(shape Shape, index int) DistanceProxy {
	var p DistanceProxy
	p.Radius = shape.Radius()

	switch s := shape.(type) {
	case *CircleShape:
		p.Vertices[0] = s.P
		p.Count = 1

	case *PolygonShape:
		p.Vertices = s.Vertices
		p.Count = s.Count

	case *ChainShape:
		p.Vertices[0] = s.Vertices[index]
		p.Vertices[1] = s.Vertices[index+1]
		p.Count = 2

	case *EdgeShape:
		p.Vertices[0] = s.V1
		p.Vertices[1] = s.V2
		p.Count = 2

	default:
		assert(false)
	}

	return p
}

// SupportIndex returns the index of the vertex farthest along d.
func (p *DistanceProxy) SupportIndex(d Vec2) int {
	bestIndex := 0
	bestValue := p.Vertices[0].Dot(d)
	for i := 1; i < p.Count; i++ {
		if value := p.Vertices[i].Dot(d); value > bestValue {
			bestIndex = i
			bestValue = value
		}
	}
	return bestIndex
}

// Support returns the vertex farthest along d.
func (p *DistanceProxy) Support(d Vec2) Vec2 {
	return p.Vertices[p.SupportIndex(d)]
}

// SimplexCache warm starts Distance. Zero value means no cache.
type SimplexCache struct {
	Metric float64 // length or area
	Count  int
	IndexA [3]int // vertices on shape A
	IndexB [3]int // vertices on shape B
}

// DistanceInput is the input for Distance. UseRadii inflates the result by
// the proxy radii.
type DistanceInput struct {
	ProxyA, ProxyB         DistanceProxy
	TransformA, TransformB Transform
	UseRadii               bool
}

// DistanceOutput holds the closest points and their distance.
type DistanceOutput struct {
	PointA     Vec2 // closest point on shape A
	PointB     Vec2 // closest point on shape B
	Distance   float64
	Iterations int // number of GJK iterations used
}

type simplexVertex struct {
	wA     Vec2    // support point in proxyA
	wB     Vec2    // support point in proxyB
	w      Vec2    // wB - wA
	a      float64 // barycentric coordinate for closest point
	indexA int
	indexB int
}

type simplex struct {
	v     [3]simplexVertex
	count int
}

func (s *simplex) readCache(cache *SimplexCache, proxyA *DistanceProxy, xfA Transform, proxyB *DistanceProxy, xfB Transform) {
	assert(cache.Count <= 3)

	// Copy data from cache.
	s.count = cache.Count
	for i := 0; i < s.count; i++ {
		v := &s.v[i]
		v.indexA = cache.IndexA[i]
		v.indexB = cache.IndexB[i]
		v.wA = xfA.MulVec(proxyA.Vertices[v.indexA])
		v.wB = xfB.MulVec(proxyB.Vertices[v.indexB])
		v.w = v.wB.Sub(v.wA)
		v.a = 0.0
	}

	// Flush the simplex if the metric changed a lot.
	if s.count > 1 {
		metric1 := cache.Metric
		metric2 := s.metric()
		if metric2 < 0.5*metric1 || 2.0*metric1 < metric2 || metric2 < epsilon {
			s.count = 0
		}
	}

	// If the cache is empty or invalid ...
	if s.count == 0 {
		v := &s.v[0]
		v.indexA = 0
		v.indexB = 0
		v.wA = xfA.MulVec(proxyA.Vertices[0])
		v.wB = xfB.MulVec(proxyB.Vertices[0])
		v.w = v.wB.Sub(v.wA)
		v.a = 1.0
		s.count = 1
	}
}

func (s *simplex) writeCache(cache *SimplexCache) {
	cache.Metric = s.metric()
	cache.Count = s.count
	for i := 0; i < s.count; i++ {
		cache.IndexA[i] = s.v[i].indexA
		cache.IndexB[i] = s.v[i].indexB
	}
}

func (s *simplex) searchDirection() Vec2 {
	switch s.count {
	case 1:
		return s.v[0].w.Neg()

	case 2:
		e12 := s.v[1].w.Sub(s.v[0].w)
		sgn := e12.Cross(s.v[0].w.Neg())
		if sgn > 0.0 {
			// Origin is left of e12.
			return CrossSV(1.0, e12)
		}
		// Origin is right of e12.
		return e12.CrossScalar(1.0)
	}

	assert(false)
	return Vec2{}
}

func (s *simplex) witnessPoints() (pA, pB Vec2) {
	switch s.count {
	case 1:
		return s.v[0].wA, s.v[0].wB

	case 2:
		pA = s.v[0].wA.Mul(s.v[0].a).Add(s.v[1].wA.Mul(s.v[1].a))
		pB = s.v[0].wB.Mul(s.v[0].a).Add(s.v[1].wB.Mul(s.v[1].a))
		return pA, pB

	case 3:
		pA = s.v[0].wA.Mul(s.v[0].a).Add(s.v[1].wA.Mul(s.v[1].a)).Add(s.v[2].wA.Mul(s.v[2].a))
		return pA, pA
	}

	assert(false)
	return pA, pB
}

func (s *simplex) metric() float64 {
	switch s.count {
	case 1:
		return 0.0
	case 2:
		return s.v[0].w.Distance(s.v[1].w)
	case 3:
		return s.v[1].w.Sub(s.v[0].w).Cross(s.v[2].w.Sub(s.v[0].w))
	}

	assert(false)
	return 0.0
}

// solve2 finds the closest point on the segment w1-w2 to the origin using
// barycentric coordinates.
//
// p = a1 * w1 + a2 * w2, a1 + a2 = 1
// The vector from the origin to the closest point on the line is
// perpendicular to the line: e12 = w2 - w1, dot(p, e12) = 0.
// Solving gives a1 = dot(w2, e12) and a2 = -dot(w1, e12) before
// normalization.
func (s *simplex) solve2() {
	w1 := s.v[0].w
	w2 := s.v[1].w
	e12 := w2.Sub(w1)

	// w1 region
	d12n2 := -w1.Dot(e12)
	if d12n2 <= 0.0 {
		// a2 <= 0, so we clamp it to 0
		s.v[0].a = 1.0
		s.count = 1
		return
	}

	// w2 region
	d12n1 := w2.Dot(e12)
	if d12n1 <= 0.0 {
		// a1 <= 0, so we clamp it to 0
		s.v[1].a = 1.0
		s.count = 1
		s.v[0] = s.v[1]
		return
	}

	// Must be in e12 region.
	inv := 1.0 / (d12n1 + d12n2)
	s.v[0].a = d12n1 * inv
	s.v[1].a = d12n2 * inv
	s.count = 2
}

// solve3 handles the triangle case. Possible regions are the three vertices,
// the three edges and the interior.
func (s *simplex) solve3() {
	w1 := s.v[0].w
	w2 := s.v[1].w
	w3 := s.v[2].w

	// Edge12
	e12 := w2.Sub(w1)
	d12n1 := w2.Dot(e12)
	d12n2 := -w1.Dot(e12)

	// Edge13
	e13 := w3.Sub(w1)
	d13n1 := w3.Dot(e13)
	d13n2 := -w1.Dot(e13)

	// Edge23
	e23 := w3.Sub(w2)
	d23n1 := w3.Dot(e23)
	d23n2 := -w2.Dot(e23)

	// Triangle123
	n123 := e12.Cross(e13)

	d123n1 := n123 * w2.Cross(w3)
	d123n2 := n123 * w3.Cross(w1)
	d123n3 := n123 * w1.Cross(w2)

	// w1 region
	if d12n2 <= 0.0 && d13n2 <= 0.0 {
		s.v[0].a = 1.0
		s.count = 1
		return
	}

	// e12
	if d12n1 > 0.0 && d12n2 > 0.0 && d123n3 <= 0.0 {
		inv := 1.0 / (d12n1 + d12n2)
		s.v[0].a = d12n1 * inv
		s.v[1].a = d12n2 * inv
		s.count = 2
		return
	}

	// e13
	if d13n1 > 0.0 && d13n2 > 0.0 && d123n2 <= 0.0 {
		inv := 1.0 / (d13n1 + d13n2)
		s.v[0].a = d13n1 * inv
		s.v[2].a = d13n2 * inv
		s.count = 2
		s.v[1] = s.v[2]
		return
	}

	// w2 region
	if d12n1 <= 0.0 && d23n2 <= 0.0 {
		s.v[1].a = 1.0
		s.count = 1
		s.v[0] = s.v[1]
		return
	}

	// w3 region
	if d13n1 <= 0.0 && d23n1 <= 0.0 {
		s.v[2].a = 1.0
		s.count = 1
		s.v[0] = s.v[2]
		return
	}

	// e23
	if d23n1 > 0.0 && d23n2 > 0.0 && d123n1 <= 0.0 {
		inv := 1.0 / (d23n1 + d23n2)
		s.v[1].a = d23n1 * inv
		s.v[2].a = d23n2 * inv
		s.count = 2
		s.v[0] = s.v[2]
		return
	}

	// Must be in triangle123
	inv := 1.0 / (d123n1 + d123n2 + d123n3)
	s.v[0].a = d123n1 * inv
	s.v[1].a = d123n2 * inv
	s.v[2].a = d123n3 * inv
	s.count = 3
}

// Distance computes the closest points between two shapes represented as
// convex point clouds. On the first call set cache.Count to zero; the cache
// is updated for the next call.
func Distance(cache *SimplexCache, input DistanceInput) DistanceOutput {
	var output DistanceOutput

	proxyA := &input.ProxyA
	proxyB := &input.ProxyB
	xfA := input.TransformA
	xfB := input.TransformB

	// Initialize the simplex.
	var s simplex
	s.readCache(cache, proxyA, xfA, proxyB, xfB)

	// These store the vertices of the last simplex so that we can check for
	// duplicates and prevent cycling.
	var saveA, saveB [3]int

	iter := 0
	for iter < maxGJKIterations {
		saveCount := s.count
		for i := 0; i < saveCount; i++ {
			saveA[i] = s.v[i].indexA
			saveB[i] = s.v[i].indexB
		}

		switch s.count {
		case 2:
			s.solve2()
		case 3:
			s.solve3()
		}

		// If we have 3 points, then the origin is in the corresponding triangle.
		if s.count == 3 {
			break
		}

		d := s.searchDirection()

		// Ensure the search direction is numerically fit.
		if d.LengthSquared() < epsilon*epsilon {
			// The origin is probably contained by a line segment or triangle.
			// Thus the shapes are overlapped.
			break
		}

		// Compute a tentative new simplex vertex using support points.
		vertex := &s.v[s.count]
		vertex.indexA = proxyA.SupportIndex(xfA.Q.MulTVec(d.Neg()))
		vertex.wA = xfA.MulVec(proxyA.Vertices[vertex.indexA])
		vertex.indexB = proxyB.SupportIndex(xfB.Q.MulTVec(d))
		vertex.wB = xfB.MulVec(proxyB.Vertices[vertex.indexB])
		vertex.w = vertex.wB.Sub(vertex.wA)

		iter++

		// Check for duplicate support points. This is the main termination
		// criteria.
		duplicate := false
		for i := 0; i < saveCount; i++ {
			if vertex.indexA == saveA[i] && vertex.indexB == saveB[i] {
				duplicate = true
				break
			}
		}

		// If we found a duplicate support point we must exit to avoid cycling.
		if duplicate {
			break
		}

		s.count++
	}

	output.PointA, output.PointB = s.witnessPoints()
	output.Distance = output.PointA.Distance(output.PointB)
	output.Iterations = iter

	s.writeCache(cache)

	// Apply radii if requested.
	if input.UseRadii {
		rA := proxyA.Radius
		rB := proxyB.Radius

		if output.Distance > rA+rB && output.Distance > epsilon {
			// Shapes are still not overlapped.
			// Move the witness points to the outer surface.
			output.Distance -= rA + rB
			normal := output.PointB.Sub(output.PointA).Normalized()
			output.PointA = output.PointA.Add(normal.Mul(rA))
			output.PointB = output.PointB.Sub(normal.Mul(rB))
		} else {
			// Shapes are overlapped when radii are considered.
			// Move the witness points to the middle.
			p := output.PointA.Add(output.PointB).Mul(0.5)
			output.PointA = p
			output.PointB = p
			output.Distance = 0.0
		}
	}

	return output
}
