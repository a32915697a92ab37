package velcro

// Reference face selection favours polygon A unless B is clearly better, so
// the reference does not flip between nearly equal axes from step to step.
const (
	referenceRelativeTol = 0.98
	referenceAbsoluteTol = 0.001
)

// edgeSeparation measures how far poly2 lies in front of edge1 of poly1.
func edgeSeparation(poly1 *PolygonShape, xf1 Transform, edge1 int, poly2 *PolygonShape, xf2 Transform) float64 {
	// Convert normal from poly1's frame into poly2's frame.
	normal1World := xf1.Q.MulVec(poly1.Normals[edge1])
	normal1 := xf2.Q.MulTVec(normal1World)

	// Find support vertex on poly2 for -normal.
	index := 0
	minDot := maxFloat
	for i := 0; i < poly2.Count; i++ {
		if dot := poly2.Vertices[i].Dot(normal1); dot < minDot {
			minDot = dot
			index = i
		}
	}

	v1 := xf1.MulVec(poly1.Vertices[edge1])
	v2 := xf2.MulVec(poly2.Vertices[index])
	return v2.Sub(v1).Dot(normal1World)
}

// findMaxSeparation finds the edge normal of poly1 with the largest
// separation from poly2. The search starts at the edge facing the centroid
// of poly2 and walks to adjacent edges only while the separation improves.
// Any separation above radius ends the search early, since the polygons
// cannot touch.
func findMaxSeparation(poly1 *PolygonShape, xf1 Transform, poly2 *PolygonShape, xf2 Transform, radius float64) (int, float64) {
	count1 := poly1.Count

	// Vector pointing from the centroid of poly1 to the centroid of poly2.
	d := xf2.MulVec(poly2.Centroid).Sub(xf1.MulVec(poly1.Centroid))
	dLocal1 := xf1.Q.MulTVec(d)

	// Find edge normal on poly1 that has the largest projection onto d.
	edge := 0
	maxDot := -maxFloat
	for i := 0; i < count1; i++ {
		if dot := poly1.Normals[i].Dot(dLocal1); dot > maxDot {
			maxDot = dot
			edge = i
		}
	}

	s := edgeSeparation(poly1, xf1, edge, poly2, xf2)
	if s > radius {
		return edge, s
	}

	prevEdge := (edge + count1 - 1) % count1
	sPrev := edgeSeparation(poly1, xf1, prevEdge, poly2, xf2)
	if sPrev > radius {
		return prevEdge, sPrev
	}

	nextEdge := (edge + 1) % count1
	sNext := edgeSeparation(poly1, xf1, nextEdge, poly2, xf2)
	if sNext > radius {
		return nextEdge, sNext
	}

	// Find the best edge and the search direction.
	var bestEdge, increment int
	var bestSeparation float64
	switch {
	case sPrev > s && sPrev > sNext:
		increment = count1 - 1
		bestEdge = prevEdge
		bestSeparation = sPrev
	case sNext > s:
		increment = 1
		bestEdge = nextEdge
		bestSeparation = sNext
	default:
		return edge, s
	}

	// Perform a local search for the best edge normal. Each polygon edge is
	// visited at most once.
	for i := 0; i < count1; i++ {
		edge = (bestEdge + increment) % count1

		s = edgeSeparation(poly1, xf1, edge, poly2, xf2)
		if s > radius {
			return edge, s
		}

		if s <= bestSeparation {
			break
		}
		bestEdge = edge
		bestSeparation = s
	}

	return bestEdge, bestSeparation
}

// findIncidentEdge returns the edge of poly2 most anti-parallel to the
// reference normal, as two clip vertices in world coordinates.
func findIncidentEdge(poly1 *PolygonShape, xf1 Transform, edge1 int, poly2 *PolygonShape, xf2 Transform) [2]ClipVertex {
	// Get the normal of the reference edge in poly2's frame.
	normal1 := xf2.Q.MulTVec(xf1.Q.MulVec(poly1.Normals[edge1]))

	// Find the incident edge on poly2.
	index := 0
	minDot := maxFloat
	for i := 0; i < poly2.Count; i++ {
		if dot := normal1.Dot(poly2.Normals[i]); dot < minDot {
			minDot = dot
			index = i
		}
	}

	i1 := index
	i2 := (i1 + 1) % poly2.Count

	return [2]ClipVertex{
		{
			V:  xf2.MulVec(poly2.Vertices[i1]),
			ID: ContactFeature{ReferenceEdge: uint8(edge1), IncidentEdge: uint8(i1), IncidentVertex: 0},
		},
		{
			V:  xf2.MulVec(poly2.Vertices[i2]),
			ID: ContactFeature{ReferenceEdge: uint8(edge1), IncidentEdge: uint8(i2), IncidentVertex: 1},
		},
	}
}

// CollidePolygons computes the manifold between two polygons.
//
// Find edge normal of max separation on A and on B. The larger one, biased
// towards A, picks the reference face; the incident edge is found on the
// other polygon and clipped against the two side planes of the reference
// face. Points deeper than the reference face plus skin are kept.
func CollidePolygons(manifold *Manifold, polyA *PolygonShape, xfA Transform, polyB *PolygonShape, xfB Transform) {
	manifold.PointCount = 0
	totalRadius := PolygonRadius + PolygonRadius

	edgeA, separationA := findMaxSeparation(polyA, xfA, polyB, xfB, totalRadius)
	if separationA > totalRadius {
		return
	}

	edgeB, separationB := findMaxSeparation(polyB, xfB, polyA, xfA, totalRadius)
	if separationB > totalRadius {
		return
	}

	var poly1, poly2 *PolygonShape // reference and incident polygon
	var xf1, xf2 Transform
	var edge1 int
	var flip bool

	if separationB > referenceRelativeTol*separationA+referenceAbsoluteTol {
		poly1, poly2 = polyB, polyA
		xf1, xf2 = xfB, xfA
		edge1 = edgeB
		manifold.Type = ManifoldFaceB
		flip = true
	} else {
		poly1, poly2 = polyA, polyB
		xf1, xf2 = xfA, xfB
		edge1 = edgeA
		manifold.Type = ManifoldFaceA
		flip = false
	}

	incidentEdge := findIncidentEdge(poly1, xf1, edge1, poly2, xf2)

	v11 := poly1.Vertices[edge1]
	v12 := poly1.Vertices[(edge1+1)%poly1.Count]

	localTangent := v12.Sub(v11).Normalized()
	localNormal := localTangent.CrossScalar(1.0)
	planePoint := v11.Add(v12).Mul(0.5)

	tangent := xf1.Q.MulVec(localTangent)
	normal := tangent.CrossScalar(1.0)

	v11 = xf1.MulVec(v11)
	v12 = xf1.MulVec(v12)

	// Face offset.
	frontOffset := normal.Dot(v11)

	// Side offsets, extended by polytope skin thickness.
	sideOffset1 := -tangent.Dot(v11) + totalRadius
	sideOffset2 := tangent.Dot(v12) + totalRadius

	// Clip incident edge against extruded edge1 side edges.
	var clipPoints1, clipPoints2 [2]ClipVertex

	if ClipSegmentToLine(&clipPoints1, incidentEdge, tangent.Neg(), sideOffset1) < 2 {
		return
	}

	if ClipSegmentToLine(&clipPoints2, clipPoints1, tangent, sideOffset2) < 2 {
		return
	}

	// Now clipPoints2 contains the clipped points.
	manifold.LocalNormal = localNormal
	manifold.LocalPoint = planePoint

	pointCount := 0
	for i := 0; i < MaxManifoldPoints; i++ {
		separation := normal.Dot(clipPoints2[i].V) - frontOffset

		if separation <= totalRadius {
			cp := &manifold.Points[pointCount]
			cp.LocalPoint = xf2.MulTVec(clipPoints2[i].V)
			cp.ID = clipPoints2[i].ID
			cp.ID.Flip = flip
			pointCount++
		}
	}

	manifold.PointCount = pointCount
}
