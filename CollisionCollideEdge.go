package velcro

import "math"

// Feature ids for edge versus circle contacts.
var (
	edgeVertex1Feature = ContactFeature{ReferenceEdge: 0, IncidentVertex: 0}
	edgeVertex2Feature = ContactFeature{ReferenceEdge: 1, IncidentVertex: 0}
	edgeFaceFeature    = ContactFeature{ReferenceEdge: 0, IncidentEdge: 1}
)

// CollideEdgeAndCircle computes the manifold between an edge and a circle.
// Ghost vertices suppress vertex contacts that belong to a neighbouring
// edge, so a circle rolling along a chain does not catch on the joints.
func CollideEdgeAndCircle(manifold *Manifold, edgeA *EdgeShape, xfA Transform, circleB *CircleShape, xfB Transform) {
	manifold.PointCount = 0

	// Compute circle in frame of edge
	Q := xfA.MulTVec(xfB.MulVec(circleB.P))

	A := edgeA.V1
	B := edgeA.V2
	e := B.Sub(A)

	// Barycentric coordinates
	u := e.Dot(B.Sub(Q))
	v := e.Dot(Q.Sub(A))

	radius := edgeA.Radius() + circleB.Radius()

	// Region A
	if v <= 0.0 {
		if Q.DistanceSquared(A) > radius*radius {
			return
		}

		// Is the circle in Region AB of the previous edge?
		if edgeA.HasV0 {
			e1 := A.Sub(edgeA.V0)
			if e1.Dot(A.Sub(Q)) > 0.0 {
				return
			}
		}

		manifold.PointCount = 1
		manifold.Type = ManifoldCircles
		manifold.LocalNormal.SetZero()
		manifold.LocalPoint = A
		manifold.Points[0].ID = edgeVertex1Feature
		manifold.Points[0].LocalPoint = circleB.P
		return
	}

	// Region B
	if u <= 0.0 {
		if Q.DistanceSquared(B) > radius*radius {
			return
		}

		// Is the circle in Region AB of the next edge?
		if edgeA.HasV3 {
			e2 := edgeA.V3.Sub(B)
			if e2.Dot(Q.Sub(B)) > 0.0 {
				return
			}
		}

		manifold.PointCount = 1
		manifold.Type = ManifoldCircles
		manifold.LocalNormal.SetZero()
		manifold.LocalPoint = B
		manifold.Points[0].ID = edgeVertex2Feature
		manifold.Points[0].LocalPoint = circleB.P
		return
	}

	// Region AB
	den := e.Dot(e)
	assert(den > 0.0)
	P := A.Mul(u).Add(B.Mul(v)).Mul(1.0 / den)
	if Q.DistanceSquared(P) > radius*radius {
		return
	}

	n := MakeVec2(-e.Y, e.X)
	if n.Dot(Q.Sub(A)) < 0.0 {
		n = n.Neg()
	}

	manifold.PointCount = 1
	manifold.Type = ManifoldFaceA
	manifold.LocalNormal = n.Normalized()
	manifold.LocalPoint = A
	manifold.Points[0].ID = edgeFaceFeature
	manifold.Points[0].LocalPoint = circleB.P
}

type edgeAxisType uint8

const (
	edgeAxisUnknown edgeAxisType = iota
	edgeAxisEdgeA
	edgeAxisEdgeB
)

// edgeAxis tracks a separating axis candidate.
type edgeAxis struct {
	kind       edgeAxisType
	index      int
	separation float64
	normal     Vec2
}

// tempPolygon is polygon B expressed in the frame of edge A.
type tempPolygon struct {
	vertices [MaxPolygonVertices]Vec2
	normals  [MaxPolygonVertices]Vec2
	count    int
}

// computeEdgeSeparation tests both faces of the edge, which is treated as a
// polygon with the two normals n and -n.
func computeEdgeSeparation(polygonB *tempPolygon, v1, normal1 Vec2) edgeAxis {
	axis := edgeAxis{kind: edgeAxisEdgeA, index: -1, separation: -maxFloat}

	axes := [2]Vec2{normal1, normal1.Neg()}

	// Find axis with least overlap (min-max problem)
	for j := 0; j < 2; j++ {
		sj := maxFloat

		// Find deepest polygon vertex along axis j
		for i := 0; i < polygonB.count; i++ {
			sj = math.Min(sj, axes[j].Dot(polygonB.vertices[i].Sub(v1)))
		}

		if sj > axis.separation {
			axis.index = j
			axis.separation = sj
			axis.normal = axes[j]
		}
	}

	return axis
}

func computePolygonSeparation(polygonB *tempPolygon, v1, v2 Vec2) edgeAxis {
	axis := edgeAxis{kind: edgeAxisUnknown, index: -1, separation: -maxFloat}

	for i := 0; i < polygonB.count; i++ {
		n := polygonB.normals[i].Neg()

		s1 := n.Dot(polygonB.vertices[i].Sub(v1))
		s2 := n.Dot(polygonB.vertices[i].Sub(v2))
		s := math.Min(s1, s2)

		if s > axis.separation {
			axis.kind = edgeAxisEdgeB
			axis.index = i
			axis.separation = s
			axis.normal = n
		}
	}

	return axis
}

// edgeGhostSinTol is the angular tolerance of the ghost vertex cone test.
const edgeGhostSinTol = 0.1

// CollideEdgeAndPolygon computes the manifold between an edge and a
// polygon. The edge acts as a two-sided polygon. On the front side, ghost
// vertices restrict the admissible normals to the cone between the adjacent
// edge normals: outside a convex corner the contact belongs to the
// neighbouring edge and is skipped; at a concave corner the normal snaps to
// the edge normal.
func CollideEdgeAndPolygon(manifold *Manifold, edgeA *EdgeShape, xfA Transform, polygonB *PolygonShape, xfB Transform) {
	manifold.PointCount = 0

	xf := xfA.MulT(xfB)

	centroidB := xf.MulVec(polygonB.Centroid)

	v1 := edgeA.V1
	v2 := edgeA.V2

	edge1 := v2.Sub(v1).Normalized()

	// Normal points to the right for a CCW winding
	normal1 := MakeVec2(edge1.Y, -edge1.X)
	offset1 := normal1.Dot(centroidB.Sub(v1))
	frontSide := offset1 >= 0.0

	// Get polygonB in frameA
	var tempB tempPolygon
	tempB.count = polygonB.Count
	for i := 0; i < polygonB.Count; i++ {
		tempB.vertices[i] = xf.MulVec(polygonB.Vertices[i])
		tempB.normals[i] = xf.Q.MulVec(polygonB.Normals[i])
	}

	radius := PolygonRadius + PolygonRadius

	edgeAxis := computeEdgeSeparation(&tempB, v1, normal1)
	if edgeAxis.separation > radius {
		return
	}

	polygonAxis := computePolygonSeparation(&tempB, v1, v2)
	if polygonAxis.separation > radius {
		return
	}

	// Use hysteresis for jitter reduction.
	primaryAxis := edgeAxis
	if polygonAxis.separation-radius > referenceRelativeTol*(edgeAxis.separation-radius)+referenceAbsoluteTol {
		primaryAxis = polygonAxis
	}

	if frontSide {
		side1 := primaryAxis.normal.Dot(edge1) <= 0.0

		// Check the Gauss map of the corner on the side the normal leans to.
		if side1 && edgeA.HasV0 {
			edge0 := v1.Sub(edgeA.V0).Normalized()
			normal0 := MakeVec2(edge0.Y, -edge0.X)
			convex1 := edge0.Cross(edge1) >= 0.0

			if convex1 {
				if primaryAxis.normal.Cross(normal0) > edgeGhostSinTol {
					// Skip region
					return
				}
			} else {
				// Snap region
				primaryAxis = edgeAxis
			}
		} else if !side1 && edgeA.HasV3 {
			edge2 := edgeA.V3.Sub(v2).Normalized()
			normal2 := MakeVec2(edge2.Y, -edge2.X)
			convex2 := edge1.Cross(edge2) >= 0.0

			if convex2 {
				if normal2.Cross(primaryAxis.normal) > edgeGhostSinTol {
					// Skip region
					return
				}
			} else {
				// Snap region
				primaryAxis = edgeAxis
			}
		}
	}

	var clipPoints [2]ClipVertex
	var refI1 int
	var refV1, refV2, refNormal, sideNormal1, sideNormal2 Vec2

	if primaryAxis.kind == edgeAxisEdgeA {
		manifold.Type = ManifoldFaceA

		// Search for the polygon normal that is most anti-parallel to the
		// edge normal.
		bestIndex := 0
		bestValue := primaryAxis.normal.Dot(tempB.normals[0])
		for i := 1; i < tempB.count; i++ {
			if value := primaryAxis.normal.Dot(tempB.normals[i]); value < bestValue {
				bestValue = value
				bestIndex = i
			}
		}

		i1 := bestIndex
		i2 := (i1 + 1) % tempB.count

		clipPoints[0] = ClipVertex{
			V:  tempB.vertices[i1],
			ID: ContactFeature{ReferenceEdge: uint8(primaryAxis.index), IncidentEdge: uint8(i1), IncidentVertex: 0},
		}
		clipPoints[1] = ClipVertex{
			V:  tempB.vertices[i2],
			ID: ContactFeature{ReferenceEdge: uint8(primaryAxis.index), IncidentEdge: uint8(i2), IncidentVertex: 1},
		}

		refI1 = 0
		refV1, refV2 = v1, v2
		refNormal = primaryAxis.normal
		sideNormal1 = edge1.Neg()
		sideNormal2 = edge1
	} else {
		manifold.Type = ManifoldFaceB

		clipPoints[0] = ClipVertex{
			V:  v2,
			ID: ContactFeature{ReferenceEdge: uint8(primaryAxis.index), IncidentEdge: 0, IncidentVertex: 1, Flip: true},
		}
		clipPoints[1] = ClipVertex{
			V:  v1,
			ID: ContactFeature{ReferenceEdge: uint8(primaryAxis.index), IncidentEdge: 0, IncidentVertex: 0, Flip: true},
		}

		refI1 = primaryAxis.index
		refI2 := (refI1 + 1) % tempB.count
		refV1 = tempB.vertices[refI1]
		refV2 = tempB.vertices[refI2]
		refNormal = tempB.normals[refI1]

		// CCW winding
		sideNormal1 = MakeVec2(refNormal.Y, -refNormal.X)
		sideNormal2 = sideNormal1.Neg()
	}

	sideOffset1 := sideNormal1.Dot(refV1)
	sideOffset2 := sideNormal2.Dot(refV2)

	// Clip incident edge against reference face side planes
	var clipPoints1, clipPoints2 [2]ClipVertex

	if ClipSegmentToLine(&clipPoints1, clipPoints, sideNormal1, sideOffset1) < MaxManifoldPoints {
		return
	}

	if ClipSegmentToLine(&clipPoints2, clipPoints1, sideNormal2, sideOffset2) < MaxManifoldPoints {
		return
	}

	// Now clipPoints2 contains the clipped points.
	if primaryAxis.kind == edgeAxisEdgeA {
		manifold.LocalNormal = refNormal
		manifold.LocalPoint = refV1
	} else {
		manifold.LocalNormal = polygonB.Normals[refI1]
		manifold.LocalPoint = polygonB.Vertices[refI1]
	}

	pointCount := 0
	for i := 0; i < MaxManifoldPoints; i++ {
		separation := refNormal.Dot(clipPoints2[i].V.Sub(refV1))

		if separation <= radius {
			cp := &manifold.Points[pointCount]

			if primaryAxis.kind == edgeAxisEdgeA {
				cp.LocalPoint = xf.MulTVec(clipPoints2[i].V)
			} else {
				cp.LocalPoint = clipPoints2[i].V
			}
			cp.ID = clipPoints2[i].ID

			pointCount++
		}
	}

	manifold.PointCount = pointCount
}
