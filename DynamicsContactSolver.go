package velcro

import "math"

// blockSolve enables the two point block solver.
const blockSolve = true

// maxConditionNumber guards the block solver against an ill conditioned
// effective mass matrix.
const maxConditionNumber = 1000.0

type velocityConstraintPoint struct {
	rA             Vec2
	rB             Vec2
	normalImpulse  float64
	tangentImpulse float64
	normalMass     float64
	tangentMass    float64
	velocityBias   float64
}

type contactVelocityConstraint struct {
	points             [MaxManifoldPoints]velocityConstraintPoint
	normal             Vec2
	normalMass         Mat22
	K                  Mat22
	indexA             int
	indexB             int
	invMassA, invMassB float64
	invIA, invIB       float64
	friction           float64
	restitution        float64
	tangentSpeed       float64
	pointCount         int
	contactIndex       int
}

type contactPositionConstraint struct {
	localPoints                [MaxManifoldPoints]Vec2
	localNormal                Vec2
	localPoint                 Vec2
	indexA                     int
	indexB                     int
	invMassA, invMassB         float64
	localCenterA, localCenterB Vec2
	invIA, invIB               float64
	kind                       ManifoldType
	radiusA, radiusB           float64
	pointCount                 int
}

// contactSolver runs sequential impulses over the contacts of one island.
type contactSolver struct {
	step                timeStep
	positions           []position
	velocities          []velocity
	positionConstraints []contactPositionConstraint
	velocityConstraints []contactVelocityConstraint
	contacts            []*Contact
}

func newContactSolver(step timeStep, contacts []*Contact, positions []position, velocities []velocity) *contactSolver {
	solver := &contactSolver{
		step:                step,
		positions:           positions,
		velocities:          velocities,
		contacts:            contacts,
		positionConstraints: make([]contactPositionConstraint, len(contacts)),
		velocityConstraints: make([]contactVelocityConstraint, len(contacts)),
	}

	// Initialize position independent portions of the constraints.
	for i, c := range contacts {
		fixtureA := c.fixtureA
		fixtureB := c.fixtureB
		radiusA := fixtureA.shape.Radius()
		radiusB := fixtureB.shape.Radius()
		bodyA := fixtureA.body
		bodyB := fixtureB.body
		manifold := &c.manifold

		pointCount := manifold.PointCount
		assert(pointCount > 0)

		vc := &solver.velocityConstraints[i]
		vc.friction = c.friction
		vc.restitution = c.restitution
		vc.tangentSpeed = c.tangentSpeed
		vc.indexA = bodyA.islandIndex
		vc.indexB = bodyB.islandIndex
		vc.invMassA = bodyA.invMass
		vc.invMassB = bodyB.invMass
		vc.invIA = bodyA.invI
		vc.invIB = bodyB.invI
		vc.contactIndex = i
		vc.pointCount = pointCount

		pc := &solver.positionConstraints[i]
		pc.indexA = bodyA.islandIndex
		pc.indexB = bodyB.islandIndex
		pc.invMassA = bodyA.invMass
		pc.invMassB = bodyB.invMass
		pc.localCenterA = bodyA.sweep.LocalCenter
		pc.localCenterB = bodyB.sweep.LocalCenter
		pc.invIA = bodyA.invI
		pc.invIB = bodyB.invI
		pc.localNormal = manifold.LocalNormal
		pc.localPoint = manifold.LocalPoint
		pc.pointCount = pointCount
		pc.radiusA = radiusA
		pc.radiusB = radiusB
		pc.kind = manifold.Type

		for j := 0; j < pointCount; j++ {
			cp := &manifold.Points[j]
			vcp := &vc.points[j]

			if step.warmStarting {
				vcp.normalImpulse = step.dtRatio * cp.NormalImpulse
				vcp.tangentImpulse = step.dtRatio * cp.TangentImpulse
			}

			pc.localPoints[j] = cp.LocalPoint
		}
	}

	return solver
}

// initializeVelocityConstraints computes the effective masses and the
// restitution bias from the current positions.
func (s *contactSolver) initializeVelocityConstraints() {
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]
		pc := &s.positionConstraints[i]

		radiusA := pc.radiusA
		radiusB := pc.radiusB
		manifold := &s.contacts[vc.contactIndex].manifold

		indexA := vc.indexA
		indexB := vc.indexB

		mA := vc.invMassA
		mB := vc.invMassB
		iA := vc.invIA
		iB := vc.invIB
		localCenterA := pc.localCenterA
		localCenterB := pc.localCenterB

		cA := s.positions[indexA].c
		aA := s.positions[indexA].a
		vA := s.velocities[indexA].v
		wA := s.velocities[indexA].w

		cB := s.positions[indexB].c
		aB := s.positions[indexB].a
		vB := s.velocities[indexB].v
		wB := s.velocities[indexB].w

		assert(manifold.PointCount > 0)

		var xfA, xfB Transform
		xfA.Q = MakeRot(aA)
		xfB.Q = MakeRot(aB)
		xfA.P = cA.Sub(xfA.Q.MulVec(localCenterA))
		xfB.P = cB.Sub(xfB.Q.MulVec(localCenterB))

		var worldManifold WorldManifold
		worldManifold.Initialize(manifold, xfA, radiusA, xfB, radiusB)

		vc.normal = worldManifold.Normal

		pointCount := vc.pointCount
		for j := 0; j < pointCount; j++ {
			vcp := &vc.points[j]

			vcp.rA = worldManifold.Points[j].Sub(cA)
			vcp.rB = worldManifold.Points[j].Sub(cB)

			rnA := vcp.rA.Cross(vc.normal)
			rnB := vcp.rB.Cross(vc.normal)

			kNormal := mA + mB + iA*rnA*rnA + iB*rnB*rnB
			if kNormal > 0.0 {
				vcp.normalMass = 1.0 / kNormal
			}

			tangent := vc.normal.CrossScalar(1.0)

			rtA := vcp.rA.Cross(tangent)
			rtB := vcp.rB.Cross(tangent)

			kTangent := mA + mB + iA*rtA*rtA + iB*rtB*rtB
			if kTangent > 0.0 {
				vcp.tangentMass = 1.0 / kTangent
			}

			// Setup a velocity bias for restitution.
			vcp.velocityBias = 0.0
			vRel := vc.normal.Dot(vB.Add(CrossSV(wB, vcp.rB)).Sub(vA).Sub(CrossSV(wA, vcp.rA)))
			if vRel < -VelocityThreshold {
				vcp.velocityBias = -vc.restitution * vRel
			}
		}

		// If we have two points, then prepare the block solver.
		if vc.pointCount == 2 && blockSolve {
			vcp1 := &vc.points[0]
			vcp2 := &vc.points[1]

			rn1A := vcp1.rA.Cross(vc.normal)
			rn1B := vcp1.rB.Cross(vc.normal)
			rn2A := vcp2.rA.Cross(vc.normal)
			rn2B := vcp2.rB.Cross(vc.normal)

			k11 := mA + mB + iA*rn1A*rn1A + iB*rn1B*rn1B
			k22 := mA + mB + iA*rn2A*rn2A + iB*rn2B*rn2B
			k12 := mA + mB + iA*rn1A*rn2A + iB*rn1B*rn2B

			// Ensure a reasonable condition number.
			if k11*k11 < maxConditionNumber*(k11*k22-k12*k12) {
				// K is safe to invert.
				vc.K = MakeMat22(k11, k12, k12, k22)
				vc.normalMass = vc.K.Inverse()
			} else {
				// The constraints are redundant, just use one.
				vc.pointCount = 1
			}
		}
	}
}

// warmStart applies the impulses carried over from the previous step.
func (s *contactSolver) warmStart() {
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]

		indexA := vc.indexA
		indexB := vc.indexB
		mA := vc.invMassA
		iA := vc.invIA
		mB := vc.invMassB
		iB := vc.invIB
		pointCount := vc.pointCount

		vA := s.velocities[indexA].v
		wA := s.velocities[indexA].w
		vB := s.velocities[indexB].v
		wB := s.velocities[indexB].w

		normal := vc.normal
		tangent := normal.CrossScalar(1.0)

		for j := 0; j < pointCount; j++ {
			vcp := &vc.points[j]
			P := normal.Mul(vcp.normalImpulse).Add(tangent.Mul(vcp.tangentImpulse))
			wA -= iA * vcp.rA.Cross(P)
			vA = vA.Sub(P.Mul(mA))
			wB += iB * vcp.rB.Cross(P)
			vB = vB.Add(P.Mul(mB))
		}

		s.velocities[indexA].v = vA
		s.velocities[indexA].w = wA
		s.velocities[indexB].v = vB
		s.velocities[indexB].w = wB
	}
}

func (s *contactSolver) solveVelocityConstraints() {
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]

		indexA := vc.indexA
		indexB := vc.indexB
		mA := vc.invMassA
		iA := vc.invIA
		mB := vc.invMassB
		iB := vc.invIB
		pointCount := vc.pointCount

		vA := s.velocities[indexA].v
		wA := s.velocities[indexA].w
		vB := s.velocities[indexB].v
		wB := s.velocities[indexB].w

		normal := vc.normal
		tangent := normal.CrossScalar(1.0)
		friction := vc.friction

		assert(pointCount == 1 || pointCount == 2)

		// Solve tangent constraints first because non-penetration is more
		// important than friction.
		for j := 0; j < pointCount; j++ {
			vcp := &vc.points[j]

			// Relative velocity at contact
			dv := vB.Add(CrossSV(wB, vcp.rB)).Sub(vA).Sub(CrossSV(wA, vcp.rA))

			// Compute tangent force
			vt := dv.Dot(tangent) - vc.tangentSpeed
			lambda := vcp.tangentMass * (-vt)

			// Clamp the accumulated force
			maxFriction := friction * vcp.normalImpulse
			newImpulse := clampFloat(vcp.tangentImpulse+lambda, -maxFriction, maxFriction)
			lambda = newImpulse - vcp.tangentImpulse
			vcp.tangentImpulse = newImpulse

			// Apply contact impulse
			P := tangent.Mul(lambda)

			vA = vA.Sub(P.Mul(mA))
			wA -= iA * vcp.rA.Cross(P)

			vB = vB.Add(P.Mul(mB))
			wB += iB * vcp.rB.Cross(P)
		}

		// Solve normal constraints
		if pointCount == 1 || !blockSolve {
			for j := 0; j < pointCount; j++ {
				vcp := &vc.points[j]

				// Relative velocity at contact
				dv := vB.Add(CrossSV(wB, vcp.rB)).Sub(vA).Sub(CrossSV(wA, vcp.rA))

				// Compute normal impulse
				vn := dv.Dot(normal)
				lambda := -vcp.normalMass * (vn - vcp.velocityBias)

				// Clamp the accumulated impulse
				newImpulse := math.Max(vcp.normalImpulse+lambda, 0.0)
				lambda = newImpulse - vcp.normalImpulse
				vcp.normalImpulse = newImpulse

				// Apply contact impulse
				P := normal.Mul(lambda)
				vA = vA.Sub(P.Mul(mA))
				wA -= iA * vcp.rA.Cross(P)

				vB = vB.Add(P.Mul(mB))
				wB += iB * vcp.rB.Cross(P)
			}
		} else {
			vA, wA, vB, wB = vc.solveBlock(vA, wA, vB, wB)
		}

		s.velocities[indexA].v = vA
		s.velocities[indexA].w = wA
		s.velocities[indexB].v = vB
		s.velocities[indexB].w = wB
	}
}

// solveBlock solves the two normal constraints of a two point manifold
// together as a linear complementarity problem.
//
// Block solver developed in collaboration with Dirk Gregorius (back in
// 01/07 on Box2D_Lite). Build the mini LCP for this contact patch
//
// vn = A * x + b, vn >= 0, x >= 0 and vn_i * x_i = 0 with i = 1..2
//
// A = J * W * JT and J = ( -n, -r1 x n, n, r2 x n )
// b = vn0 - velocityBias
//
// The system is solved using the "Total enumeration method" (s. Murty).
// The complementary constraint vn_i * x_i implies that we must have in any
// solution either vn_i = 0 or x_i = 0. So for the 2D contact problem the
// cases vn1 = 0 and vn2 = 0, x1 = 0 and x2 = 0, x1 = 0 and vn2 = 0,
// x2 = 0 and vn1 = 0 need to be tested. The first valid solution that
// satisfies the problem is chosen.
//
// In order to account of the accumulated impulse 'a' (because of the
// iterative nature of the solver which only requires that the accumulated
// impulse is clamped and not the incremental impulse) we change the impulse
// variable (x_i).
//
// Substitute:
//
// x = a + d
//
// a := old total impulse
// x := new total impulse
// d := incremental impulse
//
// For the current iteration we extend the formula for the incremental
// impulse to compute the new total impulse:
//
// vn = A * d + b
//    = A * (x - a) + b
//    = A * x + b - A * a
//    = A * x + b'
// b' = b - A * a
func (vc *contactVelocityConstraint) solveBlock(vA Vec2, wA float64, vB Vec2, wB float64) (Vec2, float64, Vec2, float64) {
	mA := vc.invMassA
	iA := vc.invIA
	mB := vc.invMassB
	iB := vc.invIB
	normal := vc.normal

	cp1 := &vc.points[0]
	cp2 := &vc.points[1]

	a := MakeVec2(cp1.normalImpulse, cp2.normalImpulse)
	assert(a.X >= 0.0 && a.Y >= 0.0)

	// Relative velocity at contact
	dv1 := vB.Add(CrossSV(wB, cp1.rB)).Sub(vA).Sub(CrossSV(wA, cp1.rA))
	dv2 := vB.Add(CrossSV(wB, cp2.rB)).Sub(vA).Sub(CrossSV(wA, cp2.rA))

	// Compute normal velocity
	vn1 := dv1.Dot(normal)
	vn2 := dv2.Dot(normal)

	b := MakeVec2(vn1-cp1.velocityBias, vn2-cp2.velocityBias)

	// Compute b'
	b = b.Sub(vc.K.MulVec(a))

	apply := func(x Vec2) {
		// Get the incremental impulse
		d := x.Sub(a)

		// Apply incremental impulse
		P1 := normal.Mul(d.X)
		P2 := normal.Mul(d.Y)
		vA = vA.Sub(P1.Add(P2).Mul(mA))
		wA -= iA * (cp1.rA.Cross(P1) + cp2.rA.Cross(P2))

		vB = vB.Add(P1.Add(P2).Mul(mB))
		wB += iB * (cp1.rB.Cross(P1) + cp2.rB.Cross(P2))

		// Accumulate
		cp1.normalImpulse = x.X
		cp2.normalImpulse = x.Y
	}

	// Case 1: vn = 0
	//
	// 0 = A * x + b'
	//
	// Solve for x:
	//
	// x = - inv(A) * b'
	x := vc.normalMass.MulVec(b).Neg()
	if x.X >= 0.0 && x.Y >= 0.0 {
		apply(x)
		return vA, wA, vB, wB
	}

	// Case 2: vn1 = 0 and x2 = 0
	//
	//   0 = a11 * x1 + a12 * 0 + b1'
	// vn2 = a21 * x1 + a22 * 0 + b2'
	x = MakeVec2(-cp1.normalMass*b.X, 0.0)
	vn2 = vc.K.Ex.Y*x.X + b.Y
	if x.X >= 0.0 && vn2 >= 0.0 {
		apply(x)
		return vA, wA, vB, wB
	}

	// Case 3: vn2 = 0 and x1 = 0
	//
	// vn1 = a11 * 0 + a12 * x2 + b1'
	//   0 = a21 * 0 + a22 * x2 + b2'
	x = MakeVec2(0.0, -cp2.normalMass*b.Y)
	vn1 = vc.K.Ey.X*x.Y + b.X
	if x.Y >= 0.0 && vn1 >= 0.0 {
		apply(x)
		return vA, wA, vB, wB
	}

	// Case 4: x1 = 0 and x2 = 0
	//
	// vn1 = b1
	// vn2 = b2
	if b.X >= 0.0 && b.Y >= 0.0 {
		apply(Vec2{})
		return vA, wA, vB, wB
	}

	// No solution, give up. This is hit sometimes, but it doesn't seem to
	// matter.
	return vA, wA, vB, wB
}

// storeImpulses copies the solved impulses back to the manifolds for warm
// starting in the next step.
func (s *contactSolver) storeImpulses() {
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]
		manifold := &s.contacts[vc.contactIndex].manifold

		for j := 0; j < vc.pointCount; j++ {
			manifold.Points[j].NormalImpulse = vc.points[j].normalImpulse
			manifold.Points[j].TangentImpulse = vc.points[j].tangentImpulse
		}
	}
}

// positionSolverManifold is a contact point in world coordinates with its
// normal and separation.
type positionSolverManifold struct {
	normal     Vec2
	point      Vec2
	separation float64
}

func (pc *contactPositionConstraint) manifold(xfA, xfB Transform, index int) positionSolverManifold {
	assert(pc.pointCount > 0)

	var psm positionSolverManifold

	switch pc.kind {
	case ManifoldCircles:
		pointA := xfA.MulVec(pc.localPoint)
		pointB := xfB.MulVec(pc.localPoints[0])
		psm.normal = pointB.Sub(pointA).Normalized()
		psm.point = pointA.Add(pointB).Mul(0.5)
		psm.separation = pointB.Sub(pointA).Dot(psm.normal) - pc.radiusA - pc.radiusB

	case ManifoldFaceA:
		psm.normal = xfA.Q.MulVec(pc.localNormal)
		planePoint := xfA.MulVec(pc.localPoint)

		clipPoint := xfB.MulVec(pc.localPoints[index])
		psm.separation = clipPoint.Sub(planePoint).Dot(psm.normal) - pc.radiusA - pc.radiusB
		psm.point = clipPoint

	case ManifoldFaceB:
		psm.normal = xfB.Q.MulVec(pc.localNormal)
		planePoint := xfB.MulVec(pc.localPoint)

		clipPoint := xfA.MulVec(pc.localPoints[index])
		psm.separation = clipPoint.Sub(planePoint).Dot(psm.normal) - pc.radiusA - pc.radiusB
		psm.point = clipPoint

		// Ensure normal points from A to B
		psm.normal = psm.normal.Neg()
	}

	return psm
}

// solvePositionConstraints pushes overlapping bodies apart with a
// pseudo-velocity step. It reports whether the largest overlap is within
// three times the linear slop.
func (s *contactSolver) solvePositionConstraints() bool {
	minSeparation := 0.0

	for i := range s.positionConstraints {
		pc := &s.positionConstraints[i]

		indexA := pc.indexA
		indexB := pc.indexB
		localCenterA := pc.localCenterA
		mA := pc.invMassA
		iA := pc.invIA
		localCenterB := pc.localCenterB
		mB := pc.invMassB
		iB := pc.invIB

		cA := s.positions[indexA].c
		aA := s.positions[indexA].a
		cB := s.positions[indexB].c
		aB := s.positions[indexB].a

		// Solve normal constraints
		for j := 0; j < pc.pointCount; j++ {
			var xfA, xfB Transform
			xfA.Q = MakeRot(aA)
			xfB.Q = MakeRot(aB)
			xfA.P = cA.Sub(xfA.Q.MulVec(localCenterA))
			xfB.P = cB.Sub(xfB.Q.MulVec(localCenterB))

			psm := pc.manifold(xfA, xfB, j)
			normal := psm.normal
			point := psm.point
			separation := psm.separation

			rA := point.Sub(cA)
			rB := point.Sub(cB)

			// Track max constraint error.
			minSeparation = math.Min(minSeparation, separation)

			// Prevent large corrections and allow slop.
			C := clampFloat(Baumgarte*(separation+LinearSlop), -MaxLinearCorrection, 0.0)

			// Compute the effective mass.
			rnA := rA.Cross(normal)
			rnB := rB.Cross(normal)
			K := mA + mB + iA*rnA*rnA + iB*rnB*rnB

			// Compute normal impulse
			impulse := 0.0
			if K > 0.0 {
				impulse = -C / K
			}

			P := normal.Mul(impulse)

			cA = cA.Sub(P.Mul(mA))
			aA -= iA * rA.Cross(P)

			cB = cB.Add(P.Mul(mB))
			aB += iB * rB.Cross(P)
		}

		s.positions[indexA].c = cA
		s.positions[indexA].a = aA
		s.positions[indexB].c = cB
		s.positions[indexB].a = aB
	}

	// We can't expect minSeparation >= -LinearSlop because we don't push
	// the separation above -LinearSlop.
	return minSeparation >= -3.0*LinearSlop
}

// solveTOIPositionConstraints is the sub-step variant. Only the two bodies
// of the time of impact event (toiIndexA, toiIndexB) are moved; the rest of
// the island is treated as static.
func (s *contactSolver) solveTOIPositionConstraints(toiIndexA, toiIndexB int) bool {
	minSeparation := 0.0

	for i := range s.positionConstraints {
		pc := &s.positionConstraints[i]

		indexA := pc.indexA
		indexB := pc.indexB
		localCenterA := pc.localCenterA
		localCenterB := pc.localCenterB

		mA := 0.0
		iA := 0.0
		if indexA == toiIndexA || indexA == toiIndexB {
			mA = pc.invMassA
			iA = pc.invIA
		}

		mB := 0.0
		iB := 0.0
		if indexB == toiIndexA || indexB == toiIndexB {
			mB = pc.invMassB
			iB = pc.invIB
		}

		cA := s.positions[indexA].c
		aA := s.positions[indexA].a
		cB := s.positions[indexB].c
		aB := s.positions[indexB].a

		// Solve normal constraints
		for j := 0; j < pc.pointCount; j++ {
			var xfA, xfB Transform
			xfA.Q = MakeRot(aA)
			xfB.Q = MakeRot(aB)
			xfA.P = cA.Sub(xfA.Q.MulVec(localCenterA))
			xfB.P = cB.Sub(xfB.Q.MulVec(localCenterB))

			psm := pc.manifold(xfA, xfB, j)
			normal := psm.normal
			point := psm.point
			separation := psm.separation

			rA := point.Sub(cA)
			rB := point.Sub(cB)

			// Track max constraint error.
			minSeparation = math.Min(minSeparation, separation)

			// Prevent large corrections and allow slop.
			C := clampFloat(TOIBaumgarte*(separation+LinearSlop), -MaxLinearCorrection, 0.0)

			// Compute the effective mass.
			rnA := rA.Cross(normal)
			rnB := rB.Cross(normal)
			K := mA + mB + iA*rnA*rnA + iB*rnB*rnB

			// Compute normal impulse
			impulse := 0.0
			if K > 0.0 {
				impulse = -C / K
			}

			P := normal.Mul(impulse)

			cA = cA.Sub(P.Mul(mA))
			aA -= iA * rA.Cross(P)

			cB = cB.Add(P.Mul(mB))
			aB += iB * rB.Cross(P)
		}

		s.positions[indexA].c = cA
		s.positions[indexA].a = aA
		s.positions[indexB].c = cB
		s.positions[indexB].a = aB
	}

	// We can't expect minSeparation >= -LinearSlop because we don't push
	// the separation above -LinearSlop.
	return minSeparation >= -1.5*LinearSlop
}
