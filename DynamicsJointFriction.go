package velcro

// FrictionJointDef holds the anchors and friction limits of a friction
// joint.
type FrictionJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// MaxForce is the maximum friction force in N.
	MaxForce float64

	// MaxTorque is the maximum friction torque in N*m.
	MaxTorque float64
}

// NewFrictionJointDef anchors both bodies at a world point.
func NewFrictionJointDef(bodyA, bodyB *Body, anchor Vec2) *FrictionJointDef {
	return &FrictionJointDef{
		JointDefBase: JointDefBase{BodyA: bodyA, BodyB: bodyB},
		LocalAnchorA: bodyA.LocalPoint(anchor),
		LocalAnchorB: bodyB.LocalPoint(anchor),
	}
}

// FrictionJoint provides 2D translational and angular friction, as used for
// top-down games.
//
// Point-to-point constraint
// Cdot = v2 - v1
//      = v2 + cross(w2, r2) - v1 - cross(w1, r1)
// J = [-I -r1_skew I r2_skew ]
//
// Angle constraint
// Cdot = w2 - w1
// J = [0 0 -1 0 0 1]
// K = invI1 + invI2
type FrictionJoint struct {
	jointBase

	localAnchorA Vec2
	localAnchorB Vec2

	// Solver shared
	linearImpulse  Vec2
	angularImpulse float64
	maxForce       float64
	maxTorque      float64

	// Solver temp
	rA          Vec2
	rB          Vec2
	linearMass  Mat22
	angularMass float64
}

func newFrictionJoint(def *FrictionJointDef) (Joint, error) {
	return &FrictionJoint{
		jointBase:    makeJointBase(JointFriction, &def.JointDefBase),
		localAnchorA: def.LocalAnchorA,
		localAnchorB: def.LocalAnchorB,
		maxForce:     def.MaxForce,
		maxTorque:    def.MaxTorque,
	}, nil
}

func (j *FrictionJoint) LocalAnchorA() Vec2 { return j.localAnchorA }
func (j *FrictionJoint) LocalAnchorB() Vec2 { return j.localAnchorB }
func (j *FrictionJoint) AnchorA() Vec2      { return j.bodyA.WorldPoint(j.localAnchorA) }
func (j *FrictionJoint) AnchorB() Vec2      { return j.bodyB.WorldPoint(j.localAnchorB) }
func (j *FrictionJoint) MaxForce() float64  { return j.maxForce }
func (j *FrictionJoint) MaxTorque() float64 { return j.maxTorque }

func (j *FrictionJoint) SetMaxForce(force float64) {
	assert(IsValid(force) && force >= 0.0)
	j.maxForce = force
}

func (j *FrictionJoint) SetMaxTorque(torque float64) {
	assert(IsValid(torque) && torque >= 0.0)
	j.maxTorque = torque
}

func (j *FrictionJoint) ReactionForce(invDt float64) Vec2 {
	return j.linearImpulse.Mul(invDt)
}

func (j *FrictionJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.angularImpulse
}

func (j *FrictionJoint) initVelocityConstraints(data *solverData) {
	j.prepare()

	_, aA, _, aB := j.positions(data)
	vA, wA, vB, wB := j.velocities(data)

	qA := MakeRot(aA)
	qB := MakeRot(aB)

	// Compute the effective mass matrix.
	j.rA = qA.MulVec(j.localAnchorA.Sub(j.localCenterA))
	j.rB = qB.MulVec(j.localAnchorB.Sub(j.localCenterB))

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	K := pointMass(mA, mB, iA, iB, j.rA, j.rB)
	j.linearMass = MakeMat22(K.Ex.X, K.Ey.X, K.Ex.Y, K.Ey.Y).Inverse()

	j.angularMass = iA + iB
	if j.angularMass > 0.0 {
		j.angularMass = 1.0 / j.angularMass
	}

	if data.step.warmStarting {
		// Scale impulses to support a variable time step.
		j.linearImpulse = j.linearImpulse.Mul(data.step.dtRatio)
		j.angularImpulse *= data.step.dtRatio

		P := j.linearImpulse
		vA = vA.Sub(P.Mul(mA))
		wA -= iA * (j.rA.Cross(P) + j.angularImpulse)
		vB = vB.Add(P.Mul(mB))
		wB += iB * (j.rB.Cross(P) + j.angularImpulse)
	} else {
		j.linearImpulse.SetZero()
		j.angularImpulse = 0.0
	}

	j.storeVelocities(data, vA, wA, vB, wB)
}

func (j *FrictionJoint) solveVelocityConstraints(data *solverData) {
	vA, wA, vB, wB := j.velocities(data)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	h := data.step.dt

	// Solve angular friction
	{
		Cdot := wB - wA
		impulse := -j.angularMass * Cdot

		oldImpulse := j.angularImpulse
		maxImpulse := h * j.maxTorque
		j.angularImpulse = clampFloat(j.angularImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.angularImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	// Solve linear friction
	{
		Cdot := vB.Add(CrossSV(wB, j.rB)).Sub(vA).Sub(CrossSV(wA, j.rA))

		impulse := j.linearMass.MulVec(Cdot).Neg()
		oldImpulse := j.linearImpulse
		j.linearImpulse = j.linearImpulse.Add(impulse)

		maxImpulse := h * j.maxForce

		if j.linearImpulse.LengthSquared() > maxImpulse*maxImpulse {
			j.linearImpulse = j.linearImpulse.Normalized().Mul(maxImpulse)
		}

		impulse = j.linearImpulse.Sub(oldImpulse)

		vA = vA.Sub(impulse.Mul(mA))
		wA -= iA * j.rA.Cross(impulse)

		vB = vB.Add(impulse.Mul(mB))
		wB += iB * j.rB.Cross(impulse)
	}

	j.storeVelocities(data, vA, wA, vB, wB)
}

func (j *FrictionJoint) solvePositionConstraints(data *solverData) bool {
	return true
}
