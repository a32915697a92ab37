package velcro

import (
	"github.com/pkg/errors"
)

// MotorJointDef holds the target offsets and force limits of a motor joint.
type MotorJointDef struct {
	JointDefBase

	// LinearOffset is the position of body B minus the position of body A,
	// in the frame of body A.
	LinearOffset Vec2

	// AngularOffset is the body B angle minus the body A angle, in radians.
	AngularOffset float64

	// MaxForce is the maximum motor force in N.
	MaxForce float64

	// MaxTorque is the maximum motor torque in N*m.
	MaxTorque float64

	// CorrectionFactor is the position correction factor in [0,1].
	CorrectionFactor float64
}

// NewMotorJointDef uses the current relative placement of the bodies as the
// target offsets.
func NewMotorJointDef(bodyA, bodyB *Body) *MotorJointDef {
	return &MotorJointDef{
		JointDefBase:     JointDefBase{BodyA: bodyA, BodyB: bodyB},
		LinearOffset:     bodyA.LocalPoint(bodyB.Position()),
		AngularOffset:    bodyB.Angle() - bodyA.Angle(),
		MaxForce:         1.0,
		MaxTorque:        1.0,
		CorrectionFactor: 0.3,
	}
}

// MotorJoint controls the relative motion between two bodies. A typical use
// is to move a dynamic body relative to the ground.
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
type MotorJoint struct {
	jointBase

	// Solver shared
	linearOffset     Vec2
	angularOffset    float64
	linearImpulse    Vec2
	angularImpulse   float64
	maxForce         float64
	maxTorque        float64
	correctionFactor float64

	// Solver temp
	rA           Vec2
	rB           Vec2
	linearError  Vec2
	angularError float64
	linearMass   Mat22
	angularMass  float64
}

func newMotorJoint(def *MotorJointDef) (Joint, error) {
	if def.CorrectionFactor < 0.0 || def.CorrectionFactor > 1.0 {
		return nil, errors.Wrapf(ErrInvalidJoint, "motor correction factor %v", def.CorrectionFactor)
	}

	return &MotorJoint{
		jointBase:        makeJointBase(JointMotor, &def.JointDefBase),
		linearOffset:     def.LinearOffset,
		angularOffset:    def.AngularOffset,
		maxForce:         def.MaxForce,
		maxTorque:        def.MaxTorque,
		correctionFactor: def.CorrectionFactor,
	}, nil
}

func (j *MotorJoint) AnchorA() Vec2             { return j.bodyA.Position() }
func (j *MotorJoint) AnchorB() Vec2             { return j.bodyB.Position() }
func (j *MotorJoint) LinearOffset() Vec2        { return j.linearOffset }
func (j *MotorJoint) AngularOffset() float64    { return j.angularOffset }
func (j *MotorJoint) MaxForce() float64         { return j.maxForce }
func (j *MotorJoint) MaxTorque() float64        { return j.maxTorque }
func (j *MotorJoint) CorrectionFactor() float64 { return j.correctionFactor }

func (j *MotorJoint) SetMaxForce(force float64) {
	assert(IsValid(force) && force >= 0.0)
	j.maxForce = force
}

func (j *MotorJoint) SetMaxTorque(torque float64) {
	assert(IsValid(torque) && torque >= 0.0)
	j.maxTorque = torque
}

func (j *MotorJoint) SetCorrectionFactor(factor float64) {
	assert(IsValid(factor) && 0.0 <= factor && factor <= 1.0)
	j.correctionFactor = factor
}

// SetLinearOffset sets the target position of body B in the frame of body A.
func (j *MotorJoint) SetLinearOffset(offset Vec2) {
	if offset != j.linearOffset {
		j.bodyA.SetAwake(true)
		j.bodyB.SetAwake(true)
		j.linearOffset = offset
	}
}

// SetAngularOffset sets the target relative angle.
func (j *MotorJoint) SetAngularOffset(offset float64) {
	if offset != j.angularOffset {
		j.bodyA.SetAwake(true)
		j.bodyB.SetAwake(true)
		j.angularOffset = offset
	}
}

func (j *MotorJoint) ReactionForce(invDt float64) Vec2 {
	return j.linearImpulse.Mul(invDt)
}

func (j *MotorJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.angularImpulse
}

func (j *MotorJoint) initVelocityConstraints(data *solverData) {
	j.prepare()

	cA, aA, cB, aB := j.positions(data)
	vA, wA, vB, wB := j.velocities(data)

	qA := MakeRot(aA)
	qB := MakeRot(aB)

	// Compute the effective mass matrix.
	j.rA = qA.MulVec(j.localCenterA.Neg())
	j.rB = qB.MulVec(j.localCenterB.Neg())

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	K := pointMass(mA, mB, iA, iB, j.rA, j.rB)
	j.linearMass = MakeMat22(K.Ex.X, K.Ey.X, K.Ex.Y, K.Ey.Y).Inverse()

	j.angularMass = iA + iB
	if j.angularMass > 0.0 {
		j.angularMass = 1.0 / j.angularMass
	}

	j.linearError = cB.Add(j.rB).Sub(cA).Sub(j.rA).Sub(qA.MulVec(j.linearOffset))
	j.angularError = aB - aA - j.angularOffset

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

func (j *MotorJoint) solveVelocityConstraints(data *solverData) {
	vA, wA, vB, wB := j.velocities(data)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	h := data.step.dt
	invH := data.step.invDt

	// Solve angular friction
	{
		Cdot := wB - wA + invH*j.correctionFactor*j.angularError
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
		Cdot := vB.Add(CrossSV(wB, j.rB)).Sub(vA).Sub(CrossSV(wA, j.rA)).
			Add(j.linearError.Mul(invH * j.correctionFactor))

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

func (j *MotorJoint) solvePositionConstraints(data *solverData) bool {
	return true
}
