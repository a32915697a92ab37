package velcro

import (
	"math"
)

// RevoluteJointDef defines a revolute joint through local anchor points so
// the initial configuration may violate the constraint slightly. The
// reference angle is needed for the joint limits.
type RevoluteJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// ReferenceAngle is the body B angle minus the body A angle in the
	// reference state, in radians.
	ReferenceAngle float64

	EnableLimit bool
	LowerAngle  float64
	UpperAngle  float64

	EnableMotor    bool
	MotorSpeed     float64
	MaxMotorTorque float64
}

// NewRevoluteJointDef joins two bodies at a world anchor point, using the
// current body angles as the reference.
func NewRevoluteJointDef(bodyA, bodyB *Body, anchor Vec2) *RevoluteJointDef {
	return &RevoluteJointDef{
		JointDefBase:   JointDefBase{BodyA: bodyA, BodyB: bodyB},
		LocalAnchorA:   bodyA.LocalPoint(anchor),
		LocalAnchorB:   bodyB.LocalPoint(anchor),
		ReferenceAngle: bodyB.Angle() - bodyA.Angle(),
	}
}

// RevoluteJoint makes two bodies share a common point while they rotate
// freely about it. The relative rotation can be limited and driven by a
// motor with a maximum torque.
//
// Point-to-point constraint
// C = p2 - p1
// Cdot = v2 - v1
//      = v2 + cross(w2, r2) - v1 - cross(w1, r1)
// J = [-I -r1_skew I r2_skew ]
//
// Motor constraint
// Cdot = w2 - w1
// J = [0 0 -1 0 0 1]
// K = invI1 + invI2
type RevoluteJoint struct {
	jointBase

	localAnchorA Vec2
	localAnchorB Vec2
	impulse      Vec3
	motorImpulse float64

	enableMotor    bool
	maxMotorTorque float64
	motorSpeed     float64

	enableLimit    bool
	referenceAngle float64
	lowerAngle     float64
	upperAngle     float64

	// Solver temp
	rA         Vec2
	rB         Vec2
	mass       Mat33 // point-to-point effective mass
	motorMass  float64
	limitState limitState
}

func newRevoluteJoint(def *RevoluteJointDef) (Joint, error) {
	return &RevoluteJoint{
		jointBase:      makeJointBase(JointRevolute, &def.JointDefBase),
		localAnchorA:   def.LocalAnchorA,
		localAnchorB:   def.LocalAnchorB,
		referenceAngle: def.ReferenceAngle,
		lowerAngle:     def.LowerAngle,
		upperAngle:     def.UpperAngle,
		maxMotorTorque: def.MaxMotorTorque,
		motorSpeed:     def.MotorSpeed,
		enableLimit:    def.EnableLimit,
		enableMotor:    def.EnableMotor,
	}, nil
}

func (j *RevoluteJoint) LocalAnchorA() Vec2                { return j.localAnchorA }
func (j *RevoluteJoint) LocalAnchorB() Vec2                { return j.localAnchorB }
func (j *RevoluteJoint) ReferenceAngle() float64           { return j.referenceAngle }
func (j *RevoluteJoint) AnchorA() Vec2                     { return j.bodyA.WorldPoint(j.localAnchorA) }
func (j *RevoluteJoint) AnchorB() Vec2                     { return j.bodyB.WorldPoint(j.localAnchorB) }
func (j *RevoluteJoint) IsMotorEnabled() bool              { return j.enableMotor }
func (j *RevoluteJoint) MotorSpeed() float64               { return j.motorSpeed }
func (j *RevoluteJoint) MaxMotorTorque() float64           { return j.maxMotorTorque }
func (j *RevoluteJoint) IsLimitEnabled() bool              { return j.enableLimit }
func (j *RevoluteJoint) LowerLimit() float64               { return j.lowerAngle }
func (j *RevoluteJoint) UpperLimit() float64               { return j.upperAngle }
func (j *RevoluteJoint) MotorTorque(invDt float64) float64 { return invDt * j.motorImpulse }

func (j *RevoluteJoint) ReactionForce(invDt float64) Vec2 {
	return Vec2{j.impulse.X, j.impulse.Y}.Mul(invDt)
}

func (j *RevoluteJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.impulse.Z
}

// JointAngle is the current relative angle in radians.
func (j *RevoluteJoint) JointAngle() float64 {
	return j.bodyB.sweep.A - j.bodyA.sweep.A - j.referenceAngle
}

// JointSpeed is the current relative angular speed in radians per second.
func (j *RevoluteJoint) JointSpeed() float64 {
	return j.bodyB.angularVelocity - j.bodyA.angularVelocity
}

func (j *RevoluteJoint) wake() {
	j.bodyA.SetAwake(true)
	j.bodyB.SetAwake(true)
}

func (j *RevoluteJoint) EnableMotor(flag bool) {
	if flag != j.enableMotor {
		j.wake()
		j.enableMotor = flag
	}
}

func (j *RevoluteJoint) SetMotorSpeed(speed float64) {
	if speed != j.motorSpeed {
		j.wake()
		j.motorSpeed = speed
	}
}

func (j *RevoluteJoint) SetMaxMotorTorque(torque float64) {
	if torque != j.maxMotorTorque {
		j.wake()
		j.maxMotorTorque = torque
	}
}

func (j *RevoluteJoint) EnableLimit(flag bool) {
	if flag != j.enableLimit {
		j.wake()
		j.enableLimit = flag
		j.impulse.Z = 0.0
	}
}

// SetLimits sets the angle limits in radians. lower must not exceed upper.
func (j *RevoluteJoint) SetLimits(lower, upper float64) {
	assert(lower <= upper)

	if lower != j.lowerAngle || upper != j.upperAngle {
		j.wake()
		j.impulse.Z = 0.0
		j.lowerAngle = lower
		j.upperAngle = upper
	}
}

func (j *RevoluteJoint) initVelocityConstraints(data *solverData) {
	j.prepare()

	_, aA, _, aB := j.positions(data)
	vA, wA, vB, wB := j.velocities(data)

	qA := MakeRot(aA)
	qB := MakeRot(aB)

	j.rA = qA.MulVec(j.localAnchorA.Sub(j.localCenterA))
	j.rB = qB.MulVec(j.localAnchorB.Sub(j.localCenterB))

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB
	rA, rB := j.rA, j.rB

	fixedRotation := iA+iB == 0.0

	j.mass = pointMass(mA, mB, iA, iB, rA, rB)

	j.motorMass = iA + iB
	if j.motorMass > 0.0 {
		j.motorMass = 1.0 / j.motorMass
	}

	if !j.enableMotor || fixedRotation {
		j.motorImpulse = 0.0
	}

	if j.enableLimit && !fixedRotation {
		jointAngle := aB - aA - j.referenceAngle
		switch {
		case math.Abs(j.upperAngle-j.lowerAngle) < 2.0*AngularSlop:
			j.limitState = equalLimits
		case jointAngle <= j.lowerAngle:
			if j.limitState != atLowerLimit {
				j.impulse.Z = 0.0
			}
			j.limitState = atLowerLimit
		case jointAngle >= j.upperAngle:
			if j.limitState != atUpperLimit {
				j.impulse.Z = 0.0
			}
			j.limitState = atUpperLimit
		default:
			j.limitState = inactiveLimit
			j.impulse.Z = 0.0
		}
	} else {
		j.limitState = inactiveLimit
	}

	if data.step.warmStarting {
		// Scale impulses to support a variable time step.
		j.impulse = j.impulse.Mul(data.step.dtRatio)
		j.motorImpulse *= data.step.dtRatio

		P := Vec2{j.impulse.X, j.impulse.Y}

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * (rA.Cross(P) + j.motorImpulse + j.impulse.Z)

		vB = vB.Add(P.Mul(mB))
		wB += iB * (rB.Cross(P) + j.motorImpulse + j.impulse.Z)
	} else {
		j.impulse.SetZero()
		j.motorImpulse = 0.0
	}

	j.storeVelocities(data, vA, wA, vB, wB)
}

func (j *RevoluteJoint) solveVelocityConstraints(data *solverData) {
	vA, wA, vB, wB := j.velocities(data)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	fixedRotation := iA+iB == 0.0

	// Solve motor constraint.
	if j.enableMotor && j.limitState != equalLimits && !fixedRotation {
		Cdot := wB - wA - j.motorSpeed
		impulse := -j.motorMass * Cdot
		oldImpulse := j.motorImpulse
		maxImpulse := data.step.dt * j.maxMotorTorque
		j.motorImpulse = clampFloat(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	if j.enableLimit && j.limitState != inactiveLimit && !fixedRotation {
		// Solve limit constraint.
		Cdot1 := vB.Add(CrossSV(wB, j.rB)).Sub(vA).Sub(CrossSV(wA, j.rA))
		Cdot2 := wB - wA
		Cdot := Vec3{Cdot1.X, Cdot1.Y, Cdot2}

		impulse := j.mass.Solve33(Cdot).Neg()

		switch j.limitState {
		case equalLimits:
			j.impulse = j.impulse.Add(impulse)

		case atLowerLimit, atUpperLimit:
			newImpulse := j.impulse.Z + impulse.Z
			if (j.limitState == atLowerLimit && newImpulse < 0.0) ||
				(j.limitState == atUpperLimit && newImpulse > 0.0) {
				rhs := Cdot1.Neg().Add(Vec2{j.mass.Ez.X, j.mass.Ez.Y}.Mul(j.impulse.Z))
				reduced := j.mass.Solve22(rhs)
				impulse = Vec3{reduced.X, reduced.Y, -j.impulse.Z}
				j.impulse.X += reduced.X
				j.impulse.Y += reduced.Y
				j.impulse.Z = 0.0
			} else {
				j.impulse = j.impulse.Add(impulse)
			}
		}

		P := Vec2{impulse.X, impulse.Y}

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * (j.rA.Cross(P) + impulse.Z)

		vB = vB.Add(P.Mul(mB))
		wB += iB * (j.rB.Cross(P) + impulse.Z)
	} else {
		// Solve point-to-point constraint
		Cdot := vB.Add(CrossSV(wB, j.rB)).Sub(vA).Sub(CrossSV(wA, j.rA))
		impulse := j.mass.Solve22(Cdot.Neg())

		j.impulse.X += impulse.X
		j.impulse.Y += impulse.Y

		vA = vA.Sub(impulse.Mul(mA))
		wA -= iA * j.rA.Cross(impulse)

		vB = vB.Add(impulse.Mul(mB))
		wB += iB * j.rB.Cross(impulse)
	}

	j.storeVelocities(data, vA, wA, vB, wB)
}

func (j *RevoluteJoint) solvePositionConstraints(data *solverData) bool {
	cA, aA, cB, aB := j.positions(data)

	angularError := 0.0
	positionError := 0.0

	fixedRotation := j.invIA+j.invIB == 0.0

	// Solve angular limit constraint.
	if j.enableLimit && j.limitState != inactiveLimit && !fixedRotation {
		angle := aB - aA - j.referenceAngle
		limitImpulse := 0.0

		switch j.limitState {
		case equalLimits:
			// Prevent large angular corrections
			C := clampFloat(angle-j.lowerAngle, -MaxAngularCorrection, MaxAngularCorrection)
			limitImpulse = -j.motorMass * C
			angularError = math.Abs(C)

		case atLowerLimit:
			C := angle - j.lowerAngle
			angularError = -C

			// Prevent large angular corrections and allow some slop.
			C = clampFloat(C+AngularSlop, -MaxAngularCorrection, 0.0)
			limitImpulse = -j.motorMass * C

		case atUpperLimit:
			C := angle - j.upperAngle
			angularError = C

			// Prevent large angular corrections and allow some slop.
			C = clampFloat(C-AngularSlop, 0.0, MaxAngularCorrection)
			limitImpulse = -j.motorMass * C
		}

		aA -= j.invIA * limitImpulse
		aB += j.invIB * limitImpulse
	}

	// Solve point-to-point constraint.
	{
		qA := MakeRot(aA)
		qB := MakeRot(aB)
		rA := qA.MulVec(j.localAnchorA.Sub(j.localCenterA))
		rB := qB.MulVec(j.localAnchorB.Sub(j.localCenterB))

		C := cB.Add(rB).Sub(cA).Sub(rA)
		positionError = C.Length()

		mA, mB := j.invMassA, j.invMassB
		iA, iB := j.invIA, j.invIB

		var K Mat22
		K.Ex.X = mA + mB + iA*rA.Y*rA.Y + iB*rB.Y*rB.Y
		K.Ex.Y = -iA*rA.X*rA.Y - iB*rB.X*rB.Y
		K.Ey.X = K.Ex.Y
		K.Ey.Y = mA + mB + iA*rA.X*rA.X + iB*rB.X*rB.X

		impulse := K.Solve(C).Neg()

		cA = cA.Sub(impulse.Mul(mA))
		aA -= iA * rA.Cross(impulse)

		cB = cB.Add(impulse.Mul(mB))
		aB += iB * rB.Cross(impulse)
	}

	j.storePositions(data, cA, aA, cB, aB)

	return positionError <= LinearSlop && angularError <= AngularSlop
}
