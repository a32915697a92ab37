package velcro

import (
	"math"
)

// PrismaticJointDef defines a line of motion using an axis and an anchor
// point. Local anchors and axis keep the definition valid when the initial
// configuration violates the constraint slightly.
type PrismaticJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// LocalAxisA is the translation unit axis in body A.
	LocalAxisA Vec2

	// ReferenceAngle is the constrained angle between the bodies,
	// body B angle minus body A angle.
	ReferenceAngle float64

	EnableLimit      bool
	LowerTranslation float64
	UpperTranslation float64

	EnableMotor   bool
	MaxMotorForce float64
	MotorSpeed    float64
}

// NewPrismaticJointDef builds a definition from a world anchor and a world
// axis, using the current body angles as the reference.
func NewPrismaticJointDef(bodyA, bodyB *Body, anchor, axis Vec2) *PrismaticJointDef {
	return &PrismaticJointDef{
		JointDefBase:   JointDefBase{BodyA: bodyA, BodyB: bodyB},
		LocalAnchorA:   bodyA.LocalPoint(anchor),
		LocalAnchorB:   bodyB.LocalPoint(anchor),
		LocalAxisA:     bodyA.LocalVector(axis),
		ReferenceAngle: bodyB.Angle() - bodyA.Angle(),
	}
}

// PrismaticJoint allows one degree of relative translation along an axis
// fixed in body A. Relative rotation is prevented. A limit restricts the
// range of motion and a motor drives it.
//
// Linear constraint (point-to-line)
// d = p2 - p1 = x2 + r2 - x1 - r1
// C = dot(perp, d)
// Cdot = dot(d, cross(w1, perp)) + dot(perp, v2 + cross(w2, r2) - v1 - cross(w1, r1))
// J = [-perp, -cross(d + r1, perp), perp, cross(r2,perp)]
//
// Angular constraint
// C = a2 - a1 + a_initial
// Cdot = w2 - w1
// J = [0 0 -1 0 0 1]
type PrismaticJoint struct {
	jointBase

	localAnchorA     Vec2
	localAnchorB     Vec2
	localXAxisA      Vec2
	localYAxisA      Vec2
	referenceAngle   float64
	impulse          Vec3
	motorImpulse     float64
	lowerTranslation float64
	upperTranslation float64
	maxMotorForce    float64
	motorSpeed       float64
	enableLimit      bool
	enableMotor      bool
	limitState       limitState

	// Solver temp
	axis, perp Vec2
	s1, s2     float64
	a1, a2     float64
	K          Mat33
	motorMass  float64
}

func newPrismaticJoint(def *PrismaticJointDef) (Joint, error) {
	axis := def.LocalAxisA.Normalized()

	return &PrismaticJoint{
		jointBase:        makeJointBase(JointPrismatic, &def.JointDefBase),
		localAnchorA:     def.LocalAnchorA,
		localAnchorB:     def.LocalAnchorB,
		localXAxisA:      axis,
		localYAxisA:      CrossSV(1.0, axis),
		referenceAngle:   def.ReferenceAngle,
		lowerTranslation: def.LowerTranslation,
		upperTranslation: def.UpperTranslation,
		maxMotorForce:    def.MaxMotorForce,
		motorSpeed:       def.MotorSpeed,
		enableLimit:      def.EnableLimit,
		enableMotor:      def.EnableMotor,
	}, nil
}

func (j *PrismaticJoint) LocalAnchorA() Vec2               { return j.localAnchorA }
func (j *PrismaticJoint) LocalAnchorB() Vec2               { return j.localAnchorB }
func (j *PrismaticJoint) LocalAxisA() Vec2                 { return j.localXAxisA }
func (j *PrismaticJoint) ReferenceAngle() float64          { return j.referenceAngle }
func (j *PrismaticJoint) AnchorA() Vec2                    { return j.bodyA.WorldPoint(j.localAnchorA) }
func (j *PrismaticJoint) AnchorB() Vec2                    { return j.bodyB.WorldPoint(j.localAnchorB) }
func (j *PrismaticJoint) IsLimitEnabled() bool             { return j.enableLimit }
func (j *PrismaticJoint) LowerLimit() float64              { return j.lowerTranslation }
func (j *PrismaticJoint) UpperLimit() float64              { return j.upperTranslation }
func (j *PrismaticJoint) IsMotorEnabled() bool             { return j.enableMotor }
func (j *PrismaticJoint) MotorSpeed() float64              { return j.motorSpeed }
func (j *PrismaticJoint) MaxMotorForce() float64           { return j.maxMotorForce }
func (j *PrismaticJoint) MotorForce(invDt float64) float64 { return invDt * j.motorImpulse }

func (j *PrismaticJoint) ReactionForce(invDt float64) Vec2 {
	return j.perp.Mul(j.impulse.X).Add(j.axis.Mul(j.motorImpulse + j.impulse.Z)).Mul(invDt)
}

func (j *PrismaticJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.impulse.Y
}

// JointTranslation is the current translation along the axis.
func (j *PrismaticJoint) JointTranslation() float64 {
	pA := j.bodyA.WorldPoint(j.localAnchorA)
	pB := j.bodyB.WorldPoint(j.localAnchorB)
	axis := j.bodyA.WorldVector(j.localXAxisA)

	return pB.Sub(pA).Dot(axis)
}

// JointSpeed is the current translation speed along the axis.
func (j *PrismaticJoint) JointSpeed() float64 {
	bA := j.bodyA
	bB := j.bodyB

	rA := bA.xf.Q.MulVec(j.localAnchorA.Sub(bA.sweep.LocalCenter))
	rB := bB.xf.Q.MulVec(j.localAnchorB.Sub(bB.sweep.LocalCenter))
	p1 := bA.sweep.C.Add(rA)
	p2 := bB.sweep.C.Add(rB)
	d := p2.Sub(p1)
	axis := bA.xf.Q.MulVec(j.localXAxisA)

	vA := bA.linearVelocity
	vB := bB.linearVelocity
	wA := bA.angularVelocity
	wB := bB.angularVelocity

	return d.Dot(CrossSV(wA, axis)) +
		axis.Dot(vB.Add(CrossSV(wB, rB)).Sub(vA).Sub(CrossSV(wA, rA)))
}

func (j *PrismaticJoint) wake() {
	j.bodyA.SetAwake(true)
	j.bodyB.SetAwake(true)
}

func (j *PrismaticJoint) EnableLimit(flag bool) {
	if flag != j.enableLimit {
		j.wake()
		j.enableLimit = flag
		j.impulse.Z = 0.0
	}
}

func (j *PrismaticJoint) SetLimits(lower, upper float64) {
	assert(lower <= upper)

	if lower != j.lowerTranslation || upper != j.upperTranslation {
		j.wake()
		j.lowerTranslation = lower
		j.upperTranslation = upper
		j.impulse.Z = 0.0
	}
}

func (j *PrismaticJoint) EnableMotor(flag bool) {
	if flag != j.enableMotor {
		j.wake()
		j.enableMotor = flag
	}
}

func (j *PrismaticJoint) SetMotorSpeed(speed float64) {
	if speed != j.motorSpeed {
		j.wake()
		j.motorSpeed = speed
	}
}

func (j *PrismaticJoint) SetMaxMotorForce(force float64) {
	if force != j.maxMotorForce {
		j.wake()
		j.maxMotorForce = force
	}
}

func (j *PrismaticJoint) initVelocityConstraints(data *solverData) {
	j.prepare()

	cA, aA, cB, aB := j.positions(data)
	vA, wA, vB, wB := j.velocities(data)

	qA := MakeRot(aA)
	qB := MakeRot(aB)

	// Compute the effective masses.
	rA := qA.MulVec(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.MulVec(j.localAnchorB.Sub(j.localCenterB))
	d := cB.Sub(cA).Add(rB).Sub(rA)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	// Compute motor Jacobian and effective mass.
	j.axis = qA.MulVec(j.localXAxisA)
	j.a1 = d.Add(rA).Cross(j.axis)
	j.a2 = rB.Cross(j.axis)

	j.motorMass = mA + mB + iA*j.a1*j.a1 + iB*j.a2*j.a2
	if j.motorMass > 0.0 {
		j.motorMass = 1.0 / j.motorMass
	}

	// Prismatic constraint.
	j.perp = qA.MulVec(j.localYAxisA)
	j.s1 = d.Add(rA).Cross(j.perp)
	j.s2 = rB.Cross(j.perp)

	j.K = prismaticMass(mA, mB, iA, iB, j.s1, j.s2, j.a1, j.a2)

	// Compute motor and limit terms.
	if j.enableLimit {
		jointTranslation := j.axis.Dot(d)
		switch {
		case math.Abs(j.upperTranslation-j.lowerTranslation) < 2.0*LinearSlop:
			j.limitState = equalLimits
		case jointTranslation <= j.lowerTranslation:
			if j.limitState != atLowerLimit {
				j.limitState = atLowerLimit
				j.impulse.Z = 0.0
			}
		case jointTranslation >= j.upperTranslation:
			if j.limitState != atUpperLimit {
				j.limitState = atUpperLimit
				j.impulse.Z = 0.0
			}
		default:
			j.limitState = inactiveLimit
			j.impulse.Z = 0.0
		}
	} else {
		j.limitState = inactiveLimit
		j.impulse.Z = 0.0
	}

	if !j.enableMotor {
		j.motorImpulse = 0.0
	}

	if data.step.warmStarting {
		// Account for variable time step.
		j.impulse = j.impulse.Mul(data.step.dtRatio)
		j.motorImpulse *= data.step.dtRatio

		axial := j.motorImpulse + j.impulse.Z
		P := j.perp.Mul(j.impulse.X).Add(j.axis.Mul(axial))
		LA := j.impulse.X*j.s1 + j.impulse.Y + axial*j.a1
		LB := j.impulse.X*j.s2 + j.impulse.Y + axial*j.a2

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * LA

		vB = vB.Add(P.Mul(mB))
		wB += iB * LB
	} else {
		j.impulse.SetZero()
		j.motorImpulse = 0.0
	}

	j.storeVelocities(data, vA, wA, vB, wB)
}

// prismaticMass builds the 3x3 effective mass of the perpendicular, angular
// and axial rows.
func prismaticMass(mA, mB, iA, iB, s1, s2, a1, a2 float64) Mat33 {
	k11 := mA + mB + iA*s1*s1 + iB*s2*s2
	k12 := iA*s1 + iB*s2
	k13 := iA*s1*a1 + iB*s2*a2
	k22 := iA + iB
	if k22 == 0.0 {
		// For bodies with fixed rotation.
		k22 = 1.0
	}
	k23 := iA*a1 + iB*a2
	k33 := mA + mB + iA*a1*a1 + iB*a2*a2

	return Mat33{
		Ex: Vec3{k11, k12, k13},
		Ey: Vec3{k12, k22, k23},
		Ez: Vec3{k13, k23, k33},
	}
}

func (j *PrismaticJoint) solveVelocityConstraints(data *solverData) {
	vA, wA, vB, wB := j.velocities(data)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	// Solve linear motor constraint.
	if j.enableMotor && j.limitState != equalLimits {
		Cdot := j.axis.Dot(vB.Sub(vA)) + j.a2*wB - j.a1*wA
		impulse := j.motorMass * (j.motorSpeed - Cdot)
		oldImpulse := j.motorImpulse
		maxImpulse := data.step.dt * j.maxMotorForce
		j.motorImpulse = clampFloat(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		P := j.axis.Mul(impulse)
		LA := impulse * j.a1
		LB := impulse * j.a2

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * LA

		vB = vB.Add(P.Mul(mB))
		wB += iB * LB
	}

	Cdot1 := Vec2{
		X: j.perp.Dot(vB.Sub(vA)) + j.s2*wB - j.s1*wA,
		Y: wB - wA,
	}

	if j.enableLimit && j.limitState != inactiveLimit {
		// Solve prismatic and limit constraint in block form.
		Cdot2 := j.axis.Dot(vB.Sub(vA)) + j.a2*wB - j.a1*wA
		Cdot := Vec3{Cdot1.X, Cdot1.Y, Cdot2}

		f1 := j.impulse
		df := j.K.Solve33(Cdot.Neg())
		j.impulse = j.impulse.Add(df)

		if j.limitState == atLowerLimit {
			j.impulse.Z = math.Max(j.impulse.Z, 0.0)
		} else if j.limitState == atUpperLimit {
			j.impulse.Z = math.Min(j.impulse.Z, 0.0)
		}

		// f2(1:2) = invK(1:2,1:2) * (-Cdot(1:2) - K(1:2,3) * (f2(3) - f1(3))) + f1(1:2)
		b := Cdot1.Neg().Sub(Vec2{j.K.Ez.X, j.K.Ez.Y}.Mul(j.impulse.Z - f1.Z))
		f2r := j.K.Solve22(b).Add(Vec2{f1.X, f1.Y})
		j.impulse.X = f2r.X
		j.impulse.Y = f2r.Y

		df = j.impulse.Sub(f1)

		P := j.perp.Mul(df.X).Add(j.axis.Mul(df.Z))
		LA := df.X*j.s1 + df.Y + df.Z*j.a1
		LB := df.X*j.s2 + df.Y + df.Z*j.a2

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * LA

		vB = vB.Add(P.Mul(mB))
		wB += iB * LB
	} else {
		// Limit is inactive, just solve the prismatic constraint in block form.
		df := j.K.Solve22(Cdot1.Neg())
		j.impulse.X += df.X
		j.impulse.Y += df.Y

		P := j.perp.Mul(df.X)
		LA := df.X*j.s1 + df.Y
		LB := df.X*j.s2 + df.Y

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * LA

		vB = vB.Add(P.Mul(mB))
		wB += iB * LB
	}

	j.storeVelocities(data, vA, wA, vB, wB)
}

// The position solver only copes with integration error, so its pseudo
// impulses carry no physical meaning. The limit state is recomputed here
// because the joint may push past a limit the velocity solver considered
// inactive.
func (j *PrismaticJoint) solvePositionConstraints(data *solverData) bool {
	cA, aA, cB, aB := j.positions(data)

	qA := MakeRot(aA)
	qB := MakeRot(aB)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	// Compute fresh Jacobians
	rA := qA.MulVec(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.MulVec(j.localAnchorB.Sub(j.localCenterB))
	d := cB.Add(rB).Sub(cA).Sub(rA)

	axis := qA.MulVec(j.localXAxisA)
	a1 := d.Add(rA).Cross(axis)
	a2 := rB.Cross(axis)
	perp := qA.MulVec(j.localYAxisA)

	s1 := d.Add(rA).Cross(perp)
	s2 := rB.Cross(perp)

	C1 := Vec2{perp.Dot(d), aB - aA - j.referenceAngle}

	linearError := math.Abs(C1.X)
	angularError := math.Abs(C1.Y)

	active := false
	C2 := 0.0
	if j.enableLimit {
		translation := axis.Dot(d)
		switch {
		case math.Abs(j.upperTranslation-j.lowerTranslation) < 2.0*LinearSlop:
			// Prevent large angular corrections
			C2 = clampFloat(translation, -MaxLinearCorrection, MaxLinearCorrection)
			linearError = math.Max(linearError, math.Abs(translation))
			active = true
		case translation <= j.lowerTranslation:
			// Prevent large linear corrections and allow some slop.
			C2 = clampFloat(translation-j.lowerTranslation+LinearSlop, -MaxLinearCorrection, 0.0)
			linearError = math.Max(linearError, j.lowerTranslation-translation)
			active = true
		case translation >= j.upperTranslation:
			// Prevent large linear corrections and allow some slop.
			C2 = clampFloat(translation-j.upperTranslation-LinearSlop, 0.0, MaxLinearCorrection)
			linearError = math.Max(linearError, translation-j.upperTranslation)
			active = true
		}
	}

	var impulse Vec3
	if active {
		K := prismaticMass(mA, mB, iA, iB, s1, s2, a1, a2)
		impulse = K.Solve33(Vec3{C1.X, C1.Y, C2}.Neg())
	} else {
		k11 := mA + mB + iA*s1*s1 + iB*s2*s2
		k12 := iA*s1 + iB*s2
		k22 := iA + iB
		if k22 == 0.0 {
			k22 = 1.0
		}

		K := MakeMat22(k11, k12, k12, k22)
		impulse1 := K.Solve(C1.Neg())
		impulse = Vec3{impulse1.X, impulse1.Y, 0.0}
	}

	P := perp.Mul(impulse.X).Add(axis.Mul(impulse.Z))
	LA := impulse.X*s1 + impulse.Y + impulse.Z*a1
	LB := impulse.X*s2 + impulse.Y + impulse.Z*a2

	cA = cA.Sub(P.Mul(mA))
	aA -= iA * LA
	cB = cB.Add(P.Mul(mB))
	aB += iB * LB

	j.storePositions(data, cA, aA, cB, aB)

	return linearError <= LinearSlop && angularError <= AngularSlop
}
