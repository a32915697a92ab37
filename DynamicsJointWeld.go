package velcro

import (
	"math"
)

// WeldJointDef holds local anchor points and the reference angle so that the
// initial configuration can violate the constraint slightly.
type WeldJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// ReferenceAngle is the body B angle minus the body A angle in the
	// reference state, in radians.
	ReferenceAngle float64

	// FrequencyHz is the mass-spring-damper frequency of the angular
	// constraint. Zero makes the weld rigid.
	FrequencyHz float64

	// DampingRatio: 0 = no damping, 1 = critical damping.
	DampingRatio float64
}

// NewWeldJointDef welds two bodies at a world anchor point in their current
// relative orientation.
func NewWeldJointDef(bodyA, bodyB *Body, anchor Vec2) *WeldJointDef {
	return &WeldJointDef{
		JointDefBase:   JointDefBase{BodyA: bodyA, BodyB: bodyB},
		LocalAnchorA:   bodyA.LocalPoint(anchor),
		LocalAnchorB:   bodyB.LocalPoint(anchor),
		ReferenceAngle: bodyB.Angle() - bodyA.Angle(),
	}
}

// WeldJoint glues two bodies together. The weld may be soft about the
// angle, which also softens the effective linear stiffness.
//
// Point-to-point constraint
// C = p2 - p1
// Cdot = v2 - v1
//      = v2 + cross(w2, r2) - v1 - cross(w1, r1)
// J = [-I -r1_skew I r2_skew ]
//
// Angle constraint
// C = angle2 - angle1 - referenceAngle
// Cdot = w2 - w1
// J = [0 0 -1 0 0 1]
// K = invI1 + invI2
type WeldJoint struct {
	jointBase

	frequencyHz  float64
	dampingRatio float64
	bias         float64

	// Solver shared
	localAnchorA   Vec2
	localAnchorB   Vec2
	referenceAngle float64
	gamma          float64
	impulse        Vec3

	// Solver temp
	rA   Vec2
	rB   Vec2
	mass Mat33
}

func newWeldJoint(def *WeldJointDef) (Joint, error) {
	return &WeldJoint{
		jointBase:      makeJointBase(JointWeld, &def.JointDefBase),
		localAnchorA:   def.LocalAnchorA,
		localAnchorB:   def.LocalAnchorB,
		referenceAngle: def.ReferenceAngle,
		frequencyHz:    def.FrequencyHz,
		dampingRatio:   def.DampingRatio,
	}, nil
}

func (j *WeldJoint) LocalAnchorA() Vec2      { return j.localAnchorA }
func (j *WeldJoint) LocalAnchorB() Vec2      { return j.localAnchorB }
func (j *WeldJoint) ReferenceAngle() float64 { return j.referenceAngle }
func (j *WeldJoint) Frequency() float64      { return j.frequencyHz }
func (j *WeldJoint) DampingRatio() float64   { return j.dampingRatio }
func (j *WeldJoint) AnchorA() Vec2           { return j.bodyA.WorldPoint(j.localAnchorA) }
func (j *WeldJoint) AnchorB() Vec2           { return j.bodyB.WorldPoint(j.localAnchorB) }

func (j *WeldJoint) SetFrequency(hz float64)   { j.frequencyHz = hz }
func (j *WeldJoint) SetDampingRatio(r float64) { j.dampingRatio = r }

func (j *WeldJoint) ReactionForce(invDt float64) Vec2 {
	return Vec2{j.impulse.X, j.impulse.Y}.Mul(invDt)
}

func (j *WeldJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.impulse.Z
}

func (j *WeldJoint) initVelocityConstraints(data *solverData) {
	j.prepare()

	_, aA, _, aB := j.positions(data)
	vA, wA, vB, wB := j.velocities(data)

	qA := MakeRot(aA)
	qB := MakeRot(aB)

	j.rA = qA.MulVec(j.localAnchorA.Sub(j.localCenterA))
	j.rB = qB.MulVec(j.localAnchorB.Sub(j.localCenterB))

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	K := pointMass(mA, mB, iA, iB, j.rA, j.rB)

	switch {
	case j.frequencyHz > 0.0:
		j.mass = K.Inverse22()

		invM := iA + iB
		m := 0.0
		if invM > 0.0 {
			m = 1.0 / invM
		}

		C := aB - aA - j.referenceAngle

		// Frequency
		omega := 2.0 * math.Pi * j.frequencyHz

		// Damping coefficient
		d := 2.0 * m * j.dampingRatio * omega

		// Spring stiffness
		k := m * omega * omega

		// magic formulas
		h := data.step.dt
		j.gamma = h * (d + h*k)
		if j.gamma != 0.0 {
			j.gamma = 1.0 / j.gamma
		}
		j.bias = C * h * k * j.gamma

		invM += j.gamma
		j.mass.Ez.Z = 0.0
		if invM != 0.0 {
			j.mass.Ez.Z = 1.0 / invM
		}

	case K.Ez.Z == 0.0:
		j.mass = K.Inverse22()
		j.gamma = 0.0
		j.bias = 0.0

	default:
		j.mass = K.SymInverse33()
		j.gamma = 0.0
		j.bias = 0.0
	}

	if data.step.warmStarting {
		// Scale impulses to support a variable time step.
		j.impulse = j.impulse.Mul(data.step.dtRatio)

		P := Vec2{j.impulse.X, j.impulse.Y}

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * (j.rA.Cross(P) + j.impulse.Z)

		vB = vB.Add(P.Mul(mB))
		wB += iB * (j.rB.Cross(P) + j.impulse.Z)
	} else {
		j.impulse.SetZero()
	}

	j.storeVelocities(data, vA, wA, vB, wB)
}

func (j *WeldJoint) solveVelocityConstraints(data *solverData) {
	vA, wA, vB, wB := j.velocities(data)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	if j.frequencyHz > 0.0 {
		Cdot2 := wB - wA

		impulse2 := -j.mass.Ez.Z * (Cdot2 + j.bias + j.gamma*j.impulse.Z)
		j.impulse.Z += impulse2

		wA -= iA * impulse2
		wB += iB * impulse2

		Cdot1 := vB.Add(CrossSV(wB, j.rB)).Sub(vA).Sub(CrossSV(wA, j.rA))

		impulse1 := j.mass.MulVec2(Cdot1).Neg()
		j.impulse.X += impulse1.X
		j.impulse.Y += impulse1.Y

		P := impulse1

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * j.rA.Cross(P)

		vB = vB.Add(P.Mul(mB))
		wB += iB * j.rB.Cross(P)
	} else {
		Cdot1 := vB.Add(CrossSV(wB, j.rB)).Sub(vA).Sub(CrossSV(wA, j.rA))
		Cdot2 := wB - wA
		Cdot := Vec3{Cdot1.X, Cdot1.Y, Cdot2}

		impulse := j.mass.MulVec(Cdot).Neg()
		j.impulse = j.impulse.Add(impulse)

		P := Vec2{impulse.X, impulse.Y}

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * (j.rA.Cross(P) + impulse.Z)

		vB = vB.Add(P.Mul(mB))
		wB += iB * (j.rB.Cross(P) + impulse.Z)
	}

	j.storeVelocities(data, vA, wA, vB, wB)
}

func (j *WeldJoint) solvePositionConstraints(data *solverData) bool {
	cA, aA, cB, aB := j.positions(data)

	qA := MakeRot(aA)
	qB := MakeRot(aB)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	rA := qA.MulVec(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.MulVec(j.localAnchorB.Sub(j.localCenterB))

	var positionError, angularError float64

	K := pointMass(mA, mB, iA, iB, rA, rB)
	C1 := cB.Add(rB).Sub(cA).Sub(rA)

	if j.frequencyHz > 0.0 {
		positionError = C1.Length()
		angularError = 0.0

		P := K.Solve22(C1).Neg()

		cA = cA.Sub(P.Mul(mA))
		aA -= iA * rA.Cross(P)

		cB = cB.Add(P.Mul(mB))
		aB += iB * rB.Cross(P)
	} else {
		C2 := aB - aA - j.referenceAngle

		positionError = C1.Length()
		angularError = math.Abs(C2)

		var impulse Vec3
		if K.Ez.Z > 0.0 {
			impulse = K.Solve33(Vec3{C1.X, C1.Y, C2}).Neg()
		} else {
			impulse2 := K.Solve22(C1).Neg()
			impulse = Vec3{impulse2.X, impulse2.Y, 0.0}
		}

		P := Vec2{impulse.X, impulse.Y}

		cA = cA.Sub(P.Mul(mA))
		aA -= iA * (rA.Cross(P) + impulse.Z)

		cB = cB.Add(P.Mul(mB))
		aB += iB * (rB.Cross(P) + impulse.Z)
	}

	j.storePositions(data, cA, aA, cB, aB)

	return positionError <= LinearSlop && angularError <= AngularSlop
}
