package velcro

import (
	"math"
)

// WheelJointDef defines a line of motion using an axis and an anchor point.
type WheelJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// LocalAxisA is the translation axis in body A.
	LocalAxisA Vec2

	EnableMotor    bool
	MaxMotorTorque float64
	MotorSpeed     float64

	// FrequencyHz is the suspension frequency; zero disables the spring.
	FrequencyHz float64

	// DampingRatio is the suspension damping ratio.
	DampingRatio float64
}

// NewWheelJointDef builds a definition from a world anchor and a world axis.
func NewWheelJointDef(bodyA, bodyB *Body, anchor, axis Vec2) *WheelJointDef {
	return &WheelJointDef{
		JointDefBase: JointDefBase{BodyA: bodyA, BodyB: bodyB},
		LocalAnchorA: bodyA.LocalPoint(anchor),
		LocalAnchorB: bodyB.LocalPoint(anchor),
		LocalAxisA:   bodyA.LocalVector(axis),
		FrequencyHz:  2.0,
		DampingRatio: 0.7,
	}
}

// WheelJoint gives body B a line of motion along an axis fixed in body A
// with a spring along the axis, and lets it rotate freely. A rotational
// motor drives the wheel. Designed for vehicle suspensions.
//
// Linear constraint (point-to-line)
// d = pB - pA = xB + rB - xA - rA
// C = dot(ay, d)
// Cdot = dot(d, cross(wA, ay)) + dot(ay, vB + cross(wB, rB) - vA - cross(wA, rA))
//      = -dot(ay, vA) - dot(cross(d + rA, ay), wA) + dot(ay, vB) + dot(cross(rB, ay), vB)
// J = [-ay, -cross(d + rA, ay), ay, cross(rB, ay)]
//
// Spring linear constraint
// C = dot(ax, d)
// Cdot = -dot(ax, vA) - dot(cross(d + rA, ax), wA) + dot(ax, vB) + dot(cross(rB, ax), vB)
// J = [-ax -cross(d+rA, ax) ax cross(rB, ax)]
//
// Motor rotational constraint
// Cdot = wB - wA
// J = [0 0 -1 0 0 1]
type WheelJoint struct {
	jointBase

	frequencyHz  float64
	dampingRatio float64

	// Solver shared
	localAnchorA Vec2
	localAnchorB Vec2
	localXAxisA  Vec2
	localYAxisA  Vec2

	impulse       float64
	motorImpulse  float64
	springImpulse float64

	maxMotorTorque float64
	motorSpeed     float64
	enableMotor    bool

	// Solver temp
	ax, ay   Vec2
	sAx, sBx float64
	sAy, sBy float64

	mass       float64
	motorMass  float64
	springMass float64

	bias  float64
	gamma float64
}

func newWheelJoint(def *WheelJointDef) (Joint, error) {
	axis := def.LocalAxisA.Normalized()

	return &WheelJoint{
		jointBase:      makeJointBase(JointWheel, &def.JointDefBase),
		localAnchorA:   def.LocalAnchorA,
		localAnchorB:   def.LocalAnchorB,
		localXAxisA:    axis,
		localYAxisA:    CrossSV(1.0, axis),
		maxMotorTorque: def.MaxMotorTorque,
		motorSpeed:     def.MotorSpeed,
		enableMotor:    def.EnableMotor,
		frequencyHz:    def.FrequencyHz,
		dampingRatio:   def.DampingRatio,
	}, nil
}

func (j *WheelJoint) LocalAnchorA() Vec2                { return j.localAnchorA }
func (j *WheelJoint) LocalAnchorB() Vec2                { return j.localAnchorB }
func (j *WheelJoint) LocalAxisA() Vec2                  { return j.localXAxisA }
func (j *WheelJoint) AnchorA() Vec2                     { return j.bodyA.WorldPoint(j.localAnchorA) }
func (j *WheelJoint) AnchorB() Vec2                     { return j.bodyB.WorldPoint(j.localAnchorB) }
func (j *WheelJoint) IsMotorEnabled() bool              { return j.enableMotor }
func (j *WheelJoint) MotorSpeed() float64               { return j.motorSpeed }
func (j *WheelJoint) MaxMotorTorque() float64           { return j.maxMotorTorque }
func (j *WheelJoint) MotorTorque(invDt float64) float64 { return invDt * j.motorImpulse }
func (j *WheelJoint) SpringFrequency() float64          { return j.frequencyHz }
func (j *WheelJoint) SpringDampingRatio() float64       { return j.dampingRatio }

func (j *WheelJoint) SetSpringFrequency(hz float64)   { j.frequencyHz = hz }
func (j *WheelJoint) SetSpringDampingRatio(r float64) { j.dampingRatio = r }

func (j *WheelJoint) ReactionForce(invDt float64) Vec2 {
	return j.ay.Mul(j.impulse).Add(j.ax.Mul(j.springImpulse)).Mul(invDt)
}

func (j *WheelJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.motorImpulse
}

// JointTranslation is the current translation along the axis.
func (j *WheelJoint) JointTranslation() float64 {
	pA := j.bodyA.WorldPoint(j.localAnchorA)
	pB := j.bodyB.WorldPoint(j.localAnchorB)
	axis := j.bodyA.WorldVector(j.localXAxisA)

	return pB.Sub(pA).Dot(axis)
}

// JointSpeed is the relative angular speed of the wheel.
func (j *WheelJoint) JointSpeed() float64 {
	return j.bodyB.angularVelocity - j.bodyA.angularVelocity
}

func (j *WheelJoint) EnableMotor(flag bool) {
	if flag != j.enableMotor {
		j.bodyA.SetAwake(true)
		j.bodyB.SetAwake(true)
		j.enableMotor = flag
	}
}

func (j *WheelJoint) SetMotorSpeed(speed float64) {
	if speed != j.motorSpeed {
		j.bodyA.SetAwake(true)
		j.bodyB.SetAwake(true)
		j.motorSpeed = speed
	}
}

func (j *WheelJoint) SetMaxMotorTorque(torque float64) {
	if torque != j.maxMotorTorque {
		j.bodyA.SetAwake(true)
		j.bodyB.SetAwake(true)
		j.maxMotorTorque = torque
	}
}

func (j *WheelJoint) initVelocityConstraints(data *solverData) {
	j.prepare()

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	cA, aA, cB, aB := j.positions(data)
	vA, wA, vB, wB := j.velocities(data)

	qA := MakeRot(aA)
	qB := MakeRot(aB)

	// Compute the effective masses.
	rA := qA.MulVec(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.MulVec(j.localAnchorB.Sub(j.localCenterB))
	d := cB.Add(rB).Sub(cA).Sub(rA)

	// Point to line constraint
	j.ay = qA.MulVec(j.localYAxisA)
	j.sAy = d.Add(rA).Cross(j.ay)
	j.sBy = rB.Cross(j.ay)

	j.mass = mA + mB + iA*j.sAy*j.sAy + iB*j.sBy*j.sBy
	if j.mass > 0.0 {
		j.mass = 1.0 / j.mass
	}

	// Spring constraint
	j.springMass = 0.0
	j.bias = 0.0
	j.gamma = 0.0
	if j.frequencyHz > 0.0 {
		j.ax = qA.MulVec(j.localXAxisA)
		j.sAx = d.Add(rA).Cross(j.ax)
		j.sBx = rB.Cross(j.ax)

		invMass := mA + mB + iA*j.sAx*j.sAx + iB*j.sBx*j.sBx

		if invMass > 0.0 {
			j.springMass = 1.0 / invMass

			C := d.Dot(j.ax)

			// Frequency
			omega := 2.0 * math.Pi * j.frequencyHz

			// Damping coefficient
			damp := 2.0 * j.springMass * j.dampingRatio * omega

			// Spring stiffness
			k := j.springMass * omega * omega

			// magic formulas
			h := data.step.dt
			j.gamma = h * (damp + h*k)
			if j.gamma > 0.0 {
				j.gamma = 1.0 / j.gamma
			}

			j.bias = C * h * k * j.gamma

			j.springMass = invMass + j.gamma
			if j.springMass > 0.0 {
				j.springMass = 1.0 / j.springMass
			}
		}
	} else {
		j.springImpulse = 0.0
	}

	// Rotational motor
	if j.enableMotor {
		j.motorMass = iA + iB
		if j.motorMass > 0.0 {
			j.motorMass = 1.0 / j.motorMass
		}
	} else {
		j.motorMass = 0.0
		j.motorImpulse = 0.0
	}

	if data.step.warmStarting {
		// Account for variable time step.
		j.impulse *= data.step.dtRatio
		j.springImpulse *= data.step.dtRatio
		j.motorImpulse *= data.step.dtRatio

		P := j.ay.Mul(j.impulse).Add(j.ax.Mul(j.springImpulse))
		LA := j.impulse*j.sAy + j.springImpulse*j.sAx + j.motorImpulse
		LB := j.impulse*j.sBy + j.springImpulse*j.sBx + j.motorImpulse

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * LA

		vB = vB.Add(P.Mul(mB))
		wB += iB * LB
	} else {
		j.impulse = 0.0
		j.springImpulse = 0.0
		j.motorImpulse = 0.0
	}

	j.storeVelocities(data, vA, wA, vB, wB)
}

func (j *WheelJoint) solveVelocityConstraints(data *solverData) {
	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	vA, wA, vB, wB := j.velocities(data)

	// Solve spring constraint
	{
		Cdot := j.ax.Dot(vB.Sub(vA)) + j.sBx*wB - j.sAx*wA
		impulse := -j.springMass * (Cdot + j.bias + j.gamma*j.springImpulse)
		j.springImpulse += impulse

		P := j.ax.Mul(impulse)
		LA := impulse * j.sAx
		LB := impulse * j.sBx

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * LA

		vB = vB.Add(P.Mul(mB))
		wB += iB * LB
	}

	// Solve rotational motor constraint
	{
		Cdot := wB - wA - j.motorSpeed
		impulse := -j.motorMass * Cdot

		oldImpulse := j.motorImpulse
		maxImpulse := data.step.dt * j.maxMotorTorque
		j.motorImpulse = clampFloat(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	// Solve point to line constraint
	{
		Cdot := j.ay.Dot(vB.Sub(vA)) + j.sBy*wB - j.sAy*wA
		impulse := -j.mass * Cdot
		j.impulse += impulse

		P := j.ay.Mul(impulse)
		LA := impulse * j.sAy
		LB := impulse * j.sBy

		vA = vA.Sub(P.Mul(mA))
		wA -= iA * LA

		vB = vB.Add(P.Mul(mB))
		wB += iB * LB
	}

	j.storeVelocities(data, vA, wA, vB, wB)
}

func (j *WheelJoint) solvePositionConstraints(data *solverData) bool {
	cA, aA, cB, aB := j.positions(data)

	qA := MakeRot(aA)
	qB := MakeRot(aB)

	rA := qA.MulVec(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.MulVec(j.localAnchorB.Sub(j.localCenterB))
	d := cB.Sub(cA).Add(rB).Sub(rA)

	ay := qA.MulVec(j.localYAxisA)

	sAy := d.Add(rA).Cross(ay)
	sBy := rB.Cross(ay)

	C := d.Dot(ay)

	k := j.invMassA + j.invMassB + j.invIA*sAy*sAy + j.invIB*sBy*sBy

	impulse := 0.0
	if k != 0.0 {
		impulse = -C / k
	}

	P := ay.Mul(impulse)
	LA := impulse * sAy
	LB := impulse * sBy

	cA = cA.Sub(P.Mul(j.invMassA))
	aA -= j.invIA * LA
	cB = cB.Add(P.Mul(j.invMassB))
	aB += j.invIB * LB

	j.storePositions(data, cA, aA, cB, aB)

	return math.Abs(C) <= LinearSlop
}
