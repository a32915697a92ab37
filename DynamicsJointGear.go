package velcro

import (
	"github.com/pkg/errors"
)

// GearJointDef connects two revolute or prismatic joints. Each joint must
// attach a dynamic body to a ground body, and the ground bodies are C and D.
type GearJointDef struct {
	JointDefBase

	Joint1 Joint
	Joint2 Joint

	// Ratio is the gear ratio.
	Ratio float64
}

// NewGearJointDef gears joint1 to joint2. Body A is the moving body of
// joint1 and body B the moving body of joint2.
func NewGearJointDef(joint1, joint2 Joint, ratio float64) *GearJointDef {
	return &GearJointDef{
		JointDefBase: JointDefBase{BodyA: joint1.BodyB(), BodyB: joint2.BodyB()},
		Joint1:       joint1,
		Joint2:       joint2,
		Ratio:        ratio,
	}
}

// GearJoint ties the coordinates of two revolute or prismatic joints:
// coordinate1 + ratio * coordinate2 = constant.
// The ratio can be negative or positive. If one joint is revolute and the
// other prismatic, the ratio has units of length or inverse length. The
// geared joints must be removed before their bodies, and the gear joint
// before the geared joints.
//
// Gear Joint:
// C0 = (coordinate1 + ratio * coordinate2)_initial
// C = (coordinate1 + ratio * coordinate2) - C0 = 0
// J = J1 + ratio * J2
// K = J * invM * JT
//   = J1 * invM1 * J1T + ratio * ratio * J2 * invM2 * J2T
//
// Revolute:
// coordinate = rotation
// Cdot = angularVelocity
// J = [0 0 1]
// K = J * invM * JT = invI
//
// Prismatic:
// coordinate = dot(p - pg, ug)
// Cdot = dot(v + cross(w, r), ug)
// J = [ug cross(r, ug)]
// K = J * invM * JT = invMass + invI * cross(r, ug)^2
type GearJoint struct {
	jointBase

	joint1 Joint
	joint2 Joint

	typeA JointType
	typeB JointType

	// Body A is connected to body C
	// Body B is connected to body D
	bodyC *Body
	bodyD *Body

	// Solver shared
	localAnchorA Vec2
	localAnchorB Vec2
	localAnchorC Vec2
	localAnchorD Vec2

	localAxisC Vec2
	localAxisD Vec2

	referenceAngleA float64
	referenceAngleB float64

	constant float64
	ratio    float64

	impulse float64

	// Solver temp
	indexC, indexD     int
	lcC, lcD           Vec2
	mC, mD             float64
	iC, iD             float64
	JvAC, JvBD         Vec2
	JwA, JwB, JwC, JwD float64
	mass               float64
}

// gearSide is the geometry of one geared joint as seen from its moving body.
type gearSide struct {
	jointType      JointType
	localAnchor    Vec2 // on the moving body
	localAnchorG   Vec2 // on the ground body
	localAxis      Vec2
	referenceAngle float64
}

func makeGearSide(j Joint) (gearSide, error) {
	switch g := j.(type) {
	case *RevoluteJoint:
		return gearSide{
			jointType:      JointRevolute,
			localAnchor:    g.localAnchorB,
			localAnchorG:   g.localAnchorA,
			referenceAngle: g.referenceAngle,
		}, nil
	case *PrismaticJoint:
		return gearSide{
			jointType:      JointPrismatic,
			localAnchor:    g.localAnchorB,
			localAnchorG:   g.localAnchorA,
			localAxis:      g.localXAxisA,
			referenceAngle: g.referenceAngle,
		}, nil
	}

	return gearSide{}, errors.Wrapf(ErrInvalidJoint, "gear needs revolute or prismatic joints, got %T", j)
}

// coordinate is the current joint coordinate of a geared joint between the
// moving body (xf, a) and the ground body (xfG, aG).
func (s gearSide) coordinate(xf Transform, a float64, xfG Transform, aG float64) float64 {
	if s.jointType == JointRevolute {
		return a - aG - s.referenceAngle
	}

	pG := s.localAnchorG
	p := xfG.Q.MulTVec(xf.Q.MulVec(s.localAnchor).Add(xf.P.Sub(xfG.P)))
	return p.Sub(pG).Dot(s.localAxis)
}

func newGearJoint(def *GearJointDef) (Joint, error) {
	if def.Joint1 == nil || def.Joint2 == nil {
		return nil, errors.Wrap(ErrInvalidJoint, "gear needs two joints")
	}
	if !IsValid(def.Ratio) {
		return nil, errors.Wrapf(ErrInvalidJoint, "gear ratio %v", def.Ratio)
	}

	sideA, err := makeGearSide(def.Joint1)
	if err != nil {
		return nil, err
	}
	sideB, err := makeGearSide(def.Joint2)
	if err != nil {
		return nil, err
	}

	j := &GearJoint{
		jointBase: makeJointBase(JointGear, &def.JointDefBase),
		joint1:    def.Joint1,
		joint2:    def.Joint2,
		typeA:     sideA.jointType,
		typeB:     sideB.jointType,
		ratio:     def.Ratio,
	}

	// Get geometry of joint1
	j.bodyC = def.Joint1.BodyA()
	j.bodyA = def.Joint1.BodyB()
	j.localAnchorC = sideA.localAnchorG
	j.localAnchorA = sideA.localAnchor
	j.referenceAngleA = sideA.referenceAngle
	j.localAxisC = sideA.localAxis
	coordinateA := sideA.coordinate(j.bodyA.xf, j.bodyA.sweep.A, j.bodyC.xf, j.bodyC.sweep.A)

	// Get geometry of joint2
	j.bodyD = def.Joint2.BodyA()
	j.bodyB = def.Joint2.BodyB()
	j.localAnchorD = sideB.localAnchorG
	j.localAnchorB = sideB.localAnchor
	j.referenceAngleB = sideB.referenceAngle
	j.localAxisD = sideB.localAxis
	coordinateB := sideB.coordinate(j.bodyB.xf, j.bodyB.sweep.A, j.bodyD.xf, j.bodyD.sweep.A)

	if j.bodyA == j.bodyB {
		return nil, ErrSameBody
	}

	j.constant = coordinateA + j.ratio*coordinateB

	return j, nil
}

func (j *GearJoint) Joint1() Joint  { return j.joint1 }
func (j *GearJoint) Joint2() Joint  { return j.joint2 }
func (j *GearJoint) Ratio() float64 { return j.ratio }
func (j *GearJoint) AnchorA() Vec2  { return j.bodyA.WorldPoint(j.localAnchorA) }
func (j *GearJoint) AnchorB() Vec2  { return j.bodyB.WorldPoint(j.localAnchorB) }

func (j *GearJoint) SetRatio(ratio float64) {
	assert(IsValid(ratio))
	j.ratio = ratio
}

func (j *GearJoint) ReactionForce(invDt float64) Vec2 {
	return j.JvAC.Mul(invDt * j.impulse)
}

func (j *GearJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.impulse * j.JwA
}

func (j *GearJoint) initVelocityConstraints(data *solverData) {
	j.prepare()
	j.indexC = j.bodyC.islandIndex
	j.indexD = j.bodyD.islandIndex
	j.lcC = j.bodyC.sweep.LocalCenter
	j.lcD = j.bodyD.sweep.LocalCenter
	j.mC = j.bodyC.invMass
	j.mD = j.bodyD.invMass
	j.iC = j.bodyC.invI
	j.iD = j.bodyD.invI

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	_, aA, _, aB := j.positions(data)
	aC := data.positions[j.indexC].a
	aD := data.positions[j.indexD].a

	vA, wA, vB, wB := j.velocities(data)
	vC, wC := data.velocities[j.indexC].v, data.velocities[j.indexC].w
	vD, wD := data.velocities[j.indexD].v, data.velocities[j.indexD].w

	qA, qB, qC, qD := MakeRot(aA), MakeRot(aB), MakeRot(aC), MakeRot(aD)

	j.mass = 0.0

	if j.typeA == JointRevolute {
		j.JvAC.SetZero()
		j.JwA = 1.0
		j.JwC = 1.0
		j.mass += iA + j.iC
	} else {
		u := qC.MulVec(j.localAxisC)
		rC := qC.MulVec(j.localAnchorC.Sub(j.lcC))
		rA := qA.MulVec(j.localAnchorA.Sub(j.localCenterA))
		j.JvAC = u
		j.JwC = rC.Cross(u)
		j.JwA = rA.Cross(u)
		j.mass += j.mC + mA + j.iC*j.JwC*j.JwC + iA*j.JwA*j.JwA
	}

	if j.typeB == JointRevolute {
		j.JvBD.SetZero()
		j.JwB = j.ratio
		j.JwD = j.ratio
		j.mass += j.ratio * j.ratio * (iB + j.iD)
	} else {
		u := qD.MulVec(j.localAxisD)
		rD := qD.MulVec(j.localAnchorD.Sub(j.lcD))
		rB := qB.MulVec(j.localAnchorB.Sub(j.localCenterB))
		j.JvBD = u.Mul(j.ratio)
		j.JwD = j.ratio * rD.Cross(u)
		j.JwB = j.ratio * rB.Cross(u)
		j.mass += j.ratio*j.ratio*(j.mD+mB) + j.iD*j.JwD*j.JwD + iB*j.JwB*j.JwB
	}

	// Compute effective mass.
	if j.mass > 0.0 {
		j.mass = 1.0 / j.mass
	} else {
		j.mass = 0.0
	}

	if data.step.warmStarting {
		vA = vA.Add(j.JvAC.Mul(mA * j.impulse))
		wA += iA * j.impulse * j.JwA
		vB = vB.Add(j.JvBD.Mul(mB * j.impulse))
		wB += iB * j.impulse * j.JwB
		vC = vC.Sub(j.JvAC.Mul(j.mC * j.impulse))
		wC -= j.iC * j.impulse * j.JwC
		vD = vD.Sub(j.JvBD.Mul(j.mD * j.impulse))
		wD -= j.iD * j.impulse * j.JwD
	} else {
		j.impulse = 0.0
	}

	j.storeVelocities(data, vA, wA, vB, wB)
	data.velocities[j.indexC] = velocity{v: vC, w: wC}
	data.velocities[j.indexD] = velocity{v: vD, w: wD}
}

func (j *GearJoint) solveVelocityConstraints(data *solverData) {
	vA, wA, vB, wB := j.velocities(data)
	vC, wC := data.velocities[j.indexC].v, data.velocities[j.indexC].w
	vD, wD := data.velocities[j.indexD].v, data.velocities[j.indexD].w

	Cdot := j.JvAC.Dot(vA.Sub(vC)) + j.JvBD.Dot(vB.Sub(vD))
	Cdot += (j.JwA*wA - j.JwC*wC) + (j.JwB*wB - j.JwD*wD)

	impulse := -j.mass * Cdot
	j.impulse += impulse

	vA = vA.Add(j.JvAC.Mul(j.invMassA * impulse))
	wA += j.invIA * impulse * j.JwA
	vB = vB.Add(j.JvBD.Mul(j.invMassB * impulse))
	wB += j.invIB * impulse * j.JwB
	vC = vC.Sub(j.JvAC.Mul(j.mC * impulse))
	wC -= j.iC * impulse * j.JwC
	vD = vD.Sub(j.JvBD.Mul(j.mD * impulse))
	wD -= j.iD * impulse * j.JwD

	j.storeVelocities(data, vA, wA, vB, wB)
	data.velocities[j.indexC] = velocity{v: vC, w: wC}
	data.velocities[j.indexD] = velocity{v: vD, w: wD}
}

func (j *GearJoint) solvePositionConstraints(data *solverData) bool {
	cA, aA, cB, aB := j.positions(data)
	cC, aC := data.positions[j.indexC].c, data.positions[j.indexC].a
	cD, aD := data.positions[j.indexD].c, data.positions[j.indexD].a

	qA, qB, qC, qD := MakeRot(aA), MakeRot(aB), MakeRot(aC), MakeRot(aD)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	linearError := 0.0

	var coordinateA, coordinateB float64
	var JvAC, JvBD Vec2
	var JwA, JwB, JwC, JwD float64
	mass := 0.0

	if j.typeA == JointRevolute {
		JwA = 1.0
		JwC = 1.0
		mass += iA + j.iC

		coordinateA = aA - aC - j.referenceAngleA
	} else {
		u := qC.MulVec(j.localAxisC)
		rC := qC.MulVec(j.localAnchorC.Sub(j.lcC))
		rA := qA.MulVec(j.localAnchorA.Sub(j.localCenterA))
		JvAC = u
		JwC = rC.Cross(u)
		JwA = rA.Cross(u)
		mass += j.mC + mA + j.iC*JwC*JwC + iA*JwA*JwA

		pC := j.localAnchorC.Sub(j.lcC)
		pA := qC.MulTVec(rA.Add(cA.Sub(cC)))
		coordinateA = pA.Sub(pC).Dot(j.localAxisC)
	}

	if j.typeB == JointRevolute {
		JwB = j.ratio
		JwD = j.ratio
		mass += j.ratio * j.ratio * (iB + j.iD)

		coordinateB = aB - aD - j.referenceAngleB
	} else {
		u := qD.MulVec(j.localAxisD)
		rD := qD.MulVec(j.localAnchorD.Sub(j.lcD))
		rB := qB.MulVec(j.localAnchorB.Sub(j.localCenterB))
		JvBD = u.Mul(j.ratio)
		JwD = j.ratio * rD.Cross(u)
		JwB = j.ratio * rB.Cross(u)
		mass += j.ratio*j.ratio*(j.mD+mB) + j.iD*JwD*JwD + iB*JwB*JwB

		pD := j.localAnchorD.Sub(j.lcD)
		pB := qD.MulTVec(rB.Add(cB.Sub(cD)))
		coordinateB = pB.Sub(pD).Dot(j.localAxisD)
	}

	C := (coordinateA + j.ratio*coordinateB) - j.constant

	impulse := 0.0
	if mass > 0.0 {
		impulse = -C / mass
	}

	cA = cA.Add(JvAC.Mul(mA * impulse))
	aA += iA * impulse * JwA
	cB = cB.Add(JvBD.Mul(mB * impulse))
	aB += iB * impulse * JwB
	cC = cC.Sub(JvAC.Mul(j.mC * impulse))
	aC -= j.iC * impulse * JwC
	cD = cD.Sub(JvBD.Mul(j.mD * impulse))
	aD -= j.iD * impulse * JwD

	j.storePositions(data, cA, aA, cB, aB)
	data.positions[j.indexC] = position{c: cC, a: aC}
	data.positions[j.indexD] = position{c: cD, a: aD}

	// TODO: report the coordinate error once a tolerance for mixed
	// revolute/prismatic units is settled.
	return linearError < LinearSlop
}
