package velcro

import (
	"math"

	"github.com/pkg/errors"
)

// PulleyJointDef requires two ground anchors, two dynamic body anchor points
// and a pulley ratio.
type PulleyJointDef struct {
	JointDefBase

	// GroundAnchorA is the first ground anchor in world coordinates. It
	// never moves.
	GroundAnchorA Vec2

	// GroundAnchorB is the second ground anchor in world coordinates.
	GroundAnchorB Vec2

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// LengthA is the reference length of the segment attached to body A.
	LengthA float64

	// LengthB is the reference length of the segment attached to body B.
	LengthB float64

	// Ratio simulates a block and tackle.
	Ratio float64
}

// NewPulleyJointDef builds a definition from the ground anchors, the world
// anchors and the ratio.
func NewPulleyJointDef(bodyA, bodyB *Body, groundA, groundB, anchorA, anchorB Vec2, ratio float64) *PulleyJointDef {
	return &PulleyJointDef{
		JointDefBase:  JointDefBase{BodyA: bodyA, BodyB: bodyB, CollideConnected: true},
		GroundAnchorA: groundA,
		GroundAnchorB: groundB,
		LocalAnchorA:  bodyA.LocalPoint(anchorA),
		LocalAnchorB:  bodyB.LocalPoint(anchorB),
		LengthA:       anchorA.Distance(groundA),
		LengthB:       anchorB.Distance(groundB),
		Ratio:         ratio,
	}
}

// PulleyJoint connects two bodies and ground so that
// length1 + ratio * length2 <= constant.
// The force transmitted is scaled by the ratio.
//
// Pulley:
// length1 = norm(p1 - s1)
// length2 = norm(p2 - s2)
// C0 = (length1 + ratio * length2)_initial
// C = C0 - (length1 + ratio * length2)
// u1 = (p1 - s1) / norm(p1 - s1)
// u2 = (p2 - s2) / norm(p2 - s2)
// Cdot = -dot(u1, v1 + cross(w1, r1)) - ratio * dot(u2, v2 + cross(w2, r2))
// J = -[u1 cross(r1, u1) ratio * u2  ratio * cross(r2, u2)]
// K = J * invM * JT
//   = invMass1 + invI1 * cross(r1, u1)^2 + ratio^2 * (invMass2 + invI2 * cross(r2, u2)^2)
type PulleyJoint struct {
	jointBase

	groundAnchorA Vec2
	groundAnchorB Vec2
	lengthA       float64
	lengthB       float64

	// Solver shared
	localAnchorA Vec2
	localAnchorB Vec2
	constant     float64
	ratio        float64
	impulse      float64

	// Solver temp
	uA, uB Vec2
	rA, rB Vec2
	mass   float64
}

func newPulleyJoint(def *PulleyJointDef) (Joint, error) {
	if def.Ratio == 0.0 || !IsValid(def.Ratio) {
		return nil, errors.Wrapf(ErrInvalidJoint, "pulley ratio %v", def.Ratio)
	}

	return &PulleyJoint{
		jointBase:     makeJointBase(JointPulley, &def.JointDefBase),
		groundAnchorA: def.GroundAnchorA,
		groundAnchorB: def.GroundAnchorB,
		localAnchorA:  def.LocalAnchorA,
		localAnchorB:  def.LocalAnchorB,
		lengthA:       def.LengthA,
		lengthB:       def.LengthB,
		ratio:         def.Ratio,
		constant:      def.LengthA + def.Ratio*def.LengthB,
	}, nil
}

func (j *PulleyJoint) GroundAnchorA() Vec2 { return j.groundAnchorA }
func (j *PulleyJoint) GroundAnchorB() Vec2 { return j.groundAnchorB }
func (j *PulleyJoint) LengthA() float64    { return j.lengthA }
func (j *PulleyJoint) LengthB() float64    { return j.lengthB }
func (j *PulleyJoint) Ratio() float64      { return j.ratio }
func (j *PulleyJoint) AnchorA() Vec2       { return j.bodyA.WorldPoint(j.localAnchorA) }
func (j *PulleyJoint) AnchorB() Vec2       { return j.bodyB.WorldPoint(j.localAnchorB) }

// CurrentLengthA is the current length of the segment attached to body A.
func (j *PulleyJoint) CurrentLengthA() float64 {
	return j.AnchorA().Distance(j.groundAnchorA)
}

// CurrentLengthB is the current length of the segment attached to body B.
func (j *PulleyJoint) CurrentLengthB() float64 {
	return j.AnchorB().Distance(j.groundAnchorB)
}

func (j *PulleyJoint) ReactionForce(invDt float64) Vec2 {
	return j.uB.Mul(invDt * j.impulse)
}

func (j *PulleyJoint) ReactionTorque(invDt float64) float64 {
	return 0.0
}

func (j *PulleyJoint) ShiftOrigin(newOrigin Vec2) {
	j.groundAnchorA = j.groundAnchorA.Sub(newOrigin)
	j.groundAnchorB = j.groundAnchorB.Sub(newOrigin)
}

func (j *PulleyJoint) initVelocityConstraints(data *solverData) {
	j.prepare()

	cA, aA, cB, aB := j.positions(data)
	vA, wA, vB, wB := j.velocities(data)

	qA := MakeRot(aA)
	qB := MakeRot(aB)

	j.rA = qA.MulVec(j.localAnchorA.Sub(j.localCenterA))
	j.rB = qB.MulVec(j.localAnchorB.Sub(j.localCenterB))

	// Get the pulley axes.
	j.uA = cA.Add(j.rA).Sub(j.groundAnchorA)
	j.uB = cB.Add(j.rB).Sub(j.groundAnchorB)

	lengthA := j.uA.Length()
	lengthB := j.uB.Length()

	if lengthA > 10.0*LinearSlop {
		j.uA = j.uA.Mul(1.0 / lengthA)
	} else {
		j.uA.SetZero()
	}

	if lengthB > 10.0*LinearSlop {
		j.uB = j.uB.Mul(1.0 / lengthB)
	} else {
		j.uB.SetZero()
	}

	// Compute effective mass.
	ruA := j.rA.Cross(j.uA)
	ruB := j.rB.Cross(j.uB)

	mA := j.invMassA + j.invIA*ruA*ruA
	mB := j.invMassB + j.invIB*ruB*ruB

	j.mass = mA + j.ratio*j.ratio*mB
	if j.mass > 0.0 {
		j.mass = 1.0 / j.mass
	}

	if data.step.warmStarting {
		// Scale impulses to support variable time steps.
		j.impulse *= data.step.dtRatio

		// Warm starting.
		PA := j.uA.Mul(-j.impulse)
		PB := j.uB.Mul(-j.ratio * j.impulse)

		vA = vA.Add(PA.Mul(j.invMassA))
		wA += j.invIA * j.rA.Cross(PA)
		vB = vB.Add(PB.Mul(j.invMassB))
		wB += j.invIB * j.rB.Cross(PB)
	} else {
		j.impulse = 0.0
	}

	j.storeVelocities(data, vA, wA, vB, wB)
}

func (j *PulleyJoint) solveVelocityConstraints(data *solverData) {
	vA, wA, vB, wB := j.velocities(data)

	vpA := vA.Add(CrossSV(wA, j.rA))
	vpB := vB.Add(CrossSV(wB, j.rB))

	Cdot := -j.uA.Dot(vpA) - j.ratio*j.uB.Dot(vpB)
	impulse := -j.mass * Cdot
	j.impulse += impulse

	PA := j.uA.Mul(-impulse)
	PB := j.uB.Mul(-j.ratio * impulse)
	vA = vA.Add(PA.Mul(j.invMassA))
	wA += j.invIA * j.rA.Cross(PA)
	vB = vB.Add(PB.Mul(j.invMassB))
	wB += j.invIB * j.rB.Cross(PB)

	j.storeVelocities(data, vA, wA, vB, wB)
}

func (j *PulleyJoint) solvePositionConstraints(data *solverData) bool {
	cA, aA, cB, aB := j.positions(data)

	qA := MakeRot(aA)
	qB := MakeRot(aB)

	rA := qA.MulVec(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.MulVec(j.localAnchorB.Sub(j.localCenterB))

	// Get the pulley axes.
	uA := cA.Add(rA).Sub(j.groundAnchorA)
	uB := cB.Add(rB).Sub(j.groundAnchorB)

	lengthA := uA.Length()
	lengthB := uB.Length()

	if lengthA > 10.0*LinearSlop {
		uA = uA.Mul(1.0 / lengthA)
	} else {
		uA.SetZero()
	}

	if lengthB > 10.0*LinearSlop {
		uB = uB.Mul(1.0 / lengthB)
	} else {
		uB.SetZero()
	}

	// Compute effective mass.
	ruA := rA.Cross(uA)
	ruB := rB.Cross(uB)

	mA := j.invMassA + j.invIA*ruA*ruA
	mB := j.invMassB + j.invIB*ruB*ruB

	mass := mA + j.ratio*j.ratio*mB
	if mass > 0.0 {
		mass = 1.0 / mass
	}

	C := j.constant - lengthA - j.ratio*lengthB
	linearError := math.Abs(C)

	impulse := -mass * C

	PA := uA.Mul(-impulse)
	PB := uB.Mul(-j.ratio * impulse)

	cA = cA.Add(PA.Mul(j.invMassA))
	aA += j.invIA * rA.Cross(PA)
	cB = cB.Add(PB.Mul(j.invMassB))
	aB += j.invIB * rB.Cross(PB)

	j.storePositions(data, cA, aA, cB, aB)

	return linearError < LinearSlop
}
