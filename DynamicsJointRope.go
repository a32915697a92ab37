package velcro

import (
	"math"

	"github.com/pkg/errors"
)

// RopeJointDef requires two body anchor points and a maximum length.
type RopeJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// MaxLength is the maximum distance between the anchor points.
	MaxLength float64
}

// NewRopeJointDef uses the current anchor distance as the maximum length.
func NewRopeJointDef(bodyA, bodyB *Body, anchorA, anchorB Vec2) *RopeJointDef {
	return &RopeJointDef{
		JointDefBase: JointDefBase{BodyA: bodyA, BodyB: bodyB},
		LocalAnchorA: bodyA.LocalPoint(anchorA),
		LocalAnchorB: bodyB.LocalPoint(anchorB),
		MaxLength:    anchorA.Distance(anchorB),
	}
}

// RopeJoint enforces a maximum distance between two points on two bodies.
// It has no other effect. Changing the maximum length during the simulation
// yields non-physical behavior.
//
// Limit:
// C = norm(pB - pA) - L
// u = (pB - pA) / norm(pB - pA)
// Cdot = dot(u, vB + cross(wB, rB) - vA - cross(wA, rA))
// J = [-u -cross(rA, u) u cross(rB, u)]
// K = J * invM * JT
//   = invMassA + invIA * cross(rA, u)^2 + invMassB + invIB * cross(rB, u)^2
type RopeJoint struct {
	jointBase

	// Solver shared
	localAnchorA Vec2
	localAnchorB Vec2
	maxLength    float64
	length       float64
	impulse      float64

	// Solver temp
	u     Vec2
	rA    Vec2
	rB    Vec2
	mass  float64
	state limitState
}

func newRopeJoint(def *RopeJointDef) (Joint, error) {
	if !IsValid(def.MaxLength) || def.MaxLength < LinearSlop {
		return nil, errors.Wrapf(ErrInvalidJoint, "rope max length %v", def.MaxLength)
	}

	return &RopeJoint{
		jointBase:    makeJointBase(JointRope, &def.JointDefBase),
		localAnchorA: def.LocalAnchorA,
		localAnchorB: def.LocalAnchorB,
		maxLength:    def.MaxLength,
	}, nil
}

func (j *RopeJoint) LocalAnchorA() Vec2 { return j.localAnchorA }
func (j *RopeJoint) LocalAnchorB() Vec2 { return j.localAnchorB }
func (j *RopeJoint) MaxLength() float64 { return j.maxLength }
func (j *RopeJoint) AnchorA() Vec2      { return j.bodyA.WorldPoint(j.localAnchorA) }
func (j *RopeJoint) AnchorB() Vec2      { return j.bodyB.WorldPoint(j.localAnchorB) }

// AtLimit reports whether the rope was taut during the last step.
func (j *RopeJoint) AtLimit() bool { return j.state == atUpperLimit }

func (j *RopeJoint) SetMaxLength(length float64) {
	j.maxLength = length
}

func (j *RopeJoint) ReactionForce(invDt float64) Vec2 {
	return j.u.Mul(invDt * j.impulse)
}

func (j *RopeJoint) ReactionTorque(invDt float64) float64 {
	return 0.0
}

func (j *RopeJoint) initVelocityConstraints(data *solverData) {
	j.prepare()

	cA, aA, cB, aB := j.positions(data)
	vA, wA, vB, wB := j.velocities(data)

	qA := MakeRot(aA)
	qB := MakeRot(aB)

	j.rA = qA.MulVec(j.localAnchorA.Sub(j.localCenterA))
	j.rB = qB.MulVec(j.localAnchorB.Sub(j.localCenterB))
	j.u = cB.Add(j.rB).Sub(cA).Sub(j.rA)

	j.length = j.u.Length()

	if j.length-j.maxLength > 0.0 {
		j.state = atUpperLimit
	} else {
		j.state = inactiveLimit
	}

	if j.length <= LinearSlop {
		j.u.SetZero()
		j.mass = 0.0
		j.impulse = 0.0
		return
	}
	j.u = j.u.Mul(1.0 / j.length)

	// Compute effective mass.
	crA := j.rA.Cross(j.u)
	crB := j.rB.Cross(j.u)
	invMass := j.invMassA + j.invIA*crA*crA + j.invMassB + j.invIB*crB*crB

	j.mass = 0.0
	if invMass != 0.0 {
		j.mass = 1.0 / invMass
	}

	if data.step.warmStarting {
		// Scale the impulse to support a variable time step.
		j.impulse *= data.step.dtRatio

		P := j.u.Mul(j.impulse)
		vA = vA.Sub(P.Mul(j.invMassA))
		wA -= j.invIA * j.rA.Cross(P)
		vB = vB.Add(P.Mul(j.invMassB))
		wB += j.invIB * j.rB.Cross(P)
	} else {
		j.impulse = 0.0
	}

	j.storeVelocities(data, vA, wA, vB, wB)
}

func (j *RopeJoint) solveVelocityConstraints(data *solverData) {
	vA, wA, vB, wB := j.velocities(data)

	// Cdot = dot(u, v + cross(w, r))
	vpA := vA.Add(CrossSV(wA, j.rA))
	vpB := vB.Add(CrossSV(wB, j.rB))
	C := j.length - j.maxLength
	Cdot := j.u.Dot(vpB.Sub(vpA))

	// Predictive constraint.
	if C < 0.0 {
		Cdot += data.step.invDt * C
	}

	impulse := -j.mass * Cdot
	oldImpulse := j.impulse
	j.impulse = math.Min(0.0, j.impulse+impulse)
	impulse = j.impulse - oldImpulse

	P := j.u.Mul(impulse)
	vA = vA.Sub(P.Mul(j.invMassA))
	wA -= j.invIA * j.rA.Cross(P)
	vB = vB.Add(P.Mul(j.invMassB))
	wB += j.invIB * j.rB.Cross(P)

	j.storeVelocities(data, vA, wA, vB, wB)
}

func (j *RopeJoint) solvePositionConstraints(data *solverData) bool {
	cA, aA, cB, aB := j.positions(data)

	qA := MakeRot(aA)
	qB := MakeRot(aB)

	rA := qA.MulVec(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.MulVec(j.localAnchorB.Sub(j.localCenterB))
	u := cB.Add(rB).Sub(cA).Sub(rA)

	length := u.Normalize()
	C := clampFloat(length-j.maxLength, 0.0, MaxLinearCorrection)

	impulse := -j.mass * C
	P := u.Mul(impulse)

	cA = cA.Sub(P.Mul(j.invMassA))
	aA -= j.invIA * rA.Cross(P)
	cB = cB.Add(P.Mul(j.invMassB))
	aB += j.invIB * rB.Cross(P)

	j.storePositions(data, cA, aA, cB, aB)

	return length-j.maxLength < LinearSlop
}
