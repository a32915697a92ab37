package velcro

import (
	"math"

	"github.com/pkg/errors"
)

// DistanceJointDef requires two anchor points on two bodies and the rest
// length of the constraint. The length should not be zero or short; use a
// revolute joint instead.
type DistanceJointDef struct {
	JointDefBase

	// LocalAnchorA is the anchor relative to the origin of body A.
	LocalAnchorA Vec2

	// LocalAnchorB is the anchor relative to the origin of body B.
	LocalAnchorB Vec2

	// Length is the natural length between the anchor points.
	Length float64

	// FrequencyHz is the mass-spring-damper frequency. Zero disables
	// softness.
	FrequencyHz float64

	// DampingRatio: 0 = no damping, 1 = critical damping.
	DampingRatio float64
}

// NewDistanceJointDef initializes the bodies, anchors and length from world
// anchor points.
func NewDistanceJointDef(bodyA, bodyB *Body, anchorA, anchorB Vec2) *DistanceJointDef {
	return &DistanceJointDef{
		JointDefBase: JointDefBase{BodyA: bodyA, BodyB: bodyB},
		LocalAnchorA: bodyA.LocalPoint(anchorA),
		LocalAnchorB: bodyB.LocalPoint(anchorB),
		Length:       anchorB.Sub(anchorA).Length(),
	}
}

// DistanceJoint keeps two points on two bodies at a constant distance, like
// a massless rigid rod.
//
// 1-D constrained system
// m (v2 - v1) = lambda
// v2 + (beta/h) * x1 + gamma * lambda = 0, gamma has units of inverse mass.
// x2 = x1 + h * v2
//
// 1-D mass-damper-spring system
// m (v2 - v1) + h * d * v2 + h * k *
//
// C = norm(p2 - p1) - L
// u = (p2 - p1) / norm(p2 - p1)
// Cdot = dot(u, v2 + cross(w2, r2) - v1 - cross(w1, r1))
// J = [-u -cross(r1, u) u cross(r2, u)]
// K = J * invM * JT
//   = invMass1 + invI1 * cross(r1, u)^2 + invMass2 + invI2 * cross(r2, u)^2
type DistanceJoint struct {
	jointBase

	frequencyHz  float64
	dampingRatio float64
	bias         float64

	// Solver shared
	localAnchorA Vec2
	localAnchorB Vec2
	gamma        float64
	impulse      float64
	length       float64

	// Solver temp
	u    Vec2
	rA   Vec2
	rB   Vec2
	mass float64
}

func newDistanceJoint(def *DistanceJointDef) (Joint, error) {
	if !IsValid(def.Length) || def.Length <= 0.0 {
		return nil, errors.Wrapf(ErrInvalidJoint, "distance joint length %v", def.Length)
	}

	return &DistanceJoint{
		jointBase:    makeJointBase(JointDistance, &def.JointDefBase),
		localAnchorA: def.LocalAnchorA,
		localAnchorB: def.LocalAnchorB,
		length:       def.Length,
		frequencyHz:  def.FrequencyHz,
		dampingRatio: def.DampingRatio,
	}, nil
}

func (j *DistanceJoint) LocalAnchorA() Vec2 { return j.localAnchorA }
func (j *DistanceJoint) LocalAnchorB() Vec2 { return j.localAnchorB }
func (j *DistanceJoint) Length() float64    { return j.length }
func (j *DistanceJoint) Frequency() float64 { return j.frequencyHz }

func (j *DistanceJoint) SetLength(length float64)  { j.length = length }
func (j *DistanceJoint) SetFrequency(hz float64)   { j.frequencyHz = hz }
func (j *DistanceJoint) SetDampingRatio(r float64) { j.dampingRatio = r }
func (j *DistanceJoint) DampingRatio() float64     { return j.dampingRatio }

func (j *DistanceJoint) AnchorA() Vec2 {
	return j.bodyA.WorldPoint(j.localAnchorA)
}

func (j *DistanceJoint) AnchorB() Vec2 {
	return j.bodyB.WorldPoint(j.localAnchorB)
}

func (j *DistanceJoint) ReactionForce(invDt float64) Vec2 {
	return j.u.Mul(invDt * j.impulse)
}

func (j *DistanceJoint) ReactionTorque(invDt float64) float64 {
	return 0.0
}

func (j *DistanceJoint) initVelocityConstraints(data *solverData) {
	j.prepare()

	cA, aA, cB, aB := j.positions(data)
	vA, wA, vB, wB := j.velocities(data)

	qA := MakeRot(aA)
	qB := MakeRot(aB)

	j.rA = qA.MulVec(j.localAnchorA.Sub(j.localCenterA))
	j.rB = qB.MulVec(j.localAnchorB.Sub(j.localCenterB))
	j.u = cB.Add(j.rB).Sub(cA).Sub(j.rA)

	// Handle singularity.
	length := j.u.Length()
	if length > LinearSlop {
		j.u = j.u.Mul(1.0 / length)
	} else {
		j.u.SetZero()
	}

	crAu := j.rA.Cross(j.u)
	crBu := j.rB.Cross(j.u)
	invMass := j.invMassA + j.invIA*crAu*crAu + j.invMassB + j.invIB*crBu*crBu

	// Compute the effective mass matrix.
	j.mass = 0.0
	if invMass != 0.0 {
		j.mass = 1.0 / invMass
	}

	if j.frequencyHz > 0.0 {
		C := length - j.length

		// Frequency
		omega := 2.0 * math.Pi * j.frequencyHz

		// Damping coefficient
		d := 2.0 * j.mass * j.dampingRatio * omega

		// Spring stiffness
		k := j.mass * omega * omega

		// magic formulas
		h := data.step.dt
		j.gamma = h * (d + h*k)
		if j.gamma != 0.0 {
			j.gamma = 1.0 / j.gamma
		}
		j.bias = C * h * k * j.gamma

		invMass += j.gamma
		j.mass = 0.0
		if invMass != 0.0 {
			j.mass = 1.0 / invMass
		}
	} else {
		j.gamma = 0.0
		j.bias = 0.0
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

func (j *DistanceJoint) solveVelocityConstraints(data *solverData) {
	vA, wA, vB, wB := j.velocities(data)

	// Cdot = dot(u, v + cross(w, r))
	vpA := vA.Add(CrossSV(wA, j.rA))
	vpB := vB.Add(CrossSV(wB, j.rB))
	Cdot := j.u.Dot(vpB.Sub(vpA))

	impulse := -j.mass * (Cdot + j.bias + j.gamma*j.impulse)
	j.impulse += impulse

	P := j.u.Mul(impulse)
	vA = vA.Sub(P.Mul(j.invMassA))
	wA -= j.invIA * j.rA.Cross(P)
	vB = vB.Add(P.Mul(j.invMassB))
	wB += j.invIB * j.rB.Cross(P)

	j.storeVelocities(data, vA, wA, vB, wB)
}

func (j *DistanceJoint) solvePositionConstraints(data *solverData) bool {
	if j.frequencyHz > 0.0 {
		// There is no position correction for soft distance constraints.
		return true
	}

	cA, aA, cB, aB := j.positions(data)

	qA := MakeRot(aA)
	qB := MakeRot(aB)

	rA := qA.MulVec(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.MulVec(j.localAnchorB.Sub(j.localCenterB))
	u := cB.Add(rB).Sub(cA).Sub(rA)

	length := u.Normalize()
	C := clampFloat(length-j.length, -MaxLinearCorrection, MaxLinearCorrection)

	impulse := -j.mass * C
	P := u.Mul(impulse)

	cA = cA.Sub(P.Mul(j.invMassA))
	aA -= j.invIA * rA.Cross(P)
	cB = cB.Add(P.Mul(j.invMassB))
	aB += j.invIB * rB.Cross(P)

	j.storePositions(data, cA, aA, cB, aB)

	return math.Abs(C) < LinearSlop
}
