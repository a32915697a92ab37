package velcro

import (
	"math"

	"github.com/pkg/errors"
)

// MouseJointDef requires a world target point, tuning parameters and the
// time step.
type MouseJointDef struct {
	JointDefBase

	// Target is the initial world target point. It is assumed to coincide
	// with the body anchor initially.
	Target Vec2

	// MaxForce is the maximum constraint force that can be exerted to move
	// the candidate body. Usually a multiple of the body weight.
	MaxForce float64

	// FrequencyHz is the response speed.
	FrequencyHz float64

	// DampingRatio: 0 = no damping, 1 = critical damping.
	DampingRatio float64
}

// NewMouseJointDef drags bodyB towards target. bodyA is usually the ground
// body and is otherwise unused.
func NewMouseJointDef(bodyA, bodyB *Body, target Vec2, maxForce float64) *MouseJointDef {
	return &MouseJointDef{
		JointDefBase: JointDefBase{BodyA: bodyA, BodyB: bodyB},
		Target:       target,
		MaxForce:     maxForce,
		FrequencyHz:  5.0,
		DampingRatio: 0.7,
	}
}

// MouseJoint makes a point on a body track a world point through a soft
// constraint with a maximum force, which allows the constraint to stretch
// without applying huge forces.
//
// p = attached point, m = mouse point
// C = p - m
// Cdot = v
//      = v + cross(w, r)
// J = [I r_skew]
// Identity used:
// w k % (rx i + ry j) = w * (-ry i + rx j)
type MouseJoint struct {
	jointBase

	localAnchorB Vec2
	targetA      Vec2
	frequencyHz  float64
	dampingRatio float64
	beta         float64

	// Solver shared
	impulse  Vec2
	maxForce float64
	gamma    float64

	// Solver temp
	rB   Vec2
	mass Mat22
	C    Vec2
}

func newMouseJoint(def *MouseJointDef) (Joint, error) {
	switch {
	case !def.Target.IsValid():
		return nil, errors.Wrap(ErrInvalidJoint, "mouse target")
	case !IsValid(def.MaxForce) || def.MaxForce < 0.0:
		return nil, errors.Wrapf(ErrInvalidJoint, "mouse max force %v", def.MaxForce)
	case !IsValid(def.FrequencyHz) || def.FrequencyHz <= 0.0:
		return nil, errors.Wrapf(ErrInvalidJoint, "mouse frequency %v", def.FrequencyHz)
	case !IsValid(def.DampingRatio) || def.DampingRatio < 0.0:
		return nil, errors.Wrapf(ErrInvalidJoint, "mouse damping ratio %v", def.DampingRatio)
	}

	bodyB := def.BodyB
	return &MouseJoint{
		jointBase:    makeJointBase(JointMouse, &def.JointDefBase),
		targetA:      def.Target,
		localAnchorB: bodyB.xf.MulTVec(def.Target),
		maxForce:     def.MaxForce,
		frequencyHz:  def.FrequencyHz,
		dampingRatio: def.DampingRatio,
	}, nil
}

func (j *MouseJoint) Target() Vec2          { return j.targetA }
func (j *MouseJoint) MaxForce() float64     { return j.maxForce }
func (j *MouseJoint) Frequency() float64    { return j.frequencyHz }
func (j *MouseJoint) DampingRatio() float64 { return j.dampingRatio }
func (j *MouseJoint) AnchorA() Vec2         { return j.targetA }
func (j *MouseJoint) AnchorB() Vec2         { return j.bodyB.WorldPoint(j.localAnchorB) }

func (j *MouseJoint) SetMaxForce(force float64) { j.maxForce = force }
func (j *MouseJoint) SetFrequency(hz float64)   { j.frequencyHz = hz }
func (j *MouseJoint) SetDampingRatio(r float64) { j.dampingRatio = r }

// SetTarget moves the target point and wakes the body.
func (j *MouseJoint) SetTarget(target Vec2) {
	if target != j.targetA {
		j.bodyB.SetAwake(true)
		j.targetA = target
	}
}

func (j *MouseJoint) ReactionForce(invDt float64) Vec2 {
	return j.impulse.Mul(invDt)
}

func (j *MouseJoint) ReactionTorque(invDt float64) float64 {
	return invDt * 0.0
}

func (j *MouseJoint) ShiftOrigin(newOrigin Vec2) {
	j.targetA = j.targetA.Sub(newOrigin)
}

func (j *MouseJoint) initVelocityConstraints(data *solverData) {
	j.prepare()

	_, _, cB, aB := j.positions(data)
	vB := data.velocities[j.indexB].v
	wB := data.velocities[j.indexB].w

	qB := MakeRot(aB)

	mass := j.bodyB.Mass()

	// Frequency
	omega := 2.0 * math.Pi * j.frequencyHz

	// Damping coefficient
	d := 2.0 * mass * j.dampingRatio * omega

	// Spring stiffness
	k := mass * (omega * omega)

	// magic formulas
	// gamma has units of inverse mass.
	// beta has units of inverse time.
	h := data.step.dt
	j.gamma = h * (d + h*k)
	if j.gamma != 0.0 {
		j.gamma = 1.0 / j.gamma
	}
	j.beta = h * k * j.gamma

	// Compute the effective mass matrix.
	j.rB = qB.MulVec(j.localAnchorB.Sub(j.localCenterB))

	// K    = [(1/m1 + 1/m2) * eye(2) - skew(r1) * invI1 * skew(r1) - skew(r2) * invI2 * skew(r2)]
	//      = [1/m1+1/m2     0    ] + invI1 * [r1.y*r1.y -r1.x*r1.y] + invI2 * [r1.y*r1.y -r1.x*r1.y]
	//        [    0     1/m1+1/m2]           [-r1.x*r1.y r1.x*r1.x]           [-r1.x*r1.y r1.x*r1.x]
	var K Mat22
	K.Ex.X = j.invMassB + j.invIB*j.rB.Y*j.rB.Y + j.gamma
	K.Ex.Y = -j.invIB * j.rB.X * j.rB.Y
	K.Ey.X = K.Ex.Y
	K.Ey.Y = j.invMassB + j.invIB*j.rB.X*j.rB.X + j.gamma

	j.mass = K.Inverse()

	j.C = cB.Add(j.rB).Sub(j.targetA)
	j.C = j.C.Mul(j.beta)

	// Cheat with some damping
	wB *= 0.98

	if data.step.warmStarting {
		j.impulse = j.impulse.Mul(data.step.dtRatio)
		vB = vB.Add(j.impulse.Mul(j.invMassB))
		wB += j.invIB * j.rB.Cross(j.impulse)
	} else {
		j.impulse.SetZero()
	}

	data.velocities[j.indexB] = velocity{v: vB, w: wB}
}

func (j *MouseJoint) solveVelocityConstraints(data *solverData) {
	vB := data.velocities[j.indexB].v
	wB := data.velocities[j.indexB].w

	// Cdot = v + cross(w, r)
	Cdot := vB.Add(CrossSV(wB, j.rB))
	impulse := j.mass.MulVec(Cdot.Add(j.C).Add(j.impulse.Mul(j.gamma)).Neg())

	oldImpulse := j.impulse
	j.impulse = j.impulse.Add(impulse)
	maxImpulse := data.step.dt * j.maxForce
	if j.impulse.LengthSquared() > maxImpulse*maxImpulse {
		j.impulse = j.impulse.Mul(maxImpulse / j.impulse.Length())
	}
	impulse = j.impulse.Sub(oldImpulse)

	vB = vB.Add(impulse.Mul(j.invMassB))
	wB += j.invIB * j.rB.Cross(impulse)

	data.velocities[j.indexB] = velocity{v: vB, w: wB}
}

func (j *MouseJoint) solvePositionConstraints(data *solverData) bool {
	return true
}
