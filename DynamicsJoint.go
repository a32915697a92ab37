package velcro

import (
	"github.com/pkg/errors"
)

// JointID is the handle of a joint in the world joint arena.
type JointID int

type JointType uint8

const (
	JointUnknown JointType = iota
	JointRevolute
	JointPrismatic
	JointDistance
	JointPulley
	JointMouse
	JointGear
	JointWheel
	JointWeld
	JointFriction
	JointRope
	JointMotor
)

func (t JointType) String() string {
	switch t {
	case JointRevolute:
		return "revolute"
	case JointPrismatic:
		return "prismatic"
	case JointDistance:
		return "distance"
	case JointPulley:
		return "pulley"
	case JointMouse:
		return "mouse"
	case JointGear:
		return "gear"
	case JointWheel:
		return "wheel"
	case JointWeld:
		return "weld"
	case JointFriction:
		return "friction"
	case JointRope:
		return "rope"
	case JointMotor:
		return "motor"
	}
	return "unknown"
}

type limitState uint8

const (
	inactiveLimit limitState = iota
	atLowerLimit
	atUpperLimit
	equalLimits
)

// JointDefBase holds the fields shared by every joint definition.
type JointDefBase struct {
	UserData interface{}

	BodyA *Body
	BodyB *Body

	// CollideConnected allows contacts between the connected bodies.
	CollideConnected bool
}

func (d *JointDefBase) jointDefBase() *JointDefBase { return d }

// JointDef is implemented by the joint definitions of this package, such as
// *RevoluteJointDef.
type JointDef interface {
	jointDefBase() *JointDefBase
}

// Joint constrains two bodies. Joints are created and removed through the
// World.
type Joint interface {
	Type() JointType
	ID() JointID
	BodyA() *Body
	BodyB() *Body

	// AnchorA is the anchor point on body A in world coordinates.
	AnchorA() Vec2

	// AnchorB is the anchor point on body B in world coordinates.
	AnchorB() Vec2

	// ReactionForce returns the reaction force on body B at the joint
	// anchor, in Newtons.
	ReactionForce(invDt float64) Vec2

	// ReactionTorque returns the reaction torque on body B, in N*m.
	ReactionTorque(invDt float64) float64

	CollideConnected() bool
	UserData() interface{}
	SetUserData(data interface{})

	// IsEnabled reports whether both bodies are enabled.
	IsEnabled() bool

	// ShiftOrigin moves world-space anchors for a new world origin.
	ShiftOrigin(newOrigin Vec2)

	base() *jointBase
	initVelocityConstraints(data *solverData)
	solveVelocityConstraints(data *solverData)

	// solvePositionConstraints reports whether the position error is
	// within tolerance.
	solvePositionConstraints(data *solverData) bool
}

// jointBase carries the state shared by all joints plus the per-step
// solver cache of both bodies.
type jointBase struct {
	jointType JointType
	id        JointID

	bodyA *Body
	bodyB *Body

	islandFlag       bool
	collideConnected bool
	userData         interface{}

	// Solver temp
	indexA       int
	indexB       int
	localCenterA Vec2
	localCenterB Vec2
	invMassA     float64
	invMassB     float64
	invIA        float64
	invIB        float64
}

func makeJointBase(t JointType, def *JointDefBase) jointBase {
	return jointBase{
		jointType:        t,
		id:               -1,
		bodyA:            def.BodyA,
		bodyB:            def.BodyB,
		collideConnected: def.CollideConnected,
		userData:         def.UserData,
	}
}

func (j *jointBase) Type() JointType              { return j.jointType }
func (j *jointBase) ID() JointID                  { return j.id }
func (j *jointBase) BodyA() *Body                 { return j.bodyA }
func (j *jointBase) BodyB() *Body                 { return j.bodyB }
func (j *jointBase) CollideConnected() bool       { return j.collideConnected }
func (j *jointBase) UserData() interface{}        { return j.userData }
func (j *jointBase) SetUserData(data interface{}) { j.userData = data }
func (j *jointBase) base() *jointBase             { return j }
func (j *jointBase) IsEnabled() bool              { return j.bodyA.IsEnabled() && j.bodyB.IsEnabled() }

func (j *jointBase) ShiftOrigin(newOrigin Vec2) {}

// prepare caches the island indices and mass properties of both bodies.
func (j *jointBase) prepare() {
	j.indexA = j.bodyA.islandIndex
	j.indexB = j.bodyB.islandIndex
	j.localCenterA = j.bodyA.sweep.LocalCenter
	j.localCenterB = j.bodyB.sweep.LocalCenter
	j.invMassA = j.bodyA.invMass
	j.invMassB = j.bodyB.invMass
	j.invIA = j.bodyA.invI
	j.invIB = j.bodyB.invI
}

// velocities loads the solver velocities of both bodies.
func (j *jointBase) velocities(data *solverData) (vA Vec2, wA float64, vB Vec2, wB float64) {
	return data.velocities[j.indexA].v, data.velocities[j.indexA].w,
		data.velocities[j.indexB].v, data.velocities[j.indexB].w
}

func (j *jointBase) storeVelocities(data *solverData, vA Vec2, wA float64, vB Vec2, wB float64) {
	data.velocities[j.indexA] = velocity{v: vA, w: wA}
	data.velocities[j.indexB] = velocity{v: vB, w: wB}
}

// positions loads the solver positions of both bodies.
func (j *jointBase) positions(data *solverData) (cA Vec2, aA float64, cB Vec2, aB float64) {
	return data.positions[j.indexA].c, data.positions[j.indexA].a,
		data.positions[j.indexB].c, data.positions[j.indexB].a
}

func (j *jointBase) storePositions(data *solverData, cA Vec2, aA float64, cB Vec2, aB float64) {
	data.positions[j.indexA] = position{c: cA, a: aA}
	data.positions[j.indexB] = position{c: cB, a: aB}
}

// pointMass is the effective mass of a point-to-point constraint plus the
// relative angle row.
//
// J = [-I -r1_skew I r2_skew]
//     [ 0       -1 0       1]
// r_skew = [-ry; rx]
//
// K = [ mA+r1y^2*iA+mB+r2y^2*iB,  -r1y*iA*r1x-r2y*iB*r2x,          -r1y*iA-r2y*iB]
//     [  -r1y*iA*r1x-r2y*iB*r2x, mA+r1x^2*iA+mB+r2x^2*iB,           r1x*iA+r2x*iB]
//     [          -r1y*iA-r2y*iB,           r1x*iA+r2x*iB,                   iA+iB]
func pointMass(mA, mB, iA, iB float64, rA, rB Vec2) Mat33 {
	var K Mat33
	K.Ex.X = mA + mB + rA.Y*rA.Y*iA + rB.Y*rB.Y*iB
	K.Ey.X = -rA.Y*rA.X*iA - rB.Y*rB.X*iB
	K.Ez.X = -rA.Y*iA - rB.Y*iB
	K.Ex.Y = K.Ey.X
	K.Ey.Y = mA + mB + rA.X*rA.X*iA + rB.X*rB.X*iB
	K.Ez.Y = rA.X*iA + rB.X*iB
	K.Ex.Z = K.Ez.X
	K.Ey.Z = K.Ez.Y
	K.Ez.Z = iA + iB
	return K
}

// newJoint builds the joint described by def.
func newJoint(def JointDef) (Joint, error) {
	if def == nil {
		return nil, errors.Wrap(ErrInvalidJoint, "nil definition")
	}

	b := def.jointDefBase()
	if b.BodyA == nil || b.BodyB == nil {
		return nil, errors.Wrap(ErrInvalidJoint, "joint needs two bodies")
	}
	if b.BodyA == b.BodyB {
		return nil, ErrSameBody
	}

	switch d := def.(type) {
	case *DistanceJointDef:
		return newDistanceJoint(d)
	case *MouseJointDef:
		return newMouseJoint(d)
	case *PrismaticJointDef:
		return newPrismaticJoint(d)
	case *RevoluteJointDef:
		return newRevoluteJoint(d)
	case *PulleyJointDef:
		return newPulleyJoint(d)
	case *GearJointDef:
		return newGearJoint(d)
	case *WheelJointDef:
		return newWheelJoint(d)
	case *WeldJointDef:
		return newWeldJoint(d)
	case *FrictionJointDef:
		return newFrictionJoint(d)
	case *RopeJointDef:
		return newRopeJoint(d)
	case *MotorJointDef:
		return newMotorJoint(d)
	}

	return nil, errors.Wrapf(ErrInvalidJoint, "unsupported definition %T", def)
}
