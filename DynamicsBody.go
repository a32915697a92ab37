package velcro

import (
	"github.com/pkg/errors"
)

// BodyType selects how a body moves.
//
// A static body has zero mass and zero velocity and may only be moved
// manually. A kinematic body has zero mass and a velocity set by the user.
// A dynamic body has positive mass and is moved by forces.
type BodyType uint8

const (
	StaticBody BodyType = iota
	KinematicBody
	DynamicBody
)

func (t BodyType) String() string {
	switch t {
	case StaticBody:
		return "static"
	case KinematicBody:
		return "kinematic"
	case DynamicBody:
		return "dynamic"
	}
	return "unknown"
}

// BodyDef holds the data needed to construct a body. Definitions can be
// reused; fixtures are added after construction.
type BodyDef struct {
	Type BodyType

	// Position is the world position of the body origin.
	Position Vec2

	// Angle is the world angle of the body in radians.
	Angle float64

	// LinearVelocity of the body origin in world coordinates.
	LinearVelocity Vec2

	AngularVelocity float64

	// LinearDamping reduces the linear velocity, in 1/time. Values above 1
	// make the damping sensitive to the time step.
	LinearDamping float64

	// AngularDamping reduces the angular velocity, in 1/time.
	AngularDamping float64

	// AllowSleep set to false keeps the body awake forever.
	AllowSleep bool

	// Awake is the initial sleep state.
	Awake bool

	// FixedRotation prevents the body from rotating. Useful for characters.
	FixedRotation bool

	// Bullet enables continuous collision against other dynamic bodies.
	// Dynamic bodies are always prevented from tunneling through static and
	// kinematic bodies.
	Bullet bool

	// Enabled bodies take part in collision and simulation.
	Enabled bool

	UserData interface{}

	// GravityScale scales the world gravity for this body.
	GravityScale float64
}

// DefaultBodyDef returns a static, awake, enabled body definition at the
// origin.
func DefaultBodyDef() BodyDef {
	return BodyDef{
		Type:         StaticBody,
		AllowSleep:   true,
		Awake:        true,
		Enabled:      true,
		GravityScale: 1.0,
	}
}

func (def *BodyDef) validate() error {
	if !def.Position.IsValid() || !IsValid(def.Angle) {
		return errors.Wrap(ErrInvalidBody, "position or angle is not finite")
	}
	if !def.LinearVelocity.IsValid() || !IsValid(def.AngularVelocity) {
		return errors.Wrap(ErrInvalidBody, "velocity is not finite")
	}
	if !IsValid(def.AngularDamping) || def.AngularDamping < 0.0 {
		return errors.Wrapf(ErrInvalidBody, "angular damping %v", def.AngularDamping)
	}
	if !IsValid(def.LinearDamping) || def.LinearDamping < 0.0 {
		return errors.Wrapf(ErrInvalidBody, "linear damping %v", def.LinearDamping)
	}
	return nil
}

const (
	bodyIslandFlag uint32 = 1 << iota
	bodyAwakeFlag
	bodyAutoSleepFlag
	bodyBulletFlag
	bodyFixedRotationFlag
	bodyEnabledFlag
	bodyTOIFlag
	bodyOutOfBoundsFlag
)

// ContactEdge connects a body to a contact it takes part in.
type ContactEdge struct {
	Other   *Body
	Contact ContactID
}

// JointEdge connects a body to a joint it takes part in.
type JointEdge struct {
	Other *Body
	Joint JointID
}

// Body is a rigid body. Bodies are created and removed through the World.
type Body struct {
	bodyType BodyType

	flags uint32

	islandIndex int

	xf    Transform // the body origin transform
	sweep Sweep     // the swept motion for CCD

	linearVelocity  Vec2
	angularVelocity float64

	force  Vec2
	torque float64

	world *World
	index int // position in the world body list, -1 until added

	fixtures     []*Fixture
	jointEdges   []JointEdge
	contactEdges []ContactEdge

	mass, invMass float64

	// Rotational inertia about the center of mass.
	inertia, invI float64

	linearDamping  float64
	angularDamping float64
	gravityScale   float64

	sleepTime float64

	userData interface{}
}

func newBody(def *BodyDef, world *World) *Body {
	b := &Body{
		bodyType:       def.Type,
		world:          world,
		index:          -1,
		linearDamping:  def.LinearDamping,
		angularDamping: def.AngularDamping,
		gravityScale:   def.GravityScale,
		userData:       def.UserData,
	}

	if def.Bullet {
		b.flags |= bodyBulletFlag
	}
	if def.FixedRotation {
		b.flags |= bodyFixedRotationFlag
	}
	if def.AllowSleep {
		b.flags |= bodyAutoSleepFlag
	}
	if def.Awake && def.Type != StaticBody {
		b.flags |= bodyAwakeFlag
	}
	if def.Enabled {
		b.flags |= bodyEnabledFlag
	}

	b.xf = MakeTransform(def.Position, def.Angle)

	b.sweep.C0 = b.xf.P
	b.sweep.C = b.xf.P
	b.sweep.A0 = def.Angle
	b.sweep.A = def.Angle

	if def.Type != StaticBody {
		b.linearVelocity = def.LinearVelocity
		b.angularVelocity = def.AngularVelocity
	}

	if def.Type == DynamicBody {
		b.mass = 1.0
		b.invMass = 1.0
	}

	return b
}

func (b *Body) Type() BodyType           { return b.bodyType }
func (b *Body) Transform() Transform     { return b.xf }
func (b *Body) Position() Vec2           { return b.xf.P }
func (b *Body) Angle() float64           { return b.sweep.A }
func (b *Body) WorldCenter() Vec2        { return b.sweep.C }
func (b *Body) LocalCenter() Vec2        { return b.sweep.LocalCenter }
func (b *Body) LinearVelocity() Vec2     { return b.linearVelocity }
func (b *Body) AngularVelocity() float64 { return b.angularVelocity }
func (b *Body) Mass() float64            { return b.mass }
func (b *Body) World() *World            { return b.world }
func (b *Body) UserData() interface{}    { return b.userData }

func (b *Body) SetUserData(data interface{}) {
	b.userData = data
}

// Inertia is the rotational inertia about the center of mass.
func (b *Body) Inertia() float64 {
	return b.inertia
}

// Fixtures returns the fixtures of this body. The slice must not be
// modified.
func (b *Body) Fixtures() []*Fixture {
	return b.fixtures
}

// ContactEdges returns the contacts of this body. Use World.Contact to
// resolve the handles.
func (b *Body) ContactEdges() []ContactEdge {
	return b.contactEdges
}

// JointEdges returns the joints attached to this body.
func (b *Body) JointEdges() []JointEdge {
	return b.jointEdges
}

func (b *Body) SetLinearVelocity(v Vec2) {
	if b.bodyType == StaticBody {
		return
	}

	if v.Dot(v) > 0.0 {
		b.SetAwake(true)
	}

	b.linearVelocity = v
}

func (b *Body) SetAngularVelocity(w float64) {
	if b.bodyType == StaticBody {
		return
	}

	if w*w > 0.0 {
		b.SetAwake(true)
	}

	b.angularVelocity = w
}

// ApplyForce applies a force at a world point. A force off the center of
// mass also generates a torque. A sleeping body is only affected when wake
// is set.
func (b *Body) ApplyForce(force, point Vec2, wake bool) {
	if b.bodyType != DynamicBody {
		return
	}

	if wake && !b.IsAwake() {
		b.SetAwake(true)
	}

	// Don't accumulate a force if the body is sleeping.
	if b.IsAwake() {
		b.sleepTime = 0.0
		b.force = b.force.Add(force)
		b.torque += point.Sub(b.sweep.C).Cross(force)
	}
}

// ApplyForceToCenter applies a force at the center of mass.
func (b *Body) ApplyForceToCenter(force Vec2, wake bool) {
	if b.bodyType != DynamicBody {
		return
	}

	if wake && !b.IsAwake() {
		b.SetAwake(true)
	}

	if b.IsAwake() {
		b.sleepTime = 0.0
		b.force = b.force.Add(force)
	}
}

// ApplyTorque applies a torque about the z-axis.
func (b *Body) ApplyTorque(torque float64, wake bool) {
	if b.bodyType != DynamicBody {
		return
	}

	if wake && !b.IsAwake() {
		b.SetAwake(true)
	}

	if b.IsAwake() {
		b.sleepTime = 0.0
		b.torque += torque
	}
}

// ApplyLinearImpulse applies an impulse at a world point. This immediately
// modifies the velocity, and the angular velocity when the point is off
// the center of mass.
func (b *Body) ApplyLinearImpulse(impulse, point Vec2, wake bool) {
	if b.bodyType != DynamicBody {
		return
	}

	if wake && !b.IsAwake() {
		b.SetAwake(true)
	}

	if b.IsAwake() {
		b.sleepTime = 0.0
		b.linearVelocity = b.linearVelocity.Add(impulse.Mul(b.invMass))
		b.angularVelocity += b.invI * point.Sub(b.sweep.C).Cross(impulse)
	}
}

func (b *Body) ApplyLinearImpulseToCenter(impulse Vec2, wake bool) {
	if b.bodyType != DynamicBody {
		return
	}

	if wake && !b.IsAwake() {
		b.SetAwake(true)
	}

	if b.IsAwake() {
		b.sleepTime = 0.0
		b.linearVelocity = b.linearVelocity.Add(impulse.Mul(b.invMass))
	}
}

func (b *Body) ApplyAngularImpulse(impulse float64, wake bool) {
	if b.bodyType != DynamicBody {
		return
	}

	if wake && !b.IsAwake() {
		b.SetAwake(true)
	}

	if b.IsAwake() {
		b.sleepTime = 0.0
		b.angularVelocity += b.invI * impulse
	}
}

// MassData returns the mass, the local center of mass and the rotational
// inertia about the center of mass.
func (b *Body) MassData() MassData {
	return MassData{
		Mass:   b.mass,
		Center: b.sweep.LocalCenter,
		I:      b.inertia,
	}
}

// SetMassData overrides the mass properties computed from the fixtures.
// It is ignored for non-dynamic bodies. Fails while the world is stepping.
func (b *Body) SetMassData(massData MassData) error {
	if b.world != nil && b.world.IsLocked() {
		return errors.Wrap(ErrWorldLocked, "set mass data")
	}

	if b.bodyType != DynamicBody {
		return nil
	}

	b.invMass = 0.0
	b.inertia = 0.0
	b.invI = 0.0

	b.mass = massData.Mass
	if b.mass <= 0.0 {
		b.mass = 1.0
	}

	b.invMass = 1.0 / b.mass

	if massData.I > 0.0 && b.flags&bodyFixedRotationFlag == 0 {
		b.inertia = massData.I
		b.invI = 1.0 / b.inertia
	}

	b.moveCenter(massData.Center)
	return nil
}

// ResetMassData recomputes the mass properties from the fixtures. Fixture
// inertias about their centroids are shifted to the body origin, summed
// and then shifted to the combined center of mass.
func (b *Body) ResetMassData() {
	b.mass = 0.0
	b.invMass = 0.0
	b.inertia = 0.0
	b.invI = 0.0
	b.sweep.LocalCenter.SetZero()

	// Static and kinematic bodies have zero mass.
	if b.bodyType == StaticBody || b.bodyType == KinematicBody {
		b.sweep.C0 = b.xf.P
		b.sweep.C = b.xf.P
		b.sweep.A0 = b.sweep.A
		return
	}

	assert(b.bodyType == DynamicBody)

	// Accumulate mass over all fixtures.
	localCenter := Vec2{}
	rotationalInertia := 0.0
	for _, f := range b.fixtures {
		if f.density == 0.0 {
			continue
		}

		massData := f.MassData()
		b.mass += massData.Mass
		localCenter = localCenter.Add(massData.Center.Mul(massData.Mass))
		rotationalInertia += massData.I + massData.Mass*massData.Center.Dot(massData.Center)
	}

	// Compute center of mass.
	if b.mass > 0.0 {
		b.invMass = 1.0 / b.mass
		localCenter = localCenter.Mul(b.invMass)
	} else {
		// Force all dynamic bodies to have a positive mass.
		b.mass = 1.0
		b.invMass = 1.0
	}

	if rotationalInertia > 0.0 && b.flags&bodyFixedRotationFlag == 0 {
		// Center the inertia about the center of mass.
		b.inertia = rotationalInertia - b.mass*localCenter.Dot(localCenter)
		assert(b.inertia > 0.0)
		b.invI = 1.0 / b.inertia
	} else {
		b.inertia = 0.0
		b.invI = 0.0
	}

	b.moveCenter(localCenter)
}

// moveCenter sets a new local center of mass and keeps the velocity of the
// body origin unchanged.
func (b *Body) moveCenter(localCenter Vec2) {
	oldCenter := b.sweep.C
	b.sweep.LocalCenter = localCenter
	b.sweep.C = b.xf.MulVec(b.sweep.LocalCenter)
	b.sweep.C0 = b.sweep.C

	// Update center of mass velocity.
	b.linearVelocity = b.linearVelocity.Add(CrossSV(b.angularVelocity, b.sweep.C.Sub(oldCenter)))
}

// WorldPoint converts a point in body coordinates to world coordinates.
func (b *Body) WorldPoint(localPoint Vec2) Vec2 {
	return b.xf.MulVec(localPoint)
}

func (b *Body) WorldVector(localVector Vec2) Vec2 {
	return b.xf.Q.MulVec(localVector)
}

func (b *Body) LocalPoint(worldPoint Vec2) Vec2 {
	return b.xf.MulTVec(worldPoint)
}

func (b *Body) LocalVector(worldVector Vec2) Vec2 {
	return b.xf.Q.MulTVec(worldVector)
}

// LinearVelocityFromWorldPoint returns the velocity of a world point
// attached to this body.
func (b *Body) LinearVelocityFromWorldPoint(worldPoint Vec2) Vec2 {
	return b.linearVelocity.Add(CrossSV(b.angularVelocity, worldPoint.Sub(b.sweep.C)))
}

func (b *Body) LinearVelocityFromLocalPoint(localPoint Vec2) Vec2 {
	return b.LinearVelocityFromWorldPoint(b.WorldPoint(localPoint))
}

func (b *Body) LinearDamping() float64  { return b.linearDamping }
func (b *Body) AngularDamping() float64 { return b.angularDamping }
func (b *Body) GravityScale() float64   { return b.gravityScale }

func (b *Body) SetLinearDamping(d float64)  { b.linearDamping = d }
func (b *Body) SetAngularDamping(d float64) { b.angularDamping = d }
func (b *Body) SetGravityScale(s float64)   { b.gravityScale = s }

// SetType changes the body type. Contacts of the body are rebuilt during the
// next step.
func (b *Body) SetType(t BodyType) error {
	if b.world != nil && b.world.IsLocked() {
		return errors.Wrap(ErrWorldLocked, "set body type")
	}

	if b.bodyType == t {
		return nil
	}

	b.bodyType = t

	b.ResetMassData()

	if b.bodyType == StaticBody {
		b.linearVelocity.SetZero()
		b.angularVelocity = 0.0
		b.sweep.A0 = b.sweep.A
		b.sweep.C0 = b.sweep.C
		b.flags &^= bodyAwakeFlag
		b.synchronizeFixtures()
	}

	b.SetAwake(true)

	b.force.SetZero()
	b.torque = 0.0

	// Delete the attached contacts.
	b.destroyContacts()

	// Touch the proxies so that new contacts will be created (when appropriate)
	b.touchProxies()
	return nil
}

func (b *Body) destroyContacts() {
	if b.world == nil {
		return
	}
	cm := &b.world.contactManager
	edges := append([]ContactEdge(nil), b.contactEdges...)
	for _, edge := range edges {
		cm.Destroy(cm.contacts[edge.Contact])
	}
}

func (b *Body) touchProxies() {
	if b.world == nil {
		return
	}
	broadPhase := b.world.contactManager.broadPhase
	for _, f := range b.fixtures {
		for i := 0; i < f.proxyCount; i++ {
			broadPhase.TouchProxy(f.proxies[i].ProxyID)
		}
	}
}

// SetBullet marks the body for continuous collision against dynamic bodies.
func (b *Body) SetBullet(flag bool) {
	if flag {
		b.flags |= bodyBulletFlag
	} else {
		b.flags &^= bodyBulletFlag
	}
}

func (b *Body) IsBullet() bool {
	return b.flags&bodyBulletFlag != 0
}

// SetSleepingAllowed set to false keeps the body awake.
func (b *Body) SetSleepingAllowed(flag bool) {
	if flag {
		b.flags |= bodyAutoSleepFlag
	} else {
		b.flags &^= bodyAutoSleepFlag
		b.SetAwake(true)
	}
}

func (b *Body) IsSleepingAllowed() bool {
	return b.flags&bodyAutoSleepFlag != 0
}

// SetAwake wakes or sleeps the body. A sleeping body has zero velocity and
// no accumulated force.
func (b *Body) SetAwake(flag bool) {
	if b.bodyType == StaticBody {
		return
	}

	if flag {
		b.flags |= bodyAwakeFlag
		b.sleepTime = 0.0
	} else {
		b.flags &^= bodyAwakeFlag
		b.sleepTime = 0.0
		b.linearVelocity.SetZero()
		b.angularVelocity = 0.0
		b.force.SetZero()
		b.torque = 0.0
	}
}

func (b *Body) IsAwake() bool {
	return b.flags&bodyAwakeFlag != 0
}

func (b *Body) IsEnabled() bool {
	return b.flags&bodyEnabledFlag != 0
}

// IsOutOfBounds reports whether the body was disabled for leaving the
// world bounds. Enabling the body again clears the condition.
func (b *Body) IsOutOfBounds() bool {
	return b.flags&bodyOutOfBoundsFlag != 0
}

// SetEnabled adds the body to or removes it from the simulation. A disabled
// body keeps its fixtures and joints but has no broad-phase proxies and no
// contacts.
func (b *Body) SetEnabled(flag bool) error {
	if b.world != nil && b.world.IsLocked() {
		return errors.Wrap(ErrWorldLocked, "set body enabled")
	}

	if flag == b.IsEnabled() {
		return nil
	}

	if flag {
		b.flags |= bodyEnabledFlag
		b.flags &^= bodyOutOfBoundsFlag

		// Create all proxies. Contacts are created the next time step.
		if b.inWorld() {
			broadPhase := b.world.contactManager.broadPhase
			for _, f := range b.fixtures {
				f.createProxies(broadPhase, b.xf)
			}
		}
	} else {
		b.flags &^= bodyEnabledFlag
		b.disableProxies()
	}

	return nil
}

// disableProxies removes the fixtures from the broad phase and destroys the
// attached contacts.
func (b *Body) disableProxies() {
	if !b.inWorld() {
		return
	}

	broadPhase := b.world.contactManager.broadPhase
	for _, f := range b.fixtures {
		f.destroyProxies(broadPhase)
	}

	b.destroyContacts()
}

// SetFixedRotation locks or unlocks the rotation of the body.
func (b *Body) SetFixedRotation(flag bool) {
	status := b.flags&bodyFixedRotationFlag != 0
	if status == flag {
		return
	}

	if flag {
		b.flags |= bodyFixedRotationFlag
	} else {
		b.flags &^= bodyFixedRotationFlag
	}

	b.angularVelocity = 0.0

	b.ResetMassData()
}

func (b *Body) IsFixedRotation() bool {
	return b.flags&bodyFixedRotationFlag != 0
}

// SetTransform moves the body origin and sets the rotation. Contacts are
// updated on the next step. Fails while the world is stepping.
func (b *Body) SetTransform(position Vec2, angle float64) error {
	if b.world != nil && b.world.IsLocked() {
		return errors.Wrap(ErrWorldLocked, "set body transform")
	}

	b.xf = MakeTransform(position, angle)

	b.sweep.C = b.xf.MulVec(b.sweep.LocalCenter)
	b.sweep.A = angle

	b.sweep.C0 = b.sweep.C
	b.sweep.A0 = angle

	if b.inWorld() {
		broadPhase := b.world.contactManager.broadPhase
		for _, f := range b.fixtures {
			f.synchronize(broadPhase, b.xf, b.xf)
		}
	}
	return nil
}

// CreateFixture attaches a new fixture to the body. See World.CreateFixture.
func (b *Body) CreateFixture(def *FixtureDef) (*Fixture, error) {
	if b.world == nil {
		return nil, ErrBodyNotInWorld
	}
	return b.world.CreateFixture(b, def)
}

// CreateFixtureFromShape creates a fixture with default friction and the
// given density.
func (b *Body) CreateFixtureFromShape(shape Shape, density float64) (*Fixture, error) {
	def := DefaultFixtureDef(shape)
	def.Density = density
	return b.CreateFixture(&def)
}

func (b *Body) inWorld() bool {
	return b.world != nil && b.index >= 0
}

// synchronizeFixtures moves the proxies to cover the motion of the last
// step, from the start of the sweep to the current transform.
func (b *Body) synchronizeFixtures() {
	if !b.inWorld() {
		return
	}

	var xf1 Transform
	xf1.Q = MakeRot(b.sweep.A0)
	xf1.P = b.sweep.C0.Sub(xf1.Q.MulVec(b.sweep.LocalCenter))

	broadPhase := b.world.contactManager.broadPhase
	for _, f := range b.fixtures {
		f.synchronize(broadPhase, xf1, b.xf)
	}
}

func (b *Body) synchronizeTransform() {
	b.xf.Q = MakeRot(b.sweep.A)
	b.xf.P = b.sweep.C.Sub(b.xf.Q.MulVec(b.sweep.LocalCenter))
}

// advance moves the sweep to alpha and places the body there. Used by the
// time of impact loop.
func (b *Body) advance(alpha float64) {
	b.sweep.Advance(alpha)
	b.sweep.C = b.sweep.C0
	b.sweep.A = b.sweep.A0
	b.xf.Q = MakeRot(b.sweep.A)
	b.xf.P = b.sweep.C.Sub(b.xf.Q.MulVec(b.sweep.LocalCenter))
}

// ShouldCollide reports whether contacts between the two bodies are
// allowed. At least one body must be dynamic and no joint between them may
// forbid collision.
func (b *Body) ShouldCollide(other *Body) bool {
	if b.bodyType != DynamicBody && other.bodyType != DynamicBody {
		return false
	}

	if b.world == nil {
		return true
	}

	for _, edge := range b.jointEdges {
		if edge.Other == other && !b.world.joints[edge.Joint].CollideConnected() {
			return false
		}
	}

	return true
}

func (b *Body) removeContactEdge(id ContactID) {
	for i, edge := range b.contactEdges {
		if edge.Contact == id {
			b.contactEdges = append(b.contactEdges[:i], b.contactEdges[i+1:]...)
			return
		}
	}
}

func (b *Body) removeJointEdge(id JointID) {
	for i, edge := range b.jointEdges {
		if edge.Joint == id {
			b.jointEdges = append(b.jointEdges[:i], b.jointEdges[i+1:]...)
			return
		}
	}
}
