package velcro

import (
	"log/slog"

	"github.com/pkg/errors"
)

// Phase is the stage of the time step the world is in. Structural changes
// are only applied while the world is idle.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseColliding
	PhaseSolving
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseColliding:
		return "colliding"
	case PhaseSolving:
		return "solving"
	}
	return "unknown"
}

// World manages all physics entities, the dynamic simulation and the
// spatial queries. A World is not safe for concurrent use.
type World struct {
	phase Phase

	// newFixture is set when proxies were created since the last pair
	// update.
	newFixture bool

	contactManager ContactManager

	bodies []*Body

	// joints is the arena; removed slots are nil and listed in freeJoints.
	joints     []Joint
	freeJoints []JointID
	jointCount int

	// Deferred structural changes, applied by Flush.
	bodiesToAdd      []*Body
	bodiesToRemove   []*Body
	jointsToAdd      []Joint
	jointsToRemove   []Joint
	fixturesToRemove []*Fixture

	settings        Settings
	autoClearForces bool

	destructionListener DestructionListener
	boundaryListener    BoundaryListener

	logger *slog.Logger

	// invDt0 is the inverse of the previous time step, used to scale the
	// warm starting impulses when the time step changes.
	invDt0 float64

	stepComplete bool

	profile Profile

	island *island
}

// NewWorld creates a world with the default settings and the given gravity.
func NewWorld(gravity Vec2) *World {
	settings := DefaultSettings()
	settings.Gravity = gravity

	w, err := NewWorldFromSettings(settings)
	if err != nil {
		panic(err)
	}
	return w
}

// NewWorldFromSettings creates a world after validating the settings.
func NewWorldFromSettings(settings Settings) (*World, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return &World{
		contactManager:  makeContactManager(),
		settings:        settings,
		autoClearForces: true,
		stepComplete:    true,
		logger:          nopLogger,
	}, nil
}

// SetLogger sets the structured logger of the world. A nil logger discards
// all records.
func (w *World) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = nopLogger
	}
	w.logger = logger
}

func (w *World) Phase() Phase          { return w.phase }
func (w *World) IsLocked() bool        { return w.phase != PhaseIdle }
func (w *World) Settings() Settings    { return w.settings }
func (w *World) Gravity() Vec2         { return w.settings.Gravity }
func (w *World) Profile() Profile      { return w.profile }
func (w *World) BodyCount() int        { return len(w.bodies) }
func (w *World) JointCount() int       { return w.jointCount }
func (w *World) ContactCount() int     { return w.contactManager.ContactCount() }
func (w *World) ProxyCount() int       { return w.contactManager.broadPhase.ProxyCount() }
func (w *World) TreeHeight() int       { return w.contactManager.broadPhase.TreeHeight() }
func (w *World) TreeBalance() int      { return w.contactManager.broadPhase.TreeBalance() }
func (w *World) TreeQuality() float64  { return w.contactManager.broadPhase.TreeQuality() }
func (w *World) AllowSleeping() bool   { return w.settings.AllowSleep }
func (w *World) WarmStarting() bool    { return w.settings.WarmStarting }
func (w *World) AutoClearForces() bool { return w.autoClearForces }

func (w *World) SetGravity(gravity Vec2)                      { w.settings.Gravity = gravity }
func (w *World) SetWarmStarting(flag bool)                    { w.settings.WarmStarting = flag }
func (w *World) SetContinuousPhysics(flag bool)               { w.settings.ContinuousPhysics = flag }
func (w *World) SetSubStepping(flag bool)                     { w.settings.SubStepping = flag }
func (w *World) SetAutoClearForces(flag bool)                 { w.autoClearForces = flag }
func (w *World) SetDestructionListener(l DestructionListener) { w.destructionListener = l }
func (w *World) SetBoundaryListener(l BoundaryListener)       { w.boundaryListener = l }
func (w *World) SetContactListener(l ContactListener)         { w.contactManager.contactListener = l }

// SetContactFilter replaces the contact filter. A nil filter restores
// DefaultContactFilter.
func (w *World) SetContactFilter(filter ContactFilter) {
	if filter == nil {
		filter = DefaultContactFilter{}
	}
	w.contactManager.contactFilter = filter
}

// SetAllowSleeping enables or disables sleeping. Disabling wakes every body.
func (w *World) SetAllowSleeping(flag bool) {
	if flag == w.settings.AllowSleep {
		return
	}

	w.settings.AllowSleep = flag
	if !flag {
		for _, b := range w.bodies {
			b.SetAwake(true)
		}
	}
}

// SetWorldBounds limits where bodies may go. A nil box removes the limit.
func (w *World) SetWorldBounds(bounds *AABB) error {
	if bounds != nil && !bounds.IsValid() {
		return errors.Wrap(ErrInvalidAABB, "world bounds")
	}
	w.settings.WorldBounds = bounds
	return nil
}

// Bodies returns the bodies added to the world. The slice is owned by the
// world and changes on Flush.
func (w *World) Bodies() []*Body {
	return w.bodies
}

// Joints returns the live joints in arena order.
func (w *World) Joints() []Joint {
	joints := make([]Joint, 0, w.jointCount)
	for _, j := range w.joints {
		if j != nil {
			joints = append(joints, j)
		}
	}
	return joints
}

// Contacts returns the live contacts in arena order.
func (w *World) Contacts() []*Contact {
	contacts := make([]*Contact, 0, w.contactManager.contactCount)
	for _, c := range w.contactManager.contacts {
		if c != nil {
			contacts = append(contacts, c)
		}
	}
	return contacts
}

// Joint returns the joint with the given handle, or nil.
func (w *World) Joint(id JointID) Joint {
	if id < 0 || int(id) >= len(w.joints) {
		return nil
	}
	return w.joints[id]
}

// Contact returns the contact with the given handle, or nil.
func (w *World) Contact(id ContactID) *Contact {
	if id < 0 || int(id) >= len(w.contactManager.contacts) {
		return nil
	}
	return w.contactManager.contacts[id]
}

// CreateBody validates the definition and creates a body. The body joins
// the simulation on the next Flush, which Step performs first. Fixtures may
// be attached before that.
func (w *World) CreateBody(def *BodyDef) (*Body, error) {
	if def == nil {
		return nil, errors.Wrap(ErrInvalidBody, "nil body definition")
	}
	if err := def.validate(); err != nil {
		return nil, err
	}

	b := newBody(def, w)
	w.bodiesToAdd = append(w.bodiesToAdd, b)
	return b, nil
}

// RemoveBody destroys a body with its fixtures, joints and contacts. While
// the world is stepping the removal is queued until the next Flush.
func (w *World) RemoveBody(b *Body) error {
	if b == nil || b.world != w {
		return ErrBodyNotInWorld
	}

	// Not added yet.
	if b.index < 0 {
		for i, pending := range w.bodiesToAdd {
			if pending == b {
				w.bodiesToAdd = append(w.bodiesToAdd[:i], w.bodiesToAdd[i+1:]...)
				w.removeJointsOf(b)
				b.world = nil
				return nil
			}
		}
		return ErrBodyNotInWorld
	}

	if w.IsLocked() {
		w.bodiesToRemove = append(w.bodiesToRemove, b)
		return nil
	}

	w.removeBody(b)
	return nil
}

func (w *World) removeBody(b *Body) {
	if b.index < 0 {
		return
	}

	// Delete the attached joints.
	w.removeJointsOf(b)

	// Delete the attached contacts.
	b.destroyContacts()
	b.contactEdges = nil

	// Delete the attached fixtures. This destroys broad-phase proxies.
	for _, f := range b.fixtures {
		if w.destructionListener != nil {
			w.destructionListener.SayGoodbyeToFixture(f)
		}

		f.destroyProxies(w.contactManager.broadPhase)
		f.body = nil
	}
	b.fixtures = nil

	// Swap remove from the body list.
	last := len(w.bodies) - 1
	moved := w.bodies[last]
	w.bodies[b.index] = moved
	moved.index = b.index
	w.bodies[last] = nil
	w.bodies = w.bodies[:last]

	b.index = -1
	b.world = nil
}

func (w *World) removeJointsOf(b *Body) {
	edges := append([]JointEdge(nil), b.jointEdges...)
	for _, edge := range edges {
		j := w.joints[edge.Joint]
		if j == nil {
			continue
		}

		if w.destructionListener != nil {
			w.destructionListener.SayGoodbyeToJoint(j)
		}

		w.removeJoint(j)
	}
	b.jointEdges = nil
}

// CreateFixture attaches a fixture to a body and updates the body mass if
// the fixture has density. Fails while the world is stepping.
func (w *World) CreateFixture(b *Body, def *FixtureDef) (*Fixture, error) {
	if w.IsLocked() {
		return nil, errors.Wrap(ErrWorldLocked, "create fixture")
	}
	if b == nil || b.world != w {
		return nil, ErrBodyNotInWorld
	}
	if def == nil {
		return nil, errors.Wrap(ErrInvalidFixture, "nil fixture definition")
	}

	f, err := newFixture(b, def)
	if err != nil {
		return nil, err
	}

	if b.inWorld() && b.IsEnabled() {
		f.createProxies(w.contactManager.broadPhase, b.xf)
		w.newFixture = true
	}

	b.fixtures = append(b.fixtures, f)

	// Adjust mass properties if needed.
	if f.density > 0.0 {
		b.ResetMassData()
	}

	return f, nil
}

// DestroyFixture detaches a fixture from its body, destroying its contacts
// and updating the body mass. While the world is stepping the removal is
// queued until the next Flush.
func (w *World) DestroyFixture(f *Fixture) error {
	if f == nil || f.body == nil || f.body.world != w {
		return ErrFixtureNotOnBody
	}

	if w.IsLocked() {
		w.fixturesToRemove = append(w.fixturesToRemove, f)
		return nil
	}

	w.destroyFixture(f)
	return nil
}

func (w *World) destroyFixture(f *Fixture) {
	b := f.body
	if b == nil {
		return
	}

	index := -1
	for i, other := range b.fixtures {
		if other == f {
			index = i
			break
		}
	}
	if index < 0 {
		return
	}

	b.fixtures = append(b.fixtures[:index], b.fixtures[index+1:]...)

	// Destroy any contacts associated with the fixture.
	edges := append([]ContactEdge(nil), b.contactEdges...)
	for _, edge := range edges {
		c := w.contactManager.contacts[edge.Contact]
		if c != nil && (c.fixtureA == f || c.fixtureB == f) {
			// This destroys the contact and removes it from the body edges.
			w.contactManager.Destroy(c)
		}
	}

	f.destroyProxies(w.contactManager.broadPhase)
	f.body = nil

	// Reset the mass data.
	b.ResetMassData()
}

// CreateJoint validates the definition and creates a joint. While the world
// is stepping the joint is connected to its bodies on the next Flush.
func (w *World) CreateJoint(def JointDef) (Joint, error) {
	j, err := newJoint(def)
	if err != nil {
		return nil, err
	}

	if j.BodyA().world != w || j.BodyB().world != w {
		return nil, errors.Wrap(ErrBodyNotInWorld, "joint body")
	}

	if w.IsLocked() {
		w.jointsToAdd = append(w.jointsToAdd, j)
		return j, nil
	}

	w.addJoint(j)
	return j, nil
}

func (w *World) addJoint(j Joint) {
	base := j.base()

	if n := len(w.freeJoints); n > 0 {
		base.id = w.freeJoints[n-1]
		w.freeJoints = w.freeJoints[:n-1]
		w.joints[base.id] = j
	} else {
		base.id = JointID(len(w.joints))
		w.joints = append(w.joints, j)
	}
	w.jointCount++

	// Connect to the bodies. The bodies of the joint may differ from the
	// ones in its definition.
	bodyA := j.BodyA()
	bodyB := j.BodyB()

	bodyA.jointEdges = append(bodyA.jointEdges, JointEdge{Other: bodyB, Joint: base.id})
	bodyB.jointEdges = append(bodyB.jointEdges, JointEdge{Other: bodyA, Joint: base.id})

	// If the joint prevents collisions, then flag any contacts for filtering.
	if !base.collideConnected {
		w.flagContactsBetween(bodyA, bodyB)
	}

	bodyA.SetAwake(true)
	bodyB.SetAwake(true)
}

// RemoveJoint disconnects and destroys a joint. While the world is stepping
// the removal is queued until the next Flush.
func (w *World) RemoveJoint(j Joint) error {
	if j == nil {
		return errors.Wrap(ErrInvalidJoint, "nil joint")
	}

	if w.IsLocked() {
		w.jointsToRemove = append(w.jointsToRemove, j)
		return nil
	}

	id := j.ID()
	if id < 0 {
		for i, pending := range w.jointsToAdd {
			if pending == j {
				w.jointsToAdd = append(w.jointsToAdd[:i], w.jointsToAdd[i+1:]...)
				return nil
			}
		}
	}

	if int(id) >= len(w.joints) || id < 0 || w.joints[id] != j {
		return errors.Wrap(ErrInvalidJoint, "joint is not in this world")
	}

	w.removeJoint(j)
	return nil
}

func (w *World) removeJoint(j Joint) {
	base := j.base()
	id := base.id

	bodyA := base.bodyA
	bodyB := base.bodyB

	// Wake up connected bodies.
	bodyA.SetAwake(true)
	bodyB.SetAwake(true)

	// Disconnect from island graph.
	bodyA.removeJointEdge(id)
	bodyB.removeJointEdge(id)

	w.joints[id] = nil
	w.freeJoints = append(w.freeJoints, id)
	w.jointCount--
	base.id = -1

	// If the joint prevents collisions, then flag any contacts for filtering.
	if !base.collideConnected {
		w.flagContactsBetween(bodyA, bodyB)
	}
}

// flagContactsBetween flags the contacts between two bodies for filtering at
// the next time step.
func (w *World) flagContactsBetween(bodyA, bodyB *Body) {
	for _, edge := range bodyB.contactEdges {
		if edge.Other == bodyA {
			w.contactManager.contacts[edge.Contact].FlagForFiltering()
		}
	}
}

// Flush applies the queued structural changes: added bodies, added joints,
// removed joints, removed fixtures and removed bodies, in that order. It is
// a no-op while the world is stepping.
func (w *World) Flush() {
	if w.IsLocked() {
		return
	}

	added := len(w.bodiesToAdd)
	removed := len(w.bodiesToRemove)

	if added == 0 && removed == 0 && len(w.jointsToAdd) == 0 &&
		len(w.jointsToRemove) == 0 && len(w.fixturesToRemove) == 0 {
		return
	}

	for _, b := range w.bodiesToAdd {
		if b.world != w {
			continue
		}

		b.index = len(w.bodies)
		w.bodies = append(w.bodies, b)

		if b.IsEnabled() {
			for _, f := range b.fixtures {
				f.createProxies(w.contactManager.broadPhase, b.xf)
			}
			w.newFixture = true
		}
	}
	w.bodiesToAdd = w.bodiesToAdd[:0]

	for _, j := range w.jointsToAdd {
		w.addJoint(j)
	}
	w.jointsToAdd = w.jointsToAdd[:0]

	for _, j := range w.jointsToRemove {
		id := j.ID()
		if id >= 0 && int(id) < len(w.joints) && w.joints[id] == j {
			w.removeJoint(j)
		}
	}
	w.jointsToRemove = w.jointsToRemove[:0]

	for _, f := range w.fixturesToRemove {
		w.destroyFixture(f)
	}
	w.fixturesToRemove = w.fixturesToRemove[:0]

	for _, b := range w.bodiesToRemove {
		if b.world == w {
			w.removeBody(b)
		}
	}
	w.bodiesToRemove = w.bodiesToRemove[:0]

	w.logger.Debug("velcro: flushed world changes",
		slog.Int("bodies_added", added),
		slog.Int("bodies_removed", removed),
		slog.Int("bodies", len(w.bodies)),
		slog.Int("joints", w.jointCount),
	)
}

// Step advances the world by dt seconds: it flushes the queued changes,
// updates the contacts, solves the islands and then the time of impact
// events. dt should not vary from step to step.
func (w *World) Step(dt float64) error {
	if w.IsLocked() {
		return errors.Wrap(ErrWorldLocked, "step")
	}
	if !IsValid(dt) || dt < 0.0 {
		return errors.Wrapf(ErrInvalidTimeStep, "dt %v", dt)
	}

	stepTimer := makeTimer()

	w.Flush()

	// If new fixtures were added, we need to find the new contacts.
	if w.newFixture {
		w.contactManager.FindNewContacts()
		w.newFixture = false
	}

	step := timeStep{
		dt:                 dt,
		dtRatio:            w.invDt0 * dt,
		velocityIterations: w.settings.VelocityIterations,
		positionIterations: w.settings.PositionIterations,
		warmStarting:       w.settings.WarmStarting,
	}
	if dt > 0.0 {
		step.invDt = 1.0 / dt
	}

	// Update contacts. This is where some contacts are destroyed.
	w.phase = PhaseColliding
	{
		t := makeTimer()
		w.contactManager.Collide()
		w.profile.Collide = t.Milliseconds()
	}

	w.phase = PhaseSolving

	// Integrate velocities, solve velocity constraints, and integrate positions.
	if w.stepComplete && step.dt > 0.0 {
		t := makeTimer()
		w.solve(step)
		w.profile.Solve = t.Milliseconds()
	}

	// Handle TOI events.
	if w.settings.ContinuousPhysics && step.dt > 0.0 {
		t := makeTimer()
		w.solveTOI(step)
		w.profile.SolveTOI = t.Milliseconds()
	}

	if step.dt > 0.0 {
		w.invDt0 = step.invDt
	}

	if w.autoClearForces {
		w.ClearForces()
	}

	w.phase = PhaseIdle

	w.profile.Step = stepTimer.Milliseconds()
	return nil
}

// ClearForces zeroes the accumulated forces and torques of all bodies. Step
// calls it unless automatic clearing is disabled.
func (w *World) ClearForces() {
	for _, b := range w.bodies {
		b.force.SetZero()
		b.torque = 0.0
	}
}

// ShiftOrigin moves the world origin. Body positions, joint anchors in
// world space and the broad phase are translated by -newOrigin.
func (w *World) ShiftOrigin(newOrigin Vec2) error {
	if w.IsLocked() {
		return errors.Wrap(ErrWorldLocked, "shift origin")
	}

	for _, b := range w.bodies {
		b.xf.P = b.xf.P.Sub(newOrigin)
		b.sweep.C0 = b.sweep.C0.Sub(newOrigin)
		b.sweep.C = b.sweep.C.Sub(newOrigin)
	}

	for _, j := range w.joints {
		if j != nil {
			j.ShiftOrigin(newOrigin)
		}
	}

	w.contactManager.broadPhase.ShiftOrigin(newOrigin)

	if bounds := w.settings.WorldBounds; bounds != nil {
		shifted := AABB{
			LowerBound: bounds.LowerBound.Sub(newOrigin),
			UpperBound: bounds.UpperBound.Sub(newOrigin),
		}
		w.settings.WorldBounds = &shifted
	}
	return nil
}

// checkBounds disables a body whose fixtures left the world bounds and
// reports it. It returns false when the body was disabled.
func (w *World) checkBounds(b *Body) bool {
	bounds := w.settings.WorldBounds
	if bounds == nil {
		return true
	}

	for _, f := range b.fixtures {
		for i := 0; i < f.proxyCount; i++ {
			if bounds.Contains(f.shape.ComputeAABB(b.xf, i)) {
				continue
			}

			b.flags &^= bodyEnabledFlag
			b.flags |= bodyOutOfBoundsFlag
			b.disableProxies()

			w.logger.Warn("velcro: body left the world bounds",
				slog.Int("body", b.index),
				slog.Float64("x", b.xf.P.X),
				slog.Float64("y", b.xf.P.Y),
			)

			if w.boundaryListener != nil {
				w.boundaryListener.Violation(b)
			}
			return false
		}
	}
	return true
}
