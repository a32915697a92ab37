package velcro

// DestructionListener is notified when a joint or fixture is destroyed
// implicitly because its body was removed.
type DestructionListener interface {
	SayGoodbyeToFixture(f *Fixture)
	SayGoodbyeToJoint(j Joint)
}

// ContactFilter decides whether two fixtures should collide. Without a
// filter the world uses DefaultContactFilter.
type ContactFilter interface {
	ShouldCollide(fixtureA, fixtureB *Fixture) bool
}

// DefaultContactFilter implements the category, mask and group logic of
// Filter.
type DefaultContactFilter struct{}

// ShouldCollide returns true when the group indices agree and are positive,
// or, without a shared group, when each fixture's mask accepts the other's
// category.
func (DefaultContactFilter) ShouldCollide(fixtureA, fixtureB *Fixture) bool {
	filterA := fixtureA.FilterData()
	filterB := fixtureB.FilterData()

	if filterA.GroupIndex == filterB.GroupIndex && filterA.GroupIndex != 0 {
		return filterA.GroupIndex > 0
	}

	return filterA.MaskBits&filterB.CategoryBits != 0 && filterA.CategoryBits&filterB.MaskBits != 0
}

// ContactImpulse holds the solved impulses of a contact. Reported in
// PostSolve.
type ContactImpulse struct {
	NormalImpulses  [MaxManifoldPoints]float64
	TangentImpulses [MaxManifoldPoints]float64
	Count           int
}

// ContactListener receives contact events. The callbacks run inside Step,
// while the world is locked: bodies, fixtures and joints created or removed
// there are queued until the next Flush.
type ContactListener interface {
	// BeginContact is called when two fixtures begin to touch.
	BeginContact(c *Contact)

	// EndContact is called when two fixtures cease to touch, and when a
	// touching contact is destroyed.
	EndContact(c *Contact)

	// PreSolve is called after collision detection but before the contact
	// is solved. oldManifold is the manifold of the previous step. Calling
	// c.SetEnabled(false) disables the contact for this step only.
	PreSolve(c *Contact, oldManifold *Manifold)

	// PostSolve reports the impulses applied by the solver.
	PostSolve(c *Contact, impulse *ContactImpulse)
}

// BoundaryListener is notified when a body leaves the world bounds. The
// body has already been disabled when Violation runs.
type BoundaryListener interface {
	Violation(b *Body)
}

// QueryCallback is called for each fixture found by QueryAABB. Return false
// to stop the query.
type QueryCallback func(f *Fixture) bool

// RayCastCallback is called for each fixture hit by RayCast. The return
// value controls the ray: -1 ignores this fixture and continues, 0
// terminates, fraction clips the ray to this point and 1 continues without
// clipping.
type RayCastCallback func(f *Fixture, point, normal Vec2, fraction float64) float64
