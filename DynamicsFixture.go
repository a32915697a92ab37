package velcro

import "github.com/pkg/errors"

// Filter holds contact filtering data.
type Filter struct {
	// CategoryBits is the collision category of this fixture. Normally only
	// one bit is set.
	CategoryBits uint16

	// MaskBits states the categories this fixture accepts for collision.
	MaskBits uint16

	// GroupIndex overrides the category test. Fixtures sharing a positive
	// group always collide; sharing a negative group they never do.
	GroupIndex int16
}

// DefaultFilter collides with everything.
func DefaultFilter() Filter {
	return Filter{
		CategoryBits: 0x0001,
		MaskBits:     0xFFFF,
		GroupIndex:   0,
	}
}

// FixtureDef is used to create a fixture. The shape is cloned, so a
// definition can be reused.
type FixtureDef struct {
	Shape Shape

	UserData interface{}

	// Friction coefficient, usually in [0, 1].
	Friction float64

	// Restitution (elasticity), usually in [0, 1].
	Restitution float64

	// Density, usually in kg/m^2.
	Density float64

	// A sensor collects contact information but never generates a
	// collision response.
	IsSensor bool

	// Contact filtering data. The zero Filter is replaced by DefaultFilter.
	Filter Filter
}

// DefaultFixtureDef returns a definition with the default friction and
// filter. Shape must still be set.
func DefaultFixtureDef(shape Shape) FixtureDef {
	return FixtureDef{
		Shape:    shape,
		Friction: 0.2,
		Filter:   DefaultFilter(),
	}
}

// FixtureProxy links a fixture child to its broad-phase proxy.
type FixtureProxy struct {
	AABB       AABB
	Fixture    *Fixture
	ChildIndex int
	ProxyID    int
}

// Fixture attaches a shape to a body for collision detection. A fixture
// inherits its transform from its body and is owned by it.
type Fixture struct {
	body  *Body
	shape Shape

	density     float64
	friction    float64
	restitution float64

	proxies    []FixtureProxy
	proxyCount int

	filter   Filter
	isSensor bool

	userData interface{}
}

func newFixture(body *Body, def *FixtureDef) (*Fixture, error) {
	if def.Shape == nil {
		return nil, errors.Wrap(ErrInvalidFixture, "fixture definition has no shape")
	}
	if !IsValid(def.Density) || def.Density < 0.0 {
		return nil, errors.Wrapf(ErrInvalidFixture, "density %v", def.Density)
	}

	filter := def.Filter
	if filter == (Filter{}) {
		filter = DefaultFilter()
	}

	f := &Fixture{
		body:        body,
		shape:       def.Shape.Clone(),
		density:     def.Density,
		friction:    def.Friction,
		restitution: def.Restitution,
		filter:      filter,
		isSensor:    def.IsSensor,
		userData:    def.UserData,
	}

	childCount := f.shape.ChildCount()
	f.proxies = make([]FixtureProxy, childCount)
	for i := range f.proxies {
		f.proxies[i].ProxyID = nullProxy
	}

	return f, nil
}

func (f *Fixture) Type() ShapeType           { return f.shape.Type() }
func (f *Fixture) Shape() Shape              { return f.shape }
func (f *Fixture) Body() *Body               { return f.body }
func (f *Fixture) IsSensor() bool            { return f.isSensor }
func (f *Fixture) FilterData() Filter        { return f.filter }
func (f *Fixture) UserData() interface{}     { return f.userData }
func (f *Fixture) SetUserData(d interface{}) { f.userData = d }
func (f *Fixture) Density() float64          { return f.density }
func (f *Fixture) Friction() float64         { return f.friction }
func (f *Fixture) Restitution() float64      { return f.restitution }

// SetDensity changes the density. Call Body.ResetMassData to update the
// body's mass.
func (f *Fixture) SetDensity(density float64) {
	assert(IsValid(density) && density >= 0.0)
	f.density = density
}

// SetFriction does not change the friction of existing contacts.
func (f *Fixture) SetFriction(friction float64) {
	f.friction = friction
}

// SetRestitution does not change the restitution of existing contacts.
func (f *Fixture) SetRestitution(restitution float64) {
	f.restitution = restitution
}

func (f *Fixture) SetSensor(sensor bool) {
	if sensor != f.isSensor {
		f.body.SetAwake(true)
		f.isSensor = sensor
	}
}

// TestPoint tests a world point for containment in this fixture.
func (f *Fixture) TestPoint(p Vec2) bool {
	return f.shape.TestPoint(f.body.xf, p)
}

func (f *Fixture) RayCast(input RayCastInput, childIndex int) (RayCastOutput, bool) {
	return f.shape.RayCast(input, f.body.xf, childIndex)
}

// MassData computes the mass data of this fixture from its shape and
// density.
func (f *Fixture) MassData() MassData {
	return f.shape.ComputeMass(f.density)
}

// AABB returns the fat AABB of a child proxy. The AABB is only valid while
// the fixture is in the broad phase.
func (f *Fixture) AABB(childIndex int) AABB {
	assert(0 <= childIndex && childIndex < f.proxyCount)
	return f.proxies[childIndex].AABB
}

func (f *Fixture) createProxies(broadPhase *BroadPhase, xf Transform) {
	assert(f.proxyCount == 0)

	// Create proxies in the broad-phase.
	f.proxyCount = f.shape.ChildCount()

	for i := 0; i < f.proxyCount; i++ {
		proxy := &f.proxies[i]
		proxy.AABB = f.shape.ComputeAABB(xf, i)
		proxy.Fixture = f
		proxy.ChildIndex = i
		proxy.ProxyID = broadPhase.CreateProxy(proxy.AABB, proxy)
	}
}

func (f *Fixture) destroyProxies(broadPhase *BroadPhase) {
	for i := 0; i < f.proxyCount; i++ {
		proxy := &f.proxies[i]
		broadPhase.DestroyProxy(proxy.ProxyID)
		proxy.ProxyID = nullProxy
	}

	f.proxyCount = 0
}

// synchronize moves the proxies to cover the motion from transform1 to
// transform2.
func (f *Fixture) synchronize(broadPhase *BroadPhase, transform1, transform2 Transform) {
	if f.proxyCount == 0 {
		return
	}

	displacement := transform2.P.Sub(transform1.P)

	for i := 0; i < f.proxyCount; i++ {
		proxy := &f.proxies[i]

		// Compute an AABB that covers the swept shape (may miss some rotation effect).
		aabb1 := f.shape.ComputeAABB(transform1, proxy.ChildIndex)
		aabb2 := f.shape.ComputeAABB(transform2, proxy.ChildIndex)
		proxy.AABB = aabb1.Combine(aabb2)

		broadPhase.MoveProxy(proxy.ProxyID, proxy.AABB, displacement)
	}
}

// SetFilterData sets the contact filtering data. Existing contacts are
// re-filtered during the next step.
func (f *Fixture) SetFilterData(filter Filter) {
	f.filter = filter
	f.Refilter()
}

// Refilter flags the contacts of this fixture for filtering and touches
// its proxies so new pairs may be created.
func (f *Fixture) Refilter() {
	if f.body == nil || f.body.world == nil {
		return
	}

	w := f.body.world
	for _, edge := range f.body.contactEdges {
		c := w.contactManager.contacts[edge.Contact]
		if c.fixtureA == f || c.fixtureB == f {
			c.FlagForFiltering()
		}
	}

	for i := 0; i < f.proxyCount; i++ {
		w.contactManager.broadPhase.TouchProxy(f.proxies[i].ProxyID)
	}
}
