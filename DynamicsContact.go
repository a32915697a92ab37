package velcro

// ContactID is the handle of a contact in the world contact arena. Handles
// are reused after the contact is destroyed.
type ContactID int

const (
	// Used when crawling contact graph when forming islands.
	contactIslandFlag uint32 = 1 << iota

	// Set when the shapes are touching.
	contactTouchingFlag

	// This contact can be disabled (by user).
	contactEnabledFlag

	// This contact needs filtering because a fixture filter was changed.
	contactFilterFlag

	// This bullet contact had a TOI event.
	contactBulletHitFlag

	// This contact has a valid TOI in toi.
	contactTOIFlag

	// The manifold is being evaluated; destruction must wait.
	contactLockedFlag

	// Destroy was requested while locked.
	contactDestroyPendingFlag
)

// evaluateFunc computes the manifold of a contact from the two fixture
// children in world placement.
type evaluateFunc func(manifold *Manifold, fixtureA *Fixture, indexA int, fixtureB *Fixture, indexB int, xfA, xfB Transform)

type contactRegister struct {
	evaluate evaluateFunc
	primary  bool
}

// contactRegisters is the collision dispatch table. A non-primary entry
// means the fixtures are swapped so that the evaluator sees its shape types
// in order.
var contactRegisters [shapeTypeCount][shapeTypeCount]contactRegister

func addContactType(evaluate evaluateFunc, typeA, typeB ShapeType) {
	contactRegisters[typeA][typeB] = contactRegister{evaluate: evaluate, primary: true}

	if typeA != typeB {
		contactRegisters[typeB][typeA] = contactRegister{evaluate: evaluate, primary: false}
	}
}

func init() {
	addContactType(evaluateCircles, ShapeCircle, ShapeCircle)
	addContactType(evaluatePolygonAndCircle, ShapePolygon, ShapeCircle)
	addContactType(evaluatePolygons, ShapePolygon, ShapePolygon)
	addContactType(evaluateEdgeAndCircle, ShapeEdge, ShapeCircle)
	addContactType(evaluateEdgeAndPolygon, ShapeEdge, ShapePolygon)
	addContactType(evaluateChainAndCircle, ShapeChain, ShapeCircle)
	addContactType(evaluateChainAndPolygon, ShapeChain, ShapePolygon)
}

func evaluateCircles(manifold *Manifold, fixtureA *Fixture, _ int, fixtureB *Fixture, _ int, xfA, xfB Transform) {
	CollideCircles(manifold, fixtureA.shape.(*CircleShape), xfA, fixtureB.shape.(*CircleShape), xfB)
}

func evaluatePolygonAndCircle(manifold *Manifold, fixtureA *Fixture, _ int, fixtureB *Fixture, _ int, xfA, xfB Transform) {
	CollidePolygonAndCircle(manifold, fixtureA.shape.(*PolygonShape), xfA, fixtureB.shape.(*CircleShape), xfB)
}

func evaluatePolygons(manifold *Manifold, fixtureA *Fixture, _ int, fixtureB *Fixture, _ int, xfA, xfB Transform) {
	CollidePolygons(manifold, fixtureA.shape.(*PolygonShape), xfA, fixtureB.shape.(*PolygonShape), xfB)
}

func evaluateEdgeAndCircle(manifold *Manifold, fixtureA *Fixture, _ int, fixtureB *Fixture, _ int, xfA, xfB Transform) {
	CollideEdgeAndCircle(manifold, fixtureA.shape.(*EdgeShape), xfA, fixtureB.shape.(*CircleShape), xfB)
}

func evaluateEdgeAndPolygon(manifold *Manifold, fixtureA *Fixture, _ int, fixtureB *Fixture, _ int, xfA, xfB Transform) {
	CollideEdgeAndPolygon(manifold, fixtureA.shape.(*EdgeShape), xfA, fixtureB.shape.(*PolygonShape), xfB)
}

func evaluateChainAndCircle(manifold *Manifold, fixtureA *Fixture, indexA int, fixtureB *Fixture, _ int, xfA, xfB Transform) {
	edge := fixtureA.shape.(*ChainShape).ChildEdge(indexA)
	CollideEdgeAndCircle(manifold, &edge, xfA, fixtureB.shape.(*CircleShape), xfB)
}

func evaluateChainAndPolygon(manifold *Manifold, fixtureA *Fixture, indexA int, fixtureB *Fixture, _ int, xfA, xfB Transform) {
	edge := fixtureA.shape.(*ChainShape).ChildEdge(indexA)
	CollideEdgeAndPolygon(manifold, &edge, xfA, fixtureB.shape.(*PolygonShape), xfB)
}

// Contact manages contact between two shape children. A contact exists for
// each overlapping pair of fat AABBs in the broad phase, unless filtered, so
// a contact may have no contact points.
type Contact struct {
	id    ContactID
	flags uint32

	fixtureA *Fixture
	fixtureB *Fixture

	indexA int
	indexB int

	manifold Manifold

	evaluate evaluateFunc

	toiCount int
	toi      float64

	friction     float64
	restitution  float64
	tangentSpeed float64
}

// newContact creates a contact for the pair, or returns nil when no
// evaluator exists for the shape types.
func newContact(fixtureA *Fixture, indexA int, fixtureB *Fixture, indexB int) *Contact {
	reg := contactRegisters[fixtureA.Type()][fixtureB.Type()]
	if reg.evaluate == nil {
		return nil
	}

	if !reg.primary {
		fixtureA, fixtureB = fixtureB, fixtureA
		indexA, indexB = indexB, indexA
	}

	return &Contact{
		flags:       contactEnabledFlag,
		fixtureA:    fixtureA,
		fixtureB:    fixtureB,
		indexA:      indexA,
		indexB:      indexB,
		evaluate:    reg.evaluate,
		friction:    MixFriction(fixtureA.friction, fixtureB.friction),
		restitution: MixRestitution(fixtureA.restitution, fixtureB.restitution),
	}
}

func (c *Contact) ID() ContactID         { return c.id }
func (c *Contact) FixtureA() *Fixture    { return c.fixtureA }
func (c *Contact) FixtureB() *Fixture    { return c.fixtureB }
func (c *Contact) ChildIndexA() int      { return c.indexA }
func (c *Contact) ChildIndexB() int      { return c.indexB }
func (c *Contact) Manifold() *Manifold   { return &c.manifold }
func (c *Contact) Friction() float64     { return c.friction }
func (c *Contact) Restitution() float64  { return c.restitution }
func (c *Contact) TangentSpeed() float64 { return c.tangentSpeed }

// WorldManifold returns the manifold in world coordinates.
func (c *Contact) WorldManifold() WorldManifold {
	bodyA := c.fixtureA.body
	bodyB := c.fixtureB.body
	shapeA := c.fixtureA.shape
	shapeB := c.fixtureB.shape

	var wm WorldManifold
	wm.Initialize(&c.manifold, bodyA.xf, shapeA.Radius(), bodyB.xf, shapeB.Radius())
	return wm
}

// SetEnabled enables or disables the contact. It can be used inside
// PreSolve; the flag is reset every step.
func (c *Contact) SetEnabled(flag bool) {
	if flag {
		c.flags |= contactEnabledFlag
	} else {
		c.flags &^= contactEnabledFlag
	}
}

func (c *Contact) IsEnabled() bool {
	return c.flags&contactEnabledFlag != 0
}

// IsTouching reports whether the manifold has points, or for sensors,
// whether the shapes overlap.
func (c *Contact) IsTouching() bool {
	return c.flags&contactTouchingFlag != 0
}

// FlagForFiltering makes the contact manager re-run the filters on this
// contact during the next collide pass.
func (c *Contact) FlagForFiltering() {
	c.flags |= contactFilterFlag
}

// SetFriction overrides the mixed friction. It persists for the life of the
// contact.
func (c *Contact) SetFriction(friction float64) {
	c.friction = friction
}

func (c *Contact) ResetFriction() {
	c.friction = MixFriction(c.fixtureA.friction, c.fixtureB.friction)
}

func (c *Contact) SetRestitution(restitution float64) {
	c.restitution = restitution
}

func (c *Contact) ResetRestitution() {
	c.restitution = MixRestitution(c.fixtureA.restitution, c.fixtureB.restitution)
}

// SetTangentSpeed sets the desired tangent speed for a conveyor belt
// behavior, in meters per second.
func (c *Contact) SetTangentSpeed(speed float64) {
	c.tangentSpeed = speed
}

// update re-evaluates the manifold and raises the listener events. Matching
// points carry their impulses from the previous manifold.
func (c *Contact) update(listener ContactListener) {
	oldManifold := c.manifold

	// Re-enable this contact.
	c.flags |= contactEnabledFlag

	touching := false
	wasTouching := c.flags&contactTouchingFlag != 0

	sensorA := c.fixtureA.isSensor
	sensorB := c.fixtureB.isSensor
	sensor := sensorA || sensorB

	bodyA := c.fixtureA.body
	bodyB := c.fixtureB.body
	xfA := bodyA.xf
	xfB := bodyB.xf

	// Is this contact a sensor?
	if sensor {
		shapeA := c.fixtureA.shape
		shapeB := c.fixtureB.shape
		touching = TestOverlap(shapeA, c.indexA, shapeB, c.indexB, xfA, xfB)

		// Sensors don't generate manifolds.
		c.manifold.PointCount = 0
	} else {
		c.evaluate(&c.manifold, c.fixtureA, c.indexA, c.fixtureB, c.indexB, xfA, xfB)
		touching = c.manifold.PointCount > 0

		c.matchImpulses(&oldManifold)

		if touching != wasTouching {
			bodyA.SetAwake(true)
			bodyB.SetAwake(true)
		}
	}

	if touching {
		c.flags |= contactTouchingFlag
	} else {
		c.flags &^= contactTouchingFlag
	}

	if listener == nil {
		return
	}

	if !wasTouching && touching {
		listener.BeginContact(c)
	}

	if wasTouching && !touching {
		listener.EndContact(c)
	}

	if !sensor && touching {
		listener.PreSolve(c, &oldManifold)
	}
}

// matchImpulses warm starts the new manifold: a point whose feature id is
// found in the old manifold takes over its impulses, the others start at
// zero.
func (c *Contact) matchImpulses(oldManifold *Manifold) {
	for i := 0; i < c.manifold.PointCount; i++ {
		mp2 := &c.manifold.Points[i]
		mp2.NormalImpulse = 0.0
		mp2.TangentImpulse = 0.0

		for j := 0; j < oldManifold.PointCount; j++ {
			mp1 := &oldManifold.Points[j]

			if mp1.ID == mp2.ID {
				mp2.NormalImpulse = mp1.NormalImpulse
				mp2.TangentImpulse = mp1.TangentImpulse
				break
			}
		}
	}
}
