package velcro

// ContactManager owns the contact arena and keeps it in sync with the
// broad phase.
type ContactManager struct {
	broadPhase *BroadPhase

	// contacts is the arena; destroyed slots are nil and listed in free.
	contacts     []*Contact
	free         []ContactID
	contactCount int

	contactFilter   ContactFilter
	contactListener ContactListener
}

func makeContactManager() ContactManager {
	return ContactManager{
		broadPhase:    NewBroadPhase(),
		contactFilter: DefaultContactFilter{},
	}
}

// ContactCount returns the number of live contacts.
func (cm *ContactManager) ContactCount() int {
	return cm.contactCount
}

func (cm *ContactManager) allocate(c *Contact) ContactID {
	if n := len(cm.free); n > 0 {
		id := cm.free[n-1]
		cm.free = cm.free[:n-1]
		cm.contacts[id] = c
		c.id = id
		return id
	}

	id := ContactID(len(cm.contacts))
	cm.contacts = append(cm.contacts, c)
	c.id = id
	return id
}

// Destroy removes a contact from the arena and from both bodies. A touching
// contact reports EndContact. A locked contact is only marked and freed at
// the end of the collide pass.
func (cm *ContactManager) Destroy(c *Contact) {
	if c.flags&contactLockedFlag != 0 {
		c.flags |= contactDestroyPendingFlag
		return
	}

	fixtureA := c.fixtureA
	fixtureB := c.fixtureB
	bodyA := fixtureA.body
	bodyB := fixtureB.body

	if cm.contactListener != nil && c.IsTouching() {
		cm.contactListener.EndContact(c)
	}

	// Remove from body A and B.
	bodyA.removeContactEdge(c.id)
	bodyB.removeContactEdge(c.id)

	// Free the slot.
	cm.contacts[c.id] = nil
	cm.free = append(cm.free, c.id)
	cm.contactCount--

	c.flags &^= contactDestroyPendingFlag
}

// Collide is the top level collision call for the time step. Here all the
// narrow phase collision is processed for the world contact list.
func (cm *ContactManager) Collide() {
	for id := range cm.contacts {
		c := cm.contacts[id]
		if c == nil {
			continue
		}

		fixtureA := c.fixtureA
		fixtureB := c.fixtureB
		indexA := c.indexA
		indexB := c.indexB
		bodyA := fixtureA.body
		bodyB := fixtureB.body

		// Is this contact flagged for filtering?
		if c.flags&contactFilterFlag != 0 {
			// Should these bodies collide?
			if !bodyB.ShouldCollide(bodyA) {
				cm.Destroy(c)
				continue
			}

			// Check user filtering.
			if cm.contactFilter != nil && !cm.contactFilter.ShouldCollide(fixtureA, fixtureB) {
				cm.Destroy(c)
				continue
			}

			// Clear the filtering flag.
			c.flags &^= contactFilterFlag
		}

		activeA := bodyA.IsAwake() && bodyA.bodyType != StaticBody
		activeB := bodyB.IsAwake() && bodyB.bodyType != StaticBody

		// At least one body must be awake and it must be dynamic or kinematic.
		if !activeA && !activeB {
			continue
		}

		proxyIDA := fixtureA.proxies[indexA].ProxyID
		proxyIDB := fixtureB.proxies[indexB].ProxyID

		// Here we destroy contacts that cease to overlap in the broad-phase.
		if !cm.broadPhase.TestOverlap(proxyIDA, proxyIDB) {
			cm.Destroy(c)
			continue
		}

		// The contact persists.
		c.flags |= contactLockedFlag
		c.update(cm.contactListener)
		c.flags &^= contactLockedFlag
	}

	cm.sweepPending()
}

// sweepPending frees contacts whose destruction was requested while they
// were locked.
func (cm *ContactManager) sweepPending() {
	for _, c := range cm.contacts {
		if c != nil && c.flags&contactDestroyPendingFlag != 0 {
			c.flags &^= contactLockedFlag
			cm.Destroy(c)
		}
	}
}

// FindNewContacts creates contacts for the new broad-phase pairs.
func (cm *ContactManager) FindNewContacts() {
	cm.broadPhase.UpdatePairs(cm.AddPair)
}

// AddPair is the broad-phase callback. It rejects pairs on the same body,
// pairs that a joint or the filter exclude, and pairs that already have a
// contact.
func (cm *ContactManager) AddPair(proxyUserDataA, proxyUserDataB interface{}) {
	proxyA := proxyUserDataA.(*FixtureProxy)
	proxyB := proxyUserDataB.(*FixtureProxy)

	fixtureA := proxyA.Fixture
	fixtureB := proxyB.Fixture

	indexA := proxyA.ChildIndex
	indexB := proxyB.ChildIndex

	bodyA := fixtureA.body
	bodyB := fixtureB.body

	// Are the fixtures on the same body?
	if bodyA == bodyB {
		return
	}

	// Does a contact already exist?
	for _, edge := range bodyB.contactEdges {
		if edge.Other != bodyA {
			continue
		}

		c := cm.contacts[edge.Contact]
		fA, fB := c.fixtureA, c.fixtureB
		iA, iB := c.indexA, c.indexB

		if fA == fixtureA && fB == fixtureB && iA == indexA && iB == indexB {
			return
		}

		if fA == fixtureB && fB == fixtureA && iA == indexB && iB == indexA {
			return
		}
	}

	// Does a joint override collision? Is at least one body dynamic?
	if !bodyB.ShouldCollide(bodyA) {
		return
	}

	// Check user filtering.
	if cm.contactFilter != nil && !cm.contactFilter.ShouldCollide(fixtureA, fixtureB) {
		return
	}

	c := newContact(fixtureA, indexA, fixtureB, indexB)
	if c == nil {
		return
	}

	// Contact creation may swap fixtures.
	bodyA = c.fixtureA.body
	bodyB = c.fixtureB.body

	id := cm.allocate(c)
	cm.contactCount++

	// Connect to island graph.
	bodyA.contactEdges = append(bodyA.contactEdges, ContactEdge{Other: bodyB, Contact: id})
	bodyB.contactEdges = append(bodyB.contactEdges, ContactEdge{Other: bodyA, Contact: id})

	// Wake up the bodies
	if !c.fixtureA.isSensor && !c.fixtureB.isSensor {
		bodyA.SetAwake(true)
		bodyB.SetAwake(true)
	}
}
