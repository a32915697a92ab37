package velcro

import (
	"log/slog"
	"math"
)

// solve builds the islands of awake bodies and solves each one, then moves
// the proxies of the bodies that were simulated.
func (w *World) solve(step timeStep) {
	w.profile.SolveInit = 0.0
	w.profile.SolveVelocity = 0.0
	w.profile.SolvePosition = 0.0

	// Size the island for the worst case.
	if w.island == nil {
		w.island = newIsland(len(w.bodies), w.contactManager.contactCount, w.jointCount, nil)
	}
	is := w.island
	is.listener = w.contactManager.contactListener

	// Clear all the island flags.
	for _, b := range w.bodies {
		b.flags &^= bodyIslandFlag
	}
	for _, c := range w.contactManager.contacts {
		if c != nil {
			c.flags &^= contactIslandFlag
		}
	}
	for _, j := range w.joints {
		if j != nil {
			j.base().islandFlag = false
		}
	}

	// Build and simulate all awake islands.
	stack := make([]*Body, 0, len(w.bodies))

	for _, seed := range w.bodies {
		if seed.flags&bodyIslandFlag != 0 {
			continue
		}

		if !seed.IsAwake() || !seed.IsEnabled() {
			continue
		}

		// The seed can be dynamic or kinematic.
		if seed.bodyType == StaticBody {
			continue
		}

		// Reset island and stack.
		is.clear()
		stack = append(stack[:0], seed)
		seed.flags |= bodyIslandFlag

		// Perform a depth first search (DFS) on the constraint graph.
		for len(stack) > 0 {
			// Grab the next body off the stack and add it to the island.
			b := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			assert(b.IsEnabled())
			is.addBody(b)

			// Make sure the body is awake (without resetting sleep timer).
			b.flags |= bodyAwakeFlag

			// To keep islands as small as possible, we don't
			// propagate islands across static bodies.
			if b.bodyType == StaticBody {
				continue
			}

			// Search all contacts connected to this body.
			for _, ce := range b.contactEdges {
				c := w.contactManager.contacts[ce.Contact]

				// Has this contact already been added to an island?
				if c.flags&contactIslandFlag != 0 {
					continue
				}

				// Is this contact solid and touching?
				if !c.IsEnabled() || !c.IsTouching() {
					continue
				}

				// Skip sensors.
				if c.fixtureA.isSensor || c.fixtureB.isSensor {
					continue
				}

				is.addContact(c)
				c.flags |= contactIslandFlag

				other := ce.Other

				// Was the other body already added to this island?
				if other.flags&bodyIslandFlag != 0 {
					continue
				}

				stack = append(stack, other)
				other.flags |= bodyIslandFlag
			}

			// Search all joints connect to this body.
			for _, je := range b.jointEdges {
				j := w.joints[je.Joint]
				base := j.base()
				if base.islandFlag {
					continue
				}

				other := je.Other

				// Don't simulate joints connected to disabled bodies.
				if !other.IsEnabled() {
					continue
				}

				is.addJoint(j)
				base.islandFlag = true

				if other.flags&bodyIslandFlag != 0 {
					continue
				}

				stack = append(stack, other)
				other.flags |= bodyIslandFlag
			}
		}

		is.solve(&w.profile, step, w.settings.Gravity, w.settings.AllowSleep)

		// Post solve cleanup.
		for _, b := range is.bodies {
			// Allow static bodies to participate in other islands.
			if b.bodyType == StaticBody {
				b.flags &^= bodyIslandFlag
			}
		}
	}

	t := makeTimer()

	// Synchronize fixtures, check for out of range bodies.
	for _, b := range w.bodies {
		// If a body was not in an island then it did not move.
		if b.flags&bodyIslandFlag == 0 {
			continue
		}

		if b.bodyType == StaticBody {
			continue
		}

		// Update fixtures (for broad-phase).
		b.synchronizeFixtures()
		w.checkBounds(b)
	}

	// Look for new contacts.
	w.contactManager.FindNewContacts()
	w.profile.Broadphase = t.Milliseconds()
}

// computeTOI returns the cached time of impact of a contact or computes
// it. ok is false for contacts that take no part in continuous collision.
func (w *World) computeTOI(c *Contact) (alpha float64, ok bool) {
	if c.flags&contactTOIFlag != 0 {
		// This contact has a valid cached TOI.
		return c.toi, true
	}

	fA := c.fixtureA
	fB := c.fixtureB

	// Is there a sensor?
	if fA.isSensor || fB.isSensor {
		return 1.0, false
	}

	bA := fA.body
	bB := fB.body

	typeA := bA.bodyType
	typeB := bB.bodyType
	assert(typeA == DynamicBody || typeB == DynamicBody)

	activeA := bA.IsAwake() && typeA != StaticBody
	activeB := bB.IsAwake() && typeB != StaticBody

	// Is at least one body active (awake and dynamic or kinematic)?
	if !activeA && !activeB {
		return 1.0, false
	}

	collideA := bA.IsBullet() || typeA != DynamicBody
	collideB := bB.IsBullet() || typeB != DynamicBody

	// Are these two non-bullet dynamic bodies?
	if !collideA && !collideB {
		return 1.0, false
	}

	// Compute the TOI for this contact.
	// Put the sweeps onto the same time interval.
	alpha0 := bA.sweep.Alpha0

	if bA.sweep.Alpha0 < bB.sweep.Alpha0 {
		alpha0 = bB.sweep.Alpha0
		bA.sweep.Advance(alpha0)
	} else if bB.sweep.Alpha0 < bA.sweep.Alpha0 {
		alpha0 = bA.sweep.Alpha0
		bB.sweep.Advance(alpha0)
	}

	assert(alpha0 < 1.0)

	// Compute the time of impact in interval [0, minTOI]
	output := TimeOfImpact(TOIInput{
		ProxyA: MakeDistanceProxy(fA.shape, c.indexA),
		ProxyB: MakeDistanceProxy(fB.shape, c.indexB),
		SweepA: bA.sweep,
		SweepB: bB.sweep,
		TMax:   1.0,
	})

	// Beta is the fraction of the remaining portion of the sweep.
	beta := output.T
	alpha = 1.0
	if output.State == TOIStateTouching {
		alpha = math.Min(alpha0+(1.0-alpha0)*beta, 1.0)
	}

	c.toi = alpha
	c.flags |= contactTOIFlag
	return alpha, true
}

// solveTOI finds the earliest time of impact events and solves them one at
// a time. Each event advances the two bodies to the impact, solves a small
// island around them and integrates the rest of the step.
func (w *World) solveTOI(step timeStep) {
	is := newIsland(2*MaxTOIContacts, MaxTOIContacts, 0, w.contactManager.contactListener)
	listener := w.contactManager.contactListener

	if w.stepComplete {
		for _, b := range w.bodies {
			b.flags &^= bodyIslandFlag
			b.sweep.Alpha0 = 0.0
		}

		for _, c := range w.contactManager.contacts {
			if c == nil {
				continue
			}

			// Invalidate TOI
			c.flags &^= contactTOIFlag | contactIslandFlag
			c.toiCount = 0
			c.toi = 1.0
		}
	}

	// Find TOI events and solve them.
	for {
		// Find the first TOI.
		var minContact *Contact
		minAlpha := 1.0
		exhausted := 0

		for _, c := range w.contactManager.contacts {
			if c == nil {
				continue
			}

			// Is this contact disabled?
			if !c.IsEnabled() {
				continue
			}

			// Prevent excessive sub-stepping.
			if c.toiCount > MaxSubSteps {
				exhausted++
				continue
			}

			alpha, ok := w.computeTOI(c)
			if !ok {
				continue
			}

			if alpha < minAlpha {
				// This is the minimum TOI found so far.
				minContact = c
				minAlpha = alpha
			}
		}

		if minContact == nil || 1.0-10.0*epsilon < minAlpha {
			// No more TOI events. Done!
			if exhausted > 0 {
				w.logger.Debug("velcro: contacts reached the sub-step limit",
					slog.Int("contacts", exhausted),
					slog.Int("max_sub_steps", MaxSubSteps),
				)
			}
			w.stepComplete = true
			break
		}

		// Advance the bodies to the TOI.
		fA := minContact.fixtureA
		fB := minContact.fixtureB
		bA := fA.body
		bB := fB.body

		backup1 := bA.sweep
		backup2 := bB.sweep

		bA.advance(minAlpha)
		bB.advance(minAlpha)

		// The TOI contact likely has some new contact points.
		minContact.update(listener)
		minContact.flags &^= contactTOIFlag
		minContact.toiCount++

		// Is the contact solid?
		if !minContact.IsEnabled() || !minContact.IsTouching() {
			// Restore the sweeps.
			minContact.SetEnabled(false)
			bA.sweep = backup1
			bB.sweep = backup2
			bA.synchronizeTransform()
			bB.synchronizeTransform()
			continue
		}

		bA.SetAwake(true)
		bB.SetAwake(true)

		// Build the island
		is.clear()
		is.addBody(bA)
		is.addBody(bB)
		is.addContact(minContact)

		bA.flags |= bodyIslandFlag
		bB.flags |= bodyIslandFlag
		minContact.flags |= contactIslandFlag

		// Get contacts on bodyA and bodyB.
		for _, body := range [2]*Body{bA, bB} {
			if body.bodyType == DynamicBody {
				w.addTOINeighbours(is, body, minAlpha)
			}
		}

		subStep := timeStep{
			dt:                 (1.0 - minAlpha) * step.dt,
			dtRatio:            1.0,
			positionIterations: TOIPositionIterations,
			velocityIterations: step.velocityIterations,
			warmStarting:       false,
		}
		subStep.invDt = 1.0 / subStep.dt
		is.solveTOI(subStep, bA.islandIndex, bB.islandIndex)

		// Reset island flags and synchronize broad-phase proxies.
		for _, body := range is.bodies {
			body.flags &^= bodyIslandFlag

			if body.bodyType != DynamicBody {
				continue
			}

			body.synchronizeFixtures()

			// Invalidate all contact TOIs on this displaced body.
			for _, ce := range body.contactEdges {
				c := w.contactManager.contacts[ce.Contact]
				c.flags &^= contactTOIFlag | contactIslandFlag
			}
		}

		// Commit fixture proxy movements to the broad-phase so that new contacts are created.
		// Also, some contacts can be destroyed.
		w.contactManager.FindNewContacts()

		if w.settings.SubStepping {
			w.stepComplete = false
			break
		}
	}
}

// addTOINeighbours adds the touching contacts of body to the island. Only
// static, kinematic and bullet neighbours are added; they are advanced to
// alpha first.
func (w *World) addTOINeighbours(is *island, body *Body, alpha float64) {
	listener := w.contactManager.contactListener

	for _, ce := range body.contactEdges {
		if len(is.bodies) == cap(is.bodies) || len(is.contacts) == cap(is.contacts) {
			break
		}

		c := w.contactManager.contacts[ce.Contact]

		// Has this contact already been added to the island?
		if c.flags&contactIslandFlag != 0 {
			continue
		}

		// Only add static, kinematic, or bullet bodies.
		other := ce.Other
		if other.bodyType == DynamicBody && !body.IsBullet() && !other.IsBullet() {
			continue
		}

		// Skip sensors.
		if c.fixtureA.isSensor || c.fixtureB.isSensor {
			continue
		}

		// Tentatively advance the body to the TOI.
		backup := other.sweep
		if other.flags&bodyIslandFlag == 0 {
			other.advance(alpha)
		}

		// Update the contact points
		c.update(listener)

		// Was the contact disabled by the user? Are there contact points?
		if !c.IsEnabled() || !c.IsTouching() {
			other.sweep = backup
			other.synchronizeTransform()
			continue
		}

		// Add the contact to the island
		c.flags |= contactIslandFlag
		is.addContact(c)

		// Has the other body already been added to the island?
		if other.flags&bodyIslandFlag != 0 {
			continue
		}

		// Add the other body to the island.
		other.flags |= bodyIslandFlag

		if other.bodyType != StaticBody {
			other.SetAwake(true)
		}

		is.addBody(other)
	}
}
