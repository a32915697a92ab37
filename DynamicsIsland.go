package velcro

import (
	"math"
)

// island is a set of bodies connected by contacts and joints that is solved
// on its own. Islands are rebuilt every step and reuse their buffers.
type island struct {
	listener ContactListener

	bodies   []*Body
	contacts []*Contact
	joints   []Joint

	positions  []position
	velocities []velocity
}

func newIsland(bodyCapacity, contactCapacity, jointCapacity int, listener ContactListener) *island {
	return &island{
		listener:   listener,
		bodies:     make([]*Body, 0, bodyCapacity),
		contacts:   make([]*Contact, 0, contactCapacity),
		joints:     make([]Joint, 0, jointCapacity),
		positions:  make([]position, 0, bodyCapacity),
		velocities: make([]velocity, 0, bodyCapacity),
	}
}

func (is *island) clear() {
	is.bodies = is.bodies[:0]
	is.contacts = is.contacts[:0]
	is.joints = is.joints[:0]
}

func (is *island) addBody(b *Body) {
	b.islandIndex = len(is.bodies)
	is.bodies = append(is.bodies, b)
}

func (is *island) addContact(c *Contact) {
	is.contacts = append(is.contacts, c)
}

func (is *island) addJoint(j Joint) {
	is.joints = append(is.joints, j)
}

// resizeState sizes the solver buffers to the body count.
func (is *island) resizeState() {
	n := len(is.bodies)
	if cap(is.positions) < n {
		is.positions = make([]position, n)
		is.velocities = make([]velocity, n)
	}
	is.positions = is.positions[:n]
	is.velocities = is.velocities[:n]
}

// integrate moves the solver positions by h, clamping the translation and
// rotation of a single step.
func (is *island) integrate(h float64) {
	for i := range is.bodies {
		c := is.positions[i].c
		a := is.positions[i].a
		v := is.velocities[i].v
		w := is.velocities[i].w

		// Check for large velocities
		translation := v.Mul(h)
		if translation.Dot(translation) > maxTranslationSquared {
			ratio := MaxTranslation / translation.Length()
			v = v.Mul(ratio)
		}

		rotation := h * w
		if rotation*rotation > maxRotationSquared {
			ratio := MaxRotation / math.Abs(rotation)
			w *= ratio
		}

		// Integrate
		c = c.Add(v.Mul(h))
		a += h * w

		is.positions[i] = position{c: c, a: a}
		is.velocities[i] = velocity{v: v, w: w}
	}
}

func (is *island) solve(profile *Profile, step timeStep, gravity Vec2, allowSleep bool) {
	t := makeTimer()

	h := step.dt

	is.resizeState()

	// Integrate velocities and apply damping. Initialize the body state.
	for i, b := range is.bodies {
		c := b.sweep.C
		a := b.sweep.A
		v := b.linearVelocity
		w := b.angularVelocity

		// Store positions for continuous collision.
		b.sweep.C0 = b.sweep.C
		b.sweep.A0 = b.sweep.A

		if b.bodyType == DynamicBody {
			// Integrate velocities.
			v = v.Add(gravity.Mul(b.gravityScale).Add(b.force.Mul(b.invMass)).Mul(h))
			w += h * b.invI * b.torque

			// Apply damping.
			// ODE: dv/dt + c * v = 0
			// Solution: v(t) = v0 * exp(-c * t)
			// Time step: v(t + dt) = v0 * exp(-c * (t + dt)) = v0 * exp(-c * t) * exp(-c * dt) = v * exp(-c * dt)
			// v2 = exp(-c * dt) * v1
			// Pade approximation:
			// v2 = v1 * 1 / (1 + c * dt)
			v = v.Mul(1.0 / (1.0 + h*b.linearDamping))
			w *= 1.0 / (1.0 + h*b.angularDamping)
		}

		is.positions[i] = position{c: c, a: a}
		is.velocities[i] = velocity{v: v, w: w}
	}

	t.Reset()

	data := &solverData{
		step:       step,
		positions:  is.positions,
		velocities: is.velocities,
	}

	// Initialize velocity constraints.
	solver := newContactSolver(step, is.contacts, is.positions, is.velocities)
	solver.initializeVelocityConstraints()

	if step.warmStarting {
		solver.warmStart()
	}

	for _, j := range is.joints {
		j.initVelocityConstraints(data)
	}

	profile.SolveInit += t.Milliseconds()

	// Solve velocity constraints
	t.Reset()
	for i := 0; i < step.velocityIterations; i++ {
		for _, j := range is.joints {
			j.solveVelocityConstraints(data)
		}

		solver.solveVelocityConstraints()
	}

	// Store impulses for warm starting
	solver.storeImpulses()
	profile.SolveVelocity += t.Milliseconds()

	is.integrate(h)

	// Solve position constraints
	t.Reset()
	positionSolved := false
	for i := 0; i < step.positionIterations; i++ {
		contactsOkay := solver.solvePositionConstraints()

		jointsOkay := true
		for _, j := range is.joints {
			jointOkay := j.solvePositionConstraints(data)
			jointsOkay = jointsOkay && jointOkay
		}

		if contactsOkay && jointsOkay {
			// Exit early if the position errors are small.
			positionSolved = true
			break
		}
	}

	// Copy state buffers back to the bodies
	for i, b := range is.bodies {
		b.sweep.C = is.positions[i].c
		b.sweep.A = is.positions[i].a
		b.linearVelocity = is.velocities[i].v
		b.angularVelocity = is.velocities[i].w
		b.synchronizeTransform()
	}

	profile.SolvePosition += t.Milliseconds()

	is.report(solver.velocityConstraints)

	if !allowSleep {
		return
	}

	minSleepTime := maxFloat

	linTolSqr := LinearSleepTolerance * LinearSleepTolerance
	angTolSqr := AngularSleepTolerance * AngularSleepTolerance

	for _, b := range is.bodies {
		if b.bodyType == StaticBody {
			continue
		}

		if b.flags&bodyAutoSleepFlag == 0 ||
			b.angularVelocity*b.angularVelocity > angTolSqr ||
			b.linearVelocity.Dot(b.linearVelocity) > linTolSqr {
			b.sleepTime = 0.0
			minSleepTime = 0.0
		} else {
			b.sleepTime += h
			minSleepTime = math.Min(minSleepTime, b.sleepTime)
		}
	}

	if minSleepTime >= TimeToSleep && positionSolved {
		for _, b := range is.bodies {
			b.SetAwake(false)
		}
	}
}

// solveTOI resolves the time of impact event between the bodies at
// toiIndexA and toiIndexB, then integrates the island over the rest of the
// sub-step. Joints are not solved.
func (is *island) solveTOI(subStep timeStep, toiIndexA, toiIndexB int) {
	assert(toiIndexA < len(is.bodies))
	assert(toiIndexB < len(is.bodies))

	is.resizeState()

	// Initialize the body state.
	for i, b := range is.bodies {
		is.positions[i] = position{c: b.sweep.C, a: b.sweep.A}
		is.velocities[i] = velocity{v: b.linearVelocity, w: b.angularVelocity}
	}

	solver := newContactSolver(subStep, is.contacts, is.positions, is.velocities)

	// Solve position constraints.
	for i := 0; i < subStep.positionIterations; i++ {
		if solver.solveTOIPositionConstraints(toiIndexA, toiIndexB) {
			break
		}
	}

	// Leap of faith to new safe state.
	is.bodies[toiIndexA].sweep.C0 = is.positions[toiIndexA].c
	is.bodies[toiIndexA].sweep.A0 = is.positions[toiIndexA].a
	is.bodies[toiIndexB].sweep.C0 = is.positions[toiIndexB].c
	is.bodies[toiIndexB].sweep.A0 = is.positions[toiIndexB].a

	// No warm starting is needed for TOI events because warm
	// starting impulses were applied in the discrete solver.
	solver.initializeVelocityConstraints()

	// Solve velocity constraints.
	for i := 0; i < subStep.velocityIterations; i++ {
		solver.solveVelocityConstraints()
	}

	// Don't store the TOI contact forces for warm starting
	// because they can be quite large.

	is.integrate(subStep.dt)

	// Sync bodies
	for i, b := range is.bodies {
		b.sweep.C = is.positions[i].c
		b.sweep.A = is.positions[i].a
		b.linearVelocity = is.velocities[i].v
		b.angularVelocity = is.velocities[i].w
		b.synchronizeTransform()
	}

	is.report(solver.velocityConstraints)
}

// report hands the solved impulses of each contact to PostSolve.
func (is *island) report(constraints []contactVelocityConstraint) {
	if is.listener == nil {
		return
	}

	for i, c := range is.contacts {
		vc := &constraints[i]

		impulse := ContactImpulse{Count: vc.pointCount}
		for j := 0; j < vc.pointCount; j++ {
			impulse.NormalImpulses[j] = vc.points[j].normalImpulse
			impulse.TangentImpulses[j] = vc.points[j].tangentImpulse
		}

		is.listener.PostSolve(c, &impulse)
	}
}
