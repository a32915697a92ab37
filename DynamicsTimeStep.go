package velcro

// Profile holds the duration of the parts of the last step, in milliseconds.
type Profile struct {
	Step          float64
	Collide       float64
	Solve         float64
	SolveInit     float64
	SolveVelocity float64
	SolvePosition float64
	Broadphase    float64
	SolveTOI      float64
}

// timeStep is the per-step solver configuration.
type timeStep struct {
	dt                 float64 // time step
	invDt              float64 // inverse time step (0 if dt == 0)
	dtRatio            float64 // dt * invDt0
	velocityIterations int
	positionIterations int
	warmStarting       bool
}

// position is the solver's copy of a body's center of mass and angle.
type position struct {
	c Vec2
	a float64
}

type velocity struct {
	v Vec2
	w float64
}

// solverData is shared by the contact and joint solvers of one island.
type solverData struct {
	step       timeStep
	positions  []position
	velocities []velocity
}
