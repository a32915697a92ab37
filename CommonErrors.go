package velcro

import "github.com/pkg/errors"

// Errors returned by the public API. Callers compare with errors.Is; the
// returned values are usually wrapped with context.
var (
	ErrTooManyVertices   = errors.New("velcro: polygon has more vertices than MaxPolygonVertices")
	ErrDegeneratePolygon = errors.New("velcro: polygon is degenerate")
	ErrInvalidChain      = errors.New("velcro: invalid chain vertices")
	ErrInvalidAABB       = errors.New("velcro: AABB lower bound exceeds upper bound")
	ErrWorldLocked       = errors.New("velcro: world is locked during a time step")
	ErrBodyNotInWorld    = errors.New("velcro: body does not belong to this world")
	ErrInvalidBody       = errors.New("velcro: invalid body definition")
	ErrInvalidFixture    = errors.New("velcro: invalid fixture definition")
	ErrFixtureNotOnBody  = errors.New("velcro: fixture does not belong to a body in this world")
	ErrSameBody          = errors.New("velcro: joint connects a body to itself")
	ErrInvalidJoint      = errors.New("velcro: invalid joint definition")
	ErrInvalidSettings   = errors.New("velcro: invalid settings")
	ErrInvalidTimeStep   = errors.New("velcro: invalid time step")
)
