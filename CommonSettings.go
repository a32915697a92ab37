package velcro

import "math"

// assert panics when an internal invariant is broken. Caller mistakes are
// reported through errors instead.
func assert(ok bool) {
	if !ok {
		panic("velcro: invariant violated")
	}
}

const maxFloat = math.MaxFloat64

// epsilon is the machine epsilon of float64.
const epsilon = 2.220446049250313e-16

// Global tuning constants based on meters-kilograms-seconds (MKS) units.

// Collision

// MaxManifoldPoints is the maximum number of contact points between two
// convex shapes.
const MaxManifoldPoints = 2

// MaxPolygonVertices is the maximum number of vertices on a convex polygon.
const MaxPolygonVertices = 8

// AABBExtension fattens AABBs in the dynamic tree so proxies can move a small
// amount without triggering a tree adjustment. In meters.
const AABBExtension = 0.1

// AABBMultiplier predicts future position from the current displacement when
// fattening tree AABBs.
const AABBMultiplier = 2.0

// LinearSlop is a small length used as a collision and constraint tolerance.
const LinearSlop = 0.005

// AngularSlop is a small angle used as a collision and constraint tolerance.
const AngularSlop = 2.0 / 180.0 * math.Pi

// PolygonRadius is the skin radius of polygon and edge shapes.
const PolygonRadius = 2.0 * LinearSlop

// MaxSubSteps is the maximum number of sub-steps per contact in continuous
// physics simulation.
const MaxSubSteps = 8

// Dynamics

// MaxTOIContacts is the maximum number of contacts handled when solving a
// time of impact island.
const MaxTOIContacts = 32

// VelocityThreshold: collisions slower than this are treated as inelastic.
const VelocityThreshold = 1.0

// MaxLinearCorrection limits a single position correction step.
const MaxLinearCorrection = 0.2

// MaxAngularCorrection limits a single angular position correction step.
const MaxAngularCorrection = 8.0 / 180.0 * math.Pi

// MaxTranslation is the maximum distance a body may move in one step.
const MaxTranslation = 2.0
const maxTranslationSquared = MaxTranslation * MaxTranslation

// MaxRotation is the maximum angle a body may turn in one step.
const MaxRotation = 0.5 * math.Pi
const maxRotationSquared = MaxRotation * MaxRotation

// Baumgarte controls how fast overlap is resolved.
const Baumgarte = 0.2
const TOIBaumgarte = 0.75

// Sleep

// TimeToSleep is the time a body must be still before it will sleep.
const TimeToSleep = 0.5

// LinearSleepTolerance: a body cannot sleep if its linear velocity is above this.
const LinearSleepTolerance = 0.01

// AngularSleepTolerance: a body cannot sleep if its angular velocity is above this.
const AngularSleepTolerance = 2.0 / 180.0 * math.Pi

// TOIPositionIterations is the number of position iterations in a time of
// impact sub-step.
const TOIPositionIterations = 20

// MixFriction uses the geometric mean so that a zero friction surface
// always slides.
func MixFriction(friction1, friction2 float64) float64 {
	return math.Sqrt(friction1 * friction2)
}

// MixRestitution lets anything bounce off an inelastic surface.
func MixRestitution(restitution1, restitution2 float64) float64 {
	return math.Max(restitution1, restitution2)
}
