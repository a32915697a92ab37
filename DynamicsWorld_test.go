package velcro

import (
	"math"
	"testing"

	"github.com/pkg/errors"
)

const testDt = 1.0 / 60.0

// contactRecorder is a ContactListener with optional hooks.
type contactRecorder struct {
	begin, end int

	onBegin     func(c *Contact)
	onPreSolve  func(c *Contact, oldManifold *Manifold)
	onPostSolve func(c *Contact, impulse *ContactImpulse)
}

func (r *contactRecorder) BeginContact(c *Contact) {
	r.begin++
	if r.onBegin != nil {
		r.onBegin(c)
	}
}

func (r *contactRecorder) EndContact(c *Contact) { r.end++ }

func (r *contactRecorder) PreSolve(c *Contact, oldManifold *Manifold) {
	if r.onPreSolve != nil {
		r.onPreSolve(c, oldManifold)
	}
}

func (r *contactRecorder) PostSolve(c *Contact, impulse *ContactImpulse) {
	if r.onPostSolve != nil {
		r.onPostSolve(c, impulse)
	}
}

type boundaryRecorder struct {
	bodies []*Body
}

func (r *boundaryRecorder) Violation(b *Body) {
	r.bodies = append(r.bodies, b)
}

type goodbyeRecorder struct {
	fixtures, joints int
}

func (r *goodbyeRecorder) SayGoodbyeToFixture(f *Fixture) { r.fixtures++ }
func (r *goodbyeRecorder) SayGoodbyeToJoint(j Joint)      { r.joints++ }

func mustBody(t *testing.T, w *World, bodyType BodyType, position Vec2) *Body {
	t.Helper()
	def := DefaultBodyDef()
	def.Type = bodyType
	def.Position = position
	b, err := w.CreateBody(&def)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func mustFixture(t *testing.T, b *Body, shape Shape, density float64) *Fixture {
	t.Helper()
	f, err := b.CreateFixtureFromShape(shape, density)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

// groundWorld returns a world with a wide static box whose top face is y = 0.
func groundWorld(t *testing.T) (*World, *Body) {
	t.Helper()
	w := NewWorld(MakeVec2(0, -10))
	ground := mustBody(t, w, StaticBody, MakeVec2(0, -0.5))
	mustFixture(t, ground, NewBoxShape(50, 0.5), 0.0)
	return w, ground
}

func stepN(t *testing.T, w *World, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := w.Step(testDt); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestStepRejectsBadTimeStep(t *testing.T) {
	w := NewWorld(MakeVec2(0, -10))
	for _, dt := range []float64{-1.0, math.NaN(), math.Inf(1)} {
		if err := w.Step(dt); !errors.Is(err, ErrInvalidTimeStep) {
			t.Errorf("dt %v: got %v", dt, err)
		}
	}
	if err := w.Step(0.0); err != nil {
		t.Fatalf("zero step: %v", err)
	}
}

func TestCreateBodyIsDeferred(t *testing.T) {
	w := NewWorld(MakeVec2(0, -10))
	b := mustBody(t, w, DynamicBody, Vec2{})
	mustFixture(t, b, NewCircleShape(Vec2{}, 0.5), 1.0)

	if w.BodyCount() != 0 || w.ProxyCount() != 0 {
		t.Fatalf("body joined before flush: %d bodies %d proxies", w.BodyCount(), w.ProxyCount())
	}

	w.Flush()
	if w.BodyCount() != 1 || w.ProxyCount() != 1 {
		t.Fatalf("after flush: %d bodies %d proxies", w.BodyCount(), w.ProxyCount())
	}

	// A body removed before it joins is never added.
	pending := mustBody(t, w, DynamicBody, Vec2{})
	if err := w.RemoveBody(pending); err != nil {
		t.Fatal(err)
	}
	w.Flush()
	if w.BodyCount() != 1 {
		t.Fatalf("pending body was added: %d bodies", w.BodyCount())
	}
	if err := w.RemoveBody(pending); !errors.Is(err, ErrBodyNotInWorld) {
		t.Fatalf("second removal: %v", err)
	}
}

func TestStaticBodiesDoNotCollide(t *testing.T) {
	w := NewWorld(MakeVec2(0, -10))
	a := mustBody(t, w, StaticBody, Vec2{})
	b := mustBody(t, w, StaticBody, MakeVec2(0.5, 0))
	mustFixture(t, a, NewBoxShape(1, 1), 0.0)
	mustFixture(t, b, NewBoxShape(1, 1), 0.0)

	stepN(t, w, 2)
	if w.ContactCount() != 0 {
		t.Fatalf("static pair has %d contacts", w.ContactCount())
	}
}

func TestFallingBoxComesToRest(t *testing.T) {
	w, _ := groundWorld(t)
	box := mustBody(t, w, DynamicBody, MakeVec2(0, 4))
	mustFixture(t, box, NewBoxShape(0.5, 0.5), 1.0)

	stepN(t, w, 300)

	if box.IsAwake() {
		t.Fatal("resting box is still awake")
	}
	// Resting contacts keep the polygon skins overlapping by about LinearSlop.
	if y := box.Position().Y; y < 0.5 || y > 0.5+2.0*PolygonRadius {
		t.Fatalf("box rests at y = %v", y)
	}

	box.ApplyLinearImpulseToCenter(MakeVec2(1, 0), true)
	if !box.IsAwake() {
		t.Fatal("impulse did not wake the box")
	}

	// A sleeping body ignores impulses that do not wake it.
	stepN(t, w, 300)
	box.ApplyLinearImpulseToCenter(MakeVec2(5, 0), false)
	if box.LinearVelocity() != (Vec2{}) {
		t.Fatalf("sleeping box picked up velocity %v", box.LinearVelocity())
	}

	w.SetAllowSleeping(false)
	if !box.IsAwake() {
		t.Fatal("disabling sleep did not wake the box")
	}
}

func TestBoxDroppedFromHeightRests(t *testing.T) {
	w, _ := groundWorld(t)
	box := mustBody(t, w, DynamicBody, MakeVec2(0, 10))
	mustFixture(t, box, NewBoxShape(0.5, 0.5), 1.0)

	stepN(t, w, 600)

	if box.IsAwake() {
		t.Fatal("box is still awake")
	}
	if y := box.Position().Y; y < 0.5 || y > 0.5+2.0*PolygonRadius {
		t.Fatalf("box rests at y = %v", y)
	}
	if box.LinearVelocity() != (Vec2{}) || box.AngularVelocity() != 0.0 {
		t.Fatalf("sleeping box moves: %v %v", box.LinearVelocity(), box.AngularVelocity())
	}
}

func TestStackSleepsAndWakes(t *testing.T) {
	w, _ := groundWorld(t)

	stack := make([]*Body, 5)
	for i := range stack {
		stack[i] = mustBody(t, w, DynamicBody, MakeVec2(0, 0.5+float64(i)))
		mustFixture(t, stack[i], NewBoxShape(0.5, 0.5), 1.0)
	}

	stepN(t, w, 600)

	for i, b := range stack {
		if b.IsAwake() {
			t.Fatalf("box %d is still awake", i)
		}
		if b.LinearVelocity() != (Vec2{}) || b.AngularVelocity() != 0.0 {
			t.Fatalf("box %d moves: %v %v", i, b.LinearVelocity(), b.AngularVelocity())
		}
	}

	// Pushing the top box wakes the whole stack through its contacts.
	stack[4].ApplyForceToCenter(MakeVec2(10, 0), true)
	stepN(t, w, 1)

	for i, b := range stack {
		if !b.IsAwake() {
			t.Fatalf("box %d slept through the push", i)
		}
	}
}

func TestApplyResetsSleepTimer(t *testing.T) {
	w := NewWorld(Vec2{})
	b := mustBody(t, w, DynamicBody, Vec2{})
	mustFixture(t, b, NewBoxShape(0.5, 0.5), 1.0)
	w.Flush()

	tests := []struct {
		name  string
		apply func()
	}{
		{"force", func() { b.ApplyForce(MakeVec2(0, 1), MakeVec2(1, 0), false) }},
		{"force to center", func() { b.ApplyForceToCenter(MakeVec2(0, 1), false) }},
		{"torque", func() { b.ApplyTorque(1, false) }},
		{"linear impulse", func() { b.ApplyLinearImpulse(MakeVec2(0, 1), MakeVec2(1, 0), false) }},
		{"linear impulse to center", func() { b.ApplyLinearImpulseToCenter(MakeVec2(0, 1), false) }},
		{"angular impulse", func() { b.ApplyAngularImpulse(1, false) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b.sleepTime = 0.4
			tt.apply()
			if b.sleepTime != 0.0 {
				t.Fatalf("sleep time %v", b.sleepTime)
			}
		})
	}
}

func TestZeroFilterCollides(t *testing.T) {
	w, ground := groundWorld(t)
	box := mustBody(t, w, DynamicBody, MakeVec2(0, 2))
	w.Flush()

	f, err := w.CreateFixture(box, &FixtureDef{Shape: NewBoxShape(0.5, 0.5), Density: 1.0})
	if err != nil {
		t.Fatal(err)
	}
	if f.FilterData() != DefaultFilter() {
		t.Fatalf("filter %+v", f.FilterData())
	}

	stepN(t, w, 120)

	if y := box.Position().Y; y < 0.5-LinearSlop {
		t.Fatalf("box fell through the ground to y = %v", y)
	}
	if !(DefaultContactFilter{}).ShouldCollide(f, ground.Fixtures()[0]) {
		t.Fatal("default filter rejects the pair")
	}
}

func TestLockedWorld(t *testing.T) {
	w, ground := groundWorld(t)
	box := mustBody(t, w, DynamicBody, MakeVec2(0, 0.49))
	mustFixture(t, box, NewBoxShape(0.5, 0.5), 1.0)

	var (
		phase        Phase
		fixtureErr   error
		stepErr      error
		transformErr error
		removeErr    error
		created      *Body
	)

	w.SetContactListener(&contactRecorder{onBegin: func(c *Contact) {
		phase = w.Phase()
		_, fixtureErr = w.CreateFixture(ground, &FixtureDef{Shape: NewCircleShape(Vec2{}, 1)})
		stepErr = w.Step(testDt)
		transformErr = box.SetTransform(MakeVec2(5, 5), 0)
		removeErr = w.RemoveBody(box)

		def := DefaultBodyDef()
		created, _ = w.CreateBody(&def)
	}})

	stepN(t, w, 1)

	if phase != PhaseColliding {
		t.Fatalf("listener ran in phase %v", phase)
	}
	for name, err := range map[string]error{"fixture": fixtureErr, "step": stepErr, "transform": transformErr} {
		if !errors.Is(err, ErrWorldLocked) {
			t.Errorf("%s: got %v, want locked", name, err)
		}
	}
	if removeErr != nil {
		t.Fatalf("queued removal: %v", removeErr)
	}
	if created == nil {
		t.Fatal("body creation failed while locked")
	}

	// The queued changes wait for the next flush.
	if w.BodyCount() != 2 || box.World() != w {
		t.Fatalf("queued changes applied early: %d bodies", w.BodyCount())
	}

	w.Flush()
	if w.BodyCount() != 2 || box.World() != nil {
		t.Fatalf("after flush: %d bodies, box world %v", w.BodyCount(), box.World())
	}
	if w.ContactCount() != 0 {
		t.Fatalf("removed body left %d contacts", w.ContactCount())
	}
	if len(ground.ContactEdges()) != 0 {
		t.Fatal("ground still has contact edges")
	}
}

func TestContactDestroyedInsideCallback(t *testing.T) {
	w, ground := groundWorld(t)
	box := mustBody(t, w, DynamicBody, MakeVec2(0, 0.49))
	mustFixture(t, box, NewBoxShape(0.5, 0.5), 1.0)

	recorder := &contactRecorder{}
	recorder.onBegin = func(c *Contact) {
		w.contactManager.Destroy(c)
		if w.contactManager.contacts[c.id] != c {
			t.Error("locked contact was freed immediately")
		}
	}
	w.SetContactListener(recorder)

	stepN(t, w, 1)

	if recorder.begin != 1 || recorder.end != 1 {
		t.Fatalf("begin %d end %d", recorder.begin, recorder.end)
	}
	if w.ContactCount() != 0 {
		t.Fatalf("%d contacts survive", w.ContactCount())
	}
	if len(ground.ContactEdges()) != 0 || len(box.ContactEdges()) != 0 {
		t.Fatal("contact edges survive")
	}
}

func TestWarmStartImpulsesPersist(t *testing.T) {
	w, _ := groundWorld(t)
	w.SetAllowSleeping(false)

	box := mustBody(t, w, DynamicBody, MakeVec2(0, 0.5))
	mustFixture(t, box, NewBoxShape(0.5, 0.5), 1.0)

	stepN(t, w, 120)

	carried := 0.0
	w.SetContactListener(&contactRecorder{onPreSolve: func(c *Contact, old *Manifold) {
		m := c.Manifold()
		for i := 0; i < m.PointCount; i++ {
			carried += m.Points[i].NormalImpulse
		}
	}})

	stepN(t, w, 1)

	// The impulses carried into the step hold the box against gravity.
	want := box.Mass() * 10.0 * testDt
	if math.Abs(carried-want) > 0.1*want {
		t.Fatalf("carried impulse %v, want about %v", carried, want)
	}

}

func TestWorldBoundsDisableBodies(t *testing.T) {
	w := NewWorld(MakeVec2(0, -10))
	bounds, err := MakeAABB(MakeVec2(-10, -10), MakeVec2(10, 10))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.SetWorldBounds(&bounds); err != nil {
		t.Fatal(err)
	}
	if err := w.SetWorldBounds(&AABB{LowerBound: MakeVec2(1, 1)}); !errors.Is(err, ErrInvalidAABB) {
		t.Fatalf("inverted bounds: %v", err)
	}

	recorder := &boundaryRecorder{}
	w.SetBoundaryListener(recorder)

	def := DefaultBodyDef()
	def.Type = DynamicBody
	def.LinearVelocity = MakeVec2(0, -50)
	body, err := w.CreateBody(&def)
	if err != nil {
		t.Fatal(err)
	}
	mustFixture(t, body, NewCircleShape(Vec2{}, 0.5), 1.0)

	stepN(t, w, 60)

	if len(recorder.bodies) != 1 || recorder.bodies[0] != body {
		t.Fatalf("violations %v", recorder.bodies)
	}
	if body.IsEnabled() || !body.IsOutOfBounds() {
		t.Fatal("body left the bounds but is still enabled")
	}
	if w.ProxyCount() != 0 {
		t.Fatalf("%d proxies remain", w.ProxyCount())
	}

	// Bringing the body back clears the condition.
	if err := body.SetTransform(Vec2{}, 0); err != nil {
		t.Fatal(err)
	}
	if err := body.SetEnabled(true); err != nil {
		t.Fatal(err)
	}
	if body.IsOutOfBounds() || w.ProxyCount() != 1 {
		t.Fatal("re-enabled body is not back in the broad phase")
	}
}

func TestWorldQueries(t *testing.T) {
	w := NewWorld(Vec2{})
	var fixtures []*Fixture
	for i := 0; i < 3; i++ {
		b := mustBody(t, w, StaticBody, MakeVec2(3*float64(i), 0))
		fixtures = append(fixtures, mustFixture(t, b, NewBoxShape(0.5, 0.5), 0.0))
	}
	w.Flush()

	var found []*Fixture
	w.QueryAABB(func(f *Fixture) bool {
		found = append(found, f)
		return true
	}, AABB{LowerBound: MakeVec2(2.8, -0.1), UpperBound: MakeVec2(3.2, 0.1)})
	if len(found) != 1 || found[0] != fixtures[1] {
		t.Fatalf("query found %d fixtures", len(found))
	}

	var closest *Fixture
	var hit Vec2
	w.RayCast(func(f *Fixture, point, normal Vec2, fraction float64) float64 {
		closest = f
		hit = point
		return fraction
	}, MakeVec2(-5, 0), MakeVec2(10, 0))
	if closest != fixtures[0] {
		t.Fatal("ray did not stop at the nearest box")
	}
	if math.Abs(hit.X+0.5) > 2*PolygonRadius {
		t.Fatalf("hit point %v", hit)
	}

	hits := 0
	w.RayCast(func(f *Fixture, point, normal Vec2, fraction float64) float64 {
		hits++
		return 1.0
	}, MakeVec2(-5, 0), MakeVec2(10, 0))
	if hits != 3 {
		t.Fatalf("unclipped ray hit %d fixtures", hits)
	}

	if got := w.TestPoint(MakeVec2(6.2, 0.1)); len(got) != 1 || got[0] != fixtures[2] {
		t.Fatalf("point test found %v", got)
	}
	if got := w.TestPoint(MakeVec2(1.5, 0)); len(got) != 0 {
		t.Fatalf("empty point found %d fixtures", len(got))
	}
}

func TestRemoveBodyRemovesJoints(t *testing.T) {
	w, ground := groundWorld(t)
	box := mustBody(t, w, DynamicBody, MakeVec2(0, 3))
	mustFixture(t, box, NewBoxShape(0.5, 0.5), 1.0)
	w.Flush()

	recorder := &goodbyeRecorder{}
	w.SetDestructionListener(recorder)

	j, err := w.CreateJoint(NewRevoluteJointDef(ground, box, MakeVec2(0, 3)))
	if err != nil {
		t.Fatal(err)
	}
	if w.JointCount() != 1 || len(box.JointEdges()) != 1 {
		t.Fatal("joint is not connected")
	}

	if err := w.RemoveBody(box); err != nil {
		t.Fatal(err)
	}
	if recorder.joints != 1 || recorder.fixtures != 1 {
		t.Fatalf("goodbye calls: %d joints %d fixtures", recorder.joints, recorder.fixtures)
	}
	if w.JointCount() != 0 || len(ground.JointEdges()) != 0 || j.ID() >= 0 {
		t.Fatal("joint survived its body")
	}
}

func TestGroupFilterPreventsContact(t *testing.T) {
	w, ground := groundWorld(t)
	box := mustBody(t, w, DynamicBody, MakeVec2(0, 0.49))

	def := DefaultFixtureDef(NewBoxShape(0.5, 0.5))
	def.Density = 1.0
	def.Filter.GroupIndex = -1
	if _, err := box.CreateFixture(&def); err != nil {
		t.Fatal(err)
	}

	groundFilter := ground.Fixtures()[0].FilterData()
	groundFilter.GroupIndex = -1
	ground.Fixtures()[0].SetFilterData(groundFilter)

	stepN(t, w, 30)
	if w.ContactCount() != 0 {
		t.Fatalf("%d contacts in the same negative group", w.ContactCount())
	}
	if box.Position().Y >= 0.0 {
		t.Fatal("box did not fall through the ground")
	}
}

func TestSensorReportsWithoutResponse(t *testing.T) {
	w, ground := groundWorld(t)
	sensor := ground.Fixtures()[0]
	sensor.SetSensor(true)

	box := mustBody(t, w, DynamicBody, MakeVec2(0, 0.6))
	mustFixture(t, box, NewBoxShape(0.5, 0.5), 1.0)

	recorder := &contactRecorder{}
	w.SetContactListener(recorder)

	stepN(t, w, 30)
	if recorder.begin != 1 {
		t.Fatalf("sensor began %d contacts", recorder.begin)
	}
	if box.Position().Y >= 0.0 {
		t.Fatal("sensor stopped the box")
	}
}
