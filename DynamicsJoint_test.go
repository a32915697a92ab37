package velcro

import (
	"math"
	"testing"

	"github.com/pkg/errors"
)

// anchoredWorld returns a world with a fixture-less static body at the
// origin and a flushed dynamic box at position.
func anchoredWorld(t *testing.T, gravity, position Vec2) (*World, *Body, *Body) {
	t.Helper()
	w := NewWorld(gravity)
	ground := mustBody(t, w, StaticBody, Vec2{})
	box := mustBody(t, w, DynamicBody, position)
	mustFixture(t, box, NewBoxShape(0.25, 0.25), 1.0)
	w.Flush()
	return w, ground, box
}

func mustJoint(t *testing.T, w *World, def JointDef) Joint {
	t.Helper()
	j, err := w.CreateJoint(def)
	if err != nil {
		t.Fatal(err)
	}
	return j
}

func TestRevolutePendulumKeepsAnchor(t *testing.T) {
	w, ground, box := anchoredWorld(t, MakeVec2(0, -10), MakeVec2(2, 0))
	j := mustJoint(t, w, NewRevoluteJointDef(ground, box, Vec2{})).(*RevoluteJoint)

	lowest := 0.0
	for i := 0; i < 180; i++ {
		stepN(t, w, 1)
		if d := j.AnchorA().Distance(j.AnchorB()); d > 0.01 {
			t.Fatalf("step %d: anchors drifted %v apart", i, d)
		}
		lowest = math.Min(lowest, box.Position().Y)
	}

	if r := box.Position().Length(); math.Abs(r-2.0) > 0.01 {
		t.Fatalf("pendulum radius %v", r)
	}
	if lowest > -1.9 {
		t.Fatalf("pendulum never swung down, lowest y %v", lowest)
	}
}

func TestRevoluteMotorAndLimit(t *testing.T) {
	w, ground, box := anchoredWorld(t, Vec2{}, Vec2{})

	def := NewRevoluteJointDef(ground, box, Vec2{})
	def.EnableMotor = true
	def.MotorSpeed = 1.0
	def.MaxMotorTorque = 1000.0
	j := mustJoint(t, w, def).(*RevoluteJoint)

	stepN(t, w, 30)
	if math.Abs(j.JointSpeed()-1.0) > 1e-3 {
		t.Fatalf("motor speed %v", j.JointSpeed())
	}

	j.SetLimits(-0.25, 0.75)
	j.EnableLimit(true)
	stepN(t, w, 120)
	if a := j.JointAngle(); a > 0.75+AngularSlop {
		t.Fatalf("angle %v passed the upper limit", a)
	}
}

func TestDistanceJointHoldsLength(t *testing.T) {
	w, ground, box := anchoredWorld(t, MakeVec2(0, -10), MakeVec2(0, -3))
	box.SetLinearVelocity(MakeVec2(4, 0))

	j := mustJoint(t, w, NewDistanceJointDef(ground, box, Vec2{}, box.Position())).(*DistanceJoint)
	if math.Abs(j.Length()-3.0) > 1e-12 {
		t.Fatalf("length %v", j.Length())
	}

	for i := 0; i < 120; i++ {
		stepN(t, w, 1)
		if d := j.AnchorA().Distance(j.AnchorB()); math.Abs(d-3.0) > 0.02 {
			t.Fatalf("step %d: anchor distance %v", i, d)
		}
	}
}

func TestWeldJointKeepsRelativeAngle(t *testing.T) {
	w := NewWorld(MakeVec2(0, -10))
	a := mustBody(t, w, DynamicBody, Vec2{})
	b := mustBody(t, w, DynamicBody, MakeVec2(0.5, 0))
	mustFixture(t, a, NewBoxShape(0.25, 0.25), 1.0)
	mustFixture(t, b, NewBoxShape(0.25, 0.25), 1.0)
	w.Flush()

	j := mustJoint(t, w, NewWeldJointDef(a, b, MakeVec2(0.25, 0))).(*WeldJoint)
	b.SetAngularVelocity(5.0)

	stepN(t, w, 60)

	if d := b.Angle() - a.Angle() - j.ReferenceAngle(); math.Abs(d) > 2.0*AngularSlop {
		t.Fatalf("relative angle drifted by %v", d)
	}
	if d := j.AnchorA().Distance(j.AnchorB()); d > 2.0*LinearSlop {
		t.Fatalf("anchors %v apart", d)
	}
	if a.AngularVelocity() == 0.0 {
		t.Fatal("weld did not transfer the spin")
	}
}

func TestRopeJointLimitsDistance(t *testing.T) {
	w, ground, box := anchoredWorld(t, MakeVec2(0, -10), MakeVec2(0, -1))

	def := NewRopeJointDef(ground, box, Vec2{}, box.Position())
	def.MaxLength = 2.0
	j := mustJoint(t, w, def).(*RopeJoint)

	stepN(t, w, 15)
	if j.AtLimit() {
		t.Fatal("slack rope reported taut")
	}

	stepN(t, w, 105)
	if d := j.AnchorA().Distance(j.AnchorB()); d > 2.0+LinearSlop {
		t.Fatalf("rope stretched to %v", d)
	}

	// The taut rope carries the weight of the box.
	weight := box.Mass() * 10.0
	if f := j.ReactionForce(1.0 / testDt).Length(); math.Abs(f-weight) > 0.1*weight {
		t.Fatalf("rope force %v, want about %v", f, weight)
	}
}

func TestPrismaticLimit(t *testing.T) {
	w, ground, box := anchoredWorld(t, MakeVec2(0, -10), Vec2{})

	def := NewPrismaticJointDef(ground, box, Vec2{}, MakeVec2(0, 1))
	def.EnableLimit = true
	def.LowerTranslation = -1.0
	def.UpperTranslation = 1.0
	j := mustJoint(t, w, def).(*PrismaticJoint)

	stepN(t, w, 120)

	if tr := j.JointTranslation(); math.Abs(tr+1.0) > 2.0*LinearSlop {
		t.Fatalf("translation %v, want -1", tr)
	}
	if x := box.Position().X; math.Abs(x) > LinearSlop {
		t.Fatalf("box left the axis, x = %v", x)
	}
}

func TestGearJointCouplesAngles(t *testing.T) {
	w := NewWorld(Vec2{})
	ground := mustBody(t, w, StaticBody, Vec2{})
	wheel1 := mustBody(t, w, DynamicBody, MakeVec2(-2, 0))
	wheel2 := mustBody(t, w, DynamicBody, MakeVec2(2, 0))
	mustFixture(t, wheel1, NewCircleShape(Vec2{}, 0.5), 1.0)
	mustFixture(t, wheel2, NewCircleShape(Vec2{}, 1.0), 1.0)
	w.Flush()

	def1 := NewRevoluteJointDef(ground, wheel1, wheel1.Position())
	def1.EnableMotor = true
	def1.MotorSpeed = 2.0
	def1.MaxMotorTorque = 1000.0
	j1 := mustJoint(t, w, def1).(*RevoluteJoint)
	j2 := mustJoint(t, w, NewRevoluteJointDef(ground, wheel2, wheel2.Position())).(*RevoluteJoint)

	const ratio = 2.0
	mustJoint(t, w, NewGearJointDef(j1, j2, ratio))

	stepN(t, w, 60)

	if j1.JointAngle() == 0.0 {
		t.Fatal("motor did not turn")
	}
	if c := j1.JointAngle() + ratio*j2.JointAngle(); math.Abs(c) > 2.0*AngularSlop {
		t.Fatalf("gear constraint off by %v", c)
	}
}

func TestCreateJointRejects(t *testing.T) {
	w, ground, box := anchoredWorld(t, Vec2{}, MakeVec2(1, 0))

	other := NewWorld(Vec2{})
	stranger := mustBody(t, other, DynamicBody, Vec2{})

	weld1, err := w.CreateJoint(NewWeldJointDef(ground, box, Vec2{}))
	if err != nil {
		t.Fatal(err)
	}

	shortRope := NewRopeJointDef(ground, box, Vec2{}, box.Position())
	shortRope.MaxLength = 0.0

	motor := NewMotorJointDef(ground, box)
	motor.CorrectionFactor = 2.0

	mouse := NewMouseJointDef(ground, box, box.Position(), 10.0)
	mouse.FrequencyHz = 0.0

	gear := &GearJointDef{
		JointDefBase: JointDefBase{BodyA: ground, BodyB: box},
		Joint1:       weld1,
		Joint2:       weld1,
		Ratio:        1.0,
	}

	tests := []struct {
		name string
		def  JointDef
		want error
	}{
		{"same body", NewRevoluteJointDef(box, box, Vec2{}), ErrSameBody},
		{"missing body", &RevoluteJointDef{}, ErrInvalidJoint},
		{"zero distance", NewDistanceJointDef(ground, box, box.Position(), box.Position()), ErrInvalidJoint},
		{"short rope", shortRope, ErrInvalidJoint},
		{"motor correction", motor, ErrInvalidJoint},
		{"mouse frequency", mouse, ErrInvalidJoint},
		{"gear of welds", gear, ErrInvalidJoint},
		{"other world", NewRevoluteJointDef(ground, stranger, Vec2{}), ErrBodyNotInWorld},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := w.CreateJoint(tt.def); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	if w.JointCount() != 1 {
		t.Fatalf("%d joints after rejected definitions", w.JointCount())
	}
}

func TestJointDisablesCollision(t *testing.T) {
	w := NewWorld(Vec2{})
	a := mustBody(t, w, DynamicBody, Vec2{})
	b := mustBody(t, w, DynamicBody, MakeVec2(0.4, 0))
	mustFixture(t, a, NewBoxShape(0.25, 0.25), 1.0)
	mustFixture(t, b, NewBoxShape(0.25, 0.25), 1.0)

	stepN(t, w, 1)
	if w.ContactCount() != 1 {
		t.Fatalf("%d contacts before the joint", w.ContactCount())
	}

	j := mustJoint(t, w, NewRevoluteJointDef(a, b, MakeVec2(0.2, 0)))
	stepN(t, w, 1)
	if w.ContactCount() != 0 {
		t.Fatalf("%d contacts between jointed bodies", w.ContactCount())
	}

	if err := w.RemoveJoint(j); err != nil {
		t.Fatal(err)
	}
	if err := w.RemoveJoint(j); !errors.Is(err, ErrInvalidJoint) {
		t.Fatalf("second removal: %v", err)
	}
}
