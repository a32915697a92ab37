package velcro_test

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"testing"

	velcro "github.com/Genbox/VelcroPhysics-sub007"
	"github.com/pmezard/go-difflib/difflib"
)

const timeStep = 1.0 / 60.0

func mustCreateBody(t *testing.T, world *velcro.World, def velcro.BodyDef) *velcro.Body {
	t.Helper()
	body, err := world.CreateBody(&def)
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func mustAttach(t *testing.T, body *velcro.Body, shape velcro.Shape, err error, density, friction float64) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
	fd := velcro.DefaultFixtureDef(shape)
	fd.Density = density
	if friction > 0.0 {
		fd.Friction = friction
	}
	if _, err := body.CreateFixture(&fd); err != nil {
		t.Fatal(err)
	}
}

// characterScene drops a handful of characters onto edges, chains, tiles
// and loops.
func characterScene(t *testing.T) (*velcro.World, map[string]*velcro.Body) {
	world := velcro.NewWorld(velcro.MakeVec2(0.0, -10.0))
	characters := make(map[string]*velcro.Body)

	// Ground body
	{
		ground := mustCreateBody(t, world, velcro.DefaultBodyDef())
		mustAttach(t, ground, velcro.NewEdgeShape(velcro.MakeVec2(-20.0, 0.0), velcro.MakeVec2(20.0, 0.0)), nil, 0.0, 0.0)
		characters["00_ground"] = ground
	}

	// Collinear edges with no adjacency information. A box can hit the
	// internal vertices.
	{
		ground := mustCreateBody(t, world, velcro.DefaultBodyDef())
		for x := -8.0; x < -2.0; x += 2.0 {
			edge := velcro.NewEdgeShape(velcro.MakeVec2(x, 1.0), velcro.MakeVec2(x+2.0, 1.0))
			mustAttach(t, ground, edge, nil, 0.0, 0.0)
		}
		characters["01_colinearground"] = ground
	}

	// Chain shape
	{
		bd := velcro.DefaultBodyDef()
		bd.Angle = 0.25 * math.Pi
		ground := mustCreateBody(t, world, bd)

		chain, err := velcro.NewChainShape([]velcro.Vec2{{X: 5, Y: 7}, {X: 6, Y: 8}, {X: 7, Y: 8}, {X: 8, Y: 7}})
		mustAttach(t, ground, chain, err, 0.0, 0.0)
		characters["02_chainshape"] = ground
	}

	// Square tiles. Adjacent polygons have no smooth collision.
	{
		ground := mustCreateBody(t, world, velcro.DefaultBodyDef())
		for _, x := range []float64{4.0, 6.0, 8.0} {
			tile := velcro.NewOrientedBoxShape(1.0, 1.0, velcro.MakeVec2(x, 3.0), 0.0)
			mustAttach(t, ground, tile, nil, 0.0, 0.0)
		}
		characters["03_squaretiles"] = ground
	}

	// Square made from an edge loop. Collision should be smooth.
	{
		ground := mustCreateBody(t, world, velcro.DefaultBodyDef())
		loop, err := velcro.NewLoopShape([]velcro.Vec2{{X: -1, Y: 3}, {X: 1, Y: 3}, {X: 1, Y: 5}, {X: -1, Y: 5}})
		mustAttach(t, ground, loop, err, 0.0, 0.0)
		characters["04_edgeloopsquare"] = ground
	}

	// Edge loop. Collision should be smooth.
	{
		bd := velcro.DefaultBodyDef()
		bd.Position = velcro.MakeVec2(-10.0, 4.0)
		ground := mustCreateBody(t, world, bd)

		loop, err := velcro.NewLoopShape([]velcro.Vec2{
			{X: 0, Y: 0}, {X: 6, Y: 0}, {X: 6, Y: 2}, {X: 4, Y: 1}, {X: 2, Y: 2},
			{X: 0, Y: 2}, {X: -2, Y: 2}, {X: -4, Y: 3}, {X: -6, Y: 2}, {X: -6, Y: 0},
		})
		mustAttach(t, ground, loop, err, 0.0, 0.0)
		characters["05_edgelooppoly"] = ground
	}

	character := func(name string, position velcro.Vec2, fixedRotation bool, shape velcro.Shape, err error, friction float64) {
		bd := velcro.DefaultBodyDef()
		bd.Type = velcro.DynamicBody
		bd.Position = position
		bd.FixedRotation = fixedRotation
		bd.AllowSleep = false

		body := mustCreateBody(t, world, bd)
		mustAttach(t, body, shape, err, 20.0, friction)
		characters[name] = body
	}

	character("06_squarecharacter1", velcro.MakeVec2(-3.0, 8.0), true, velcro.NewBoxShape(0.5, 0.5), nil, 0.0)
	character("07_squarecharacter2", velcro.MakeVec2(-5.0, 5.0), true, velcro.NewBoxShape(0.25, 0.25), nil, 0.0)

	hexagon := make([]velcro.Vec2, 6)
	for i := range hexagon {
		angle := float64(i) * math.Pi / 3.0
		hexagon[i] = velcro.MakeVec2(0.5*math.Cos(angle), 0.5*math.Sin(angle))
	}
	hex, err := velcro.NewPolygonShape(hexagon)
	character("08_hexagoncharacter", velcro.MakeVec2(-5.0, 8.0), true, hex, err, 0.0)

	character("09_circlecharacter1", velcro.MakeVec2(3.0, 5.0), true, velcro.NewCircleShape(velcro.Vec2{}, 0.5), nil, 0.0)
	character("10_circlecharacter2", velcro.MakeVec2(-7.0, 6.0), false, velcro.NewCircleShape(velcro.Vec2{}, 0.25), nil, 1.0)

	return world, characters
}

// runCharacterScene steps the scene and prints one line per character and
// step.
func runCharacterScene(t *testing.T, steps int) string {
	world, characters := characterScene(t)

	names := make([]string, 0, len(characters))
	for name := range characters {
		names = append(names, name)
	}
	sort.Strings(names)

	var output strings.Builder
	for i := 0; i < steps; i++ {
		if err := world.Step(timeStep); err != nil {
			t.Fatal(err)
		}

		for _, name := range names {
			body := characters[name]
			position := body.Position()
			if !position.IsValid() {
				t.Fatalf("%v(%s): position is not finite", i, name)
			}
			fmt.Fprintf(&output, "%v(%s): %4.3f %4.3f %4.3f\n", i, name, position.X, position.Y, body.Angle())
		}
	}
	return output.String()
}

func TestCharacterSceneIsDeterministic(t *testing.T) {
	expected := runCharacterScene(t, 60)
	output := runCharacterScene(t, 60)

	if output != expected {
		diff := difflib.UnifiedDiff{
			A:        difflib.SplitLines(expected),
			B:        difflib.SplitLines(output),
			FromFile: "First",
			ToFile:   "Second",
			Context:  0,
		}
		text, _ := difflib.GetUnifiedDiffString(diff)
		t.Fatalf("repeated run differs:\n%s", text)
	}
}

func TestCharacterSceneLands(t *testing.T) {
	world, characters := characterScene(t)
	for i := 0; i < 240; i++ {
		if err := world.Step(timeStep); err != nil {
			t.Fatal(err)
		}
	}

	for name, body := range characters {
		if body.Type() != velcro.DynamicBody {
			continue
		}
		if y := body.Position().Y; y < 0.0 {
			t.Errorf("%s fell through the ground, y = %4.3f", name, y)
		}
	}
}

func TestRestingBoxStaysOnGround(t *testing.T) {
	world := velcro.NewWorld(velcro.MakeVec2(0.0, -10.0))

	gd := velcro.DefaultBodyDef()
	gd.Position = velcro.MakeVec2(0.0, -1.0)
	ground := mustCreateBody(t, world, gd)
	mustAttach(t, ground, velcro.NewBoxShape(20.0, 1.0), nil, 0.0, 0.0)

	bd := velcro.DefaultBodyDef()
	bd.Type = velcro.DynamicBody
	bd.Position = velcro.MakeVec2(0.0, 0.5)
	box := mustCreateBody(t, world, bd)
	mustAttach(t, box, velcro.NewBoxShape(0.5, 0.5), nil, 1.0, 0.0)

	for i := 0; i < 300; i++ {
		if err := world.Step(timeStep); err != nil {
			t.Fatal(err)
		}

		bottom := box.Position().Y - 0.5
		if penetration := -bottom; penetration >= velcro.LinearSlop {
			t.Fatalf("step %d: box sank %4.4f into the ground", i, penetration)
		}
	}

	if math.Abs(box.Position().X) > velcro.LinearSlop || math.Abs(box.Angle()) > velcro.AngularSlop {
		t.Fatalf("box drifted to %v angle %v", box.Position(), box.Angle())
	}
}

// bulletScene fires a small circle at a thin wall faster than the wall is
// thick per step.
func bulletScene(t *testing.T, wallType velcro.BodyType, bullet bool) (*velcro.World, *velcro.Body, *velcro.Body) {
	world := velcro.NewWorld(velcro.Vec2{})

	wd := velcro.DefaultBodyDef()
	wd.Type = wallType
	wd.Position = velcro.MakeVec2(10.0, 0.0)
	wall := mustCreateBody(t, world, wd)
	mustAttach(t, wall, velcro.NewBoxShape(0.1, 5.0), nil, 100.0, 0.0)

	bd := velcro.DefaultBodyDef()
	bd.Type = velcro.DynamicBody
	bd.Position = velcro.MakeVec2(0.9, 0.0)
	bd.LinearVelocity = velcro.MakeVec2(400.0, 0.0)
	bd.Bullet = bullet
	projectile := mustCreateBody(t, world, bd)
	mustAttach(t, projectile, velcro.NewCircleShape(velcro.Vec2{}, 0.1), nil, 1.0, 0.0)

	return world, wall, projectile
}

func stepScene(t *testing.T, world *velcro.World, steps int) {
	for i := 0; i < steps; i++ {
		if err := world.Step(timeStep); err != nil {
			t.Fatal(err)
		}
	}
}

func TestContinuousCollisionStopsTunneling(t *testing.T) {
	t.Run("static wall", func(t *testing.T) {
		world, wall, projectile := bulletScene(t, velcro.StaticBody, false)
		stepScene(t, world, 60)
		if projectile.Position().X >= wall.Position().X {
			t.Fatalf("projectile tunneled to x = %4.3f", projectile.Position().X)
		}
	})

	t.Run("static wall without continuous physics", func(t *testing.T) {
		world, wall, projectile := bulletScene(t, velcro.StaticBody, false)
		world.SetContinuousPhysics(false)
		stepScene(t, world, 60)
		if projectile.Position().X <= wall.Position().X {
			t.Fatalf("projectile stopped at x = %4.3f", projectile.Position().X)
		}
	})

	t.Run("dynamic wall with bullet", func(t *testing.T) {
		world, wall, projectile := bulletScene(t, velcro.DynamicBody, true)
		stepScene(t, world, 60)
		if projectile.Position().X >= wall.Position().X {
			t.Fatalf("bullet passed the wall: %4.3f >= %4.3f", projectile.Position().X, wall.Position().X)
		}
	})

	t.Run("dynamic wall without bullet", func(t *testing.T) {
		world, wall, projectile := bulletScene(t, velcro.DynamicBody, false)
		stepScene(t, world, 60)
		if projectile.Position().X <= wall.Position().X {
			t.Fatalf("non-bullet was stopped at %4.3f", projectile.Position().X)
		}
	})
}
