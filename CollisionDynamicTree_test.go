package velcro

import (
	"math/rand"
	"testing"
)

func randomAABB(rng *rand.Rand) AABB {
	c := Vec2{rng.Float64()*100.0 - 50.0, rng.Float64()*100.0 - 50.0}
	e := Vec2{0.1 + 2.0*rng.Float64(), 0.1 + 2.0*rng.Float64()}
	return AABB{LowerBound: c.Sub(e), UpperBound: c.Add(e)}
}

func TestDynamicTreeValidate(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tree := NewDynamicTree()

	tight := make(map[int]AABB)
	for i := 0; i < 200; i++ {
		aabb := randomAABB(rng)
		tight[tree.CreateProxy(aabb, i)] = aabb
	}

	if err := tree.Validate(); err != nil {
		t.Fatalf("after create: %v", err)
	}

	for round := 0; round < 20; round++ {
		// Move a few proxies.
		for id, aabb := range tight {
			if rng.Intn(3) != 0 {
				continue
			}

			d := Vec2{rng.Float64()*4.0 - 2.0, rng.Float64()*4.0 - 2.0}
			moved := AABB{LowerBound: aabb.LowerBound.Add(d), UpperBound: aabb.UpperBound.Add(d)}
			tree.MoveProxy(id, moved, d)
			tight[id] = moved

			if !tree.FatAABB(id).Contains(moved) {
				t.Fatalf("round %d: fat box of proxy %d does not contain its tight box", round, id)
			}
		}

		// Destroy some and create some.
		for id := range tight {
			if rng.Intn(10) == 0 {
				tree.DestroyProxy(id)
				delete(tight, id)
			}
		}
		for i := 0; i < 5; i++ {
			aabb := randomAABB(rng)
			tight[tree.CreateProxy(aabb, i)] = aabb
		}

		if err := tree.Validate(); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
	}

	if tree.Height() <= 0 {
		t.Errorf("Height() = %d for a populated tree", tree.Height())
	}
	if q := tree.AreaRatio(); q < 1.0 {
		t.Errorf("AreaRatio() = %v, want >= 1", q)
	}
}

func TestDynamicTreeQuery(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	tree := NewDynamicTree()

	var ids []int
	for i := 0; i < 300; i++ {
		ids = append(ids, tree.CreateProxy(randomAABB(rng), i))
	}

	for q := 0; q < 50; q++ {
		query := randomAABB(rng)
		query.UpperBound = query.UpperBound.Add(Vec2{5.0, 5.0})

		found := make(map[int]bool)
		tree.Query(func(proxyID int) bool {
			found[proxyID] = true
			return true
		}, query)

		for _, id := range ids {
			want := TestOverlapAABB(tree.FatAABB(id), query)
			if want != found[id] {
				t.Fatalf("query %d: proxy %d overlap=%v reported=%v", q, id, want, found[id])
			}
		}
	}
}

func TestDynamicTreeRayCast(t *testing.T) {
	tree := NewDynamicTree()

	near := tree.CreateProxy(AABB{LowerBound: Vec2{4, -1}, UpperBound: Vec2{5, 1}}, "near")
	tree.CreateProxy(AABB{LowerBound: Vec2{8, -1}, UpperBound: Vec2{9, 1}}, "far")
	tree.CreateProxy(AABB{LowerBound: Vec2{4, 10}, UpperBound: Vec2{5, 11}}, "off")

	var hits []string
	tree.RayCast(func(input RayCastInput, proxyID int) float64 {
		hits = append(hits, tree.UserData(proxyID).(string))
		if proxyID == near {
			// Clip the ray at the near box.
			return 0.45
		}
		return input.MaxFraction
	}, RayCastInput{P1: Vec2{0, 0}, P2: Vec2{10, 0}, MaxFraction: 1.0})

	for _, h := range hits {
		if h == "off" {
			t.Errorf("ray reported a proxy away from the segment")
		}
	}
	if len(hits) == 0 {
		t.Fatalf("ray reported no proxies")
	}
}
