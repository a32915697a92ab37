package velcro

import (
	"math/rand"
	"testing"
)

type pairKey struct{ a, b int }

func makePairKey(a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

func TestBroadPhaseReportsAllOverlaps(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	bp := NewBroadPhase()

	const n = 150
	tight := make([]AABB, n)
	for i := 0; i < n; i++ {
		tight[i] = randomAABB(rng)
		bp.CreateProxy(tight[i], i)
	}

	// A proxy far away from the others, moved into the crowd below.
	far := AABB{LowerBound: Vec2{1000, 1000}, UpperBound: Vec2{1001, 1001}}
	mover := bp.CreateProxy(far, n)

	if bp.ProxyCount() != n+1 {
		t.Fatalf("ProxyCount() = %d, want %d", bp.ProxyCount(), n+1)
	}

	reported := make(map[pairKey]int)
	collect := func(userDataA, userDataB interface{}) {
		reported[makePairKey(userDataA.(int), userDataB.(int))]++
	}
	bp.UpdatePairs(collect)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if !TestOverlapAABB(tight[i], tight[j]) {
				continue
			}
			if reported[makePairKey(i, j)] == 0 {
				t.Errorf("overlapping pair (%d,%d) was not reported", i, j)
			}
		}
	}

	for key, count := range reported {
		if count != 1 {
			t.Errorf("pair %v reported %d times", key, count)
		}
	}

	// Move the far proxy on top of proxy 1; the new pair must be reported.
	for k := range reported {
		delete(reported, k)
	}
	d := tight[1].Center().Sub(far.Center())
	moved := AABB{LowerBound: far.LowerBound.Add(d), UpperBound: far.UpperBound.Add(d)}
	bp.MoveProxy(mover, moved, d)
	bp.UpdatePairs(collect)

	if reported[makePairKey(n, 1)] != 1 {
		t.Errorf("moved pair (%d,1) reported %d times, want 1", n, reported[makePairKey(n, 1)])
	}
	for key := range reported {
		if key.a != n && key.b != n {
			t.Errorf("pair %v reported without a moved proxy", key)
		}
	}

	if err := bp.tree.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestBroadPhaseDestroyedProxyIsNotPaired(t *testing.T) {
	bp := NewBroadPhase()
	a := bp.CreateProxy(AABB{LowerBound: Vec2{0, 0}, UpperBound: Vec2{1, 1}}, 0)
	bp.CreateProxy(AABB{LowerBound: Vec2{0.5, 0.5}, UpperBound: Vec2{1.5, 1.5}}, 1)
	bp.DestroyProxy(a)

	pairs := 0
	bp.UpdatePairs(func(_, _ interface{}) { pairs++ })
	if pairs != 0 {
		t.Errorf("got %d pairs after destroying one of two proxies", pairs)
	}
}
