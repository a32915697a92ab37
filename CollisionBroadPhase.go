package velcro

import "sort"

// AddPairCallback receives the user data of both proxies of a new pair.
type AddPairCallback func(userDataA, userDataB interface{})

// proxyPair is ordered so that ProxyA < ProxyB.
type proxyPair struct {
	ProxyA, ProxyB int
}

const nullProxy = -1

// BroadPhase wraps a DynamicTree and buffers moved proxies. Pairs are only
// generated in UpdatePairs, which queries the tree once per moved proxy,
// sorts the candidates and reports each pair once.
type BroadPhase struct {
	tree       *DynamicTree
	proxyCount int

	moveBuffer []int
	pairBuffer []proxyPair

	queryProxyID int
}

func NewBroadPhase() *BroadPhase {
	return &BroadPhase{
		tree:       NewDynamicTree(),
		moveBuffer: make([]int, 0, 16),
		pairBuffer: make([]proxyPair, 0, 16),
	}
}

// CreateProxy creates a proxy with an initial AABB. Pairs are not reported
// until UpdatePairs is called.
func (bp *BroadPhase) CreateProxy(aabb AABB, userData interface{}) int {
	proxyID := bp.tree.CreateProxy(aabb, userData)
	bp.proxyCount++
	bp.bufferMove(proxyID)
	return proxyID
}

// DestroyProxy removes a proxy. Overlapping pairs are cleaned up by the
// caller.
func (bp *BroadPhase) DestroyProxy(proxyID int) {
	bp.unbufferMove(proxyID)
	bp.proxyCount--
	bp.tree.DestroyProxy(proxyID)
}

// MoveProxy updates the proxy box; the proxy is buffered for pairing only
// when its fat box had to change.
func (bp *BroadPhase) MoveProxy(proxyID int, aabb AABB, displacement Vec2) {
	if bp.tree.MoveProxy(proxyID, aabb, displacement) {
		bp.bufferMove(proxyID)
	}
}

// TouchProxy forces a proxy to be paired again on the next update.
func (bp *BroadPhase) TouchProxy(proxyID int) {
	bp.bufferMove(proxyID)
}

func (bp *BroadPhase) FatAABB(proxyID int) AABB {
	return bp.tree.FatAABB(proxyID)
}

func (bp *BroadPhase) UserData(proxyID int) interface{} {
	return bp.tree.UserData(proxyID)
}

// TestOverlap tests the fat AABBs of two proxies for overlap.
func (bp *BroadPhase) TestOverlap(proxyA, proxyB int) bool {
	return TestOverlapAABB(bp.tree.FatAABB(proxyA), bp.tree.FatAABB(proxyB))
}

func (bp *BroadPhase) ProxyCount() int      { return bp.proxyCount }
func (bp *BroadPhase) TreeHeight() int      { return bp.tree.Height() }
func (bp *BroadPhase) TreeBalance() int     { return bp.tree.MaxBalance() }
func (bp *BroadPhase) TreeQuality() float64 { return bp.tree.AreaRatio() }

func (bp *BroadPhase) bufferMove(proxyID int) {
	bp.moveBuffer = append(bp.moveBuffer, proxyID)
}

func (bp *BroadPhase) unbufferMove(proxyID int) {
	for i, id := range bp.moveBuffer {
		if id == proxyID {
			bp.moveBuffer[i] = nullProxy
		}
	}
}

// UpdatePairs reports every new overlapping pair that involves a moved
// proxy, each pair exactly once.
func (bp *BroadPhase) UpdatePairs(callback AddPairCallback) {
	bp.pairBuffer = bp.pairBuffer[:0]

	// Perform tree queries for all moving proxies.
	for _, proxyID := range bp.moveBuffer {
		if proxyID == nullProxy {
			continue
		}
		bp.queryProxyID = proxyID

		// Query with the fat AABB so that we don't fail to create a pair that
		// may touch later.
		bp.tree.Query(bp.queryCallback, bp.tree.FatAABB(proxyID))
	}

	bp.moveBuffer = bp.moveBuffer[:0]

	// Sort the pair buffer to expose duplicates.
	pairs := bp.pairBuffer
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].ProxyA != pairs[j].ProxyA {
			return pairs[i].ProxyA < pairs[j].ProxyA
		}
		return pairs[i].ProxyB < pairs[j].ProxyB
	})

	for i := 0; i < len(pairs); {
		primary := pairs[i]
		callback(bp.tree.UserData(primary.ProxyA), bp.tree.UserData(primary.ProxyB))
		i++

		// Skip any duplicate pairs.
		for i < len(pairs) && pairs[i] == primary {
			i++
		}
	}
}

// queryCallback collects pairs while UpdatePairs queries the tree.
func (bp *BroadPhase) queryCallback(proxyID int) bool {
	// A proxy cannot form a pair with itself.
	if proxyID == bp.queryProxyID {
		return true
	}

	bp.pairBuffer = append(bp.pairBuffer, proxyPair{
		ProxyA: minInt(proxyID, bp.queryProxyID),
		ProxyB: maxInt(proxyID, bp.queryProxyID),
	})
	return true
}

func (bp *BroadPhase) Query(callback TreeQueryCallback, aabb AABB) {
	bp.tree.Query(callback, aabb)
}

func (bp *BroadPhase) RayCast(callback TreeRayCastCallback, input RayCastInput) {
	bp.tree.RayCast(callback, input)
}

func (bp *BroadPhase) ShiftOrigin(newOrigin Vec2) {
	bp.tree.ShiftOrigin(newOrigin)
}
