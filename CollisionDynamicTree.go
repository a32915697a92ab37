package velcro

import (
	"math"

	"github.com/pkg/errors"
)

const nullNode = -1

// TreeQueryCallback is called for each proxy overlapping a query box. Return
// false to stop the query.
type TreeQueryCallback func(proxyID int) bool

// TreeRayCastCallback is called for each proxy whose fat box the ray reaches.
// It returns the new max fraction: 0 terminates, a value in (0, max) clips
// the ray and the unchanged max fraction continues.
type TreeRayCastCallback func(input RayCastInput, proxyID int) float64

type treeNode struct {
	// Enlarged AABB
	aabb     AABB
	userData interface{}

	// parent, or next free node when the node is in the free list
	parent int

	child1, child2 int

	// leaf = 0, free node = -1
	height int
}

func (n *treeNode) isLeaf() bool {
	return n.child1 == nullNode
}

// DynamicTree is a binary AABB tree. Leaves are proxies with a fattened box
// so objects can move by small amounts without a tree update. Insertion picks
// the sibling that grows the perimeter least; the tree is repaired locally
// and never rebalanced as a whole.
//
// Nodes are pooled in a slice and addressed by index.
type DynamicTree struct {
	root      int
	nodes     []treeNode
	nodeCount int
	freeList  int

	insertionCount int
}

func NewDynamicTree() *DynamicTree {
	tree := &DynamicTree{root: nullNode, freeList: nullNode}
	tree.grow(16)
	return tree
}

// grow extends the node pool to capacity and links the new nodes into the
// free list.
func (tree *DynamicTree) grow(capacity int) {
	old := len(tree.nodes)
	if capacity <= old {
		return
	}

	nodes := make([]treeNode, capacity)
	copy(nodes, tree.nodes)
	for i := old; i < capacity-1; i++ {
		nodes[i].parent = i + 1
		nodes[i].height = -1
	}
	nodes[capacity-1].parent = tree.freeList
	nodes[capacity-1].height = -1

	tree.nodes = nodes
	tree.freeList = old
}

func (tree *DynamicTree) allocateNode() int {
	if tree.freeList == nullNode {
		assert(tree.nodeCount == len(tree.nodes))
		tree.grow(2 * len(tree.nodes))
	}

	nodeID := tree.freeList
	node := &tree.nodes[nodeID]
	tree.freeList = node.parent
	*node = treeNode{
		parent: nullNode,
		child1: nullNode,
		child2: nullNode,
	}
	tree.nodeCount++
	return nodeID
}

func (tree *DynamicTree) freeNode(nodeID int) {
	assert(0 <= nodeID && nodeID < len(tree.nodes))
	assert(0 < tree.nodeCount)
	tree.nodes[nodeID] = treeNode{parent: tree.freeList, height: -1}
	tree.freeList = nodeID
	tree.nodeCount--
}

// CreateProxy inserts a leaf for aabb, fattened by AABBExtension, and
// returns its id.
func (tree *DynamicTree) CreateProxy(aabb AABB, userData interface{}) int {
	proxyID := tree.allocateNode()

	r := MakeVec2(AABBExtension, AABBExtension)
	node := &tree.nodes[proxyID]
	node.aabb.LowerBound = aabb.LowerBound.Sub(r)
	node.aabb.UpperBound = aabb.UpperBound.Add(r)
	node.userData = userData
	node.height = 0

	tree.insertLeaf(proxyID)
	return proxyID
}

func (tree *DynamicTree) DestroyProxy(proxyID int) {
	assert(0 <= proxyID && proxyID < len(tree.nodes))
	assert(tree.nodes[proxyID].isLeaf())

	tree.removeLeaf(proxyID)
	tree.freeNode(proxyID)
}

// MoveProxy updates a proxy after its shape moved. Nothing happens while the
// new tight box stays inside the fat box; otherwise the leaf is reinserted
// with a box extended in the direction of displacement, and true is
// returned.
func (tree *DynamicTree) MoveProxy(proxyID int, aabb AABB, displacement Vec2) bool {
	assert(0 <= proxyID && proxyID < len(tree.nodes))
	assert(tree.nodes[proxyID].isLeaf())

	if tree.nodes[proxyID].aabb.Contains(aabb) {
		return false
	}

	tree.removeLeaf(proxyID)

	// Extend AABB.
	b := aabb
	r := MakeVec2(AABBExtension, AABBExtension)
	b.LowerBound = b.LowerBound.Sub(r)
	b.UpperBound = b.UpperBound.Add(r)

	// Predict AABB displacement.
	d := displacement.Mul(AABBMultiplier)

	if d.X < 0.0 {
		b.LowerBound.X += d.X
	} else {
		b.UpperBound.X += d.X
	}

	if d.Y < 0.0 {
		b.LowerBound.Y += d.Y
	} else {
		b.UpperBound.Y += d.Y
	}

	tree.nodes[proxyID].aabb = b

	tree.insertLeaf(proxyID)
	return true
}

func (tree *DynamicTree) UserData(proxyID int) interface{} {
	return tree.nodes[proxyID].userData
}

func (tree *DynamicTree) FatAABB(proxyID int) AABB {
	return tree.nodes[proxyID].aabb
}

func (tree *DynamicTree) insertLeaf(leaf int) {
	tree.insertionCount++

	if tree.root == nullNode {
		tree.root = leaf
		tree.nodes[tree.root].parent = nullNode
		return
	}

	// Find the best sibling for this node.
	leafAABB := tree.nodes[leaf].aabb
	index := tree.root
	for !tree.nodes[index].isLeaf() {
		node := &tree.nodes[index]
		child1 := node.child1
		child2 := node.child2

		area := node.aabb.Perimeter()
		combinedArea := node.aabb.Combine(leafAABB).Perimeter()

		// Cost of creating a new parent for this node and the new leaf.
		cost := 2.0 * combinedArea

		// Minimum cost of pushing the leaf further down the tree.
		inheritanceCost := 2.0 * (combinedArea - area)

		cost1 := tree.descendCost(child1, leafAABB) + inheritanceCost
		cost2 := tree.descendCost(child2, leafAABB) + inheritanceCost

		// Descend according to the minimum cost.
		if cost < cost1 && cost < cost2 {
			break
		}

		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}

	sibling := index

	// Create a new parent.
	oldParent := tree.nodes[sibling].parent
	newParent := tree.allocateNode()
	tree.nodes[newParent].parent = oldParent
	tree.nodes[newParent].aabb = leafAABB.Combine(tree.nodes[sibling].aabb)
	tree.nodes[newParent].height = tree.nodes[sibling].height + 1
	tree.nodes[newParent].child1 = sibling
	tree.nodes[newParent].child2 = leaf
	tree.nodes[sibling].parent = newParent
	tree.nodes[leaf].parent = newParent

	if oldParent == nullNode {
		// The sibling was the root.
		tree.root = newParent
		return
	}

	// The sibling was not the root.
	if tree.nodes[oldParent].child1 == sibling {
		tree.nodes[oldParent].child1 = newParent
	} else {
		tree.nodes[oldParent].child2 = newParent
	}

	tree.refit(oldParent)
}

// descendCost is the growth in perimeter caused by pushing leafAABB into the
// subtree at index.
func (tree *DynamicTree) descendCost(index int, leafAABB AABB) float64 {
	node := &tree.nodes[index]
	combined := leafAABB.Combine(node.aabb).Perimeter()
	if node.isLeaf() {
		return combined
	}
	return combined - node.aabb.Perimeter()
}

// refit walks up from index recomputing boxes and heights. It stops at the
// first ancestor whose box and height come out unchanged; everything above
// it already contains the modified subtree.
func (tree *DynamicTree) refit(index int) {
	for index != nullNode {
		node := &tree.nodes[index]
		assert(node.child1 != nullNode && node.child2 != nullNode)

		c1 := &tree.nodes[node.child1]
		c2 := &tree.nodes[node.child2]

		height := 1 + maxInt(c1.height, c2.height)
		aabb := c1.aabb.Combine(c2.aabb)

		if height == node.height && aabb == node.aabb {
			return
		}

		node.height = height
		node.aabb = aabb
		index = node.parent
	}
}

func (tree *DynamicTree) removeLeaf(leaf int) {
	if leaf == tree.root {
		tree.root = nullNode
		return
	}

	parent := tree.nodes[leaf].parent
	grandParent := tree.nodes[parent].parent

	sibling := tree.nodes[parent].child1
	if sibling == leaf {
		sibling = tree.nodes[parent].child2
	}

	if grandParent == nullNode {
		tree.root = sibling
		tree.nodes[sibling].parent = nullNode
		tree.freeNode(parent)
		return
	}

	// Destroy parent and connect sibling to grandParent.
	if tree.nodes[grandParent].child1 == parent {
		tree.nodes[grandParent].child1 = sibling
	} else {
		tree.nodes[grandParent].child2 = sibling
	}
	tree.nodes[sibling].parent = grandParent
	tree.freeNode(parent)

	tree.refit(grandParent)
}

// Query calls callback for each proxy whose fat AABB overlaps aabb.
func (tree *DynamicTree) Query(callback TreeQueryCallback, aabb AABB) {
	var buf [64]int
	stack := append(buf[:0], tree.root)

	for len(stack) > 0 {
		nodeID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if nodeID == nullNode {
			continue
		}

		node := &tree.nodes[nodeID]
		if !TestOverlapAABB(node.aabb, aabb) {
			continue
		}

		if node.isLeaf() {
			if !callback(nodeID) {
				return
			}
		} else {
			stack = append(stack, node.child1, node.child2)
		}
	}
}

// RayCast calls callback for each proxy whose fat AABB the ray reaches.
// The callback performs the exact ray cast and controls clipping.
func (tree *DynamicTree) RayCast(callback TreeRayCastCallback, input RayCastInput) {
	p1 := input.P1
	p2 := input.P2
	r := p2.Sub(p1)
	assert(r.LengthSquared() > 0.0)
	r = r.Normalized()

	// v is perpendicular to the segment.
	v := CrossSV(1.0, r)
	absV := v.Abs()

	maxFraction := input.MaxFraction

	segmentAABB := func() AABB {
		t := p1.Add(p2.Sub(p1).Mul(maxFraction))
		return AABB{LowerBound: p1.Min(t), UpperBound: p1.Max(t)}
	}
	bounds := segmentAABB()

	var buf [64]int
	stack := append(buf[:0], tree.root)

	for len(stack) > 0 {
		nodeID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if nodeID == nullNode {
			continue
		}

		node := &tree.nodes[nodeID]
		if !TestOverlapAABB(node.aabb, bounds) {
			continue
		}

		// Separating axis for segment (Gino, p80).
		// |dot(v, p1 - c)| > dot(|v|, h)
		c := node.aabb.Center()
		h := node.aabb.Extents()
		separation := math.Abs(v.Dot(p1.Sub(c))) - absV.Dot(h)
		if separation > 0.0 {
			continue
		}

		if node.isLeaf() {
			value := callback(RayCastInput{P1: p1, P2: p2, MaxFraction: maxFraction}, nodeID)

			if value == 0.0 {
				// The client has terminated the ray cast.
				return
			}

			if value > 0.0 {
				maxFraction = value
				bounds = segmentAABB()
			}
		} else {
			stack = append(stack, node.child1, node.child2)
		}
	}
}

// Height is the height of the root node, zero for an empty tree.
func (tree *DynamicTree) Height() int {
	if tree.root == nullNode {
		return 0
	}
	return tree.nodes[tree.root].height
}

// MaxBalance is the largest height difference between two siblings.
func (tree *DynamicTree) MaxBalance() int {
	maxBalance := 0
	for i := range tree.nodes {
		node := &tree.nodes[i]
		if node.height <= 1 {
			continue
		}

		balance := tree.nodes[node.child2].height - tree.nodes[node.child1].height
		if balance < 0 {
			balance = -balance
		}
		maxBalance = maxInt(maxBalance, balance)
	}
	return maxBalance
}

// AreaRatio is the sum of all node perimeters over the root perimeter.
func (tree *DynamicTree) AreaRatio() float64 {
	if tree.root == nullNode {
		return 0.0
	}

	rootArea := tree.nodes[tree.root].aabb.Perimeter()

	totalArea := 0.0
	for i := range tree.nodes {
		if tree.nodes[i].height < 0 {
			continue
		}
		totalArea += tree.nodes[i].aabb.Perimeter()
	}

	return totalArea / rootArea
}

// ShiftOrigin translates every box by -newOrigin.
func (tree *DynamicTree) ShiftOrigin(newOrigin Vec2) {
	for i := range tree.nodes {
		tree.nodes[i].aabb.LowerBound = tree.nodes[i].aabb.LowerBound.Sub(newOrigin)
		tree.nodes[i].aabb.UpperBound = tree.nodes[i].aabb.UpperBound.Sub(newOrigin)
	}
}

// Validate checks the structure, heights, boxes and free list of the tree.
func (tree *DynamicTree) Validate() error {
	if tree.root != nullNode && tree.nodes[tree.root].parent != nullNode {
		return errors.New("velcro: tree root has a parent")
	}
	if err := tree.validateNode(tree.root); err != nil {
		return err
	}

	freeCount := 0
	for freeIndex := tree.freeList; freeIndex != nullNode; freeIndex = tree.nodes[freeIndex].parent {
		if freeIndex < 0 || freeIndex >= len(tree.nodes) {
			return errors.Errorf("velcro: free list index %d out of range", freeIndex)
		}
		freeCount++
	}

	if tree.nodeCount+freeCount != len(tree.nodes) {
		return errors.Errorf("velcro: %d live and %d free nodes in a pool of %d",
			tree.nodeCount, freeCount, len(tree.nodes))
	}
	return nil
}

func (tree *DynamicTree) validateNode(index int) error {
	if index == nullNode {
		return nil
	}

	node := &tree.nodes[index]
	if node.isLeaf() {
		if node.child2 != nullNode || node.height != 0 {
			return errors.Errorf("velcro: malformed leaf %d", index)
		}
		return nil
	}

	c1, c2 := node.child1, node.child2
	if tree.nodes[c1].parent != index || tree.nodes[c2].parent != index {
		return errors.Errorf("velcro: node %d has children with wrong parent", index)
	}

	height := 1 + maxInt(tree.nodes[c1].height, tree.nodes[c2].height)
	if node.height != height {
		return errors.Errorf("velcro: node %d height %d, want %d", index, node.height, height)
	}

	if tree.nodes[c1].aabb.Combine(tree.nodes[c2].aabb) != node.aabb {
		return errors.Errorf("velcro: node %d box is not the union of its children", index)
	}

	if err := tree.validateNode(c1); err != nil {
		return err
	}
	return tree.validateNode(c2)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
