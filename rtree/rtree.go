package rtree

import (
	"errors"
)

var (
	// ErrCapacity is returned when the RTree's node capacity is less than 2.
	ErrCapacity = errors.New("rtree: node capacity must be at least 2")

	// ErrInvalidCircle is returned when a circle has a non-finite centre or a
	// negative radius.
	ErrInvalidCircle = errors.New("rtree: invalid circle")

	// ErrInvalidBBox is returned when a box is inverted or non-finite.
	ErrInvalidBBox = errors.New("rtree: invalid bbox")
)

// Stop is a special sentinal error that can be used to stop a search operation
// without any error.
var Stop = errors.New("stop")

type nodeKind uint8

const (
	leafKind nodeKind = iota + 1
	internalKind
)

func (k nodeKind) String() string {
	switch k {
	case leafKind:
		return "leaf"
	case internalKind:
		return "internal"
	default:
		return "free"
	}
}

// node is a node in an R-Tree. Leaf nodes hold circles directly, internal
// nodes hold the indices of their child nodes. The kind is fixed when the node
// is allocated and never inferred from the children.
type node struct {
	kind     nodeKind
	circles  []Circle
	children []int

	// parent is -1 for the root.
	parent int

	// bbox is only meaningful when hasBBox is set. Nodes without any
	// children have no box.
	bbox    BBox
	hasBBox bool
}

func (n *node) numChildren() int {
	if n.kind == leafKind {
		return len(n.circles)
	}
	return len(n.children)
}

// RTree is an in-memory R-Tree holding circles. It must be created with New.
//
// The RTree is not safe for concurrent use. Callers must serialise mutations
// against each other and against searches.
type RTree struct {
	nodes    []node
	free     []int
	root     int
	capacity int
	count    int
}

// New creates an empty RTree whose nodes hold at most capacity children.
func New(capacity int) (*RTree, error) {
	if capacity < 2 {
		return nil, ErrCapacity
	}
	t := &RTree{capacity: capacity}
	t.reset()
	return t, nil
}

// reset discards every node and leaves an empty leaf as the root.
func (t *RTree) reset() {
	t.nodes = t.nodes[:0]
	t.free = t.free[:0]
	t.count = 0
	t.root = t.allocNode(leafKind, -1)
}

// allocNode creates a new childless node, reusing a freed arena slot if one is
// available. Pointers into t.nodes are invalidated by this call.
func (t *RTree) allocNode(kind nodeKind, parent int) int {
	n := node{kind: kind, parent: parent}
	if last := len(t.free) - 1; last >= 0 {
		idx := t.free[last]
		t.free = t.free[:last]
		t.nodes[idx] = n
		return idx
	}
	t.nodes = append(t.nodes, n)
	return len(t.nodes) - 1
}

// freeNode releases a single arena slot. Its children are not released.
func (t *RTree) freeNode(n int) {
	t.nodes[n] = node{parent: -1}
	t.free = append(t.free, n)
}

// Capacity gives the maximum number of children per node.
func (t *RTree) Capacity() int {
	return t.capacity
}

// Len gives the number of circles held in the RTree.
func (t *RTree) Len() int {
	return t.count
}

// Height gives the number of levels in the tree. An empty tree has height 0,
// and a tree consisting of a single leaf has height 1.
func (t *RTree) Height() int {
	if t.count == 0 {
		return 0
	}
	h := 1
	for n := t.root; t.nodes[n].kind == internalKind; n = t.nodes[n].children[0] {
		h++
	}
	return h
}

// Extent gives the Box that most closely bounds the RTree. If the RTree is
// empty, then false is returned.
func (t *RTree) Extent() (BBox, bool) {
	root := &t.nodes[t.root]
	return root.bbox, root.hasBBox
}

// calculateBound calculates the smallest bounding box that fits the children
// of a node. Children without a box are skipped. The bool result is false if
// no child contributed.
func (t *RTree) calculateBound(n int) (BBox, bool) {
	var (
		bb  BBox
		has bool
	)
	add := func(other BBox) {
		if has {
			bb = combine(bb, other)
		} else {
			bb, has = other, true
		}
	}
	nd := &t.nodes[n]
	if nd.kind == leafKind {
		for _, c := range nd.circles {
			add(c.BBox())
		}
		return bb, has
	}
	for _, child := range nd.children {
		if cn := &t.nodes[child]; cn.hasBBox {
			add(cn.bbox)
		}
	}
	return bb, has
}

// refreshBound recalculates the box of a single node from its children.
func (t *RTree) refreshBound(n int) {
	bb, has := t.calculateBound(n)
	t.nodes[n].bbox, t.nodes[n].hasBBox = bb, has
}

// recalculate refreshes the box of n and then of every ancestor up to the
// root. It must be called after any change to the children of n.
func (t *RTree) recalculate(n int) {
	for n != -1 {
		t.refreshBound(n)
		n = t.nodes[n].parent
	}
}

// Search looks for any circles in the tree whose bounding box intersects with
// the given bounding box. The callback is called with each found circle. If an
// error is returned from the callback then the search is terminated early. Any
// error returned from the callback is returned by Search, except for the case
// where the special Stop sentinal error is returned (in which case nil will be
// returned from Search).
func (t *RTree) Search(bb BBox, callback func(Circle) error) error {
	var recurse func(int) error
	recurse = func(n int) error {
		nd := &t.nodes[n]
		if nd.kind == leafKind {
			for _, c := range nd.circles {
				if !c.BBox().Intersects(bb) {
					continue
				}
				if err := callback(c); err != nil {
					return err
				}
			}
			return nil
		}
		for _, child := range nd.children {
			cn := &t.nodes[child]
			if !cn.hasBBox || !overlap(cn.bbox, bb) {
				continue
			}
			if err := recurse(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := recurse(t.root); err != nil && err != Stop {
		return err
	}
	return nil
}

// RangeQuery gives every circle whose bounding box intersects bb, in no
// particular order.
func (t *RTree) RangeQuery(bb BBox) []Circle {
	var found []Circle
	_ = t.Search(bb, func(c Circle) error {
		found = append(found, c)
		return nil
	})
	return found
}

// All gives every circle held in the RTree, in no particular order.
func (t *RTree) All() []Circle {
	all := make([]Circle, 0, t.count)
	return t.appendCircles(t.root, all)
}

// appendCircles appends every circle in the subtree rooted at n to dst.
func (t *RTree) appendCircles(n int, dst []Circle) []Circle {
	nd := &t.nodes[n]
	if nd.kind == leafKind {
		return append(dst, nd.circles...)
	}
	for _, child := range nd.children {
		dst = t.appendCircles(child, dst)
	}
	return dst
}

// LeafSummary describes a single leaf node.
type LeafSummary struct {
	BBox  BBox
	Count int
}

// Leaves calls fn once for every non-empty leaf, in depth first order.
func (t *RTree) Leaves(fn func(LeafSummary)) {
	var recurse func(int)
	recurse = func(n int) {
		nd := &t.nodes[n]
		if nd.kind == internalKind {
			for _, child := range nd.children {
				recurse(child)
			}
			return
		}
		if nd.hasBBox {
			fn(LeafSummary{BBox: nd.bbox, Count: len(nd.circles)})
		}
	}
	recurse(t.root)
}
