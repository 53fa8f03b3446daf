package rtree

import (
	"math"
	"sort"
)

// Insert adds a new circle to the RTree. An error is only returned if the
// circle is malformed, in which case the tree is left unchanged.
func (t *RTree) Insert(c Circle) error {
	if err := c.Validate(); err != nil {
		return err
	}
	t.insert(c)
	return nil
}

func (t *RTree) insert(c Circle) {
	leaf := t.chooseLeafNode(c)
	if nd := &t.nodes[leaf]; nd.kind == internalKind {
		// Only an emptied root can be a childless internal node. It becomes
		// the (single) leaf of the tree.
		nd.kind = leafKind
		nd.children = nil
	}
	t.nodes[leaf].circles = append(t.nodes[leaf].circles, c)
	t.count++
	t.recalculate(leaf)
	t.adjustTree(leaf)
}

// chooseLeafNode descends from the root to the leaf that c should be added to.
// At each level the first child that already contains c is taken. Failing
// that, the child needing the least enlargement is taken, with ties going to
// the earliest child.
func (t *RTree) chooseLeafNode(c Circle) int {
	n := t.root
	for {
		nd := &t.nodes[n]
		if nd.kind == leafKind || len(nd.children) == 0 {
			return n
		}
		chosen := -1
		bestDelta := math.Inf(+1)
		for _, child := range nd.children {
			cn := &t.nodes[child]
			if !cn.hasBBox {
				continue
			}
			if cn.bbox.Contains(c) {
				chosen = child
				break
			}
			if delta := cn.bbox.EnlargedArea(c) - cn.bbox.Area(); delta < bestDelta {
				bestDelta = delta
				chosen = child
			}
		}
		if chosen == -1 {
			chosen = nd.children[0]
		}
		n = chosen
	}
}

// adjustTree walks from a node up to the root, splitting any node that has
// more children than the capacity allows and keeping every box on the way
// current.
func (t *RTree) adjustTree(n int) {
	for n != -1 {
		t.refreshBound(n)
		if t.nodes[n].numChildren() > t.capacity {
			sibling := t.splitNode(n)
			if parent := t.nodes[n].parent; parent == -1 {
				t.joinRoots(n, sibling)
			} else {
				t.nodes[parent].children = append(t.nodes[parent].children, sibling)
				t.nodes[sibling].parent = parent
			}
		}
		n = t.nodes[n].parent
	}
}

// joinRoots makes a new root with r1 and r2 as its children.
func (t *RTree) joinRoots(r1, r2 int) {
	root := t.allocNode(internalKind, -1)
	t.nodes[root].children = []int{r1, r2}
	t.nodes[r1].parent = root
	t.nodes[r2].parent = root
	t.refreshBound(root)
	t.root = root
}

// splitNode splits node with index n into two nodes. The children are ordered
// by their leading x coordinate and cut in half. The lower half stays in n, and
// the upper half is moved to a newly created node with the same parent. The
// return value is the index of the new node.
func (t *RTree) splitNode(n int) int {
	sibling := t.allocNode(t.nodes[n].kind, t.nodes[n].parent)
	nd, sn := &t.nodes[n], &t.nodes[sibling]

	if nd.kind == leafKind {
		circles := nd.circles
		sort.SliceStable(circles, func(i, j int) bool {
			return circles[i].X < circles[j].X
		})
		half := len(circles) / 2
		sn.circles = append([]Circle(nil), circles[half:]...)
		nd.circles = circles[:half:half]
	} else {
		children := nd.children
		leadingX := func(child int) float64 {
			if cn := &t.nodes[child]; cn.hasBBox {
				return cn.bbox.MinX
			}
			return math.Inf(+1)
		}
		sort.SliceStable(children, func(i, j int) bool {
			return leadingX(children[i]) < leadingX(children[j])
		})
		half := len(children) / 2
		sn.children = append([]int(nil), children[half:]...)
		nd.children = children[:half:half]
		for _, child := range sn.children {
			t.nodes[child].parent = sibling
		}
	}

	t.refreshBound(n)
	t.refreshBound(sibling)
	return sibling
}
