package rtree

// Delete removes a single circle equal to c from the RTree. If the circle
// occurs more than once, only one occurrence is removed. The returned bool
// indicates whether or not the circle could be found and thus removed from the
// RTree. Deleting a circle that isn't in the tree is not an error.
func (t *RTree) Delete(c Circle) bool {
	// D1 [Find node containing record]
	leaf, idx := t.findLeaf(t.root, c)
	if leaf == -1 {
		return false
	}

	// D2 [Delete record]
	circles := t.nodes[leaf].circles
	t.nodes[leaf].circles = append(circles[:idx], circles[idx+1:]...)
	t.count--
	t.recalculate(leaf)

	// D3 [Propagate changes]
	t.condenseTree(leaf)

	// D4 [Shorten tree]
	if root := &t.nodes[t.root]; root.kind == internalKind && len(root.children) == 1 {
		child := root.children[0]
		if t.nodes[child].kind == internalKind {
			t.freeNode(t.root)
			t.root = child
			t.nodes[child].parent = -1
			t.refreshBound(child)
		}
	}
	return true
}

// findLeaf finds the leaf holding a circle equal to c, searching only those
// subtrees whose box overlaps the box of c. It gives the leaf and the position
// of c within it, or -1 if c could not be found.
func (t *RTree) findLeaf(n int, c Circle) (int, int) {
	nd := &t.nodes[n]
	if nd.kind == leafKind {
		for i, other := range nd.circles {
			if other == c {
				return n, i
			}
		}
		return -1, -1
	}
	bb := c.BBox()
	for _, child := range nd.children {
		cn := &t.nodes[child]
		if !cn.hasBBox || !overlap(cn.bbox, bb) {
			continue
		}
		if leaf, idx := t.findLeaf(child, c); leaf != -1 {
			return leaf, idx
		}
	}
	return -1, -1
}

// condenseTree walks from a leaf up to the root, removing every non-root node
// that has fewer than half of the capacity as children. The circles beneath
// removed nodes are inserted again once the walk has finished, most recently
// collected first.
func (t *RTree) condenseTree(leaf int) {
	// CT1 [Initialise]
	minChildren := t.capacity / 2
	var orphans []Circle

	for n := leaf; n != -1; {
		// CT2 [Find Parent Entry]
		parent := t.nodes[n].parent
		if parent != -1 && t.nodes[n].numChildren() < minChildren {
			// CT3 [Eliminate Under-Full Node]
			t.removeChild(parent, n)
			orphans = t.appendCircles(n, orphans)
			t.freeSubtree(n)
		}

		// CT4 [Adjust Covering Rectangle]
		if parent != -1 {
			t.refreshBound(parent)
		}

		// CT5 [Move Up One Level In Tree]
		n = parent
	}

	if root := &t.nodes[t.root]; root.kind == internalKind && len(root.children) == 0 {
		root.kind = leafKind
		root.children = nil
		root.hasBBox = false
	}

	// CT6 [Reinsert orphaned entries]
	t.count -= len(orphans)
	for i := len(orphans) - 1; i >= 0; i-- {
		t.insert(orphans[i])
	}
}

// removeChild detaches child from the child list of parent.
func (t *RTree) removeChild(parent, child int) {
	children := t.nodes[parent].children
	for i, c := range children {
		if c == child {
			t.nodes[parent].children = append(children[:i], children[i+1:]...)
			return
		}
	}
}

// freeSubtree releases the arena slots of n and everything beneath it.
func (t *RTree) freeSubtree(n int) {
	if t.nodes[n].kind == internalKind {
		for _, child := range t.nodes[n].children {
			t.freeSubtree(child)
		}
	}
	t.freeNode(n)
}
