package rtree

import "fmt"

// InvariantError describes a structural defect found in an RTree.
type InvariantError struct {
	// Node is the arena index of the offending node.
	Node   int
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("rtree: invariant violated at node %d: %s", e.Node, e.Reason)
}

// Check verifies the structure of the tree. It returns an *InvariantError
// describing the first defect found, or nil if the tree is sound. The checks
// are:
//
//   - every node's box is exactly the union of its children's boxes,
//   - no node has more children than the capacity,
//   - no node other than the root is empty,
//   - children point back to their parent,
//   - every leaf is at the same depth,
//   - every arena slot is either reachable from the root or free,
//   - the circle count matches Len.
func (t *RTree) Check() error {
	if t.capacity < 2 {
		return ErrCapacity
	}
	if t.nodes[t.root].parent != -1 {
		return &InvariantError{t.root, "root has a parent"}
	}

	visited := make(map[int]bool)
	leafDepth := -1
	var count int
	var recurse func(n, depth int) error
	recurse = func(n, depth int) error {
		if visited[n] {
			return &InvariantError{n, "reached more than once"}
		}
		visited[n] = true
		nd := &t.nodes[n]

		switch nd.kind {
		case leafKind:
			if len(nd.children) != 0 {
				return &InvariantError{n, "leaf holds child nodes"}
			}
		case internalKind:
			if len(nd.circles) != 0 {
				return &InvariantError{n, "internal node holds circles"}
			}
		default:
			return &InvariantError{n, "freed node is reachable"}
		}

		num := nd.numChildren()
		if num > t.capacity {
			return &InvariantError{n, fmt.Sprintf("%d children exceeds capacity %d", num, t.capacity)}
		}
		if num == 0 && n != t.root {
			return &InvariantError{n, "non-root node is empty"}
		}

		want, has := t.calculateBound(n)
		if has != nd.hasBBox || (has && want != nd.bbox) {
			return &InvariantError{n, fmt.Sprintf("cached box %v does not match children %v", nd.bbox, want)}
		}
		if has {
			if err := nd.bbox.Validate(); err != nil {
				return &InvariantError{n, err.Error()}
			}
		}

		if nd.kind == leafKind {
			if num != 0 {
				if leafDepth == -1 {
					leafDepth = depth
				} else if leafDepth != depth {
					return &InvariantError{n, fmt.Sprintf("leaf at depth %d, expected %d", depth, leafDepth)}
				}
			}
			count += num
			return nil
		}
		for _, child := range nd.children {
			if child < 0 || child >= len(t.nodes) {
				return &InvariantError{n, fmt.Sprintf("child index %d out of range", child)}
			}
			if p := t.nodes[child].parent; p != n {
				return &InvariantError{child, fmt.Sprintf("parent is %d, expected %d", p, n)}
			}
			if err := recurse(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := recurse(t.root, 0); err != nil {
		return err
	}

	if count != t.count {
		return &InvariantError{t.root, fmt.Sprintf("holds %d circles, but Len is %d", count, t.count)}
	}
	if len(visited)+len(t.free) != len(t.nodes) {
		return &InvariantError{t.root, fmt.Sprintf("%d reachable and %d free nodes, but arena has %d", len(visited), len(t.free), len(t.nodes))}
	}
	return nil
}
