package rtree

import (
	"math"
	"sort"
)

// BulkLoad replaces the contents of the RTree with the given circles, using
// the Sort-Tile-Recursive algorithm. The resultant tree is height balanced and
// has minimal node overlap for a static set of circles, allowing for fast
// searching. The input slice is not modified.
func (t *RTree) BulkLoad(circles []Circle) error {
	if t.capacity < 2 {
		return ErrCapacity
	}
	for _, c := range circles {
		if err := c.Validate(); err != nil {
			return err
		}
	}

	t.reset()
	if len(circles) == 0 {
		return nil
	}
	t.freeNode(t.root)

	items := make([]Circle, len(circles))
	copy(items, circles)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].X < items[j].X
	})

	var (
		leafCount  = ceilDiv(len(items), t.capacity)
		sliceCount = int(math.Ceil(math.Sqrt(float64(leafCount))))
		sliceSize  = ceilDiv(len(items), sliceCount)
	)
	var level []int
	for start := 0; start < len(items); start += sliceSize {
		slice := items[start:min(start+sliceSize, len(items))]
		sort.SliceStable(slice, func(i, j int) bool {
			return slice[i].Y < slice[j].Y
		})
		for i := 0; i < len(slice); i += t.capacity {
			leaf := t.allocNode(leafKind, -1)
			group := slice[i:min(i+t.capacity, len(slice))]
			t.nodes[leaf].circles = append([]Circle(nil), group...)
			t.refreshBound(leaf)
			level = append(level, leaf)
		}
	}

	for len(level) > 1 {
		level = t.bulkParents(level)
	}
	t.root = level[0]
	t.count = len(items)
	return nil
}

// bulkParents groups a level of nodes under a new level of parents. Children
// are spread as evenly as possible over the parents (group sizes differ by at
// most one) so that no parent ends up with a tiny remainder.
func (t *RTree) bulkParents(level []int) []int {
	numParents := ceilDiv(len(level), t.capacity)
	base, rem := len(level)/numParents, len(level)%numParents

	parents := make([]int, 0, numParents)
	var start int
	for i := 0; i < numParents; i++ {
		size := base
		if i < rem {
			size++
		}
		parent := t.allocNode(internalKind, -1)
		group := level[start : start+size]
		t.nodes[parent].children = append([]int(nil), group...)
		for _, child := range group {
			t.nodes[child].parent = parent
		}
		t.refreshBound(parent)
		parents = append(parents, parent)
		start += size
	}
	return parents
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
