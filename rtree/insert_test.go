package rtree

import (
	"reflect"
	"testing"
)

// buildTwoLeafTree creates a root with one leaf child per group, in order.
func buildTwoLeafTree(t *testing.T, capacity int, groups ...[]Circle) *RTree {
	t.Helper()
	rt := mustNew(t, capacity)
	rt.nodes[rt.root].kind = internalKind
	for _, group := range groups {
		leaf := rt.allocNode(leafKind, rt.root)
		rt.nodes[leaf].circles = group
		rt.nodes[rt.root].children = append(rt.nodes[rt.root].children, leaf)
		rt.recalculate(leaf)
		rt.count += len(group)
	}
	checkInvariants(t, rt)
	return rt
}

func TestChooseLeafNode(t *testing.T) {
	low := []Circle{{0, 0, 0}, {1, 1, 0}}
	high := []Circle{{10, 10, 0}, {11, 11, 0}}
	rt := buildTwoLeafTree(t, 4, low, high)
	first, second := rt.nodes[rt.root].children[0], rt.nodes[rt.root].children[1]

	for _, tt := range []struct {
		c    Circle
		want int
	}{
		{Circle{0.5, 0.5, 0}, first},
		{Circle{10.5, 10.5, 0.1}, second},
		{Circle{5, 5, 0}, first},
		{Circle{9, 9, 0}, second},
	} {
		if got := rt.chooseLeafNode(tt.c); got != tt.want {
			t.Errorf("%v: got %d want %d", tt.c, got, tt.want)
		}
	}
}

func TestChooseLeafNodeContainingChildWins(t *testing.T) {
	// The first leaf is a vertical segment with zero area, so growing it to
	// reach (0, 20) costs nothing. The second leaf already contains (0, 20)
	// and must still be preferred.
	segment := []Circle{{0, 0, 0}, {0, 10, 0}}
	square := []Circle{{0, 20, 5}}
	rt := buildTwoLeafTree(t, 4, segment, square)
	want := rt.nodes[rt.root].children[1]
	if got := rt.chooseLeafNode(Circle{0, 20, 0}); got != want {
		t.Errorf("got %d want %d", got, want)
	}

	// With no containing child, zero enlargement ties go to the first.
	seg2 := []Circle{{0, 30, 0}, {0, 40, 0}}
	rt = buildTwoLeafTree(t, 4, segment, seg2)
	want = rt.nodes[rt.root].children[0]
	if got := rt.chooseLeafNode(Circle{0, 20, 0}); got != want {
		t.Errorf("tie: got %d want %d", got, want)
	}
}

func TestSplitLeaf(t *testing.T) {
	rt := mustNew(t, 4)
	for _, x := range []float64{4, 3, 2, 1, 0} {
		if err := rt.Insert(Circle{X: x}); err != nil {
			t.Fatal(err)
		}
	}
	checkInvariants(t, rt)

	root := rt.nodes[rt.root]
	if root.kind != internalKind || len(root.children) != 2 {
		t.Fatalf("expected new root with 2 children, got %v with %d", root.kind, len(root.children))
	}
	lower := rt.nodes[root.children[0]].circles
	upper := rt.nodes[root.children[1]].circles
	if want := []Circle{{X: 0}, {X: 1}}; !reflect.DeepEqual(lower, want) {
		t.Errorf("lower half: got %v want %v", lower, want)
	}
	if want := []Circle{{X: 2}, {X: 3}, {X: 4}}; !reflect.DeepEqual(upper, want) {
		t.Errorf("upper half: got %v want %v", upper, want)
	}
	if h := rt.Height(); h != 2 {
		t.Errorf("height: got %d want 2", h)
	}
}

func TestSplitInternal(t *testing.T) {
	rt := mustNew(t, 2)
	for i := 0; i < 40; i++ {
		x := float64((i * 7) % 40)
		if err := rt.Insert(Circle{X: x, Y: x}); err != nil {
			t.Fatal(err)
		}
		checkInvariants(t, rt)
	}
	if h := rt.Height(); h < 5 {
		t.Errorf("expected internal splits to grow the tree, height is %d", h)
	}
}

func TestInsertIntoEmptiedInternalRoot(t *testing.T) {
	rt := buildTwoLeafTree(t, 4, []Circle{{0, 0, 1}})
	leaf := rt.nodes[rt.root].children[0]
	rt.nodes[leaf].circles = nil
	rt.removeChild(rt.root, leaf)
	rt.freeNode(leaf)
	rt.count = 0
	rt.recalculate(rt.root)

	if err := rt.Insert(Circle{5, 5, 1}); err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, rt)
	if rt.nodes[rt.root].kind != leafKind {
		t.Errorf("expected the root to become a leaf")
	}
}

func TestCondenseReinserts(t *testing.T) {
	rt := mustNew(t, 4)
	var circles []Circle
	for i := 0; i < 8; i++ {
		circles = append(circles, Circle{X: float64(i), Y: float64(i % 3)})
	}
	if err := rt.BulkLoad(circles); err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, rt)
	if got := rt.Height(); got != 2 {
		t.Fatalf("height: got %d want 2", got)
	}

	// The first leaf holds x=0..3. Removing three of them underfills it, so
	// its last circle is moved to the other leaf.
	for _, c := range circles[:3] {
		if !rt.Delete(c) {
			t.Fatalf("could not delete %v", c)
		}
		checkInvariants(t, rt)
	}
	checkSameCircles(t, rt.All(), circles[3:])
}
