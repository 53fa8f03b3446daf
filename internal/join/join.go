// Package join implements spatial joins between two sets of circles. A pair
// is joined when the bounding boxes of its circles intersect.
package join

import (
	"github.com/peterstace/spatialjoin/rtree"
)

// DefaultCapacity is the node capacity used for the indexes built by the
// joins.
const DefaultCapacity = 32

// Pair is a single join result.
type Pair struct {
	A, B rtree.Circle
}

// Prepared holds the state built ahead of running a join, so that the build
// cost can be measured separately from the probe cost.
type Prepared struct {
	index  *rtree.RTree
	probes []rtree.Circle
}

// PrepareNestedLoop bulk loads an index over a, ready to be probed with every
// circle of b.
func PrepareNestedLoop(a, b []rtree.Circle, capacity int) (*Prepared, error) {
	index, err := rtree.New(capacity)
	if err != nil {
		return nil, err
	}
	if err := index.BulkLoad(a); err != nil {
		return nil, err
	}
	return &Prepared{index: index, probes: b}, nil
}

// Run performs an index nested loop join: one range query against the index
// per probe circle. Pairs are grouped by probe, in probe order.
func (p *Prepared) Run() []Pair {
	var result []Pair
	for _, b := range p.probes {
		_ = p.index.Search(b.BBox(), func(a rtree.Circle) error {
			result = append(result, Pair{A: a, B: b})
			return nil
		})
	}
	return result
}

// NestedLoop joins a and b using an index nested loop join.
func NestedLoop(a, b []rtree.Circle) ([]Pair, error) {
	p, err := PrepareNestedLoop(a, b, DefaultCapacity)
	if err != nil {
		return nil, err
	}
	return p.Run(), nil
}

// BruteForce joins a and b by testing every pair. It is the reference that
// the indexed joins are checked against.
func BruteForce(a, b []rtree.Circle) []Pair {
	var result []Pair
	for _, cb := range b {
		bb := cb.BBox()
		for _, ca := range a {
			if ca.BBox().Intersects(bb) {
				result = append(result, Pair{A: ca, B: cb})
			}
		}
	}
	return result
}
