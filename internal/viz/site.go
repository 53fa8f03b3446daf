// Package viz builds and serves the artifacts used to visualise an RTree: the
// indexed points and the boxes of the tree's leaves.
package viz

import (
	"math"

	"github.com/google/uuid"

	"github.com/peterstace/spatialjoin/rtree"
)

// DefaultCapacity is the node capacity of the tree that is visualised.
const DefaultCapacity = 16

// Point is a circle encoded as [x, y, radius].
type Point [3]float64

// LeafBox is the box of a single leaf and the number of circles it holds.
type LeafBox struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Count int     `json:"count"`
}

// Site holds everything the visualisation page renders.
type Site struct {
	BuildID  string    `json:"build"`
	Towers   []Point   `json:"towers"`
	Cities   []Point   `json:"cities"`
	LeafMBRs []LeafBox `json:"leaf_mbrs"`

	// BBox is the extent of every point as [minX, minY, maxX, maxY].
	BBox [4]float64 `json:"bbox"`
}

// Build inserts every tower and city one at a time into a new tree with the
// given capacity, and captures the resulting leaf boxes.
func Build(towers, cities []rtree.Circle, capacity int) (*Site, error) {
	tree, err := rtree.New(capacity)
	if err != nil {
		return nil, err
	}
	for _, set := range [][]rtree.Circle{towers, cities} {
		for _, c := range set {
			if err := tree.Insert(c); err != nil {
				return nil, err
			}
		}
	}

	site := &Site{
		BuildID: uuid.NewString(),
		Towers:  points(towers),
		Cities:  points(cities),
		BBox:    extent(towers, cities),
	}
	tree.Leaves(func(s rtree.LeafSummary) {
		site.LeafMBRs = append(site.LeafMBRs, LeafBox{
			X1:    s.BBox.MinX,
			Y1:    s.BBox.MinY,
			X2:    s.BBox.MaxX,
			Y2:    s.BBox.MaxY,
			Count: s.Count,
		})
	})
	return site, nil
}

// Circles gives every tower and city held by the site.
func (s *Site) Circles() []rtree.Circle {
	cs := make([]rtree.Circle, 0, len(s.Towers)+len(s.Cities))
	for _, set := range [][]Point{s.Towers, s.Cities} {
		for _, p := range set {
			cs = append(cs, rtree.Circle{X: p[0], Y: p[1], Radius: p[2]})
		}
	}
	return cs
}

// Center gives the centre of the site's extent as (lat, lon).
func (s *Site) Center() (float64, float64) {
	return (s.BBox[1] + s.BBox[3]) / 2, (s.BBox[0] + s.BBox[2]) / 2
}

func points(cs []rtree.Circle) []Point {
	ps := make([]Point, len(cs))
	for i, c := range cs {
		ps[i] = Point{c.X, c.Y, c.Radius}
	}
	return ps
}

// extent gives the extent of the circle centres, or the whole world if there
// are none.
func extent(sets ...[]rtree.Circle) [4]float64 {
	ext := [4]float64{math.Inf(+1), math.Inf(+1), math.Inf(-1), math.Inf(-1)}
	var found bool
	for _, set := range sets {
		for _, c := range set {
			found = true
			ext[0] = math.Min(ext[0], c.X)
			ext[1] = math.Min(ext[1], c.Y)
			ext[2] = math.Max(ext[2], c.X)
			ext[3] = math.Max(ext[3], c.Y)
		}
	}
	if !found {
		return [4]float64{-180, -90, 180, 90}
	}
	return ext
}
