package rtree

import (
	"fmt"
	"math"
)

// BBox is an axis-aligned bounding box.
type BBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// Validate reports whether the box is well formed, i.e. has finite
// coordinates and MinX <= MaxX and MinY <= MaxY.
func (b BBox) Validate() error {
	for _, v := range [...]float64{b.MinX, b.MinY, b.MaxX, b.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate in %v", ErrInvalidBBox, b)
		}
	}
	if b.MinX > b.MaxX || b.MinY > b.MaxY {
		return fmt.Errorf("%w: inverted extent %v", ErrInvalidBBox, b)
	}
	return nil
}

// Area gives the area of the box. Inverted extents have zero area.
func (b BBox) Area() float64 {
	return math.Max(0, b.MaxX-b.MinX) * math.Max(0, b.MaxY-b.MinY)
}

// Contains checks if the full extent of the circle lies within the box. The
// box edges are inclusive.
func (b BBox) Contains(c Circle) bool {
	return b.MinX <= c.X-c.Radius && c.X+c.Radius <= b.MaxX &&
		b.MinY <= c.Y-c.Radius && c.Y+c.Radius <= b.MaxY
}

// EnlargedArea gives the area of the smallest box covering both b and the
// circle. The box itself is not modified.
func (b BBox) EnlargedArea(c Circle) float64 {
	return combine(b, c.BBox()).Area()
}

// Intersects checks if two boxes share interior. Boxes that only touch along
// an edge do not intersect. On an axis where either box has zero extent (as
// the box of a zero radius circle does) the bounds are inclusive instead,
// otherwise points could never be found.
func (b BBox) Intersects(other BBox) bool {
	return spans(b.MinX, b.MaxX, other.MinX, other.MaxX) &&
		spans(b.MinY, b.MaxY, other.MinY, other.MaxY)
}

func spans(lo1, hi1, lo2, hi2 float64) bool {
	if lo1 == hi1 || lo2 == hi2 {
		return lo1 <= hi2 && lo2 <= hi1
	}
	return lo1 < hi2 && lo2 < hi1
}

// combine gives the smallest bounding box containing both bbox1 and bbox2.
func combine(bbox1, bbox2 BBox) BBox {
	return BBox{
		MinX: math.Min(bbox1.MinX, bbox2.MinX),
		MinY: math.Min(bbox1.MinY, bbox2.MinY),
		MaxX: math.Max(bbox1.MaxX, bbox2.MaxX),
		MaxY: math.Max(bbox1.MaxY, bbox2.MaxY),
	}
}

// overlap is the closed version of Intersects. A node's box always covers the
// boxes below it, so pruning on overlap never skips a match of Intersects.
func overlap(bbox1, bbox2 BBox) bool {
	return true &&
		(bbox1.MinX <= bbox2.MaxX) && (bbox1.MaxX >= bbox2.MinX) &&
		(bbox1.MinY <= bbox2.MaxY) && (bbox1.MaxY >= bbox2.MinY)
}

// Circle is a point with a radius. It is the item type stored in the RTree.
// Two circles with the same centre and radius are the same item.
type Circle struct {
	X, Y, Radius float64
}

// BBox gives the square that bounds the circle.
func (c Circle) BBox() BBox {
	return BBox{
		MinX: c.X - c.Radius,
		MinY: c.Y - c.Radius,
		MaxX: c.X + c.Radius,
		MaxY: c.Y + c.Radius,
	}
}

// Validate checks that the circle has a finite centre and a non-negative
// finite radius.
func (c Circle) Validate() error {
	if math.IsNaN(c.X) || math.IsInf(c.X, 0) || math.IsNaN(c.Y) || math.IsInf(c.Y, 0) {
		return fmt.Errorf("%w: non-finite centre (%v, %v)", ErrInvalidCircle, c.X, c.Y)
	}
	if math.IsNaN(c.Radius) || math.IsInf(c.Radius, 0) || c.Radius < 0 {
		return fmt.Errorf("%w: radius %v", ErrInvalidCircle, c.Radius)
	}
	if c.BBox().Validate() != nil {
		return fmt.Errorf("%w: extent of %v overflows", ErrInvalidCircle, c)
	}
	return nil
}
