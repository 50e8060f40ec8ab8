// Package geometry provides axis-aligned rectangles and the overlap metric
// shared by suppression, tracking and grouping.
package geometry

// Rect is an axis-aligned rectangle given by two corners.
// Inverted or degenerate rectangles are valid values; their area is <= 0.
type Rect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// FromXYXY builds a Rect from a detector's [x1, y1, x2, y2] array.
func FromXYXY(v [4]float64) Rect {
	return Rect{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}
}

// XYXY returns the rectangle as an [x1, y1, x2, y2] array.
func (r Rect) XYXY() [4]float64 {
	return [4]float64{r.X1, r.Y1, r.X2, r.Y2}
}

// Area returns (X2-X1)*(Y2-Y1). It is not clamped, so inverted rectangles
// report a negative area.
func (r Rect) Area() float64 {
	return (r.X2 - r.X1) * (r.Y2 - r.Y1)
}

// Overlap returns the intersection area of a and b as a fraction of the
// smaller rectangle's area.
//
// Unlike IoU, a small box fully inside a larger one scores 1.0. The result is
// 0.0 when the rectangles do not intersect or when the smaller area is <= 0.
// Overlap is symmetric.
func Overlap(a, b Rect) float64 {
	left := max(a.X1, b.X1)
	top := max(a.Y1, b.Y1)
	right := min(a.X2, b.X2)
	bottom := min(a.Y2, b.Y2)

	if right < left || bottom < top {
		return 0.0
	}

	smaller := min(a.Area(), b.Area())
	if smaller <= 0 {
		return 0.0
	}

	return (right - left) * (bottom - top) / smaller
}
