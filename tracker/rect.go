package tracker

import (
	"math"

	"github.com/swdee/go-tld/imgproc"
)

// Rect is an integer axis aligned rectangle used for cascade windows.  The
// point (X0,Y0) is inside the rectangle, (X1,Y1) is one past the bottom right
// corner
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Width of the rectangle
func (r Rect) Width() int {
	return r.X1 - r.X0
}

// Height of the rectangle
func (r Rect) Height() int {
	return r.Y1 - r.Y0
}

// Area of the rectangle, zero if it is empty
func (r Rect) Area() int {
	if r.X1 <= r.X0 || r.Y1 <= r.Y0 {
		return 0
	}
	return r.Width() * r.Height()
}

// Float converts the rectangle to floating point coordinates
func (r Rect) Float() RectF {
	return RectF{
		X0: float64(r.X0),
		Y0: float64(r.Y0),
		X1: float64(r.X1),
		Y1: float64(r.Y1),
	}
}

// RectF is a floating point axis aligned rectangle, used for the tracked
// target so sub pixel motion accumulates between frames
type RectF struct {
	X0, Y0, X1, Y1 float64
}

// NewRectF creates a rectangle from its top left and bottom right corners
func NewRectF(x0, y0, x1, y1 float64) RectF {
	return RectF{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// Width of the rectangle
func (r RectF) Width() float64 {
	return r.X1 - r.X0
}

// Height of the rectangle
func (r RectF) Height() float64 {
	return r.Y1 - r.Y0
}

// Area of the rectangle, zero if it is empty
func (r RectF) Area() float64 {
	if r.X1 <= r.X0 || r.Y1 <= r.Y0 {
		return 0
	}
	return r.Width() * r.Height()
}

// Center returns the center point of the rectangle
func (r RectF) Center() imgproc.Point {
	return imgproc.Point{
		X: (r.X0 + r.X1) / 2,
		Y: (r.Y0 + r.Y1) / 2,
	}
}

// Round returns the nearest integer rectangle
func (r RectF) Round() Rect {
	return Rect{
		X0: int(math.Round(r.X0)),
		Y0: int(math.Round(r.Y0)),
		X1: int(math.Round(r.X1)),
		Y1: int(math.Round(r.Y1)),
	}
}

// Clip restricts the rectangle to an image of the given size
func (r RectF) Clip(width, height int) RectF {
	w := float64(width)
	h := float64(height)

	return RectF{
		X0: math.Min(math.Max(r.X0, 0), w),
		Y0: math.Min(math.Max(r.Y0, 0), h),
		X1: math.Min(math.Max(r.X1, 0), w),
		Y1: math.Min(math.Max(r.Y1, 0), h),
	}
}

// Inside reports whether the rectangle lies within an image of the given size
func (r RectF) Inside(width, height int) bool {
	return r.X0 >= 0 && r.Y0 >= 0 &&
		r.X1 <= float64(width) && r.Y1 <= float64(height)
}

// Overlap calculates the area of intersection divided by the area of union of
// two rectangles.  Returns 0 when the union is empty
func (r RectF) Overlap(other RectF) float64 {

	iw := math.Min(r.X1, other.X1) - math.Max(r.X0, other.X0)
	ih := math.Min(r.Y1, other.Y1) - math.Max(r.Y0, other.Y0)

	inter := 0.0

	if iw > 0 && ih > 0 {
		inter = iw * ih
	}

	union := r.Area() + other.Area() - inter

	if union <= 0 {
		return 0
	}

	return inter / union
}
