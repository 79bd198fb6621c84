package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/swdee/go-tld/imgproc"
	"github.com/swdee/go-tld/tracker"
	"gocv.io/x/gocv"
)

// TargetStyle defines the colors used for rendering the target box in each
// tracker state
type TargetStyle struct {
	TrackingColor    color.RGBA
	ReacquiringColor color.RGBA
	LineThickness    int
	// PointColor is the color of the tracked point grid, drawn when
	// PointRadius is above zero
	PointColor  color.RGBA
	PointRadius int
}

// DefaultTargetStyle returns default target style settings
func DefaultTargetStyle() TargetStyle {
	return TargetStyle{
		TrackingColor:    Green,
		ReacquiringColor: Red,
		LineThickness:    2,
		PointColor:       Cyan,
		PointRadius:      1,
	}
}

// TargetBox renders the box around the tracked target along with a label of
// the tracker state and confidence.  rect is in image coordinates
func TargetBox(img *gocv.Mat, rect image.Rectangle, state tracker.State,
	confidence float64, font Font, style TargetStyle) {

	useClr := style.TrackingColor

	if state != tracker.Tracking {
		useClr = style.ReacquiringColor
	}

	gocv.Rectangle(img, rect, useClr, style.LineThickness)

	text := fmt.Sprintf("%s %.2f", state, confidence)
	label := newBoxLabel(rect, text, useClr, font, style.LineThickness)

	// draw box text gets written on
	gocv.Rectangle(img, label.rect, label.clr, -1)

	font.put(img, label.text, label.textPos, font.Color)
}

// TrackedPoints draws the point tracks which contributed to the last frame.
// Points are in tracking coordinates and are multiplied by scale
func TrackedPoints(img *gocv.Mat, points []imgproc.Point, scale float64,
	style TargetStyle) {

	if style.PointRadius <= 0 {
		return
	}

	for _, p := range points {
		gocv.Circle(img, image.Pt(int(p.X*scale), int(p.Y*scale)),
			style.PointRadius, style.PointColor, -1)
	}
}

// boxLabel holds the rendering details of a box label
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// newBoxLabel calculates where the label text of a box is placed.  The label
// sits on top of the box, or just inside it when the box touches the top of
// the image
func newBoxLabel(box image.Rectangle, text string, clr color.RGBA, font Font,
	lineThickness int) boxLabel {

	textSize := font.textSize(text)
	size := font.padded(textSize)

	var left int

	switch font.Anchor {
	case AnchorCenter:
		left = (box.Min.X+box.Max.X)/2 - size.X/2
	case AnchorRight:
		left = box.Max.X - size.X + lineThickness/2
	default:
		left = box.Min.X - lineThickness/2
	}

	bottom := box.Min.Y

	if bottom-size.Y < 0 {
		bottom = box.Min.Y + size.Y
	}

	return boxLabel{
		rect:    image.Rect(left, bottom-size.Y, left+size.X, bottom),
		clr:     clr,
		text:    text,
		textPos: image.Pt(left+font.Padding.Left, bottom-font.Padding.Bottom),
	}
}
