package render

import (
	"image"
	"image/color"

	"github.com/swdee/go-tld/tracker"
	"gocv.io/x/gocv"
)

// TrailStyle defines the parameters used for rendering the trail style
type TrailStyle struct {
	LineColor     color.RGBA
	LineThickness int
	// CircleColor is the color of the circle drawn on the most recent point
	CircleColor  color.RGBA
	CircleRadius int
}

// DefaultTrailStyle returns default trail style settings
func DefaultTrailStyle() TrailStyle {
	return TrailStyle{
		LineColor:     Yellow,
		LineThickness: 1,
		CircleColor:   Pink,
		CircleRadius:  3,
	}
}

// Trail draws the target center history on the source image.  Each segment
// the target was continuously found in is drawn as its own line
func Trail(img *gocv.Mat, trail *tracker.Trail, scale float64, style TrailStyle) {

	segments := trail.Segments()

	for s, points := range segments {

		for i := 1; i < len(points); i++ {
			gocv.Line(img,
				scalePoint(points[i-1], scale),
				scalePoint(points[i], scale),
				style.LineColor, style.LineThickness,
			)
		}

		// draw center point circle on the current position
		if s == len(segments)-1 && len(points) > 0 {
			gocv.Circle(img, scalePoint(points[len(points)-1], scale),
				style.CircleRadius, style.CircleColor, -1)
		}
	}
}

// scalePoint maps a trail point from tracking resolution to image resolution
func scalePoint(p tracker.Point, scale float64) image.Point {
	return image.Pt(int(float64(p.X)*scale), int(float64(p.Y)*scale))
}
