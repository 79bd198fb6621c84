package imgproc

import (
	"golang.org/x/image/draw"
)

// minPyramidSide is the smallest side length a pyramid level may have
const minPyramidSide = 8

// NewPyramid builds an image pyramid with at most levels layers.  Layer 0 is
// img itself, each following layer is half the size of the previous one,
// smoothed by the x/image bilinear kernel.  Fewer layers are returned when
// the image becomes too small
func NewPyramid(img *Gray, levels int) []*Gray {

	pyr := []*Gray{img}

	for i := 1; i < levels; i++ {
		prev := pyr[i-1]
		w := prev.Width / 2
		h := prev.Height / 2

		if w < minPyramidSide || h < minPyramidSide {
			break
		}

		next := NewGray(w, h)
		draw.BiLinear.Scale(next, next.Bounds(), prev, prev.Bounds(), draw.Src, nil)

		pyr = append(pyr, next)
	}

	return pyr
}

// LevelCoordinate maps a coordinate at pyramid level 0 into the pixel
// coordinate system of the given level, treating pixel centers the way the
// x/image scaler does
func LevelCoordinate(p Point, level int) Point {

	if level == 0 {
		return p
	}

	s := float64(int(1) << level)

	return Point{
		X: (p.X+0.5)/s - 0.5,
		Y: (p.Y+0.5)/s - 0.5,
	}
}
