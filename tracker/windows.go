package tracker

import (
	"math"
)

// createCascadeRegions returns the windows searched by the detector.  Window
// sizes are the target size scaled by powers of scaleStep, positions step by a
// fraction of the window size starting from the image origin
func createCascadeRegions(imgWidth, imgHeight int, target Rect, config *Config) []Rect {

	var regions []Rect

	for k := -config.ScaleSpread; k <= config.ScaleSpread; k++ {

		scale := math.Pow(config.ScaleStep, float64(k))
		w := int(math.Round(float64(target.Width()) * scale))
		h := int(math.Round(float64(target.Height()) * scale))

		if min(w, h) < config.DetectMinimumSide || w > imgWidth || h > imgHeight {
			continue
		}

		stepX := max(1, int(math.Round(config.RegionStep*float64(w))))
		stepY := max(1, int(math.Round(config.RegionStep*float64(h))))

		for y := 0; y+h <= imgHeight; y += stepY {
			for x := 0; x+w <= imgWidth; x += stepX {
				regions = append(regions, Rect{X0: x, Y0: y, X1: x + w, Y1: y + h})
			}
		}
	}

	return regions
}
