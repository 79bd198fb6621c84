package tracker

import (
	"github.com/swdee/go-tld/imgproc"
	"github.com/swdee/go-tld/robust"
)

// AdjustRegion moves the target region by the scale and translation that
// best explains the point correspondences
type AdjustRegion struct {
	estimator *robust.LeastMedianSquares
	// model is the motion found by the last call to Process
	model robust.ScaleTranslate
}

// NewAdjustRegion returns a region adjuster evaluating iterations random
// motion hypotheses per frame
func NewAdjustRegion(seed int64, iterations int) *AdjustRegion {
	return &AdjustRegion{
		estimator: robust.NewLeastMedianSquares(seed, iterations),
	}
}

// Process returns target transformed by the motion fitted to pairs.  Returns
// false if no motion could be fitted or the moved region leaves an image of
// the given size
func (a *AdjustRegion) Process(pairs []robust.AssociatedPair, target RectF,
	width, height int) (RectF, bool) {

	model, ok := a.estimator.Process(pairs)

	if !ok {
		return target, false
	}

	a.model = model

	tl := model.Apply(imgproc.Point{X: target.X0, Y: target.Y0})
	br := model.Apply(imgproc.Point{X: target.X1, Y: target.Y1})

	moved := NewRectF(tl.X, tl.Y, br.X, br.Y)

	if !moved.Inside(width, height) || moved.Area() == 0 {
		return target, false
	}

	return moved, true
}

// Model returns the motion found by the last successful call to Process
func (a *AdjustRegion) Model() robust.ScaleTranslate {
	return a.model
}
