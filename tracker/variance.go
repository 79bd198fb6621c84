package tracker

import (
	"github.com/swdee/go-tld/imgproc"
)

// VarianceFilter rejects windows whose intensity variance is too low to
// contain the target
type VarianceFilter struct {
	integral *imgproc.Integral
	// threshold is the variance a window must exceed
	threshold float64
}

// NewVarianceFilter returns a variance filter with no threshold set
func NewVarianceFilter() *VarianceFilter {
	return &VarianceFilter{
		integral: imgproc.NewIntegral(0, 0),
	}
}

// SetImage computes the integral images of img
func (v *VarianceFilter) SetImage(img *imgproc.Gray) {
	v.integral.Process(img)
}

// SelectThreshold sets the rejection threshold to half the variance of r
func (v *VarianceFilter) SelectThreshold(r Rect) {
	v.threshold = v.Variance(r) * 0.5
}

// Threshold returns the current rejection threshold
func (v *VarianceFilter) Threshold() float64 {
	return v.threshold
}

// Variance returns the intensity variance inside r, which must lie within
// the image.  An empty rectangle has zero variance
func (v *VarianceFilter) Variance(r Rect) float64 {

	area := float64(r.Area())

	if area == 0 {
		return 0
	}

	mean := v.integral.BlockSum(r.X0, r.Y0, r.X1, r.Y1) / area
	sq := v.integral.BlockSqSum(r.X0, r.Y0, r.X1, r.Y1) / area

	variance := sq - mean*mean

	// cancellation in flat regions can leave a tiny negative value
	if variance < 0 {
		return 0
	}

	return variance
}

// CheckVariance reports whether the variance of r exceeds the threshold
func (v *VarianceFilter) CheckVariance(r Rect) bool {
	return v.Variance(r) > v.threshold
}
