package tracker

import (
	"github.com/golang/glog"
)

// ambiguousRatio is the fraction of the best confidence another local maximum
// needs to make the detection ambiguous
const ambiguousRatio = 0.9

// FernInfo is a window which passed the variance test along with the summed
// fern counts of its values
type FernInfo struct {
	Rect Rect
	SumP int64
	SumN int64
}

// scoredWindow is a window ranked by the fern stage
type scoredWindow struct {
	index int
	score float64
}

// Detection runs the detection cascade over the candidate windows of a frame.
// Results of the last run are available until the next call to
// DetectionCascade
type Detection struct {
	config    *Config
	variance  *VarianceFilter
	ferns     *FernClassifier
	templates *TemplateMatching
	nms       *NonMaximalSuppression

	// fernInfo holds every window which passed the variance test
	fernInfo []FernInfo
	// scored holds the windows passed from the fern stage to template matching
	scored []scoredWindow
	// candidates are windows with a template confidence above the upper
	// threshold
	candidates []Region
	// maxima are the local maxima among the candidates
	maxima []Region
	// ambiguousRegions are local maxima almost as confident as best at a
	// different location
	ambiguousRegions []Rect

	best      Region
	success   bool
	ambiguous bool
}

// NewDetection returns a detector using the given cascade stages
func NewDetection(config *Config, variance *VarianceFilter, ferns *FernClassifier,
	templates *TemplateMatching) *Detection {

	return &Detection{
		config:    config,
		variance:  variance,
		ferns:     ferns,
		templates: templates,
		nms:       NewNonMaximalSuppression(config.NmsOverlap),
	}
}

// DetectionCascade searches the windows of the current frame for the target
func (d *Detection) DetectionCascade(windows []Rect) {

	d.fernInfo = d.fernInfo[:0]
	d.scored = d.scored[:0]
	d.candidates = d.candidates[:0]
	d.maxima = d.maxima[:0]
	d.ambiguousRegions = d.ambiguousRegions[:0]
	d.best = Region{}
	d.success = false
	d.ambiguous = false

	totalP, totalN := d.computeFernInfo(windows)

	if totalP > renormalizeLimit {
		d.ferns.RenormalizeP()
	}
	if totalN > renormalizeLimit {
		d.ferns.RenormalizeN()
	}

	d.selectFernWindows(totalP, totalN)
	d.computeTemplateConfidence()

	d.maxima = d.nms.Process(d.candidates, d.maxima)

	d.selectBest()

	glog.V(2).Infof("detection windows=%d variance=%d ferns=%d candidates=%d maxima=%d success=%t ambiguous=%t",
		len(windows), len(d.fernInfo), len(d.scored), len(d.candidates),
		len(d.maxima), d.success, d.ambiguous)
}

// computeFernInfo applies the variance test to every window and sums the
// fern counts of those passing
func (d *Detection) computeFernInfo(windows []Rect) (totalP, totalN int64) {

	for _, r := range windows {

		if !d.variance.CheckVariance(r) {
			continue
		}

		sumP, sumN := d.ferns.LookupPN(r)

		d.fernInfo = append(d.fernInfo, FernInfo{Rect: r, SumP: sumP, SumN: sumN})

		totalP += sumP
		totalN += sumN
	}

	return totalP, totalN
}

// selectFernWindows keeps the windows whose share of the positive counts is
// larger than their share of the negative counts, limited to the most likely
// MaximumCascadeConsider windows
func (d *Detection) selectFernWindows(totalP, totalN int64) {

	if totalP == 0 {
		return
	}

	for i, info := range d.fernInfo {

		probP := float64(info.SumP) / float64(totalP)
		probN := 0.0

		if totalN > 0 {
			probN = float64(info.SumN) / float64(totalN)
		}

		if probP > probN {
			d.scored = append(d.scored, scoredWindow{index: i, score: probP - probN})
		}
	}

	if len(d.scored) > d.config.MaximumCascadeConsider {
		selectTop(d.scored, d.config.MaximumCascadeConsider)
		d.scored = d.scored[:d.config.MaximumCascadeConsider]
	}
}

// computeTemplateConfidence scores the windows from the fern stage against
// the templates
func (d *Detection) computeTemplateConfidence() {

	for _, s := range d.scored {

		r := d.fernInfo[s.index].Rect
		confidence := d.templates.ComputeConfidence(r)

		if confidence < d.config.ConfidenceThresholdUpper {
			continue
		}

		d.candidates = append(d.candidates, Region{Rect: r, Confidence: confidence})
	}
}

// selectBest picks the most confident local maximum and checks for other
// maxima nearly as good at a different location
func (d *Detection) selectBest() {

	if len(d.maxima) == 0 {
		return
	}

	bestIdx := 0

	for i, r := range d.maxima {
		if r.Confidence > d.maxima[bestIdx].Confidence {
			bestIdx = i
		}
	}

	d.best = d.maxima[bestIdx]
	d.success = true

	bestRect := d.best.Rect.Float()

	for i, r := range d.maxima {

		if i == bestIdx {
			continue
		}

		if r.Confidence < ambiguousRatio*d.best.Confidence {
			continue
		}

		if bestRect.Overlap(r.Rect.Float()) <= d.config.OverlapLower {
			d.ambiguous = true
			d.ambiguousRegions = append(d.ambiguousRegions, r.Rect)
		}
	}
}

// Best returns the most confident detection of the last run, false if nothing
// was detected
func (d *Detection) Best() (Region, bool) {
	return d.best, d.success
}

// Success reports whether the last run detected anything
func (d *Detection) Success() bool {
	return d.success
}

// Ambiguous reports whether the last run found more than one likely location
func (d *Detection) Ambiguous() bool {
	return d.ambiguous
}

// FernInfo returns the windows of the last run which passed the variance test
func (d *Detection) FernInfo() []FernInfo {
	return d.fernInfo
}

// Candidates returns the windows of the last run which passed template
// matching
func (d *Detection) Candidates() []Region {
	return d.candidates
}

// LocalMaxima returns the detections remaining after non-maximum suppression
func (d *Detection) LocalMaxima() []Region {
	return d.maxima
}

// AmbiguousRegions returns the other locations which made the last run
// ambiguous
func (d *Detection) AmbiguousRegions() []Rect {
	return d.ambiguousRegions
}

// selectTop partially orders items so the k highest scores occupy the first k
// positions in no particular order.  Ties are broken by window index so the
// result does not depend on the input order
func selectTop(items []scoredWindow, k int) {

	less := func(a, b scoredWindow) bool {
		if a.score != b.score {
			return a.score > b.score
		}
		return a.index < b.index
	}

	lo, hi := 0, len(items)-1

	for lo < hi {

		// median of three pivot
		mid := lo + (hi-lo)/2

		if less(items[mid], items[lo]) {
			items[mid], items[lo] = items[lo], items[mid]
		}
		if less(items[hi], items[lo]) {
			items[hi], items[lo] = items[lo], items[hi]
		}
		if less(items[hi], items[mid]) {
			items[hi], items[mid] = items[mid], items[hi]
		}

		pivot := items[mid]
		i, j := lo, hi

		for i <= j {
			for less(items[i], pivot) {
				i++
			}
			for less(pivot, items[j]) {
				j--
			}
			if i <= j {
				items[i], items[j] = items[j], items[i]
				i++
				j--
			}
		}

		switch {
		case k-1 <= j:
			hi = j
		case k-1 >= i:
			lo = i
		default:
			return
		}
	}
}
