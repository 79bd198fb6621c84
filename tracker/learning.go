package tracker

import (
	"math/rand"

	"github.com/golang/glog"
)

// Learning updates the fern and template models from the target
// hypothesis and the windows examined by the detector
type Learning struct {
	config    *Config
	variance  *VarianceFilter
	ferns     *FernClassifier
	templates *TemplateMatching
	detection *Detection
	rnd       *rand.Rand
}

// NewLearning returns a learner updating the given models
func NewLearning(config *Config, variance *VarianceFilter, ferns *FernClassifier,
	templates *TemplateMatching, detection *Detection) *Learning {

	return &Learning{
		config:    config,
		variance:  variance,
		ferns:     ferns,
		templates: templates,
		detection: detection,
		rnd:       rand.New(rand.NewSource(config.Seed + 1)),
	}
}

// InitialLearning trains the models from the user selected target and every
// cascade window far away from it.  It must be called once when tracking
// starts, after the images of the frame have been set
func (l *Learning) InitialLearning(target Rect, windows []Rect) {

	l.variance.SelectThreshold(target)

	l.templates.AddDescriptor(true, target)
	l.ferns.UpdateFernsNoisy(true, target)

	targetF := target.Float()
	negatives := 0

	for _, r := range windows {

		if !l.variance.CheckVariance(r) {
			continue
		}

		if targetF.Overlap(r.Float()) > l.config.OverlapLower {
			continue
		}

		l.ferns.UpdateFerns(false, r)
		negatives++
	}

	l.detection.DetectionCascade(windows)
	l.learnAmbiguousNegative(targetF)

	glog.V(1).Infof("initial learning threshold=%.1f fern negatives=%d positives=%d negatives=%d",
		l.variance.Threshold(), negatives, l.templates.Positives(), l.templates.Negatives())
}

// UpdateLearning trains the models with the target of the current frame.  The
// detector must have been run on the same frame
func (l *Learning) UpdateLearning(target RectF) {

	targetI := target.Round()

	l.templates.AddDescriptor(true, targetI)
	l.ferns.UpdateFernsNoisy(true, targetI)

	info := l.detection.FernInfo()
	l.learnRandomNegatives(target, info)

	// background windows the ferns still accept
	for _, s := range l.detection.scored {
		r := info[s.index].Rect

		if target.Overlap(r.Float()) > l.config.OverlapLower {
			continue
		}

		if l.ferns.PerformTest(r) {
			l.ferns.UpdateFerns(false, r)
		}
	}

	l.learnAmbiguousNegative(target)
}

// learnRandomNegatives learns a random sample of the examined windows away
// from target as fern negatives.  No more draws are made than there are
// windows.  Returns the number of windows learned
func (l *Learning) learnRandomNegatives(target RectF, info []FernInfo) int {

	draws := min(len(info), l.config.MaxLearningNegatives)
	learned := 0

	for n := 0; n < draws; n++ {
		r := info[l.rnd.Intn(len(info))].Rect

		if target.Overlap(r.Float()) > l.config.OverlapLower {
			continue
		}

		l.ferns.UpdateFerns(false, r)
		learned++
	}

	return learned
}

// learnAmbiguousNegative learns confident detections away from the target as
// negatives
func (l *Learning) learnAmbiguousNegative(target RectF) {

	if !l.detection.Success() {
		return
	}

	for _, c := range l.detection.Candidates() {

		if target.Overlap(c.Rect.Float()) > l.config.OverlapLower {
			continue
		}

		l.ferns.UpdateFernsNoisy(false, c.Rect)
		l.templates.AddDescriptor(false, c.Rect)
	}
}
