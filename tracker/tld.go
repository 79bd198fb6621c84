package tracker

import (
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/swdee/go-tld/imgproc"
	"github.com/swdee/go-tld/opticalflow"
)

var (
	// ErrInvalidRegion is returned when the initial target does not fit the
	// image
	ErrInvalidRegion = errors.New("invalid target region")
	// ErrImageSize is returned when a frame differs in size from the frame
	// tracking was initialised with
	ErrImageSize = errors.New("image size does not match")
	// ErrNotInitialized is returned when Track is called before Initialize
	ErrNotInitialized = errors.New("tracker not initialized")
)

const (
	// strongMargin and weakMargin are how much more confident a detection has
	// to be than the tracked region to replace it
	strongMargin = 0.07
	weakMargin   = 0.02
	// maxAreaChange is the largest area ratio between a new detection and the
	// last strongly matched target for the detection to count as strong
	maxAreaChange = 2.0
)

// State of the tracker
type State int

const (
	// Idle means no target has been set
	Idle State = iota
	// Tracking the target with the point tracker and detector
	Tracking
	// Reacquiring means the target was lost and only the detector runs
	Reacquiring
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Tracking:
		return "tracking"
	case Reacquiring:
		return "reacquiring"
	default:
		return "idle"
	}
}

// Fusion is the hypothesis selected for a tracked frame
type Fusion int

const (
	// NoHypothesis means neither the tracker nor the detector found the target
	NoHypothesis Fusion = iota
	// AdoptDetection means the detected region became the target
	AdoptDetection
	// AdoptTracker means the tracked region became the target
	AdoptTracker
)

// String returns the fusion result name
func (f Fusion) String() string {
	switch f {
	case AdoptDetection:
		return "detection"
	case AdoptTracker:
		return "tracker"
	default:
		return "none"
	}
}

// TLDTracker follows a single object through a video by fusing a point
// tracker with a detector that is trained online from the tracking results
type TLDTracker struct {
	config Config

	pointTracker PointTracker
	variance     *VarianceFilter
	ferns        *FernClassifier
	templates    *TemplateMatching
	detection    *Detection
	region       *RegionTracker
	adjust       *AdjustRegion
	learning     *Learning

	// windows are the cascade regions of the session
	windows []Rect
	width   int
	height  int

	state State
	// strongMatch is set while the target closely matches the templates
	strongMatch bool
	// previousArea is the area of the target when it was last a strong match
	previousArea float64
	// fusion is the result of the last hypothesis fusion
	fusion Fusion
	// valid is set when the last tracked frame may be learned from
	valid bool

	target     RectF
	tracked    RectF
	confidence float64
}

// NewTLDTracker returns a tracker with the given settings.  A nil
// pointTracker uses the pure Go pyramidal KLT tracker
func NewTLDTracker(config Config, pointTracker PointTracker) (*TLDTracker, error) {

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if pointTracker == nil {
		flowConfig := opticalflow.DefaultConfig()
		flowConfig.TemplateRadius = config.TrackerFeatureRadius
		flowConfig.Levels = config.PyramidLevels

		klt, err := opticalflow.NewPyramidKLT(flowConfig)

		if err != nil {
			return nil, fmt.Errorf("error creating point tracker: %w", err)
		}

		pointTracker = klt
	}

	t := &TLDTracker{
		config:       config,
		pointTracker: pointTracker,
		variance:     NewVarianceFilter(),
		ferns: NewFernClassifier(config.Seed, config.NumFerns, config.FernSize,
			config.NumLearnNoisy, config.FernLearnNoise),
		templates: NewTemplateMatching(),
		region: NewRegionTracker(pointTracker, config.TrackerGridWidth,
			config.TrackerFeatureRadius, config.MaxForwardBackwardError),
		adjust: NewAdjustRegion(config.Seed+2, config.MotionIterations),
	}

	t.detection = NewDetection(&t.config, t.variance, t.ferns, t.templates)
	t.learning = NewLearning(&t.config, t.variance, t.ferns, t.templates, t.detection)

	return t, nil
}

// Initialize starts tracking the region (x0,y0)-(x1,y1) of img, the bottom
// right corner is exclusive
func (t *TLDTracker) Initialize(img *imgproc.Gray, x0, y0, x1, y1 int) error {

	if img == nil {
		return fmt.Errorf("initialize: %w", opticalflow.ErrNoFrame)
	}

	if x0 < 0 || y0 < 0 || x1 > img.Width || y1 > img.Height || x1 <= x0 || y1 <= y0 {
		return fmt.Errorf("%w: (%d,%d)-(%d,%d) in %dx%d image",
			ErrInvalidRegion, x0, y0, x1, y1, img.Width, img.Height)
	}

	t.Reset()

	if err := t.pointTracker.SetFrame(img); err != nil {
		return fmt.Errorf("error setting tracker frame: %w", err)
	}

	t.width = img.Width
	t.height = img.Height
	t.setImage(img)

	target := Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
	t.windows = createCascadeRegions(img.Width, img.Height, target, &t.config)
	t.learning.InitialLearning(target, t.windows)

	t.target = target.Float()
	t.tracked = t.target
	t.confidence = 1
	t.state = Tracking
	t.strongMatch = true
	t.previousArea = t.target.Area()

	glog.V(1).Infof("tracking %v with %d cascade windows", target, len(t.windows))

	return nil
}

// Reset drops the target and everything learned about it.  Initialize must be
// called before tracking again
func (t *TLDTracker) Reset() {
	t.pointTracker.Reset()
	t.ferns.Reset()
	t.templates.Reset()
	t.windows = nil
	t.width, t.height = 0, 0
	t.state = Idle
	t.strongMatch = false
	t.previousArea = 0
	t.fusion = NoHypothesis
	t.valid = false
	t.target = RectF{}
	t.tracked = RectF{}
	t.confidence = 0
}

func (t *TLDTracker) setImage(img *imgproc.Gray) {
	t.variance.SetImage(img)
	t.ferns.SetImage(img)
	t.templates.SetImage(img)
}

// Track finds the target in the next frame of the video.  It returns true if
// the target was found.  Errors are returned for frames which can not be
// processed
func (t *TLDTracker) Track(img *imgproc.Gray) (bool, error) {

	if t.state == Idle {
		return false, ErrNotInitialized
	}

	if img == nil || img.Width != t.width || img.Height != t.height {
		return false, fmt.Errorf("%w: expected %dx%d", ErrImageSize, t.width, t.height)
	}

	if err := t.pointTracker.SetFrame(img); err != nil {
		return false, fmt.Errorf("error setting tracker frame: %w", err)
	}

	t.setImage(img)
	t.valid = false

	if t.state == Reacquiring {
		return t.reacquire(), nil
	}

	t.detection.DetectionCascade(t.windows)

	trackingWorked := t.region.Process(t.target)

	if trackingWorked {
		t.tracked, trackingWorked = t.adjust.Process(t.region.Pairs(), t.target,
			t.width, t.height)
	}

	if t.hypothesisFusion(trackingWorked, t.detection.Success()) {
		if t.valid {
			t.learning.UpdateLearning(t.target)
		}
	} else {
		t.state = Reacquiring
		glog.V(1).Infof("target lost, confidence=%.3f", t.confidence)
	}

	if t.strongMatch {
		t.previousArea = t.target.Area()
	}

	glog.V(2).Infof("track fusion=%v confidence=%.3f strong=%t valid=%t target=%v",
		t.fusion, t.confidence, t.strongMatch, t.valid, t.target)

	return t.state == Tracking, nil
}

// reacquire searches the frame with the detector only and resumes tracking on
// a unique detection
func (t *TLDTracker) reacquire() bool {

	t.detection.DetectionCascade(t.windows)
	t.region.Clear()

	best, ok := t.detection.Best()

	if !ok || t.detection.Ambiguous() {
		return false
	}

	t.target = best.Rect.Float()
	t.tracked = t.target
	t.confidence = best.Confidence
	t.fusion = AdoptDetection
	t.state = Tracking
	t.checkNewTrackStrong(best)

	if t.strongMatch {
		t.previousArea = t.target.Area()
	}

	glog.V(1).Infof("target reacquired at %v, confidence=%.3f", best.Rect, best.Confidence)

	return true
}

// hypothesisFusion selects the target of the frame from the tracked region
// and the detection.  Returns false when no hypothesis is confident enough
func (t *TLDTracker) hypothesisFusion(trackingWorked, detectionWorked bool) bool {

	t.valid = false
	t.fusion = NoHypothesis

	best, _ := t.detection.Best()
	uniqueDetection := detectionWorked && !t.detection.Ambiguous()

	switch {
	case trackingWorked:
		scoreTrack := t.templates.ComputeConfidence(t.tracked.Round())

		margin := weakMargin
		if t.strongMatch {
			margin = strongMargin
		}

		if uniqueDetection && best.Confidence > scoreTrack+margin {
			t.target = best.Rect.Float()
			t.confidence = best.Confidence
			t.fusion = AdoptDetection
			t.checkNewTrackStrong(best)
		} else {
			t.target = t.tracked
			t.confidence = scoreTrack
			t.fusion = AdoptTracker
			t.strongMatch = t.strongMatch || scoreTrack > t.config.ConfidenceThresholdStrong
			t.valid = t.strongMatch && scoreTrack >= t.config.ConfidenceThresholdLower
		}

	case uniqueDetection:
		t.target = best.Rect.Float()
		t.confidence = best.Confidence
		t.fusion = AdoptDetection
		t.strongMatch = best.Confidence > t.config.ConfidenceThresholdStrong

	default:
		return false
	}

	t.target = t.target.Clip(t.width, t.height)

	return t.confidence >= t.config.ConfidenceAccept
}

// checkNewTrackStrong decides if a detection which replaced the target is a
// strong match.  It needs a confident template match and an area similar to
// the last strongly matched target
func (t *TLDTracker) checkNewTrackStrong(detected Region) {

	t.strongMatch = detected.Confidence > t.config.ConfidenceThresholdStrong

	if !t.strongMatch || t.previousArea <= 0 {
		return
	}

	ratio := float64(detected.Rect.Area()) / t.previousArea

	t.strongMatch = ratio <= maxAreaChange && ratio >= 1/maxAreaChange
}

// State returns the tracker state
func (t *TLDTracker) State() State {
	return t.state
}

// Confidence returns the confidence of the current target
func (t *TLDTracker) Confidence() float64 {
	return t.confidence
}

// TargetRegion returns the best estimate of the target location.  While
// reacquiring it is the last location the target was seen
func (t *TLDTracker) TargetRegion() RectF {
	return t.target
}

// LastFusion returns which hypothesis was adopted on the last tracked frame
func (t *TLDTracker) LastFusion() Fusion {
	return t.fusion
}

// TrackedPoints appends the positions of the point tracks which contributed
// to the last tracked frame
func (t *TLDTracker) TrackedPoints(out []imgproc.Point) []imgproc.Point {
	if t.state != Tracking || t.fusion == NoHypothesis {
		return out
	}
	return t.region.TrackedPoints(out)
}

// Detection returns the detector and the results of its last run
func (t *TLDTracker) Detection() *Detection {
	return t.detection
}

// Templates returns the number of positive and negative templates learned
func (t *TLDTracker) Templates() (positives, negatives int) {
	return t.templates.Positives(), t.templates.Negatives()
}

// FernFeatures returns the number of fern values with learned statistics
func (t *TLDTracker) FernFeatures() int {
	return t.ferns.Features()
}

// Windows returns the number of cascade windows searched each frame
func (t *TLDTracker) Windows() int {
	return len(t.windows)
}
