package tracker

import (
	"errors"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// ErrInvalidConfig is returned when the tracker settings can not be used
var ErrInvalidConfig = errors.New("invalid tracker config")

// Config holds the settings of the TLD tracker
type Config struct {
	// TrackerGridWidth is the number of point tracks spawned along each side
	// of the target region
	TrackerGridWidth int `yaml:"tracker-grid-width"`
	// TrackerFeatureRadius is the radius of the point tracker window, the
	// point grid is inset by it
	TrackerFeatureRadius int `yaml:"tracker-feature-radius"`
	// PyramidLevels is the number of image pyramid levels for point tracking
	PyramidLevels int `yaml:"pyramid-levels"`
	// MaxForwardBackwardError is the largest squared pixel distance between
	// a point and its forward then backward tracked position
	MaxForwardBackwardError float64 `yaml:"max-forward-backward-error"`
	// MotionIterations is the number of random hypotheses evaluated by the
	// robust motion fit
	MotionIterations int `yaml:"motion-iterations"`

	// ScaleStep is the size ratio between neighbouring cascade scales
	ScaleStep float64 `yaml:"scale-step"`
	// ScaleSpread is the number of cascade scales above and below the
	// initial target size
	ScaleSpread int `yaml:"scale-spread"`
	// RegionStep is the step between cascade windows as a fraction of the
	// window size
	RegionStep float64 `yaml:"region-step"`
	// DetectMinimumSide is the smallest side length of a cascade window
	DetectMinimumSide int `yaml:"detect-minimum-side"`

	// NumFerns is the number of ferns in the classifier
	NumFerns int `yaml:"num-ferns"`
	// FernSize is the number of pixel comparisons in each fern, 1 to 32
	FernSize int `yaml:"fern-size"`
	// NumLearnNoisy is the number of extra noisy samples learned with every
	// positive fern update
	NumLearnNoisy int `yaml:"num-learn-noisy"`
	// FernLearnNoise is the amplitude of the uniform intensity noise added
	// to noisy fern samples
	FernLearnNoise float64 `yaml:"fern-learn-noise"`

	// MaximumCascadeConsider is the most windows passed from the fern stage
	// to template matching
	MaximumCascadeConsider int `yaml:"maximum-cascade-consider"`
	// MaxLearningNegatives is the number of examined windows randomly
	// sampled as negatives on every learning update
	MaxLearningNegatives int `yaml:"max-learning-negatives"`

	// OverlapLower is the overlap below which a window is considered to be
	// a different location than the target
	OverlapLower float64 `yaml:"overlap-lower"`
	// OverlapUpper is the overlap above which a window is considered to be
	// the target
	OverlapUpper float64 `yaml:"overlap-upper"`
	// NmsOverlap is the overlap at which two detections are connected during
	// non-maximum suppression
	NmsOverlap float64 `yaml:"nms-overlap"`

	// ConfidenceThresholdUpper is the template confidence a window needs to
	// become a candidate detection
	ConfidenceThresholdUpper float64 `yaml:"confidence-threshold-upper"`
	// ConfidenceThresholdLower is the confidence a tracked region needs to
	// be learned from
	ConfidenceThresholdLower float64 `yaml:"confidence-threshold-lower"`
	// ConfidenceThresholdStrong marks a region as a strong match
	ConfidenceThresholdStrong float64 `yaml:"confidence-threshold-strong"`
	// ConfidenceAccept is the confidence below which no hypothesis is
	// accepted and the target is considered lost
	ConfidenceAccept float64 `yaml:"confidence-accept"`

	// Seed initialises the random number generators
	Seed int64 `yaml:"seed"`
}

// DefaultConfig returns the default tracker settings
func DefaultConfig() Config {
	return Config{
		TrackerGridWidth:          10,
		TrackerFeatureRadius:      5,
		PyramidLevels:             3,
		MaxForwardBackwardError:   10,
		MotionIterations:          50,
		ScaleStep:                 1.2,
		ScaleSpread:               7,
		RegionStep:                0.1,
		DetectMinimumSide:         25,
		NumFerns:                  10,
		FernSize:                  10,
		NumLearnNoisy:             4,
		FernLearnNoise:            8,
		MaximumCascadeConsider:    500,
		MaxLearningNegatives:      200,
		OverlapLower:              0.2,
		OverlapUpper:              0.65,
		NmsOverlap:                0.5,
		ConfidenceThresholdUpper:  0.65,
		ConfidenceThresholdLower:  0.5,
		ConfidenceThresholdStrong: 0.7,
		ConfidenceAccept:          0.4,
		Seed:                      0xbeef,
	}
}

// Validate checks the settings are usable
func (c *Config) Validate() error {

	if c.FernSize < 1 || c.FernSize > 32 {
		return fmt.Errorf("%w: fern-size should be in range 1 - 32", ErrInvalidConfig)
	}
	if c.NumFerns < 1 {
		return fmt.Errorf("%w: num-ferns should be at least 1", ErrInvalidConfig)
	}
	if c.TrackerGridWidth < 2 {
		return fmt.Errorf("%w: tracker-grid-width should be at least 2", ErrInvalidConfig)
	}
	if c.TrackerFeatureRadius < 1 {
		return fmt.Errorf("%w: tracker-feature-radius should be at least 1", ErrInvalidConfig)
	}
	if c.PyramidLevels < 1 {
		return fmt.Errorf("%w: pyramid-levels should be at least 1", ErrInvalidConfig)
	}
	if c.MaxForwardBackwardError <= 0 {
		return fmt.Errorf("%w: max-forward-backward-error should be positive", ErrInvalidConfig)
	}
	if c.MotionIterations < 1 {
		return fmt.Errorf("%w: motion-iterations should be at least 1", ErrInvalidConfig)
	}
	if c.ScaleStep <= 1 {
		return fmt.Errorf("%w: scale-step should be larger than 1", ErrInvalidConfig)
	}
	if c.ScaleSpread < 0 {
		return fmt.Errorf("%w: scale-spread should not be negative", ErrInvalidConfig)
	}
	if c.RegionStep <= 0 || c.RegionStep > 1 {
		return fmt.Errorf("%w: region-step should be in range (0, 1]", ErrInvalidConfig)
	}
	if c.DetectMinimumSide < 1 {
		return fmt.Errorf("%w: detect-minimum-side should be at least 1", ErrInvalidConfig)
	}
	if c.NumLearnNoisy < 0 || c.FernLearnNoise < 0 {
		return fmt.Errorf("%w: fern learning noise should not be negative", ErrInvalidConfig)
	}
	if c.MaximumCascadeConsider < 1 {
		return fmt.Errorf("%w: maximum-cascade-consider should be at least 1", ErrInvalidConfig)
	}
	if c.MaxLearningNegatives < 0 {
		return fmt.Errorf("%w: max-learning-negatives should not be negative", ErrInvalidConfig)
	}
	if c.OverlapLower > c.OverlapUpper {
		return fmt.Errorf("%w: overlap-lower should not exceed overlap-upper", ErrInvalidConfig)
	}

	unit := map[string]float64{
		"overlap-lower":               c.OverlapLower,
		"overlap-upper":               c.OverlapUpper,
		"nms-overlap":                 c.NmsOverlap,
		"confidence-threshold-upper":  c.ConfidenceThresholdUpper,
		"confidence-threshold-lower":  c.ConfidenceThresholdLower,
		"confidence-threshold-strong": c.ConfidenceThresholdStrong,
		"confidence-accept":           c.ConfidenceAccept,
	}

	for name, v := range unit {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s should be in range 0 - 1", ErrInvalidConfig, name)
		}
	}

	return nil
}

// ParseConfig parses YAML tracker settings.  Settings missing from buf keep
// their default values
func ParseConfig(buf []byte) (*Config, error) {

	conf := DefaultConfig()

	if err := yaml.UnmarshalStrict(buf, &conf); err != nil {
		return nil, fmt.Errorf("error parsing tracker config: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

// LoadConfig reads tracker settings from a YAML file
func LoadConfig(filename string) (*Config, error) {

	buf, err := os.ReadFile(filename)

	if err != nil {
		return nil, fmt.Errorf("error reading tracker config: %w", err)
	}

	return ParseConfig(buf)
}
