package tracker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-tld/imgproc"
	"github.com/swdee/go-tld/internal/synth"
)

const (
	testWidth  = 200
	testHeight = 150
)

// testTarget is aligned with the cascade grid of its own size
var testTarget = Rect{X0: 80, Y0: 56, X1: 120, Y1: 96}

func newTestTracker(t *testing.T) (*TLDTracker, *synth.Sequence) {
	seq := synth.NewSequence(testWidth, testHeight, 2, 1, 12, 99)

	tld, err := NewTLDTracker(DefaultConfig(), nil)
	require.NoError(t, err)

	require.NoError(t, tld.Initialize(seq.Frame(0),
		testTarget.X0, testTarget.Y0, testTarget.X1, testTarget.Y1))

	return tld, seq
}

func TestInitialize(t *testing.T) {
	tld, _ := newTestTracker(t)

	assert.Equal(t, Tracking, tld.State())
	assert.Equal(t, testTarget.Float(), tld.TargetRegion())
	assert.Greater(t, tld.Windows(), 0)
	assert.Greater(t, tld.FernFeatures(), 0)

	positives, _ := tld.Templates()
	assert.Equal(t, 1, positives)
}

func TestInitializeInvalidRegion(t *testing.T) {
	tld, err := NewTLDTracker(DefaultConfig(), nil)
	require.NoError(t, err)

	img := synth.Texture(testWidth, testHeight, 6, 1)

	for _, r := range []Rect{
		{X0: 50, Y0: 50, X1: 50, Y1: 90},
		{X0: 60, Y0: 50, X1: 40, Y1: 90},
		{X0: -1, Y0: 50, X1: 40, Y1: 90},
		{X0: 170, Y0: 50, X1: 210, Y1: 90},
	} {
		err := tld.Initialize(img, r.X0, r.Y0, r.X1, r.Y1)
		assert.True(t, errors.Is(err, ErrInvalidRegion), "%v", r)
	}

	assert.Equal(t, Idle, tld.State())
}

func TestTrackErrors(t *testing.T) {
	tld, err := NewTLDTracker(DefaultConfig(), nil)
	require.NoError(t, err)

	_, err = tld.Track(synth.Texture(testWidth, testHeight, 6, 1))
	assert.True(t, errors.Is(err, ErrNotInitialized))

	tld, _ = newTestTracker(t)

	_, err = tld.Track(imgproc.NewGray(testWidth+1, testHeight))
	assert.True(t, errors.Is(err, ErrImageSize))

	_, err = tld.Track(nil)
	assert.True(t, errors.Is(err, ErrImageSize))
}

func TestTrackTranslation(t *testing.T) {
	tld, seq := newTestTracker(t)
	start := testTarget.Float().Center()

	for n := 1; n <= 8; n++ {
		found, err := tld.Track(seq.Frame(n))
		require.NoError(t, err)
		require.True(t, found, "frame %d", n)

		dx, dy := seq.Offset(n)
		c := tld.TargetRegion().Center()

		assert.InDelta(t, start.X+float64(dx), c.X, 1.5, "frame %d", n)
		assert.InDelta(t, start.Y+float64(dy), c.Y, 1.5, "frame %d", n)
		assert.InDelta(t, 40, tld.TargetRegion().Width(), 2, "frame %d", n)
		assert.Equal(t, Tracking, tld.State())
		assert.GreaterOrEqual(t, tld.Confidence(), DefaultConfig().ConfidenceAccept)
	}

	assert.NotEmpty(t, tld.TrackedPoints(nil))
}

func TestTrackLostAndReacquired(t *testing.T) {
	tld, seq := newTestTracker(t)

	found, err := tld.Track(seq.Frame(1))
	require.NoError(t, err)
	require.True(t, found)

	// hide the target and its surroundings behind a flat patch
	occluded := seq.Frame(2)
	dx, dy := seq.Offset(2)
	occluded.Fill(testTarget.X0+dx-10, testTarget.Y0+dy-10,
		testTarget.X1+dx+10, testTarget.Y1+dy+10, 128)

	found, err = tld.Track(occluded)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, Reacquiring, tld.State())
	assert.Empty(t, tld.TrackedPoints(nil))

	// still hidden
	found, err = tld.Track(occluded)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, Reacquiring, tld.State())

	// the original frame is found again by the detector
	found, err = tld.Track(seq.Frame(0))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, Tracking, tld.State())
	assert.Equal(t, AdoptDetection, tld.LastFusion())
	assert.Equal(t, testTarget.Float(), tld.TargetRegion())
	assert.Greater(t, tld.Confidence(), 0.9)

	// and tracking continues from there
	found, err = tld.Track(seq.Frame(1))
	require.NoError(t, err)
	assert.True(t, found)
	assert.InDelta(t, 102, tld.TargetRegion().Center().X, 1.5)
	assert.InDelta(t, 77, tld.TargetRegion().Center().Y, 1.5)
}

func TestTrackDeterministic(t *testing.T) {
	a, seq := newTestTracker(t)
	b, _ := newTestTracker(t)

	for n := 1; n <= 4; n++ {
		foundA, err := a.Track(seq.Frame(n))
		require.NoError(t, err)
		foundB, err := b.Track(seq.Frame(n))
		require.NoError(t, err)

		assert.Equal(t, foundA, foundB)
		assert.Equal(t, a.TargetRegion(), b.TargetRegion())
		assert.Equal(t, a.Confidence(), b.Confidence())
	}
}

func TestReset(t *testing.T) {
	tld, seq := newTestTracker(t)

	tld.Reset()

	assert.Equal(t, Idle, tld.State())
	assert.Equal(t, 0, tld.FernFeatures())
	positives, negatives := tld.Templates()
	assert.Zero(t, positives)
	assert.Zero(t, negatives)

	_, err := tld.Track(seq.Frame(1))
	assert.True(t, errors.Is(err, ErrNotInitialized))

	require.NoError(t, tld.Initialize(seq.Frame(1),
		testTarget.X0, testTarget.Y0, testTarget.X1, testTarget.Y1))
	assert.Equal(t, Tracking, tld.State())
}

// partialMatch finds a region near the target whose template confidence is
// neither a clear match nor a clear miss
func partialMatch(t *testing.T, tld *TLDTracker) (RectF, float64) {
	for dy := 0; dy <= 20; dy += 2 {
		for dx := 1; dx <= 30; dx++ {
			r := Rect{X0: testTarget.X0 + dx, Y0: testTarget.Y0 + dy,
				X1: testTarget.X1 + dx, Y1: testTarget.Y1 + dy}

			if s := tld.templates.ComputeConfidence(r); s >= 0.3 && s <= 0.85 {
				return r.Float(), s
			}
		}
	}

	t.Fatal("no partially matching region")
	return RectF{}, 0
}

func TestHypothesisFusion(t *testing.T) {
	tld, _ := newTestTracker(t)
	tracked, score := partialMatch(t, tld)
	detected := Rect{X0: 8, Y0: 8, X1: 48, Y1: 48}

	tests := []struct {
		name         string
		tracking     bool
		detection    bool
		ambiguous    bool
		detConf      float64
		strong       bool
		thresholds   func(c *Config)
		expectFusion Fusion
		expectValid  bool
		expectOK     bool
	}{
		{
			name: "strong margin keeps tracker", tracking: true, detection: true,
			detConf: score + 0.05, strong: true,
			expectFusion: AdoptTracker, expectValid: true, expectOK: true,
		},
		{
			name: "weak margin adopts detection", tracking: true, detection: true,
			detConf: score + 0.05, strong: false,
			expectFusion: AdoptDetection, expectOK: true,
		},
		{
			name: "strong margin adopts clearly better detection", tracking: true,
			detection: true, detConf: score + 0.1, strong: true,
			expectFusion: AdoptDetection, expectOK: true,
		},
		{
			name: "ambiguous detection keeps tracker", tracking: true, detection: true,
			ambiguous: true, detConf: 0.99, strong: false,
			thresholds: func(c *Config) {
				c.ConfidenceThresholdStrong = score + 0.01
			},
			expectFusion: AdoptTracker, expectOK: true,
		},
		{
			name: "tracked region becomes a strong match", tracking: true,
			strong: false,
			thresholds: func(c *Config) {
				c.ConfidenceThresholdStrong = score - 0.01
			},
			expectFusion: AdoptTracker, expectValid: true, expectOK: true,
		},
		{
			name: "strong below lower floor is not learned", tracking: true,
			strong: true,
			thresholds: func(c *Config) {
				c.ConfidenceThresholdLower = score + 0.01
			},
			expectFusion: AdoptTracker, expectOK: true,
		},
		{
			name: "tracker below acceptance", tracking: true, strong: true,
			thresholds: func(c *Config) {
				c.ConfidenceAccept = score + 0.01
			},
			expectFusion: AdoptTracker, expectValid: true, expectOK: false,
		},
		{
			name: "unique detection only", detection: true, detConf: 0.8,
			strong: true,
			expectFusion: AdoptDetection, expectOK: true,
		},
		{
			name: "ambiguous detection only", detection: true, ambiguous: true,
			detConf: 0.8, strong: true,
			expectFusion: NoHypothesis, expectOK: false,
		},
		{
			name:         "no hypothesis",
			expectFusion: NoHypothesis, expectOK: false,
		},
	}

	for _, tc := range tests {
		tld.config = DefaultConfig()
		tld.config.ConfidenceAccept = 0.1
		tld.config.ConfidenceThresholdLower = score - 0.01
		tld.config.ConfidenceThresholdStrong = score - 0.01

		if tc.thresholds != nil {
			tc.thresholds(&tld.config)
		}

		start := testTarget.Float()
		tld.target = start
		tld.tracked = tracked
		tld.strongMatch = tc.strong
		tld.detection.best = Region{Rect: detected, Confidence: tc.detConf}
		tld.detection.success = tc.detection
		tld.detection.ambiguous = tc.ambiguous

		ok := tld.hypothesisFusion(tc.tracking, tld.detection.Success())

		assert.Equal(t, tc.expectOK, ok, tc.name)
		assert.Equal(t, tc.expectFusion, tld.LastFusion(), tc.name)
		assert.Equal(t, tc.expectValid, tld.valid, tc.name)

		switch tc.expectFusion {
		case AdoptTracker:
			assert.Equal(t, tracked, tld.TargetRegion(), tc.name)
			assert.InDelta(t, score, tld.Confidence(), 1e-12, tc.name)
		case AdoptDetection:
			assert.Equal(t, detected.Float(), tld.TargetRegion(), tc.name)
			assert.Equal(t, tc.detConf, tld.Confidence(), tc.name)
		default:
			assert.Equal(t, start, tld.TargetRegion(), tc.name)
		}
	}
}

// totalP sums the positive counters over every fern value
func totalP(f *FernClassifier) int64 {
	var n int64
	for _, m := range f.features {
		for _, feat := range m {
			n += int64(feat.NumP)
		}
	}
	return n
}

func TestNoLearningWithoutTrackedTarget(t *testing.T) {
	tld, seq := newTestTracker(t)

	occluded := seq.Frame(2)
	dx, dy := seq.Offset(2)
	occluded.Fill(testTarget.X0+dx-10, testTarget.Y0+dy-10,
		testTarget.X1+dx+10, testTarget.Y1+dy+10, 128)

	found, err := tld.Track(occluded)
	require.NoError(t, err)
	require.False(t, found)

	positives, negatives := tld.Templates()
	features := tld.FernFeatures()
	p, n := totalP(tld.ferns), totalN(tld.ferns)

	assertUnchanged := func(msg string) {
		pos, neg := tld.Templates()
		assert.Equal(t, positives, pos, msg)
		assert.Equal(t, negatives, neg, msg)
		assert.Equal(t, features, tld.FernFeatures(), msg)
		assert.Equal(t, p, totalP(tld.ferns), msg)
		assert.Equal(t, n, totalN(tld.ferns), msg)
	}

	found, err = tld.Track(occluded)
	require.NoError(t, err)
	assert.False(t, found)
	assertUnchanged("reacquiring")

	// the reacquired detection is not learned from either
	found, err = tld.Track(seq.Frame(0))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, AdoptDetection, tld.LastFusion())
	assertUnchanged("reacquired")
}
