package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-tld/imgproc"
	"github.com/swdee/go-tld/internal/synth"
)

func TestCreateCascadeRegions(t *testing.T) {
	conf := DefaultConfig()
	target := Rect{X0: 80, Y0: 56, X1: 120, Y1: 96}

	regions := createCascadeRegions(200, 150, target, &conf)
	require.NotEmpty(t, regions)

	found := false

	for _, r := range regions {
		assert.GreaterOrEqual(t, r.X0, 0)
		assert.GreaterOrEqual(t, r.Y0, 0)
		assert.LessOrEqual(t, r.X1, 200)
		assert.LessOrEqual(t, r.Y1, 150)
		assert.GreaterOrEqual(t, min(r.Width(), r.Height()), conf.DetectMinimumSide)

		if r == target {
			found = true
		}
	}

	// target sized windows step by 4 pixels from the origin
	assert.True(t, found)

	one := DefaultConfig()
	one.ScaleSpread = 0
	assert.Equal(t, 41*28, len(createCascadeRegions(200, 150, target, &one)))
}

func TestSelectTop(t *testing.T) {
	var items []scoredWindow

	for i := 0; i < 200; i++ {
		items = append(items, scoredWindow{index: i, score: float64((i * 71) % 113)})
	}

	selectTop(items, 20)

	// the 20 highest scores of the sequence
	minTop := 200.0
	for _, s := range items[:20] {
		minTop = min(minTop, s.score)
	}
	for _, s := range items[20:] {
		assert.LessOrEqual(t, s.score, minTop)
	}

	seen := make(map[int]bool)
	for _, s := range items {
		seen[s.index] = true
	}
	assert.Len(t, seen, 200)
}

func newTestDetection(t *testing.T) (*Detection, *Learning, []Rect) {

	conf := DefaultConfig()
	img := synth.Texture(200, 150, 6, 21)
	target := Rect{X0: 80, Y0: 56, X1: 120, Y1: 96}

	variance := NewVarianceFilter()
	ferns := NewFernClassifier(conf.Seed, conf.NumFerns, conf.FernSize,
		conf.NumLearnNoisy, conf.FernLearnNoise)
	templates := NewTemplateMatching()

	variance.SetImage(img)
	ferns.SetImage(img)
	templates.SetImage(img)

	det := NewDetection(&conf, variance, ferns, templates)
	learn := NewLearning(&conf, variance, ferns, templates, det)
	windows := createCascadeRegions(img.Width, img.Height, target, &conf)

	learn.InitialLearning(target, windows)

	return det, learn, windows
}

func TestDetectionFindsTarget(t *testing.T) {
	det, _, windows := newTestDetection(t)

	det.DetectionCascade(windows)

	best, ok := det.Best()
	require.True(t, ok)
	assert.True(t, det.Success())
	assert.False(t, det.Ambiguous())
	assert.Equal(t, Rect{X0: 80, Y0: 56, X1: 120, Y1: 96}, best.Rect)
	assert.Greater(t, best.Confidence, 0.9)

	assert.NotEmpty(t, det.FernInfo())
	assert.LessOrEqual(t, len(det.scored), det.config.MaximumCascadeConsider)

	for _, c := range det.Candidates() {
		assert.GreaterOrEqual(t, c.Confidence, det.config.ConfidenceThresholdUpper)
	}
}

func TestDetectionFlatImage(t *testing.T) {
	det, _, windows := newTestDetection(t)

	flat := synth.Texture(200, 150, 6, 21)
	flat.Fill(0, 0, 200, 150, 128)

	det.variance.SetImage(flat)
	det.ferns.SetImage(flat)
	det.templates.SetImage(flat)

	det.DetectionCascade(windows)

	_, ok := det.Best()
	assert.False(t, ok)
	assert.Empty(t, det.FernInfo())
	assert.Empty(t, det.Candidates())
}

// pastePatch copies the src window r to dst with its top left corner at x, y
func pastePatch(dst, src *imgproc.Gray, r Rect, x, y int) {
	for j := 0; j < r.Height(); j++ {
		for i := 0; i < r.Width(); i++ {
			dst.SetValue(x+i, y+j, src.Get(r.X0+i, r.Y0+j))
		}
	}
}

func TestDetectionAmbiguous(t *testing.T) {
	det, _, windows := newTestDetection(t)
	target := Rect{X0: 80, Y0: 56, X1: 120, Y1: 96}
	copied := Rect{X0: 8, Y0: 8, X1: 48, Y1: 48}

	// a second copy of the target away from it
	img := synth.Texture(200, 150, 6, 21)
	pastePatch(img, img.Clone(), target, copied.X0, copied.Y0)

	det.variance.SetImage(img)
	det.ferns.SetImage(img)
	det.templates.SetImage(img)

	det.DetectionCascade(windows)

	best, ok := det.Best()
	require.True(t, ok)
	assert.True(t, det.Ambiguous())
	require.Len(t, det.AmbiguousRegions(), 1)
	assert.ElementsMatch(t, []Rect{target, copied},
		[]Rect{best.Rect, det.AmbiguousRegions()[0]})
	assert.GreaterOrEqual(t, len(det.LocalMaxima()), 2)
}

func TestReacquireDeclinesAmbiguous(t *testing.T) {
	tld, seq := newTestTracker(t)

	img := seq.Frame(0)
	pastePatch(img, seq.Frame(0), testTarget, 8, 8)

	tld.state = Reacquiring

	found, err := tld.Track(img)
	require.NoError(t, err)

	assert.True(t, tld.Detection().Ambiguous())
	assert.False(t, found)
	assert.Equal(t, Reacquiring, tld.State())
	assert.Equal(t, testTarget.Float(), tld.TargetRegion())
}

func TestDetectionRenormalizes(t *testing.T) {
	det, _, windows := newTestDetection(t)

	type counts struct {
		numP, numN int32
		posterior  float64
	}

	// push positive counts past the limit summed over any one window
	before := make(map[*FernFeature]counts)

	for _, m := range det.ferns.features {
		for _, feat := range m {
			feat.NumP = 1 << 26
			feat.computePosterior()
			before[feat] = counts{feat.NumP, feat.NumN, feat.Posterior}
		}
	}

	require.NotEmpty(t, before)

	det.DetectionCascade(windows)

	for feat, c := range before {
		assert.Equal(t, halve(c.numP), feat.NumP)
		assert.Equal(t, c.numN, feat.NumN)
		assert.Equal(t, c.posterior, feat.Posterior)
	}
}
