package cvflow

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-tld/imgproc"
	"github.com/swdee/go-tld/internal/synth"
	"github.com/swdee/go-tld/opticalflow"
)

func TestWindowFromConfig(t *testing.T) {
	conf := opticalflow.DefaultConfig()
	conf.TemplateRadius = 4

	tr, err := New(conf)
	require.NoError(t, err)
	defer tr.Close()

	assert.Equal(t, image.Pt(9, 9), tr.winSize())
}

func TestTrackTranslation(t *testing.T) {
	seq := synth.NewSequence(120, 100, 3, -2, 2, 7)

	tr, err := New(opticalflow.DefaultConfig())
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.SetFrame(seq.Frame(0)))
	require.NoError(t, tr.SetFrame(seq.Frame(1)))

	pts := []imgproc.Point{{X: 40, Y: 40}, {X: 60, Y: 52}, {X: 80, Y: 30}}
	active := make([]bool, len(pts))
	tr.Describe(pts, active)

	out := make([]imgproc.Point, len(pts))
	ok := make([]bool, len(pts))
	tr.Forward(pts, out, ok)

	dx, dy := seq.Offset(1)

	for i, p := range pts {
		require.True(t, active[i], "point %d not trackable", i)
		require.True(t, ok[i], "point %d failed", i)
		assert.InDelta(t, p.X+float64(dx), out[i].X, 0.2)
		assert.InDelta(t, p.Y+float64(dy), out[i].Y, 0.2)
	}
}

func TestTrackWithoutFrames(t *testing.T) {
	tr, err := New(opticalflow.DefaultConfig())
	require.NoError(t, err)
	defer tr.Close()

	pts := []imgproc.Point{{X: 10, Y: 10}}
	ok := []bool{true}
	tr.Forward(pts, make([]imgproc.Point, 1), ok)

	assert.False(t, ok[0])
}
