package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-tld/imgproc"
	"github.com/swdee/go-tld/robust"
)

// shiftTracker is a PointTracker moving every point by a fixed offset.  Keys
// of bad and lost are positions within the batch passed to Backward and
// Forward.  Points listed in bad return to the wrong place when tracked
// backward.  Keys of inactive are grid positions
type shiftTracker struct {
	shift    imgproc.Point
	bad      map[int]bool
	lost     map[int]bool
	inactive map[int]bool
	frames   int
	noFrame  bool
	// forwarded and backwarded are the points of the last batches tracked
	forwarded  []imgproc.Point
	backwarded []imgproc.Point
}

func (s *shiftTracker) SetFrame(img *imgproc.Gray) error {
	s.frames++
	return nil
}

func (s *shiftTracker) Describe(pts []imgproc.Point, active []bool) {
	for i := range pts {
		active[i] = !s.noFrame && !s.inactive[i]
	}
}

func (s *shiftTracker) Forward(pts []imgproc.Point, out []imgproc.Point, ok []bool) {
	s.forwarded = append(s.forwarded[:0], pts...)

	for i, p := range pts {
		out[i] = p.Add(s.shift)
		ok[i] = !s.lost[i]
	}
}

func (s *shiftTracker) Backward(pts []imgproc.Point, out []imgproc.Point, ok []bool) {
	s.backwarded = append(s.backwarded[:0], pts...)

	for i, p := range pts {
		out[i] = p.Sub(s.shift)
		if s.bad[i] {
			out[i] = out[i].Add(imgproc.Point{X: 10, Y: 10})
		}
		ok[i] = true
	}
}

func (s *shiftTracker) Reset() {
	s.frames = 0
}

func TestSpawnGrid(t *testing.T) {
	rt := NewRegionTracker(&shiftTracker{}, 10, 5, 10)

	rt.SpawnGrid(NewRectF(20, 30, 80, 120))

	assert.Equal(t, imgproc.Point{X: 25, Y: 35}, rt.points[0])
	assert.InDelta(t, 75, rt.points[99].X, 1e-9)
	assert.InDelta(t, 115, rt.points[99].Y, 1e-9)
	assert.InDelta(t, 25+50.0/9, rt.points[1].X, 1e-9)

	for _, a := range rt.active {
		assert.True(t, a)
	}

	// regions smaller than the inset have no points
	rt.SpawnGrid(NewRectF(20, 30, 28, 120))

	for _, a := range rt.active {
		assert.False(t, a)
	}
}

func TestRegionTrackerProcess(t *testing.T) {
	pt := &shiftTracker{
		shift: imgproc.Point{X: 3, Y: -2},
		bad:   map[int]bool{4: true, 17: true},
		lost:  map[int]bool{50: true},
	}
	rt := NewRegionTracker(pt, 10, 5, 10)

	require.True(t, rt.Process(NewRectF(20, 30, 80, 120)))

	// two points fail the forward-backward check and one is lost
	assert.Len(t, rt.Pairs(), 97)

	for _, pair := range rt.Pairs() {
		assert.InDelta(t, 3, pair.Curr.X-pair.Prev.X, 1e-9)
		assert.InDelta(t, -2, pair.Curr.Y-pair.Prev.Y, 1e-9)
	}

	assert.Len(t, rt.TrackedPoints(nil), 97)
}

func TestRegionTrackerActiveSubset(t *testing.T) {
	inactive := make(map[int]bool)

	// the top row of the grid can not be tracked
	for i := 0; i < 10; i++ {
		inactive[i] = true
	}

	pt := &shiftTracker{
		shift:    imgproc.Point{X: 2, Y: 2},
		inactive: inactive,
		lost:     map[int]bool{0: true, 1: true},
	}
	rt := NewRegionTracker(pt, 10, 5, 10)

	require.True(t, rt.Process(NewRectF(20, 30, 80, 120)))

	// only active points go forward, only forward successes go back
	assert.Len(t, pt.forwarded, 90)
	assert.Len(t, pt.backwarded, 88)
	assert.Len(t, rt.Pairs(), 88)

	for _, p := range pt.forwarded {
		assert.Greater(t, p.Y, 35.0)
	}

	for _, pair := range rt.Pairs() {
		assert.Greater(t, pair.Prev.Y, 35.0)
		assert.InDelta(t, 2, pair.Curr.X-pair.Prev.X, 1e-9)
	}

	// too few active points are not tracked at all
	for i := 0; i < 97; i++ {
		inactive[i] = true
	}

	pt.forwarded = nil
	assert.False(t, rt.Process(NewRectF(20, 30, 80, 120)))
	assert.Empty(t, pt.forwarded)
}

func TestRegionTrackerMedianFailure(t *testing.T) {
	bad := make(map[int]bool)

	for i := 0; i < 60; i++ {
		bad[i] = true
	}

	pt := &shiftTracker{shift: imgproc.Point{X: 1, Y: 1}, bad: bad}
	rt := NewRegionTracker(pt, 10, 5, 10)

	// 40 good points remain but most tracks are inconsistent
	assert.False(t, rt.Process(NewRectF(20, 30, 80, 120)))
	assert.Len(t, rt.Pairs(), 40)
}

func TestRegionTrackerTooFewPoints(t *testing.T) {
	lost := make(map[int]bool)

	for i := 3; i < 100; i++ {
		lost[i] = true
	}

	pt := &shiftTracker{shift: imgproc.Point{X: 1, Y: 1}, lost: lost}
	rt := NewRegionTracker(pt, 10, 5, 10)

	assert.False(t, rt.Process(NewRectF(20, 30, 80, 120)))

	pt.lost = nil
	pt.noFrame = true
	assert.False(t, rt.Process(NewRectF(20, 30, 80, 120)))
	assert.Empty(t, rt.Pairs())
}

func TestAdjustRegion(t *testing.T) {
	adjust := NewAdjustRegion(1, 50)

	var pairs []robust.AssociatedPair

	for i := 0; i < 25; i++ {
		p := imgproc.Point{X: 30 + float64(i%5)*10, Y: 40 + float64(i/5)*10}
		pairs = append(pairs, robust.AssociatedPair{
			Prev: p,
			Curr: imgproc.Point{X: p.X*1.1 + 2, Y: p.Y*1.1 - 3},
		})
	}

	moved, ok := adjust.Process(pairs, NewRectF(20, 30, 80, 90), 200, 150)
	require.True(t, ok)
	assert.InDelta(t, 24, moved.X0, 1e-6)
	assert.InDelta(t, 30, moved.Y0, 1e-6)
	assert.InDelta(t, 90, moved.X1, 1e-6)
	assert.InDelta(t, 96, moved.Y1, 1e-6)
	assert.InDelta(t, 1.1, adjust.Model().Scale, 1e-6)

	// moved outside of the image
	_, ok = adjust.Process(pairs, NewRectF(20, 30, 80, 90), 85, 150)
	assert.False(t, ok)

	_, ok = adjust.Process(pairs[:1], NewRectF(20, 30, 80, 90), 200, 150)
	assert.False(t, ok)
}
