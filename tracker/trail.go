package tracker

import (
	"math"
	"sync"
)

// Point is an integer pixel location, the center of a target region in the
// trail history
type Point struct {
	X, Y int
}

// Trail keeps a history of the target center used for drawing a trail.  A
// gap in the trail is recorded when the target is lost
type Trail struct {
	// size is the maximum number of most recent points to keep in history
	size int
	// segments of the history, a new segment starts after the target was lost
	segments [][]Point
	// lost is set when the last update had no target
	lost bool
	sync.Mutex
}

// NewTrail returns a new trail history instance.  Size is the maximum number
// of points kept across all segments
func NewTrail(size int) *Trail {
	return &Trail{
		size: size,
		lost: true,
	}
}

// Reset clears all history
func (t *Trail) Reset() {
	t.Lock()
	defer t.Unlock()

	t.segments = nil
	t.lost = true
}

// Add records the center of region.  When found is false no point is added
// and the next point starts a new segment
func (t *Trail) Add(region RectF, found bool) {
	t.Lock()
	defer t.Unlock()

	if !found {
		t.lost = true
		return
	}

	c := region.Center()
	p := Point{X: int(math.Round(c.X)), Y: int(math.Round(c.Y))}

	if t.lost || len(t.segments) == 0 {
		t.segments = append(t.segments, nil)
		t.lost = false
	}

	last := len(t.segments) - 1
	t.segments[last] = append(t.segments[last], p)

	// drop oldest point once history is exceeded
	if t.count() > t.size {
		t.segments[0] = t.segments[0][1:]

		if len(t.segments[0]) == 0 {
			t.segments = t.segments[1:]
		}
	}
}

// count returns the number of points held
func (t *Trail) count() int {
	n := 0

	for _, s := range t.segments {
		n += len(s)
	}

	return n
}

// Segments returns a copy of the history, oldest segment first
func (t *Trail) Segments() [][]Point {
	t.Lock()
	defer t.Unlock()

	out := make([][]Point, len(t.segments))

	for i, s := range t.segments {
		out[i] = append([]Point(nil), s...)
	}

	return out
}

// Len returns the number of points held
func (t *Trail) Len() int {
	t.Lock()
	defer t.Unlock()

	return t.count()
}
