package tracker

import (
	"sort"

	"github.com/swdee/go-tld/imgproc"
	"github.com/swdee/go-tld/robust"
	"gonum.org/v1/gonum/stat"
)

// minimumPairs is the fewest point correspondences accepted from a frame
const minimumPairs = 4

// PointTracker tracks batches of points between the previous and the current
// frame.  Implementations are opticalflow.PyramidKLT and cvflow.Tracker
type PointTracker interface {
	// SetFrame makes img the current frame, the frame held before it becomes
	// the previous frame
	SetFrame(img *imgproc.Gray) error
	// Describe marks which points of the previous frame can be tracked
	Describe(pts []imgproc.Point, active []bool)
	// Forward tracks points from the previous frame into the current frame
	Forward(pts []imgproc.Point, out []imgproc.Point, ok []bool)
	// Backward tracks points from the current frame into the previous frame
	Backward(pts []imgproc.Point, out []imgproc.Point, ok []bool)
	// Reset drops the stored frames
	Reset()
}

// RegionTracker follows the target region from the previous frame with a grid
// of point tracks
type RegionTracker struct {
	tracker PointTracker
	// gridWidth is the number of points along each side of the grid
	gridWidth int
	// radius is the inset of the grid from the region edges
	radius float64
	// maxError is the largest accepted squared forward-backward error
	maxError float64

	points []imgproc.Point
	active []bool
	// tracked holds the active points of the grid in the previous frame
	tracked  []imgproc.Point
	forward  []imgproc.Point
	okFwd    []bool
	backward []imgproc.Point
	okBwd    []bool
	// errors holds the forward-backward error of each measured point
	errors []float64
	pairs  []robust.AssociatedPair
}

// NewRegionTracker returns a region tracker spawning gridWidth*gridWidth
// point tracks
func NewRegionTracker(tracker PointTracker, gridWidth int, radius int,
	maxError float64) *RegionTracker {

	n := gridWidth * gridWidth

	return &RegionTracker{
		tracker:   tracker,
		gridWidth: gridWidth,
		radius:    float64(radius),
		maxError:  maxError,
		points:    make([]imgproc.Point, n),
		active:    make([]bool, n),
		tracked:   make([]imgproc.Point, 0, n),
		forward:   make([]imgproc.Point, n),
		okFwd:     make([]bool, n),
		backward:  make([]imgproc.Point, n),
		okBwd:     make([]bool, n),
		errors:    make([]float64, 0, n),
		pairs:     make([]robust.AssociatedPair, 0, n),
	}
}

// SpawnGrid places the point grid evenly over target inset by the feature
// radius and marks the points the point tracker can follow
func (rt *RegionTracker) SpawnGrid(target RectF) {

	x0 := target.X0 + rt.radius
	y0 := target.Y0 + rt.radius
	x1 := target.X1 - rt.radius
	y1 := target.Y1 - rt.radius

	if x1 < x0 || y1 < y0 {
		for i := range rt.active {
			rt.active[i] = false
		}
		return
	}

	stepX := (x1 - x0) / float64(rt.gridWidth-1)
	stepY := (y1 - y0) / float64(rt.gridWidth-1)

	for i := 0; i < rt.gridWidth; i++ {
		for j := 0; j < rt.gridWidth; j++ {
			rt.points[i*rt.gridWidth+j] = imgproc.Point{
				X: x0 + float64(j)*stepX,
				Y: y0 + float64(i)*stepY,
			}
		}
	}

	rt.tracker.Describe(rt.points, rt.active)
}

// Process tracks the grid spawned on target into the current frame.  Only
// active points are tracked forward, and only those tracked forward are
// tracked back.  Returns false if too few points survive or the median
// forward-backward error is too large
func (rt *RegionTracker) Process(target RectF) bool {

	rt.Clear()
	rt.SpawnGrid(target)

	rt.tracked = rt.tracked[:0]

	for i, p := range rt.points {
		if rt.active[i] {
			rt.tracked = append(rt.tracked, p)
		}
	}

	if len(rt.tracked) < minimumPairs {
		return false
	}

	n := len(rt.tracked)
	rt.tracker.Forward(rt.tracked, rt.forward[:n], rt.okFwd[:n])

	// keep the points which made it into the current frame
	m := 0

	for k := 0; k < n; k++ {
		if !rt.okFwd[k] {
			continue
		}

		rt.tracked[m] = rt.tracked[k]
		rt.forward[m] = rt.forward[k]
		m++
	}

	rt.tracked = rt.tracked[:m]

	if m < minimumPairs {
		return false
	}

	rt.tracker.Backward(rt.forward[:m], rt.backward[:m], rt.okBwd[:m])

	for k := 0; k < m; k++ {

		if !rt.okBwd[k] {
			continue
		}

		fbError := rt.tracked[k].Distance2(rt.backward[k])
		rt.errors = append(rt.errors, fbError)

		if fbError > rt.maxError {
			continue
		}

		rt.pairs = append(rt.pairs, robust.AssociatedPair{
			Prev: rt.tracked[k],
			Curr: rt.forward[k],
		})
	}

	if len(rt.pairs) < minimumPairs {
		return false
	}

	sort.Float64s(rt.errors)

	return stat.Quantile(0.5, stat.Empirical, rt.errors, nil) <= rt.maxError
}

// Clear drops the correspondences of the last call to Process
func (rt *RegionTracker) Clear() {
	rt.pairs = rt.pairs[:0]
	rt.errors = rt.errors[:0]
}

// Pairs returns the point correspondences of the last call to Process
func (rt *RegionTracker) Pairs() []robust.AssociatedPair {
	return rt.pairs
}

// TrackedPoints appends the current frame position of every point which
// contributed a correspondence in the last call to Process
func (rt *RegionTracker) TrackedPoints(out []imgproc.Point) []imgproc.Point {
	for _, pair := range rt.pairs {
		out = append(out, pair.Curr)
	}
	return out
}
