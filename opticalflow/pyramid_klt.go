package opticalflow

import (
	"errors"
	"fmt"

	"github.com/swdee/go-tld/imgproc"
)

// ErrNoFrame is returned when tracking is attempted before two frames have
// been supplied
var ErrNoFrame = errors.New("no frame set")

// PyramidKLT tracks batches of points between the previous and the current
// video frame.  It satisfies the tracker.PointTracker interface
type PyramidKLT struct {
	klt *KLT
	// prev is the frame supplied before curr
	prev *Frame
	// curr is the most recent frame
	curr *Frame
}

// NewPyramidKLT returns a point tracker with the given settings
func NewPyramidKLT(config Config) (*PyramidKLT, error) {

	klt, err := NewKLT(config)

	if err != nil {
		return nil, err
	}

	return &PyramidKLT{klt: klt}, nil
}

// SetFrame makes img the current frame, the frame held before it becomes the
// previous frame
func (p *PyramidKLT) SetFrame(img *imgproc.Gray) error {

	if img == nil || img.Width == 0 || img.Height == 0 {
		return fmt.Errorf("klt frame: %w", ErrNoFrame)
	}

	p.prev = p.curr
	p.curr = NewFrame(img, p.klt.config.Levels)

	return nil
}

// Describe marks which points of the previous frame can be tracked
func (p *PyramidKLT) Describe(pts []imgproc.Point, active []bool) {

	for i, pt := range pts {
		active[i] = p.prev != nil && p.klt.IsTrackable(p.prev, pt)
	}
}

// Forward tracks each point from the previous frame into the current frame
func (p *PyramidKLT) Forward(pts []imgproc.Point, out []imgproc.Point, ok []bool) {
	p.track(p.prev, p.curr, pts, out, ok)
}

// Backward tracks each point from the current frame into the previous frame
func (p *PyramidKLT) Backward(pts []imgproc.Point, out []imgproc.Point, ok []bool) {
	p.track(p.curr, p.prev, pts, out, ok)
}

// Reset drops the stored frames
func (p *PyramidKLT) Reset() {
	p.prev = nil
	p.curr = nil
}

func (p *PyramidKLT) track(src, dst *Frame, pts []imgproc.Point,
	out []imgproc.Point, ok []bool) {

	for i, pt := range pts {

		if src == nil || dst == nil {
			ok[i] = false
			continue
		}

		out[i], ok[i] = p.klt.Track(src, dst, pt)
	}
}
