// Package cvflow provides a point tracker backed by the OpenCV pyramidal
// Lucas-Kanade implementation through GoCV
package cvflow

import (
	"fmt"
	"image"

	"github.com/swdee/go-tld/imgproc"
	"github.com/swdee/go-tld/opticalflow"
	"gocv.io/x/gocv"
)

// minEigThreshold is the OpenCV minimum eigenvalue filter, trackability is
// decided by Describe
const minEigThreshold = 1e-4

// Tracker tracks batches of points between the previous and current frame
// using gocv.CalcOpticalFlowPyrLK.  It satisfies the tracker.PointTracker
// interface
type Tracker struct {
	config opticalflow.Config
	// prevMat and currMat are 8 bit single channel copies of the frames
	prevMat gocv.Mat
	currMat gocv.Mat
	// prevGray and currGray are the frames the Mats were created from
	prevGray *imgproc.Gray
	currGray *imgproc.Gray
	// derivX and derivY are the gradients of prevGray, computed lazily
	derivX *imgproc.Gray
	derivY *imgproc.Gray
}

// New returns an OpenCV backed point tracker.  The template radius sets the
// search window, Levels the pyramid depth and MaxIterations with Tolerance
// the stopping criteria.  Trackability uses the minimum eigenvalue and
// results are rejected above the per pixel error
func New(config opticalflow.Config) (*Tracker, error) {

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flow config: %w", err)
	}

	return &Tracker{
		config:  config,
		prevMat: gocv.NewMat(),
		currMat: gocv.NewMat(),
	}, nil
}

// SetFrame makes img the current frame, the frame held before it becomes the
// previous frame
func (t *Tracker) SetFrame(img *imgproc.Gray) error {

	if img == nil || img.Width == 0 || img.Height == 0 {
		return fmt.Errorf("cvflow frame: %w", opticalflow.ErrNoFrame)
	}

	mat, err := gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8U, img.Bytes())

	if err != nil {
		return fmt.Errorf("error creating frame mat: %w", err)
	}

	t.prevMat.Close()
	t.prevMat = t.currMat
	t.currMat = mat

	t.prevGray = t.currGray
	t.currGray = img
	t.derivX, t.derivY = nil, nil

	return nil
}

// Describe marks which points of the previous frame can be tracked
func (t *Tracker) Describe(pts []imgproc.Point, active []bool) {

	if t.prevGray == nil {
		for i := range active {
			active[i] = false
		}
		return
	}

	if t.derivX == nil {
		t.derivX, t.derivY = imgproc.Gradient(t.prevGray)
	}

	r := float64(t.config.TemplateRadius)
	w := float64(t.prevGray.Width - 1)
	h := float64(t.prevGray.Height - 1)

	for i, p := range pts {
		if p.X-r < 0 || p.Y-r < 0 || p.X+r > w || p.Y+r > h {
			active[i] = false
			continue
		}

		active[i] = opticalflow.MinEigenvalue(t.derivX, t.derivY, p,
			t.config.TemplateRadius) >= t.config.MinEigenvalue
	}
}

// Forward tracks each point from the previous frame into the current frame
func (t *Tracker) Forward(pts []imgproc.Point, out []imgproc.Point, ok []bool) {
	t.track(t.prevMat, t.currMat, pts, out, ok)
}

// Backward tracks each point from the current frame into the previous frame
func (t *Tracker) Backward(pts []imgproc.Point, out []imgproc.Point, ok []bool) {
	t.track(t.currMat, t.prevMat, pts, out, ok)
}

// Reset drops the stored frames
func (t *Tracker) Reset() {
	t.prevMat.Close()
	t.currMat.Close()
	t.prevMat = gocv.NewMat()
	t.currMat = gocv.NewMat()
	t.prevGray, t.currGray = nil, nil
	t.derivX, t.derivY = nil, nil
}

// Close frees the OpenCV memory held by the tracker
func (t *Tracker) Close() error {
	if err := t.prevMat.Close(); err != nil {
		return err
	}
	return t.currMat.Close()
}

// winSize is the OpenCV search window matching the template radius
func (t *Tracker) winSize() image.Point {
	side := 2*t.config.TemplateRadius + 1
	return image.Pt(side, side)
}

// criteria stops the iterations per level like the pure Go tracker does
func (t *Tracker) criteria() gocv.TermCriteria {
	return gocv.NewTermCriteria(gocv.Count+gocv.EPS, t.config.MaxIterations,
		t.config.Tolerance)
}

func (t *Tracker) track(src, dst gocv.Mat, pts []imgproc.Point,
	out []imgproc.Point, ok []bool) {

	for i := range ok {
		ok[i] = false
	}

	if src.Empty() || dst.Empty() || len(pts) == 0 {
		return
	}

	prevPts := gocv.NewMatWithSize(len(pts), 1, gocv.MatTypeCV32FC2)
	defer prevPts.Close()

	for i, p := range pts {
		prevPts.SetFloatAt(i, 0, float32(p.X))
		prevPts.SetFloatAt(i, 1, float32(p.Y))
	}

	nextPts := gocv.NewMat()
	defer nextPts.Close()
	status := gocv.NewMat()
	defer status.Close()
	errs := gocv.NewMat()
	defer errs.Close()

	gocv.CalcOpticalFlowPyrLKWithParams(src, dst, prevPts, nextPts, &status, &errs,
		t.winSize(), t.config.Levels-1, t.criteria(), 0, minEigThreshold)

	if status.Rows() != len(pts) {
		return
	}

	cols := float64(dst.Cols() - 1)
	rows := float64(dst.Rows() - 1)

	for i := range pts {
		if status.GetUCharAt(i, 0) != 1 {
			continue
		}

		if float64(errs.GetFloatAt(i, 0)) > t.config.MaxPerPixelError {
			continue
		}

		q := imgproc.Point{
			X: float64(nextPts.GetFloatAt(i, 0)),
			Y: float64(nextPts.GetFloatAt(i, 1)),
		}

		if q.X < 0 || q.Y < 0 || q.X > cols || q.Y > rows {
			continue
		}

		out[i] = q
		ok[i] = true
	}
}
