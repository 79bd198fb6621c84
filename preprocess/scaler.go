// Package preprocess converts video frames to the gray scale images used
// for tracking
package preprocess

import (
	"fmt"
	"image"

	"github.com/swdee/go-tld/imgproc"
	"github.com/swdee/go-tld/tracker"
	"gocv.io/x/gocv"
)

// FrameScaler defines the struct used to shrink source frames to the working
// resolution of the tracker and map regions between the two
type FrameScaler struct {
	// srcWidth is the width of the source image
	srcWidth int
	// srcHeight is the height of the source image
	srcHeight int
	// destWidth is the width frames are scaled to
	destWidth int
	// destHeight is the height frames are scaled to
	destHeight int
	// scale is destination size divided by source size
	scale float64
	// tempMat holds the resized colour frame
	tempMat gocv.Mat
	// grayMat holds the resized gray frame
	grayMat gocv.Mat
}

// NewFrameScaler returns a scaler that shrinks srcWidth x srcHeight frames so
// their longest side is no more than maxSide pixels.  Frames already within
// maxSide keep their size.  A maxSide of zero disables scaling
func NewFrameScaler(srcWidth, srcHeight, maxSide int) *FrameScaler {

	s := &FrameScaler{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  srcWidth,
		destHeight: srcHeight,
		scale:      1,
		tempMat:    gocv.NewMat(),
		grayMat:    gocv.NewMat(),
	}

	longest := max(srcWidth, srcHeight)

	if maxSide > 0 && longest > maxSide {
		s.scale = float64(maxSide) / float64(longest)
		s.destWidth = int(float64(srcWidth) * s.scale)
		s.destHeight = int(float64(srcHeight) * s.scale)
	}

	return s
}

// Close frees memory allocated during the scaling process
func (s *FrameScaler) Close() error {
	if err := s.tempMat.Close(); err != nil {
		return err
	}
	return s.grayMat.Close()
}

// Gray scales src to the working resolution and converts it to a gray image.
// src may be a 3 channel BGR or single channel frame
func (s *FrameScaler) Gray(src gocv.Mat) (*imgproc.Gray, error) {

	if src.Cols() != s.srcWidth || src.Rows() != s.srcHeight {
		return nil, fmt.Errorf("frame is %dx%d, expected %dx%d",
			src.Cols(), src.Rows(), s.srcWidth, s.srcHeight)
	}

	resized := src

	if s.scale != 1 {
		gocv.Resize(src, &s.tempMat, image.Pt(s.destWidth, s.destHeight),
			0, 0, gocv.InterpolationArea)
		resized = s.tempMat
	}

	switch resized.Channels() {
	case 1:
		resized.CopyTo(&s.grayMat)
	case 3:
		gocv.CvtColor(resized, &s.grayMat, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(resized, &s.grayMat, gocv.ColorBGRAToGray)
	default:
		return nil, fmt.Errorf("unsupported channel count %d", resized.Channels())
	}

	return imgproc.FromBytes(s.destWidth, s.destHeight, s.grayMat.ToBytes()), nil
}

// ToWorking maps a rectangle in source frame coordinates to working
// coordinates
func (s *FrameScaler) ToWorking(r image.Rectangle) image.Rectangle {
	return image.Rect(
		int(float64(r.Min.X)*s.scale),
		int(float64(r.Min.Y)*s.scale),
		int(float64(r.Max.X)*s.scale),
		int(float64(r.Max.Y)*s.scale),
	).Intersect(image.Rect(0, 0, s.destWidth, s.destHeight))
}

// ToSource maps a tracked region in working coordinates back to the source
// frame
func (s *FrameScaler) ToSource(r tracker.RectF) image.Rectangle {
	return image.Rect(
		int(r.X0/s.scale),
		int(r.Y0/s.scale),
		int(r.X1/s.scale),
		int(r.Y1/s.scale),
	)
}

// ScaleFactor returns working size divided by source size
func (s *FrameScaler) ScaleFactor() float64 {
	return s.scale
}

// DestWidth returns the width of the working image
func (s *FrameScaler) DestWidth() int {
	return s.destWidth
}

// DestHeight returns the height of the working image
func (s *FrameScaler) DestHeight() int {
	return s.destHeight
}
