package opticalflow

import (
	"errors"
	"fmt"
	"math"

	"github.com/swdee/go-tld/imgproc"
)

// Config holds the parameters of the pyramidal KLT point tracker
type Config struct {
	// TemplateRadius is the radius of the square window tracked around each
	// point, the window is 2*radius+1 pixels wide
	TemplateRadius int
	// Levels is the number of pyramid levels used
	Levels int
	// MaxIterations is the maximum number of Gauss-Newton iterations per
	// pyramid level
	MaxIterations int
	// Tolerance stops the iterations once the update is smaller than this
	// many pixels
	Tolerance float64
	// MinEigenvalue is the smallest per pixel eigenvalue of the gradient
	// structure matrix accepted for a trackable point
	MinEigenvalue float64
	// MaxPerPixelError is the largest mean absolute intensity difference
	// between the template and its tracked location
	MaxPerPixelError float64
}

// DefaultConfig returns the default KLT settings
func DefaultConfig() Config {
	return Config{
		TemplateRadius:   5,
		Levels:           3,
		MaxIterations:    20,
		Tolerance:        0.01,
		MinEigenvalue:    1.0,
		MaxPerPixelError: 25,
	}
}

// Validate checks the settings are usable
func (c Config) Validate() error {
	if c.TemplateRadius < 1 {
		return errors.New("template radius must be at least 1")
	}
	if c.Levels < 1 {
		return errors.New("pyramid levels must be at least 1")
	}
	if c.MaxIterations < 1 {
		return errors.New("max iterations must be at least 1")
	}
	return nil
}

// Frame holds the image pyramid of a single video frame along with the
// derivative images of every level
type Frame struct {
	Levels []*imgproc.Gray
	DerivX []*imgproc.Gray
	DerivY []*imgproc.Gray
}

// NewFrame builds the pyramid and gradients for img
func NewFrame(img *imgproc.Gray, levels int) *Frame {

	pyr := imgproc.NewPyramid(img, levels)

	f := &Frame{
		Levels: pyr,
		DerivX: make([]*imgproc.Gray, len(pyr)),
		DerivY: make([]*imgproc.Gray, len(pyr)),
	}

	for i, level := range pyr {
		f.DerivX[i], f.DerivY[i] = imgproc.Gradient(level)
	}

	return f
}

// KLT is a pyramidal Lucas-Kanade tracker for individual points
type KLT struct {
	config Config
	// template, derivX and derivY are scratch buffers for the window samples
	template []float64
	derivX   []float64
	derivY   []float64
}

// NewKLT returns a KLT tracker using the given settings
func NewKLT(config Config) (*KLT, error) {

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid klt config: %w", err)
	}

	width := 2*config.TemplateRadius + 1
	n := width * width

	return &KLT{
		config:   config,
		template: make([]float64, n),
		derivX:   make([]float64, n),
		derivY:   make([]float64, n),
	}, nil
}

// Config returns the tracker settings
func (k *KLT) Config() Config {
	return k.config
}

// IsTrackable reports whether a window centered on p lies inside the base
// level of f and has enough texture to be tracked
func (k *KLT) IsTrackable(f *Frame, p imgproc.Point) bool {

	if !k.windowInside(f.Levels[0], p) {
		return false
	}

	return MinEigenvalue(f.DerivX[0], f.DerivY[0], p, k.config.TemplateRadius) >=
		k.config.MinEigenvalue
}

// Track follows the point p from frame src into frame dst and returns its
// new location
func (k *KLT) Track(src, dst *Frame, p imgproc.Point) (imgproc.Point, bool) {

	r := k.config.TemplateRadius
	top := min(len(src.Levels), len(dst.Levels)) - 1

	// total displacement estimate in the coordinates of the current level
	var g imgproc.Point

	for level := top; level >= 0; level-- {

		if level != top {
			g = g.Scale(2)
		}

		pl := imgproc.LevelCoordinate(p, level)

		gxx, gxy, gyy := k.sampleTemplate(src, level, pl)

		det := gxx*gyy - gxy*gxy
		n := float64(len(k.template))

		if minEigen(gxx, gxy, gyy)/n < k.config.MinEigenvalue || det == 0 {
			if level == 0 {
				return imgproc.Point{}, false
			}
			// coarse level lacks texture, keep the current guess
			continue
		}

		img := dst.Levels[level]
		var v imgproc.Point

		for iter := 0; iter < k.config.MaxIterations; iter++ {
			var bx, by float64
			i := 0

			for dy := -r; dy <= r; dy++ {
				for dx := -r; dx <= r; dx++ {
					j := img.Bilinear(pl.X+g.X+v.X+float64(dx), pl.Y+g.Y+v.Y+float64(dy))
					diff := k.template[i] - j
					bx += diff * k.derivX[i]
					by += diff * k.derivY[i]
					i++
				}
			}

			ux := (gyy*bx - gxy*by) / det
			uy := (gxx*by - gxy*bx) / det

			v.X += ux
			v.Y += uy

			if ux*ux+uy*uy < k.config.Tolerance*k.config.Tolerance {
				break
			}
		}

		g = g.Add(v)
	}

	q := p.Add(g)

	if math.IsNaN(q.X) || math.IsNaN(q.Y) || !k.windowInside(dst.Levels[0], q) {
		return imgproc.Point{}, false
	}

	// the template buffers hold the level 0 samples of src at this point
	if k.residual(dst.Levels[0], q) > k.config.MaxPerPixelError {
		return imgproc.Point{}, false
	}

	return q, true
}

// sampleTemplate fills the template and gradient buffers with the window
// around p at the given level of f and returns the structure matrix
func (k *KLT) sampleTemplate(f *Frame, level int, p imgproc.Point) (gxx, gxy, gyy float64) {

	r := k.config.TemplateRadius
	img := f.Levels[level]
	dxImg := f.DerivX[level]
	dyImg := f.DerivY[level]
	i := 0

	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			x := p.X + float64(dx)
			y := p.Y + float64(dy)

			k.template[i] = img.Bilinear(x, y)
			ix := dxImg.Bilinear(x, y)
			iy := dyImg.Bilinear(x, y)
			k.derivX[i] = ix
			k.derivY[i] = iy

			gxx += ix * ix
			gxy += ix * iy
			gyy += iy * iy
			i++
		}
	}

	return gxx, gxy, gyy
}

// residual returns the mean absolute difference between the template buffer
// and the window around q in img
func (k *KLT) residual(img *imgproc.Gray, q imgproc.Point) float64 {

	r := k.config.TemplateRadius
	var sum float64
	i := 0

	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			sum += math.Abs(k.template[i] - img.Bilinear(q.X+float64(dx), q.Y+float64(dy)))
			i++
		}
	}

	return sum / float64(len(k.template))
}

// windowInside reports whether the tracking window around p fits in img
func (k *KLT) windowInside(img *imgproc.Gray, p imgproc.Point) bool {
	r := float64(k.config.TemplateRadius)

	return p.X-r >= 0 && p.Y-r >= 0 &&
		p.X+r <= float64(img.Width-1) && p.Y+r <= float64(img.Height-1)
}

// MinEigenvalue returns the smaller eigenvalue of the gradient structure
// matrix of the square window of the given radius around p, normalised by
// the number of pixels in the window
func MinEigenvalue(derivX, derivY *imgproc.Gray, p imgproc.Point, radius int) float64 {

	var gxx, gxy, gyy float64

	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			x := p.X + float64(dx)
			y := p.Y + float64(dy)
			ix := derivX.Bilinear(x, y)
			iy := derivY.Bilinear(x, y)

			gxx += ix * ix
			gxy += ix * iy
			gyy += iy * iy
		}
	}

	width := 2*radius + 1

	return minEigen(gxx, gxy, gyy) / float64(width*width)
}

// minEigen returns the smallest eigenvalue of the symmetric 2x2 matrix
// [gxx gxy; gxy gyy]
func minEigen(gxx, gxy, gyy float64) float64 {
	half := (gxx + gyy) / 2
	d := (gxx - gyy) / 2

	return half - math.Sqrt(d*d+gxy*gxy)
}
