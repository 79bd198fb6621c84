// Package synth generates deterministic synthetic frames for exercising the
// tracker without video input
package synth

import (
	"math/rand"

	"github.com/swdee/go-tld/imgproc"
)

// Texture returns a smooth random texture.  Random intensities are drawn on
// a coarse lattice with the given cell size and bilinearly interpolated,
// which gives strong gradients everywhere while remaining smooth enough for
// sub-pixel tracking
func Texture(width, height, cell int, seed int64) *imgproc.Gray {

	rnd := rand.New(rand.NewSource(seed))

	gw := width/cell + 2
	gh := height/cell + 2
	lattice := imgproc.NewGray(gw, gh)

	for i := range lattice.Pix {
		lattice.Pix[i] = float32(20 + rnd.Intn(216))
	}

	img := imgproc.NewGray(width, height)
	inv := 1 / float64(cell)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetValue(x, y, float32(lattice.Bilinear(float64(x)*inv, float64(y)*inv)))
		}
	}

	return img
}

// Crop copies the width x height window of src whose top left corner is at
// x0,y0.  Samples outside src are clamped to the border
func Crop(src *imgproc.Gray, x0, y0, width, height int) *imgproc.Gray {

	out := imgproc.NewGray(width, height)

	for y := 0; y < height; y++ {
		sy := min(max(y+y0, 0), src.Height-1)

		for x := 0; x < width; x++ {
			sx := min(max(x+x0, 0), src.Width-1)
			out.SetValue(x, y, src.Get(sx, sy))
		}
	}

	return out
}

// Sequence produces frames of a fixed size cut from a larger texture, the
// content of frame n is shifted by n*(dx,dy) pixels relative to frame 0
type Sequence struct {
	texture       *imgproc.Gray
	width, height int
	// originX, originY is the texture position of frame 0
	originX, originY int
	dx, dy           int
}

// NewSequence returns a translating frame sequence.  The texture is sized so
// that frames up to maxFrames can be produced without clamping
func NewSequence(width, height, dx, dy, maxFrames int, seed int64) *Sequence {

	padX := abs(dx)*maxFrames + 1
	padY := abs(dy)*maxFrames + 1

	return &Sequence{
		texture: Texture(width+2*padX, height+2*padY, 6, seed),
		width:   width,
		height:  height,
		originX: padX,
		originY: padY,
		dx:      dx,
		dy:      dy,
	}
}

// Frame returns frame n of the sequence
func (s *Sequence) Frame(n int) *imgproc.Gray {
	return Crop(s.texture, s.originX-n*s.dx, s.originY-n*s.dy, s.width, s.height)
}

// Offset returns the displacement of the content in frame n relative to
// frame 0
func (s *Sequence) Offset(n int) (int, int) {
	return n * s.dx, n * s.dy
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
