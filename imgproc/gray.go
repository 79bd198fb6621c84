package imgproc

import (
	"image"
	"image/color"
	"math"
)

// Gray is a single channel image holding float32 intensity samples in
// row-major order.  Intensities are expected in the 0-255 range for images,
// derivative images may hold any value
type Gray struct {
	// Pix holds the pixel samples, Pix[y*Width+x]
	Pix []float32
	// Width of the image in pixels
	Width int
	// Height of the image in pixels
	Height int
}

// NewGray returns a zeroed gray image of the given dimensions
func NewGray(width, height int) *Gray {
	return &Gray{
		Pix:    make([]float32, width*height),
		Width:  width,
		Height: height,
	}
}

// FromImage converts any Go image into a Gray image using the standard
// library luminance conversion
func FromImage(src image.Image) *Gray {

	b := src.Bounds()
	g := NewGray(b.Dx(), b.Dy())

	// fast path for 8 bit gray images
	if gi, ok := src.(*image.Gray); ok {
		for y := 0; y < g.Height; y++ {
			row := gi.Pix[(y+b.Min.Y-gi.Rect.Min.Y)*gi.Stride+(b.Min.X-gi.Rect.Min.X):]
			for x := 0; x < g.Width; x++ {
				g.Pix[y*g.Width+x] = float32(row[x])
			}
		}
		return g
	}

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			c := color.Gray16Model.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			g.Pix[y*g.Width+x] = float32(c.Y) / 257
		}
	}

	return g
}

// FromBytes builds a Gray image from 8 bit samples laid out row-major
func FromBytes(width, height int, data []byte) *Gray {
	g := NewGray(width, height)

	for i := range g.Pix {
		g.Pix[i] = float32(data[i])
	}

	return g
}

// Bytes returns the image as 8 bit samples, values are rounded and clamped to
// the 0-255 range
func (g *Gray) Bytes() []byte {
	out := make([]byte, len(g.Pix))

	for i, v := range g.Pix {
		out[i] = clampUint8(v)
	}

	return out
}

// Clone returns a deep copy of the image
func (g *Gray) Clone() *Gray {
	c := NewGray(g.Width, g.Height)
	copy(c.Pix, g.Pix)
	return c
}

// Get returns the sample at integer coordinates x,y
func (g *Gray) Get(x, y int) float32 {
	return g.Pix[y*g.Width+x]
}

// SetValue sets the sample at integer coordinates x,y
func (g *Gray) SetValue(x, y int, v float32) {
	g.Pix[y*g.Width+x] = v
}

// Fill sets every sample inside the rectangle [x0,x1)x[y0,y1) to v.  The
// rectangle is clipped to the image
func (g *Gray) Fill(x0, y0, x1, y1 int, v float32) {
	x0, y0 = max(x0, 0), max(y0, 0)
	x1, y1 = min(x1, g.Width), min(y1, g.Height)

	for y := y0; y < y1; y++ {
		row := g.Pix[y*g.Width:]
		for x := x0; x < x1; x++ {
			row[x] = v
		}
	}
}

// IsInBounds reports whether the integer coordinate lies inside the image
func (g *Gray) IsInBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// Bilinear samples the image at fractional coordinates using bilinear
// interpolation.  Coordinates outside of the image are clamped to the border
func (g *Gray) Bilinear(x, y float64) float64 {

	maxX := float64(g.Width - 1)
	maxY := float64(g.Height - 1)

	if x < 0 {
		x = 0
	} else if x > maxX {
		x = maxX
	}

	if y < 0 {
		y = 0
	} else if y > maxY {
		y = maxY
	}

	x0 := int(x)
	y0 := int(y)
	x1 := min(x0+1, g.Width-1)
	y1 := min(y0+1, g.Height-1)

	ax := x - float64(x0)
	ay := y - float64(y0)

	p00 := float64(g.Pix[y0*g.Width+x0])
	p10 := float64(g.Pix[y0*g.Width+x1])
	p01 := float64(g.Pix[y1*g.Width+x0])
	p11 := float64(g.Pix[y1*g.Width+x1])

	top := p00*(1-ax) + p10*ax
	bottom := p01*(1-ax) + p11*ax

	return top*(1-ay) + bottom*ay
}

// ColorModel implements image.Image
func (g *Gray) ColorModel() color.Model {
	return color.Gray16Model
}

// Bounds implements image.Image
func (g *Gray) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width, g.Height)
}

// At implements image.Image.  Samples are scaled into the 16 bit gray range
func (g *Gray) At(x, y int) color.Color {
	if !g.IsInBounds(x, y) {
		return color.Gray16{}
	}

	v := float64(g.Pix[y*g.Width+x]) * 257
	v = math.Max(0, math.Min(65535, v))

	return color.Gray16{Y: uint16(v + 0.5)}
}

// Set implements draw.Image
func (g *Gray) Set(x, y int, c color.Color) {
	if !g.IsInBounds(x, y) {
		return
	}

	v := color.Gray16Model.Convert(c).(color.Gray16)
	g.Pix[y*g.Width+x] = float32(v.Y) / 257
}

// clampUint8 rounds a float sample into the 0-255 range
func clampUint8(v float32) uint8 {

	if v <= 0 {
		return 0
	}

	if v >= 255 {
		return 255
	}

	return uint8(v + 0.5)
}
