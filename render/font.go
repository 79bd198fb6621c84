package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Anchor is the side of the target box a label is attached to
type Anchor int

const (
	AnchorLeft Anchor = iota
	AnchorCenter
	AnchorRight
)

// Padding is the space in pixels between text and the edge of its background
type Padding struct {
	Left, Right, Top, Bottom int
}

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	Padding   Padding
	// Anchor of the label on the target box
	Anchor Anchor
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     Black,
		Thickness: 1,
		LineType:  gocv.LineAA,
		Padding:   Padding{Left: 4, Right: 4, Top: 4, Bottom: 6},
		Anchor:    AnchorLeft,
	}
}

// textSize returns the size of text without padding
func (f Font) textSize(text string) image.Point {
	return gocv.GetTextSize(text, f.Face, f.Scale, f.Thickness)
}

// padded returns the size of the background needed for text of the given size
func (f Font) padded(size image.Point) image.Point {
	return image.Pt(size.X+f.Padding.Left+f.Padding.Right,
		size.Y+f.Padding.Top+f.Padding.Bottom)
}

// put draws text with its baseline origin at pos
func (f Font) put(img *gocv.Mat, text string, pos image.Point, clr color.RGBA) {
	gocv.PutTextWithParams(img, text, pos, f.Face, f.Scale, clr, f.Thickness,
		f.LineType, false)
}

// StatusText draws a line of text on a filled strip in the top left corner
// of the image.  The strip uses the font color and the text is drawn in white
func StatusText(img *gocv.Mat, text string, font Font) {

	size := font.textSize(text)

	gocv.Rectangle(img, image.Rectangle{Max: font.padded(size)}, font.Color, -1)

	font.put(img, text, image.Pt(font.Padding.Left, size.Y+font.Padding.Top), White)
}
