package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlap(t *testing.T) {

	a := NewRectF(0, 0, 10, 10)
	b := NewRectF(5, 0, 15, 10)
	c := NewRectF(20, 20, 30, 30)

	assert.InDelta(t, 1.0, a.Overlap(a), 1e-12)
	assert.InDelta(t, 50.0/150.0, a.Overlap(b), 1e-12)
	assert.Equal(t, a.Overlap(b), b.Overlap(a))
	assert.Equal(t, 0.0, a.Overlap(c))
	assert.Equal(t, 0.0, RectF{}.Overlap(RectF{}))
}

func TestOverlapSymmetric(t *testing.T) {
	rects := []RectF{
		NewRectF(0, 0, 10, 10),
		NewRectF(3.5, 2, 12, 9),
		NewRectF(-4, -4, 4, 4),
		NewRectF(9, 9, 20, 30),
		NewRectF(2, 2, 2, 2),
	}

	for _, a := range rects {
		for _, b := range rects {
			assert.Equal(t, a.Overlap(b), b.Overlap(a))
		}
	}
}

func TestRectConversions(t *testing.T) {
	r := NewRectF(1.4, 2.6, 10.5, 20.2)

	assert.Equal(t, Rect{X0: 1, Y0: 3, X1: 11, Y1: 20}, r.Round())
	assert.Equal(t, NewRectF(0, 0, 8, 6), NewRectF(-2, -1, 9, 6).Clip(8, 6))
	assert.True(t, NewRectF(0, 0, 8, 6).Inside(8, 6))
	assert.False(t, NewRectF(0, 0, 8.5, 6).Inside(8, 6))

	ri := Rect{X0: 2, Y0: 3, X1: 7, Y1: 11}
	assert.Equal(t, 40, ri.Area())
	assert.Equal(t, 0, Rect{X0: 5, Y0: 5, X1: 5, Y1: 9}.Area())
	assert.InDelta(t, 4.5, ri.Float().Center().X, 1e-12)
	assert.InDelta(t, 7.0, ri.Float().Center().Y, 1e-12)
}
