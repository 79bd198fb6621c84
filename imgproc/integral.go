package imgproc

// Integral holds summed area tables of pixel values and of squared pixel
// values, allowing O(1) block sums.  Both tables are (Width+1)x(Height+1)
// with a leading zero row and column and use float64 accumulators so the
// squared sums can not overflow
type Integral struct {
	// Sum is the summed area table of intensities
	Sum []float64
	// SqSum is the summed area table of squared intensities
	SqSum []float64
	// Width of the source image
	Width int
	// Height of the source image
	Height int
}

// NewIntegral returns an empty integral image sized for images of the given
// dimensions
func NewIntegral(width, height int) *Integral {
	n := (width + 1) * (height + 1)
	return &Integral{
		Sum:    make([]float64, n),
		SqSum:  make([]float64, n),
		Width:  width,
		Height: height,
	}
}

// Process recomputes the tables from img, reallocating them if the image
// dimensions changed
func (ii *Integral) Process(img *Gray) {

	if img.Width != ii.Width || img.Height != ii.Height {
		*ii = *NewIntegral(img.Width, img.Height)
	}

	stride := ii.Width + 1

	for y := 0; y < img.Height; y++ {
		var rowSum, rowSqSum float64

		for x := 0; x < img.Width; x++ {
			v := float64(img.Pix[y*img.Width+x])
			rowSum += v
			rowSqSum += v * v

			idx := (y+1)*stride + x + 1
			ii.Sum[idx] = ii.Sum[idx-stride] + rowSum
			ii.SqSum[idx] = ii.SqSum[idx-stride] + rowSqSum
		}
	}
}

// BlockSum returns the sum of intensities inside [x0,x1)x[y0,y1)
func (ii *Integral) BlockSum(x0, y0, x1, y1 int) float64 {
	return ii.block(ii.Sum, x0, y0, x1, y1)
}

// BlockSqSum returns the sum of squared intensities inside [x0,x1)x[y0,y1)
func (ii *Integral) BlockSqSum(x0, y0, x1, y1 int) float64 {
	return ii.block(ii.SqSum, x0, y0, x1, y1)
}

func (ii *Integral) block(table []float64, x0, y0, x1, y1 int) float64 {

	if x1 <= x0 || y1 <= y0 {
		return 0
	}

	stride := ii.Width + 1

	return table[y1*stride+x1] - table[y0*stride+x1] -
		table[y1*stride+x0] + table[y0*stride+x0]
}
