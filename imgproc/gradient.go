package imgproc

// Gradient computes the x and y derivative images of img using a centered
// three tap difference.  Border pixels replicate their nearest neighbour
func Gradient(img *Gray) (derivX, derivY *Gray) {

	w, h := img.Width, img.Height
	derivX = NewGray(w, h)
	derivY = NewGray(w, h)

	for y := 0; y < h; y++ {
		ym := max(y-1, 0)
		yp := min(y+1, h-1)

		for x := 0; x < w; x++ {
			xm := max(x-1, 0)
			xp := min(x+1, w-1)

			derivX.Pix[y*w+x] = (img.Pix[y*w+xp] - img.Pix[y*w+xm]) * 0.5
			derivY.Pix[y*w+x] = (img.Pix[yp*w+x] - img.Pix[ym*w+x]) * 0.5
		}
	}

	return derivX, derivY
}
