package crowd

// Stats is the brightness distribution of one frame.
type Stats struct {
	// Mean is the average of per-pixel brightness, (R+G+B)/3.
	Mean float64

	// Variance is the population variance of per-pixel brightness around Mean.
	Variance float64

	// Pixels is the number of pixels sampled.
	Pixels int
}

// Sample computes the mean brightness and its population variance.
// It returns ErrFrameNotReady without reading pixels if the frame is empty.
func Sample(f *Frame) (Stats, error) {
	if !f.Ready() {
		return Stats{}, ErrFrameNotReady
	}

	n := f.Pixels()
	pix := f.Pix[:n*4]

	var total float64
	for i := 0; i < len(pix); i += 4 {
		total += brightness(pix[i], pix[i+1], pix[i+2])
	}
	mean := total / float64(n)

	var sq float64
	for i := 0; i < len(pix); i += 4 {
		d := brightness(pix[i], pix[i+1], pix[i+2]) - mean
		sq += d * d
	}

	return Stats{Mean: mean, Variance: sq / float64(n), Pixels: n}, nil
}

func brightness(r, g, b uint8) float64 {
	return (float64(r) + float64(g) + float64(b)) / 3
}
