// Package crowd estimates how crowded and noisy a scene is from a single
// camera frame.
//
// The estimate is a visual-noise proxy, not an object detector: the
// population variance of per-pixel brightness is bucketed into a coarse
// head count, which is then mapped to a density, an estimated decibel level
// and a recommendation. A second, independent table maps the decibel level
// to the status badge shown on the overlay.
//
//	frame := crowd.FrameFromImage(img)
//	stats, err := crowd.Sample(frame)
//	if errors.Is(err, crowd.ErrFrameNotReady) {
//	    return // skip this tick
//	}
//	a := crowd.NewAnalysis(crowd.EstimatePeople(stats.Variance))
//	badge := a.Status()
package crowd

import (
	"image"
	"image/draw"
)

// Frame is a single RGBA still, 4 bytes per pixel, row-major with no padding.
// A Frame lives for one analysis pass and is never persisted.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewFrame allocates a zeroed frame of the given size.
func NewFrame(width, height int) *Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Frame{Width: width, Height: height, Pix: make([]uint8, width*height*4)}
}

// FrameFromImage copies img into a tightly packed RGBA frame.
func FrameFromImage(img image.Image) *Frame {
	if img == nil {
		return &Frame{}
	}
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == b.Dx()*4 && b.Min == (image.Point{}) {
		return &Frame{Width: b.Dx(), Height: b.Dy(), Pix: rgba.Pix}
	}

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &Frame{Width: b.Dx(), Height: b.Dy(), Pix: dst.Pix}
}

// Pixels returns the number of pixels in the frame.
func (f *Frame) Pixels() int {
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return 0
	}
	return f.Width * f.Height
}

// Ready reports whether the frame has readable pixels.
func (f *Frame) Ready() bool {
	n := f.Pixels()
	return n > 0 && len(f.Pix) >= n*4
}

// Image exposes the frame as an *image.RGBA sharing the same buffer.
func (f *Frame) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}
