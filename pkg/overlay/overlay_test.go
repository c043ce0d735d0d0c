package overlay

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/teslashibe/go-sensory/pkg/crowd"
)

func TestRenderBadgeColour(t *testing.T) {
	tests := []struct {
		count int
		want  crowd.Status
	}{
		{0, crowd.StatusSafe},
		{10, crowd.StatusModerate},
		{20, crowd.StatusCaution},
		{35, crowd.StatusAvoid},
	}

	for _, tt := range tests {
		a := crowd.NewAnalysis(tt.count)
		img := Render(a, 640, 480)

		status := crowd.StatusFromDecibels(a.EstimatedDecibelLevel)
		if status.Label != tt.want {
			t.Fatalf("count %d: status %s, want %s", tt.count, status.Label, tt.want)
		}

		// a point inside the badge, left of any text
		got := img.RGBAAt(320-190, 30)
		if !near(got, status.Color) {
			t.Errorf("count %d: badge pixel %v, want about %v", tt.count, got, status.Color)
		}
	}
}

func TestRenderTransparentBackground(t *testing.T) {
	img := Render(crowd.NewAnalysis(0), 640, 480)
	if a := img.RGBAAt(320, 300).A; a != 0 {
		t.Errorf("centre alpha = %d, want 0", a)
	}
}

func TestRenderBoxes(t *testing.T) {
	a := crowd.NewAnalysis(20)
	a.Boxes = []crowd.Box{
		{X: 0.5, Y: 0.5, Width: 0.2, Height: 0.2},
		{X: 2, Y: 0.5, Width: 0.2, Height: 0.2},
	}
	img := Render(a, 640, 480)

	// top-left corner marker of the valid box
	if got := img.RGBAAt(320, 240); got.A == 0 {
		t.Error("expected corner marker at box origin")
	}
}

func TestRenderNil(t *testing.T) {
	img := Render(nil, 10, 10)
	if img.Bounds().Dx() != 10 {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestRendererPublish(t *testing.T) {
	r := NewRenderer(320, 240)

	if r.Image() != nil {
		t.Fatal("expected empty canvas before first analysis")
	}
	empty, err := r.PNG()
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(empty)); err != nil {
		t.Fatalf("decode empty PNG: %v", err)
	}

	r.Publish(context.Background(), crowd.NewAnalysis(3))
	if got := r.Analysis(); got == nil || got.PeopleCount != 3 {
		t.Fatalf("analysis = %+v", got)
	}

	data, _ := r.PNG()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 320, 240) {
		t.Errorf("bounds = %v", img.Bounds())
	}

	r.Clear()
	if r.Image() != nil || r.Analysis() != nil {
		t.Error("Clear did not drop the overlay")
	}
}

func TestCompose(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for i := range base.Pix {
		base.Pix[i] = 255
	}
	out := Compose(base, crowd.NewAnalysis(0))
	if got := out.RGBAAt(195, 195); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("base not preserved: %v", got)
	}
}

func near(got, want color.RGBA) bool {
	d := func(a, b uint8) int {
		if a > b {
			return int(a - b)
		}
		return int(b - a)
	}
	return d(got.R, want.R) <= 3 && d(got.G, want.G) <= 3 && d(got.B, want.B) <= 3 && d(got.A, want.A) <= 3
}
