package crowd

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

// uniformFrame fills every pixel with c.
func uniformFrame(w, h int, c color.RGBA) *Frame {
	f := NewFrame(w, h)
	for i := 0; i < len(f.Pix); i += 4 {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return f
}

// splitFrame paints the left half black and the right half with c.
func splitFrame(w, h int, c color.RGBA) *Frame {
	f := NewFrame(w, h)
	for y := 0; y < h; y++ {
		for x := w / 2; x < w; x++ {
			i := (y*w + x) * 4
			f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = c.R, c.G, c.B, 255
		}
	}
	return f
}

func TestEstimatePeopleMonotonic(t *testing.T) {
	prev := EstimatePeople(0)
	for v := 0.0; v <= 20000; v += 0.5 {
		got := EstimatePeople(v)
		if got < prev {
			t.Fatalf("EstimatePeople(%v) = %d < %d", v, got, prev)
		}
		prev = got
	}
}

func TestEstimatePeopleBoundaries(t *testing.T) {
	tests := []struct {
		variance float64
		want     int
	}{
		{0, 0},
		{799.999, 0},
		{800, 1},
		{1999.9, 1},
		{2000, 2},
		{3000, 3},
		{3999, 3},
		{4000, 5},
		{5500, 10},
		{7500, 20},
		{9999.999, 20},
		{10000, 35},
		{1e9, 35},
	}
	for _, tt := range tests {
		if got := EstimatePeople(tt.variance); got != tt.want {
			t.Errorf("EstimatePeople(%v) = %d, want %d", tt.variance, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		count   int
		density Density
		db      int
	}{
		{-3, DensityLow, 35},
		{0, DensityLow, 35},
		{1, DensityLow, 42},
		{5, DensityLow, 42},
		{6, DensityMedium, 58},
		{15, DensityMedium, 58},
		{16, DensityHigh, 70},
		{30, DensityHigh, 70},
		{31, DensityVeryHigh, 80},
		{35, DensityVeryHigh, 80},
	}
	for _, tt := range tests {
		m := Classify(tt.count)
		if m.Density != tt.density || m.DecibelLevel != tt.db {
			t.Errorf("Classify(%d) = %s/%d, want %s/%d", tt.count, m.Density, m.DecibelLevel, tt.density, tt.db)
		}
		if m.Recommendation == "" {
			t.Errorf("Classify(%d) has empty recommendation", tt.count)
		}
	}

	if got := Classify(0).Recommendation; got != "No crowd detected. Very quiet area." {
		t.Errorf("unexpected recommendation %q", got)
	}
}

func TestStatusFromDecibels(t *testing.T) {
	tests := []struct {
		db   int
		want Status
	}{
		{0, StatusSafe},
		{54, StatusSafe},
		{55, StatusModerate},
		{64, StatusModerate},
		{65, StatusCaution},
		{74, StatusCaution},
		{75, StatusAvoid},
		{120, StatusAvoid},
	}
	for _, tt := range tests {
		if got := StatusFromDecibels(tt.db).Label; got != tt.want {
			t.Errorf("StatusFromDecibels(%d) = %s, want %s", tt.db, got, tt.want)
		}
	}
}

// The density table puts "medium" at 58 dB, which the status table calls
// MODERATE, while "high" at 70 dB is CAUTION. Both lookups stay separate.
func TestTablesStayIndependent(t *testing.T) {
	if got := NewAnalysis(10).Status().Label; got != StatusModerate {
		t.Errorf("medium crowd status = %s", got)
	}
	if got := NewAnalysis(3).Status().Label; got != StatusSafe {
		t.Errorf("low crowd status = %s", got)
	}
	if got := NewAnalysis(35).Status().Label; got != StatusAvoid {
		t.Errorf("very-high crowd status = %s", got)
	}
}

func TestSampleUniformFrame(t *testing.T) {
	f := uniformFrame(64, 48, color.RGBA{R: 120, G: 90, B: 30, A: 255})
	stats, err := Sample(f)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if stats.Mean != 80 {
		t.Errorf("mean = %v, want 80", stats.Mean)
	}
	if stats.Variance != 0 {
		t.Errorf("variance = %v, want 0", stats.Variance)
	}
	if stats.Pixels != 64*48 {
		t.Errorf("pixels = %d", stats.Pixels)
	}
}

func TestSampleSplitFrame(t *testing.T) {
	f := splitFrame(10, 10, color.RGBA{R: 200, G: 200, B: 200})
	stats, err := Sample(f)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	// Two equal halves at 0 and 200: mean 100, variance 100^2.
	if stats.Mean != 100 || stats.Variance != 10000 {
		t.Errorf("got mean=%v variance=%v", stats.Mean, stats.Variance)
	}
}

func TestSampleZeroPixelGuard(t *testing.T) {
	frames := []*Frame{
		nil,
		{},
		{Width: 0, Height: 10, Pix: make([]uint8, 40)},
		{Width: 10, Height: 0},
		{Width: 4, Height: 4, Pix: make([]uint8, 8)},
	}
	for i, f := range frames {
		if _, err := Sample(f); !errors.Is(err, ErrFrameNotReady) {
			t.Errorf("frame %d: expected ErrFrameNotReady, got %v", i, err)
		}
		a, _, err := AnalyzeFrame(f)
		if a != nil || !errors.Is(err, ErrFrameNotReady) {
			t.Errorf("frame %d: AnalyzeFrame produced %+v, %v", i, a, err)
		}
	}
}

func TestEndToEndUniform(t *testing.T) {
	f := uniformFrame(32, 32, color.RGBA{R: 10, G: 200, B: 60, A: 255})
	a, _, err := AnalyzeFrame(f)
	if err != nil {
		t.Fatalf("AnalyzeFrame: %v", err)
	}
	if a.PeopleCount != 0 || a.CrowdDensity != DensityLow || a.EstimatedDecibelLevel != 35 {
		t.Errorf("unexpected analysis %+v", a)
	}
	if a.Recommendation != "No crowd detected. Very quiet area." {
		t.Errorf("recommendation = %q", a.Recommendation)
	}
	if a.Status().Label != StatusSafe {
		t.Errorf("status = %s", a.Status().Label)
	}
	if a.HasGuidance() {
		t.Error("no guidance expected")
	}
}

func TestEndToEndHighVariance(t *testing.T) {
	// Half black, half brightness 544/3: variance = (544/6)^2 ≈ 8220.
	f := splitFrame(40, 20, color.RGBA{R: 181, G: 181, B: 182})
	a, stats, err := AnalyzeFrame(f)
	if err != nil {
		t.Fatalf("AnalyzeFrame: %v", err)
	}
	if math.Abs(stats.Variance-8200) > 50 {
		t.Fatalf("variance = %v, want ≈8200", stats.Variance)
	}
	if a.PeopleCount != 20 || a.CrowdDensity != DensityHigh || a.EstimatedDecibelLevel != 70 {
		t.Errorf("unexpected analysis %+v", a)
	}
	if a.Status().Label != StatusCaution {
		t.Errorf("status = %s", a.Status().Label)
	}
}

func TestFrameFromImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(5, 5, 9, 8))
	for y := 5; y < 8; y++ {
		for x := 5; x < 9; x++ {
			img.Set(x, y, color.NRGBA{R: 30, G: 60, B: 90, A: 255})
		}
	}
	f := FrameFromImage(img)
	if f.Width != 4 || f.Height != 3 {
		t.Fatalf("size = %dx%d", f.Width, f.Height)
	}
	stats, err := Sample(f)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if stats.Mean != 60 {
		t.Errorf("mean = %v", stats.Mean)
	}

	if FrameFromImage(nil).Ready() {
		t.Error("nil image must not be ready")
	}
}

func TestBoxValid(t *testing.T) {
	if !(Box{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.4}).Valid() {
		t.Error("expected valid box")
	}
	if (Box{X: 1.2}).Valid() || (Box{Y: -0.1}).Valid() || (Box{Width: math.NaN()}).Valid() {
		t.Error("expected invalid box")
	}
}

func TestCloneIsDeep(t *testing.T) {
	a := NewAnalysis(3)
	a.Boxes = []Box{{X: 0.5}}
	c := a.Clone()
	c.Boxes[0].X = 0.9
	if a.Boxes[0].X != 0.5 {
		t.Error("clone shares boxes")
	}
}

func TestDescribe(t *testing.T) {
	if DescribePeople(0) == DescribePeople(40) {
		t.Error("descriptions should differ")
	}
	if DescribeNoise(35) == DescribeNoise(80) {
		t.Error("descriptions should differ")
	}
}
