// Package overlay draws crowd analyses onto a transparent layer that sits
// on top of the camera preview.
package overlay

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"

	"github.com/teslashibe/go-sensory/pkg/crowd"
)

var boldFont *truetype.Font

func init() {
	var err error
	boldFont, err = truetype.Parse(gobold.TTF)
	if err != nil {
		panic(err)
	}
}

func face(size float64) font.Face {
	return truetype.NewFace(boldFont, &truetype.Options{Size: size})
}

var (
	panelFill   = color.RGBA{0, 0, 0, 217}
	panelBorder = color.RGBA{255, 255, 255, 128}
	badgeBorder = color.RGBA{255, 255, 255, 230}
)

// Layout constants, in pixels.
const (
	margin       = 20
	badgeMaxW    = 400
	badgeH       = 100
	peopleW      = 160
	densityW     = 180
	panelH       = 80
	markerSize   = 12
	boxLineWidth = 4
)

// Render draws a onto a new transparent w×h canvas.
func Render(a *crowd.Analysis, w, h int) *image.RGBA {
	dc := gg.NewContext(w, h)
	if a == nil {
		return dc.Image().(*image.RGBA)
	}
	status := a.Status()
	W, H := float64(w), float64(h)

	// status badge
	bw := math.Min(W*0.9, badgeMaxW)
	bx := (W - bw) / 2
	by := float64(margin)
	dc.SetColor(status.Color)
	dc.DrawRectangle(bx, by, bw, badgeH)
	dc.Fill()
	dc.SetColor(badgeBorder)
	dc.SetLineWidth(5)
	dc.DrawRectangle(bx, by, bw, badgeH)
	dc.Stroke()

	dc.SetColor(color.White)
	dc.SetFontFace(face(32))
	dc.DrawString(string(status.Label), bx+20, by+50)
	dc.SetFontFace(face(24))
	dc.DrawString(strconv.Itoa(a.EstimatedDecibelLevel)+" dB", bx+20, by+82)

	// people, bottom left
	py := H - panelH - margin
	drawPanel(dc, margin, py, peopleW, "PEOPLE", strconv.Itoa(a.PeopleCount), 36)

	// density, bottom right
	drawPanel(dc, W-densityW-margin, py, densityW, "DENSITY", strings.ToUpper(string(a.CrowdDensity)), 18)

	for _, b := range a.Boxes {
		if !b.Valid() {
			continue
		}
		drawBox(dc, b, W, H, status.Color)
	}

	return dc.Image().(*image.RGBA)
}

func drawPanel(dc *gg.Context, x, y, w float64, title, value string, valueSize float64) {
	dc.SetColor(panelFill)
	dc.DrawRectangle(x, y, w, panelH)
	dc.Fill()
	dc.SetColor(panelBorder)
	dc.SetLineWidth(2)
	dc.DrawRectangle(x, y, w, panelH)
	dc.Stroke()

	dc.SetColor(color.White)
	dc.SetFontFace(face(14))
	dc.DrawString(title, x+15, y+25)
	dc.SetFontFace(face(valueSize))
	dc.DrawString(value, x+15, y+62)
}

func drawBox(dc *gg.Context, b crowd.Box, W, H float64, c color.Color) {
	x, y := b.X*W, b.Y*H
	w, h := b.Width*W, b.Height*H

	dc.SetColor(c)
	dc.SetLineWidth(boxLineWidth)
	dc.DrawRectangle(x, y, w, h)
	dc.Stroke()

	half := markerSize / 2.0
	for _, p := range [][2]float64{{x, y}, {x + w, y}, {x, y + h}, {x + w, y + h}} {
		dc.DrawRectangle(p[0]-half, p[1]-half, markerSize, markerSize)
	}
	dc.Fill()
}

// Renderer keeps the overlay for the most recent committed analysis.
// It is the only writer of its canvas.
type Renderer struct {
	width, height int

	mu       sync.RWMutex
	canvas   *image.RGBA
	analysis *crowd.Analysis
}

// NewRenderer creates a renderer for a w×h preview.
func NewRenderer(w, h int) *Renderer {
	if w <= 0 {
		w = 640
	}
	if h <= 0 {
		h = 480
	}
	return &Renderer{width: w, height: h}
}

// Publish redraws the canvas. It implements analyzer.Sink.
func (r *Renderer) Publish(ctx context.Context, a *crowd.Analysis) {
	img := Render(a, r.width, r.height)
	r.mu.Lock()
	r.canvas = img
	r.analysis = a
	r.mu.Unlock()
}

// Clear drops the current overlay.
func (r *Renderer) Clear() {
	r.mu.Lock()
	r.canvas = nil
	r.analysis = nil
	r.mu.Unlock()
}

// Image returns the current canvas, or nil before the first analysis.
func (r *Renderer) Image() *image.RGBA {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.canvas
}

// Analysis returns the analysis the canvas was drawn from.
func (r *Renderer) Analysis() *crowd.Analysis {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.analysis.Clone()
}

// PNG encodes the current canvas. Before the first analysis it encodes
// an empty transparent canvas.
func (r *Renderer) PNG() ([]byte, error) {
	img := r.Image()
	if img == nil {
		img = image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Compose draws the overlay on top of a copy of base.
func Compose(base image.Image, a *crowd.Analysis) *image.RGBA {
	b := base.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.DrawImage(base, -b.Min.X, -b.Min.Y)
	dc.DrawImage(Render(a, b.Dx(), b.Dy()), 0, 0)
	return dc.Image().(*image.RGBA)
}
