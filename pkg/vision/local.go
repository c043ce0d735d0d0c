package vision

import (
	"fmt"
	"math"
	"strings"

	"github.com/teslashibe/go-sensory/pkg/crowd"
)

// Detection is one person found by a local detector, in normalized
// top-left coordinates.
type Detection struct {
	X, Y       float64
	W, H       float64
	Confidence float64
}

// Center returns the center point of the detection
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the bounding box
func (d Detection) Area() float64 {
	return d.W * d.H
}

// Box converts d to an overlay box clamped to the frame.
func (d Detection) Box() crowd.Box {
	x0, y0 := clamp01(d.X), clamp01(d.Y)
	x1, y1 := clamp01(d.X+d.W), clamp01(d.Y+d.H)
	return crowd.Box{
		X:          x0,
		Y:          y0,
		Width:      x1 - x0,
		Height:     y1 - y0,
		Label:      "person",
		Confidence: d.Confidence,
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// ReportFromDetections builds a report from local detections: the head
// count, per-third zones, boxes and a guidance sentence.
func ReportFromDetections(dets []Detection) *Report {
	count := float64(len(dets))
	r := &Report{PeopleCount: &count, Zones: &Zones{}}
	for _, d := range dets {
		cx, _ := d.Center()
		switch {
		case cx < 1.0/3:
			r.Zones.Left++
		case cx < 2.0/3:
			r.Zones.Center++
		default:
			r.Zones.Right++
		}
		r.Boxes = append(r.Boxes, d.Box())
	}
	r.SpatialGuidance = Guidance(*r.Zones)
	return r
}

// Guidance describes where people are and which side is clearest.
func Guidance(z Zones) string {
	total := z.Left + z.Center + z.Right
	if total == 0 {
		return "Clear path ahead, no crowds detected"
	}

	parts := []string{
		describeZone(z.Left, "on your left"),
		describeZone(z.Center, "ahead"),
		describeZone(z.Right, "on your right"),
	}
	out := strings.Join(parts, ", ")

	switch {
	case z.Left == 0 && z.Left < z.Right:
		out += " - use the left side"
	case z.Right == 0 && z.Right < z.Left:
		out += " - use the right side"
	case z.Left == 0 && z.Right == 0:
		out += " - go around on either side"
	}
	return out
}

func describeZone(n float64, where string) string {
	switch c := int(math.Round(n)); c {
	case 0:
		return "clear " + where
	case 1:
		return "1 person " + where
	default:
		return fmt.Sprintf("%d people %s", c, where)
	}
}
