// Package vision asks an external vision model where people are in a frame.
//
// The answer is advisory. Callers use it to enrich a locally computed crowd
// analysis with free-text spatial guidance and optional bounding boxes; the
// local head count never depends on it.
//
// Example usage:
//
//	g, _ := vision.NewGemini(
//	    vision.WithAPIKey(os.Getenv("GEMINI_API_KEY")),
//	)
//	report, err := g.Analyze(ctx, jpegBytes)
//	if err != nil {
//	    // carry on without guidance
//	}
package vision

import (
	"context"
	"math"

	"github.com/teslashibe/go-sensory/pkg/crowd"
)

// Enricher analyzes a JPEG still and returns the model's crowd report.
type Enricher interface {
	Analyze(ctx context.Context, jpeg []byte) (*Report, error)
}

// Zones counts people per horizontal third of the frame.
type Zones struct {
	Left   float64 `json:"left"`
	Center float64 `json:"center"`
	Right  float64 `json:"right"`
}

// Report is the typed view of the model's JSON answer. Numeric fields are
// pointers because models omit them freely.
type Report struct {
	PeopleCount           *float64      `json:"peopleCount,omitempty"`
	CrowdDensity          crowd.Density `json:"crowdDensity,omitempty"`
	EstimatedDecibelLevel *float64      `json:"estimatedDecibelLevel,omitempty"`
	Recommendation        string        `json:"recommendation,omitempty"`
	SpatialGuidance       string        `json:"spatialGuidance,omitempty"`
	Zones                 *Zones        `json:"zones,omitempty"`
	Boxes                 []crowd.Box   `json:"boxes,omitempty"`
}

// Count returns the reported head count rounded to an int.
func (r *Report) Count() (int, bool) {
	if r == nil || r.PeopleCount == nil || math.IsNaN(*r.PeopleCount) || *r.PeopleCount < 0 {
		return 0, false
	}
	return int(math.Round(*r.PeopleCount)), true
}

// ValidBoxes returns the boxes whose coordinates lie within [0,1].
func (r *Report) ValidBoxes() []crowd.Box {
	if r == nil {
		return nil
	}
	var out []crowd.Box
	for _, b := range r.Boxes {
		if b.Valid() {
			out = append(out, b)
		}
	}
	return out
}

// Enrich copies the advisory parts of the report onto a.
// The local count, density, decibels and recommendation are left untouched.
func (r *Report) Enrich(a *crowd.Analysis) {
	if r == nil || a == nil {
		return
	}
	a.SpatialGuidance = r.SpatialGuidance
	if boxes := r.ValidBoxes(); len(boxes) > 0 {
		a.Boxes = boxes
	}
}

// CrowdPrompt instructs the model to answer with a single JSON object.
const CrowdPrompt = `You are a crowd detection assistant helping neurodivergent people navigate spaces safely.

Analyze this image. Count every visible person, including partially visible and distant people.
Divide the image into left, center and right zones and note distance: close (within 2 meters),
medium (2-5 meters) or far (5+ meters).

Return ONLY valid JSON, no markdown:
{
  "peopleCount": <number>,
  "crowdDensity": "<low|medium|high|very-high>",
  "estimatedDecibelLevel": <number 35-85>,
  "recommendation": "<short immediate action>",
  "spatialGuidance": "<where people are, e.g. 'Group of 4 on far left at medium distance, path clear on right'>",
  "zones": {"left": <number>, "center": <number>, "right": <number>},
  "boxes": [{"x": <0-1>, "y": <0-1>, "width": <0-1>, "height": <0-1>}]
}`
