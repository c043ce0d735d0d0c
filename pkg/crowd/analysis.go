package crowd

import "math"

// Box is a region in normalized [0,1] frame coordinates.
type Box struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Valid reports whether every coordinate is finite and inside [0,1].
func (b Box) Valid() bool {
	for _, v := range []float64{b.X, b.Y, b.Width, b.Height} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// Analysis is the result of one analysis tick. It is built once and not
// modified after it has been handed to a renderer.
type Analysis struct {
	PeopleCount           int     `json:"peopleCount"`
	CrowdDensity          Density `json:"crowdDensity"`
	EstimatedDecibelLevel int     `json:"estimatedDecibelLevel"`
	Recommendation        string  `json:"recommendation"`
	SpatialGuidance       string  `json:"spatialGuidance,omitempty"`
	Boxes                 []Box   `json:"boxes,omitempty"`
}

// NewAnalysis classifies a head count into a fresh Analysis.
func NewAnalysis(count int) *Analysis {
	if count < 0 {
		count = 0
	}
	m := Classify(count)
	return &Analysis{
		PeopleCount:           count,
		CrowdDensity:          m.Density,
		EstimatedDecibelLevel: m.DecibelLevel,
		Recommendation:        m.Recommendation,
	}
}

// Status returns the overlay badge for the analysis' decibel level.
func (a *Analysis) Status() StatusInfo {
	return StatusFromDecibels(a.EstimatedDecibelLevel)
}

// HasGuidance reports whether spatial guidance was attached.
func (a *Analysis) HasGuidance() bool {
	return a.SpatialGuidance != ""
}

// Clone returns a deep copy.
func (a *Analysis) Clone() *Analysis {
	if a == nil {
		return nil
	}
	c := *a
	if a.Boxes != nil {
		c.Boxes = append([]Box(nil), a.Boxes...)
	}
	return &c
}

// AnalyzeFrame runs the synchronous part of the pipeline on one frame:
// sample, estimate and classify. It does not contact any external service.
func AnalyzeFrame(f *Frame) (*Analysis, Stats, error) {
	stats, err := Sample(f)
	if err != nil {
		return nil, Stats{}, err
	}
	return NewAnalysis(EstimatePeople(stats.Variance)), stats, nil
}
