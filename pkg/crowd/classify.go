package crowd

import "image/color"

// Density is the crowd-size bucket derived from the estimated head count.
type Density string

const (
	DensityLow      Density = "low"
	DensityMedium   Density = "medium"
	DensityHigh     Density = "high"
	DensityVeryHigh Density = "very-high"
)

// Valid reports whether d is one of the four known buckets.
func (d Density) Valid() bool {
	switch d {
	case DensityLow, DensityMedium, DensityHigh, DensityVeryHigh:
		return true
	}
	return false
}

// Metrics is the narrative classification of a head count.
type Metrics struct {
	Density        Density
	DecibelLevel   int
	Recommendation string
}

type densityStep struct {
	maxCount int
	metrics  Metrics
}

var densityTable = []densityStep{
	{0, Metrics{DensityLow, 35, "No crowd detected. Very quiet area."}},
	{5, Metrics{DensityLow, 42, "Very few people. Safe and quiet."}},
	{15, Metrics{DensityMedium, 58, "Small crowd. Monitor noise levels."}},
	{30, Metrics{DensityHigh, 70, "Moderate crowd. Noise increasing."}},
}

var veryHigh = Metrics{DensityVeryHigh, 80, "Large crowd. High noise levels."}

// Classify maps a head count to density, estimated decibels and a recommendation.
// Negative counts are treated as zero.
func Classify(count int) Metrics {
	for _, step := range densityTable {
		if count <= step.maxCount {
			return step.metrics
		}
	}
	return veryHigh
}

// Status is the overlay severity badge.
type Status string

const (
	StatusSafe     Status = "SAFE"
	StatusModerate Status = "MODERATE"
	StatusCaution  Status = "CAUTION"
	StatusAvoid    Status = "AVOID"
)

// StatusInfo is everything the presentation layer needs for one badge.
type StatusInfo struct {
	Label  Status
	Color  color.RGBA
	Advice string // one-line legend text
	Action string // longer guidance shown under the recommendation
}

// statusTable is ordered by descending lower bound. It is deliberately not
// aligned with densityTable: one drives the narrative, the other the badge.
var statusTable = []struct {
	minDB int
	info  StatusInfo
}{
	{75, StatusInfo{
		Label:  StatusAvoid,
		Color:  color.RGBA{R: 239, G: 68, B: 68, A: 242},
		Advice: "Leave area immediately",
		Action: "This environment is too loud and crowded. Leave immediately. Move to a quieter, less crowded area. Use noise-canceling headphones if available.",
	}},
	{65, StatusInfo{
		Label:  StatusCaution,
		Color:  color.RGBA{R: 234, G: 88, B: 12, A: 242},
		Advice: "Consider leaving soon",
		Action: "The crowd is getting larger and louder. It may be a good time to prepare to leave. Find a quieter location nearby.",
	}},
	{55, StatusInfo{
		Label:  StatusModerate,
		Color:  color.RGBA{R: 234, G: 179, B: 8, A: 242},
		Advice: "Be aware of surroundings",
		Action: "The environment is becoming busier. Monitor how you feel. If you start feeling uncomfortable, consider moving to a quieter area.",
	}},
}

var safe = StatusInfo{
	Label:  StatusSafe,
	Color:  color.RGBA{R: 34, G: 197, B: 94, A: 242},
	Advice: "Area is comfortable",
	Action: "This is a safe and comfortable space. You can stay here as long as you need.",
}

// StatusFromDecibels maps an estimated decibel level to the overlay badge.
func StatusFromDecibels(db int) StatusInfo {
	for _, row := range statusTable {
		if db >= row.minDB {
			return row.info
		}
	}
	return safe
}

// DescribePeople explains a head count in plain language.
func DescribePeople(count int) string {
	switch {
	case count <= 0:
		return "No people detected. The area is empty and quiet."
	case count <= 2:
		return "Very few people around you. This is a calm and comfortable environment."
	case count <= 5:
		return "A small group of people. The area is manageable and not crowded."
	case count <= 15:
		return "A moderate number of people. You may notice some background noise and activity."
	case count <= 30:
		return "Many people are present. Expect increased noise levels and less personal space."
	default:
		return "A large crowd detected. High noise levels and limited space. Consider leaving if you feel uncomfortable."
	}
}

// DescribeNoise explains a decibel level in plain language.
func DescribeNoise(db int) string {
	switch {
	case db < 55:
		return "Quiet environment, similar to a library or quiet conversation. You should feel comfortable here."
	case db < 65:
		return "Moderate noise level, like a busy office or restaurant. Some people may find this manageable."
	case db < 75:
		return "Loud environment, similar to heavy traffic or a busy street. This may be uncomfortable for sensitive hearing."
	default:
		return "Very loud environment, like a concert or construction site. This can be overwhelming. It is recommended to leave or use ear protection."
	}
}
