// Package crowdmap predicts how busy nearby places are by hour.
//
// Predictions come from fixed per-location peak hours, not live data: peak
// hours are busy, the hours either side of a peak are moderate and the rest
// are quiet. The people estimate for each level depends on the kind of place.
package crowdmap

import (
	"strings"
	"time"
)

// BusyStatus is the predicted busyness of a location for one hour.
type BusyStatus string

const (
	Quiet    BusyStatus = "quiet"
	Moderate BusyStatus = "moderate"
	Busy     BusyStatus = "busy"
)

// BusyPeriod is one hour of a location's schedule.
type BusyPeriod struct {
	Hour            int        `json:"hour"`
	Status          BusyStatus `json:"status"`
	EstimatedPeople int        `json:"estimatedPeople"`
}

// Location is a place on the map.
type Location struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Category     string       `json:"category"`
	Lat          float64      `json:"lat"`
	Lng          float64      `json:"lng"`
	Address      string       `json:"address"`
	Description  string       `json:"description,omitempty"`
	BusySchedule []BusyPeriod `json:"busySchedule"`
}

// Category groups locations for filtering.
type Category struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	Color    string   `json:"color"`
}

// Kind selects the people estimates used by GenerateSchedule.
type Kind string

const (
	KindGrocery    Kind = "grocery"
	KindRestaurant Kind = "restaurant"
	KindCoffee     Kind = "coffee"
	KindGym        Kind = "gym"
	KindLibrary    Kind = "library"
	KindNature     Kind = "nature"
)

// estimates are people counts for {busy, moderate, quiet}.
var estimates = map[Kind][3]int{
	KindGrocery:    {45, 25, 8},
	KindRestaurant: {35, 20, 5},
	KindLibrary:    {60, 35, 10},
	KindGym:        {50, 30, 8},
	KindNature:     {15, 8, 3},
}

var defaultEstimate = [3]int{25, 15, 3}

// GenerateSchedule builds a 24-hour schedule from peak hours.
func GenerateSchedule(peakHours []int, kind Kind) []BusyPeriod {
	est, ok := estimates[kind]
	if !ok {
		est = defaultEstimate
	}

	peak := make(map[int]bool, len(peakHours))
	for _, h := range peakHours {
		peak[h] = true
	}

	schedule := make([]BusyPeriod, 24)
	for h := 0; h < 24; h++ {
		switch {
		case peak[h]:
			schedule[h] = BusyPeriod{Hour: h, Status: Busy, EstimatedPeople: est[0]}
		case peak[h-1] || peak[h+1]:
			schedule[h] = BusyPeriod{Hour: h, Status: Moderate, EstimatedPeople: est[1]}
		default:
			schedule[h] = BusyPeriod{Hour: h, Status: Quiet, EstimatedPeople: est[2]}
		}
	}
	return schedule
}

// CurrentStatus returns the schedule entry for now's hour in now's
// location. ok is false if the location has no entry for that hour.
func CurrentStatus(loc Location, now time.Time) (BusyPeriod, bool) {
	hour := now.Hour()
	for _, p := range loc.BusySchedule {
		if p.Hour == hour {
			return p, true
		}
	}
	return BusyPeriod{}, false
}

// StatusColor returns the map marker colour for a status.
func StatusColor(s BusyStatus) string {
	switch s {
	case Quiet:
		return "#10B981"
	case Moderate:
		return "#F59E0B"
	case Busy:
		return "#EF4444"
	default:
		return "#9CA3AF"
	}
}

// Filter keeps locations in category (empty matches all) whose name,
// address or category contains query, case-insensitively.
func Filter(locs []Location, category, query string) []Location {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Location, 0, len(locs))
	for _, l := range locs {
		if category != "" && category != "all" && l.Category != category {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(l.Name), q) &&
			!strings.Contains(strings.ToLower(l.Address), q) &&
			!strings.Contains(strings.ToLower(l.Category), q) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Daytime hours shown in the schedule chart.
const (
	DayStart = 7
	DayEnd   = 22
)

// DaytimeSchedule returns the entries from 7:00 through 22:00.
func DaytimeSchedule(loc Location) []BusyPeriod {
	var out []BusyPeriod
	for _, p := range loc.BusySchedule {
		if p.Hour >= DayStart && p.Hour <= DayEnd {
			out = append(out, p)
		}
	}
	return out
}

// QuietestHour returns the daytime hour with the fewest expected people.
// Ties go to the earliest hour.
func QuietestHour(loc Location) (BusyPeriod, bool) {
	day := DaytimeSchedule(loc)
	if len(day) == 0 {
		return BusyPeriod{}, false
	}
	best := day[0]
	for _, p := range day[1:] {
		if p.EstimatedPeople < best.EstimatedPeople {
			best = p
		}
	}
	return best, true
}
