package crowd

// countStep is one row of the variance → head-count table.
type countStep struct {
	below float64
	count int
}

// countTable is evaluated top to bottom; the first row whose upper bound
// exceeds the variance wins. Lower bounds are inclusive.
var countTable = []countStep{
	{800, 0},
	{2000, 1},
	{3000, 2},
	{4000, 3},
	{5500, 5},
	{7500, 10},
	{10000, 20},
}

// maxEstimate applies to any variance at or above the last threshold.
const maxEstimate = 35

// EstimatePeople maps a brightness variance to a coarse head count.
// The mapping is a non-decreasing step function.
func EstimatePeople(variance float64) int {
	for _, step := range countTable {
		if variance < step.below {
			return step.count
		}
	}
	return maxEstimate
}
