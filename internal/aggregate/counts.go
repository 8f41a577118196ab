package aggregate

import "ridesdash/internal/core"

// StackedCounts holds one series per purpose and one column per category.
type StackedCounts struct {
	Purposes []string
	// Matrix[p][c] counts rides with Purposes[p] in categories[c].
	Matrix [][]int
}

// PurposeCounts pairs every distinct purpose with its ride count.
type PurposeCounts struct {
	Purposes []string
	Counts   []int
}

// Summary is the headline numbers shown above the charts.
type Summary struct {
	Locations  int `json:"locations"`
	Categories int `json:"categories"`
	Rides      int `json:"rides"`
}

// Summarize counts the rows of each collection in s.
func Summarize(s core.Snapshot) Summary {
	return Summary{
		Locations:  len(s.Locations),
		Categories: len(s.Categories),
		Rides:      len(s.Rides),
	}
}

// CountByCategory counts rides per category, in categories order. Rides
// whose Category_ID matches no category are not counted anywhere.
func CountByCategory(categories []core.Category, rides []core.Ride) []int {
	perID := make(map[string]int, len(categories))
	for _, r := range rides {
		perID[r.CategoryID]++
	}

	out := make([]int, len(categories))
	for i, c := range categories {
		out[i] = perID[c.ID]
	}
	return out
}

// CountByCategoryAndPurpose counts rides per (purpose, category) cell.
func CountByCategoryAndPurpose(categories []core.Category, rides []core.Ride) StackedCounts {
	type cell struct{ purpose, categoryID string }
	perCell := make(map[cell]int)
	for _, r := range rides {
		perCell[cell{r.Purpose, r.CategoryID}]++
	}

	purposes := DistinctPurposes(rides)
	matrix := make([][]int, len(purposes))
	for p, purpose := range purposes {
		row := make([]int, len(categories))
		for c, cat := range categories {
			row[c] = perCell[cell{purpose, cat.ID}]
		}
		matrix[p] = row
	}
	return StackedCounts{Purposes: purposes, Matrix: matrix}
}

// CountByPurpose counts rides per purpose. Counts always sum to len(rides).
func CountByPurpose(rides []core.Ride) PurposeCounts {
	perPurpose := make(map[string]int)
	for _, r := range rides {
		perPurpose[r.Purpose]++
	}

	purposes := DistinctPurposes(rides)
	counts := make([]int, len(purposes))
	for i, p := range purposes {
		counts[i] = perPurpose[p]
	}
	return PurposeCounts{Purposes: purposes, Counts: counts}
}
