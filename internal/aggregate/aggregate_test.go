package aggregate

import (
	"math"
	"reflect"
	"testing"
	"time"

	"ridesdash/internal/core"
)

func ride(cat, purpose, miles, start string) core.Ride {
	return core.Ride{CategoryID: cat, Purpose: purpose, Miles: miles, StartDate: start}
}

var business = []core.Category{{ID: "1", Name: "Business"}}

func TestConcreteScenario(t *testing.T) {
	rides := []core.Ride{
		ride("1", "Meeting", "5.2", "2024-01-02"),
		ride("1", "Meeting", "3.0", "2024-01-01"),
	}

	if got := CountByCategory(business, rides); !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("CountByCategory = %v, want [2]", got)
	}

	m := CumulativeMilesOverTime(rides)
	if !reflect.DeepEqual(m.Cumulative, []float64{3.0, 8.2}) {
		t.Fatalf("Cumulative = %v, want [3 8.2]", m.Cumulative)
	}
	if !reflect.DeepEqual(m.Labels, []string{"1/1/2024", "1/2/2024"}) {
		t.Fatalf("Labels = %v", m.Labels)
	}
	if !m.Dates[0].Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("first date = %v, want 2024-01-01", m.Dates[0])
	}

	pc := CountByPurpose(rides)
	if !reflect.DeepEqual(pc.Purposes, []string{"Meeting"}) || !reflect.DeepEqual(pc.Counts, []int{2}) {
		t.Fatalf("CountByPurpose = %+v", pc)
	}
}

func TestEmptyInputs(t *testing.T) {
	if got := CountByCategory(nil, nil); got == nil || len(got) != 0 {
		t.Fatalf("CountByCategory(nil, nil) = %#v, want empty slice", got)
	}
	m := CumulativeMilesOverTime(nil)
	if len(m.Labels) != 0 || len(m.Cumulative) != 0 {
		t.Fatalf("CumulativeMilesOverTime(nil) = %+v", m)
	}
	sc := CountByCategoryAndPurpose(business, nil)
	if len(sc.Purposes) != 0 || len(sc.Matrix) != 0 {
		t.Fatalf("CountByCategoryAndPurpose = %+v", sc)
	}
	pc := CountByPurpose(nil)
	if pc.Purposes == nil || len(pc.Counts) != 0 {
		t.Fatalf("CountByPurpose(nil) = %#v", pc)
	}
}

func TestDirtyMilesContributeZero(t *testing.T) {
	rides := []core.Ride{
		ride("1", "Meeting", "2.5", "2024-01-01"),
		ride("1", "Meeting", "N/A", "2024-01-02"),
		ride("1", "Meeting", "1.5", "2024-01-03"),
	}
	m := CumulativeMilesOverTime(rides)
	if !reflect.DeepEqual(m.Cumulative, []float64{2.5, 2.5, 4}) {
		t.Fatalf("Cumulative = %v, want [2.5 2.5 4]", m.Cumulative)
	}

	per := PerRideMiles(rides)
	if !reflect.DeepEqual(per.Miles, []float64{2.5, 0, 1.5}) {
		t.Fatalf("PerRideMiles = %v", per.Miles)
	}
	if !reflect.DeepEqual(per.Labels, []string{"Ride 1", "Ride 2", "Ride 3"}) {
		t.Fatalf("PerRideMiles labels = %v", per.Labels)
	}
}

func TestCumulativeStableAndUndatedLast(t *testing.T) {
	rides := []core.Ride{
		ride("1", "A", "1", "garbage"),
		ride("1", "B", "10", "2024-01-05"),
		ride("1", "C", "100", "2024-01-01"),
		ride("1", "D", "1000", "2024-01-05"),
		ride("1", "E", "10000", ""),
	}
	m := CumulativeMilesOverTime(rides)

	wantLabels := []string{"1/1/2024", "1/5/2024", "1/5/2024", "garbage", ""}
	if !reflect.DeepEqual(m.Labels, wantLabels) {
		t.Fatalf("Labels = %v, want %v", m.Labels, wantLabels)
	}
	wantSums := []float64{100, 110, 1110, 1111, 11111}
	if !reflect.DeepEqual(m.Cumulative, wantSums) {
		t.Fatalf("Cumulative = %v, want %v", m.Cumulative, wantSums)
	}
	if !m.Dates[3].IsZero() || !m.Dates[4].IsZero() {
		t.Fatalf("undated rides must carry zero dates: %v", m.Dates)
	}
}

func TestCumulativeMonotonicForNonNegativeMiles(t *testing.T) {
	rides := []core.Ride{
		ride("1", "A", "0.1", "1/3/2016 10:00"),
		ride("1", "A", "0.2", "1/1/2016 10:00"),
		ride("1", "A", "0.7", "1/2/2016 10:00"),
		ride("1", "A", "", "1/2/2016 11:00"),
	}
	m := CumulativeMilesOverTime(rides)
	if len(m.Cumulative) != len(rides) {
		t.Fatalf("len = %d, want %d", len(m.Cumulative), len(rides))
	}
	for i := 1; i < len(m.Cumulative); i++ {
		if m.Cumulative[i] < m.Cumulative[i-1] {
			t.Fatalf("not monotonic at %d: %v", i, m.Cumulative)
		}
	}
	if last := m.Cumulative[len(m.Cumulative)-1]; last != 1.0 {
		t.Fatalf("last = %v, want exact 1", last)
	}
}

func TestCountsAcrossCategoriesAndPurposes(t *testing.T) {
	categories := []core.Category{{ID: "1", Name: "Business"}, {ID: "2", Name: "Personal"}, {ID: "3", Name: "Empty"}}
	rides := []core.Ride{
		ride("2", "Errand", "1", ""),
		ride("1", "Meeting", "1", ""),
		ride("1", "Errand", "1", ""),
		ride("9", "Meeting", "1", ""),
		ride("2", "", "1", ""),
	}

	byCat := CountByCategory(categories, rides)
	if !reflect.DeepEqual(byCat, []int{2, 2, 0}) {
		t.Fatalf("CountByCategory = %v", byCat)
	}

	sc := CountByCategoryAndPurpose(categories, rides)
	if !reflect.DeepEqual(sc.Purposes, []string{"Errand", "Meeting", ""}) {
		t.Fatalf("Purposes = %q", sc.Purposes)
	}
	wantMatrix := [][]int{
		{1, 1, 0},
		{0, 1, 0},
		{0, 1, 0},
	}
	if !reflect.DeepEqual(sc.Matrix, wantMatrix) {
		t.Fatalf("Matrix = %v, want %v", sc.Matrix, wantMatrix)
	}

	// Column sums of the stacked view equal the plain per-category counts.
	for c := range categories {
		sum := 0
		for p := range sc.Purposes {
			sum += sc.Matrix[p][c]
		}
		if sum != byCat[c] {
			t.Fatalf("column %d sums to %d, want %d", c, sum, byCat[c])
		}
	}

	pc := CountByPurpose(rides)
	if !reflect.DeepEqual(pc.Purposes, sc.Purposes) {
		t.Fatalf("purpose order differs: %q vs %q", pc.Purposes, sc.Purposes)
	}
	total := 0
	for _, n := range pc.Counts {
		total += n
	}
	if total != len(rides) {
		t.Fatalf("purpose counts sum to %d, want %d", total, len(rides))
	}
}

func TestAggregationIsIdempotent(t *testing.T) {
	rides := []core.Ride{
		ride("1", "Meeting", "5.2", "2024-01-02"),
		ride("1", "Customer Visit", "3.0", "2024-01-01"),
		ride("2", "Meeting", "x", "bad"),
	}
	orig := append([]core.Ride(nil), rides...)

	first := CumulativeMilesOverTime(rides)
	second := CumulativeMilesOverTime(rides)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated calls differ: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(rides, orig) {
		t.Fatalf("input was mutated: %+v", rides)
	}
	if !reflect.DeepEqual(CountByPurpose(rides), CountByPurpose(rides)) {
		t.Fatalf("CountByPurpose not deterministic")
	}
}

func TestDistinct(t *testing.T) {
	got := Distinct([]int{3, 1, 3, 2, 1}, func(i int) int { return i })
	if !reflect.DeepEqual(got, []int{3, 1, 2}) {
		t.Fatalf("Distinct = %v", got)
	}
}

func TestSummarize(t *testing.T) {
	snap := core.Snapshot{
		Locations:  []core.Location{{ID: "1"}, {ID: "2"}},
		Categories: business,
		Rides:      []core.Ride{ride("1", "M", "1", "")},
	}
	if got := Summarize(snap); got != (Summary{Locations: 2, Categories: 1, Rides: 1}) {
		t.Fatalf("Summarize = %+v", got)
	}
}

func TestOverflowingMilesStayFinite(t *testing.T) {
	rides := []core.Ride{
		ride("1", "Meeting", "1e999", "2024-01-01"),
		ride("1", "Meeting", "2", "2024-01-02"),
		ride("1", "Meeting", "1e308", "2024-01-03"),
		ride("1", "Meeting", "1e308", "2024-01-04"),
	}
	m := CumulativeMilesOverTime(rides)
	for i, v := range m.Cumulative {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			t.Fatalf("Cumulative[%d] = %v, want finite: %v", i, v, m.Cumulative)
		}
	}
	if m.Cumulative[0] != 0 || m.Cumulative[1] != 2 {
		t.Fatalf("Cumulative = %v, want overflowing cell read as 0", m.Cumulative)
	}
	if m.Cumulative[3] != m.Cumulative[2] {
		t.Fatalf("overflowing running total must be skipped: %v", m.Cumulative)
	}

	per := PerRideMiles(rides)
	if per.Miles[0] != 0 {
		t.Fatalf("PerRideMiles[0] = %v, want 0", per.Miles[0])
	}
}
