package aggregate

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ridesdash/internal/core"
)

// DateLabelLayout renders axis labels the way an en-US browser prints a date.
const DateLabelLayout = "1/2/2006"

// MilesOverTime is the cumulative miles series, index-aligned.
type MilesOverTime struct {
	// Dates holds the parsed START_DATE; zero when it could not be parsed.
	Dates      []time.Time
	Labels     []string
	Cumulative []float64
}

// MilesPerRide is the raw miles of every ride in input order.
type MilesPerRide struct {
	Labels []string
	Miles  []float64
}

type datedRide struct {
	ride   core.Ride
	at     time.Time
	parsed bool
}

// CumulativeMilesOverTime sorts rides by START_DATE and accumulates MILES.
//
// The sort is stable: rides with equal timestamps keep their input order.
// Rides whose date cannot be parsed go after every dated ride, still in
// input order. Unparseable miles add zero and the ride is kept, so every
// point of the series is finite.
func CumulativeMilesOverTime(rides []core.Ride) MilesOverTime {
	items := make([]datedRide, len(rides))
	for i, r := range rides {
		at, ok := core.ParseTimestamp(r.StartDate)
		items[i] = datedRide{ride: r, at: at, parsed: ok}
	}
	slices.SortStableFunc(items, func(a, b datedRide) int {
		switch {
		case a.parsed && b.parsed:
			return a.at.Compare(b.at)
		case a.parsed:
			return -1
		case b.parsed:
			return 1
		default:
			return 0
		}
	})

	out := MilesOverTime{
		Dates:      make([]time.Time, len(items)),
		Labels:     make([]string, len(items)),
		Cumulative: make([]float64, len(items)),
	}
	sum := decimal.Zero
	for i, it := range items {
		// A ride that would push the total past float64 range adds nothing.
		if next := sum.Add(core.ParseMiles(it.ride.Miles)); core.FiniteFloat(next) {
			sum = next
		}
		out.Cumulative[i] = sum.InexactFloat64()
		if it.parsed {
			out.Dates[i] = it.at
			out.Labels[i] = it.at.Format(DateLabelLayout)
		} else {
			out.Labels[i] = strings.TrimSpace(it.ride.StartDate)
		}
	}
	return out
}

// PerRideMiles lists each ride's miles labelled "Ride 1".."Ride n".
func PerRideMiles(rides []core.Ride) MilesPerRide {
	out := MilesPerRide{
		Labels: make([]string, len(rides)),
		Miles:  make([]float64, len(rides)),
	}
	for i, r := range rides {
		out.Labels[i] = "Ride " + strconv.Itoa(i+1)
		out.Miles[i] = core.ParseMiles(r.Miles).InexactFloat64()
	}
	return out
}
