// Package charts turns aggregated ride views into chart-ready JSON datasets
// and server-side PNG images.
package charts

import (
	"errors"
	"slices"

	"ridesdash/internal/aggregate"
	"ridesdash/internal/core"
)

// View identifiers, used in URLs and in the dashboard JSON.
const (
	ViewRidesByCategory        = "rides-by-category"
	ViewRidesByCategoryPurpose = "rides-by-category-purpose"
	ViewMilesPerRide           = "miles-per-ride"
	ViewCumulativeMiles        = "cumulative-miles"
	ViewRidesByPurpose         = "rides-by-purpose"
)

// Views lists every view in dashboard order.
var Views = []string{
	ViewRidesByCategory,
	ViewRidesByCategoryPurpose,
	ViewMilesPerRide,
	ViewCumulativeMiles,
	ViewRidesByPurpose,
}

var (
	ErrUnknownView = errors.New("unknown chart view")
	// ErrNoData means the view has nothing to plot for the snapshot.
	ErrNoData = errors.New("no data to plot")
)

// UnspecifiedPurpose labels rides whose PURPOSE is empty.
const UnspecifiedPurpose = "(unspecified)"

const (
	KindBar  = "bar"
	KindLine = "line"
	KindPie  = "pie"
)

type (
	Dataset struct {
		Label           string    `json:"label"`
		Data            []float64 `json:"data"`
		BackgroundColor []string  `json:"backgroundColor"`
		BorderColor     []string  `json:"borderColor"`
		Fill            bool      `json:"fill"`
	}

	// Chart is one chart-ready view: a shared label axis plus datasets.
	Chart struct {
		View     string    `json:"view"`
		Title    string    `json:"title"`
		Kind     string    `json:"kind"`
		Stacked  bool      `json:"stacked,omitempty"`
		Labels   []string  `json:"labels"`
		Datasets []Dataset `json:"datasets"`
	}

	Dashboard struct {
		Ready   bool              `json:"ready"`
		Summary aggregate.Summary `json:"summary"`
		Charts  []Chart           `json:"charts"`
	}
)

// Titles of every view.
var titles = map[string]string{
	ViewRidesByCategory:        "Number of Rides by Category",
	ViewRidesByCategoryPurpose: "Rides by Category and Purpose",
	ViewMilesPerRide:           "Miles Traveled Over Rides",
	ViewCumulativeMiles:        "Cumulative Miles Traveled Over Time",
	ViewRidesByPurpose:         "Proportion of Rides by Purpose",
}

// Title returns the display title of view.
func Title(view string) string {
	return titles[view]
}

// KnownView reports whether view is one of Views.
func KnownView(view string) bool {
	return slices.Contains(Views, view)
}

// BuildDashboard computes every view. Ready is false when any of the three
// collections is empty; the charts are still filled from what is there.
func BuildDashboard(s core.Snapshot) Dashboard {
	d := Dashboard{
		Ready:   s.Ready(),
		Summary: aggregate.Summarize(s),
		Charts:  make([]Chart, 0, len(Views)),
	}
	for _, v := range Views {
		c, _ := BuildChart(v, s)
		d.Charts = append(d.Charts, c)
	}
	return d
}

// BuildChart computes a single view.
func BuildChart(view string, s core.Snapshot) (Chart, error) {
	c := Chart{View: view, Title: Title(view)}
	switch view {
	case ViewRidesByCategory:
		c.Kind = KindBar
		c.Labels = categoryNames(s.Categories)
		c.Datasets = []Dataset{{
			Label:           "Number of Rides",
			Data:            floats(aggregate.CountByCategory(s.Categories, s.Rides)),
			BackgroundColor: []string{Blue.CSS(fillAlpha)},
			BorderColor:     []string{Blue.CSS(strokeAlpha)},
		}}

	case ViewRidesByCategoryPurpose:
		sc := aggregate.CountByCategoryAndPurpose(s.Categories, s.Rides)
		c.Kind = KindBar
		c.Stacked = true
		c.Labels = categoryNames(s.Categories)
		c.Datasets = make([]Dataset, len(sc.Purposes))
		for i, p := range sc.Purposes {
			col := StackColor(i)
			c.Datasets[i] = Dataset{
				Label:           PurposeLabel(p),
				Data:            floats(sc.Matrix[i]),
				BackgroundColor: []string{col.CSS(fillAlpha)},
				BorderColor:     []string{col.CSS(strokeAlpha)},
			}
		}

	case ViewMilesPerRide:
		per := aggregate.PerRideMiles(s.Rides)
		c.Kind = KindLine
		c.Labels = per.Labels
		c.Datasets = []Dataset{{
			Label:           "Miles Traveled",
			Data:            per.Miles,
			BackgroundColor: []string{Teal.CSS(fillAlpha)},
			BorderColor:     []string{Teal.CSS(strokeAlpha)},
		}}

	case ViewCumulativeMiles:
		m := aggregate.CumulativeMilesOverTime(s.Rides)
		c.Kind = KindLine
		c.Labels = m.Labels
		// Two border colours are drawn as a bottom-to-top gradient.
		c.Datasets = []Dataset{{
			Label:           "Cumulative Miles Traveled",
			Data:            m.Cumulative,
			BackgroundColor: []string{Teal.CSS(fillAlpha)},
			BorderColor:     []string{Teal.CSS(strokeAlpha), Pink.CSS(strokeAlpha)},
		}}

	case ViewRidesByPurpose:
		pc := aggregate.CountByPurpose(s.Rides)
		c.Kind = KindPie
		c.Labels = purposeLabels(pc.Purposes)
		ds := Dataset{
			Label:           "Proportion of Rides by Purpose",
			Data:            floats(pc.Counts),
			BackgroundColor: make([]string, len(pc.Purposes)),
			BorderColor:     make([]string, len(pc.Purposes)),
		}
		for i := range pc.Purposes {
			ds.BackgroundColor[i] = PieColor(i).CSS(fillAlpha)
			ds.BorderColor[i] = PieColor(i).CSS(strokeAlpha)
		}
		c.Datasets = []Dataset{ds}

	default:
		return Chart{}, ErrUnknownView
	}
	return c, nil
}

// PurposeLabel is the display name of a purpose value.
func PurposeLabel(p string) string {
	if p == "" {
		return UnspecifiedPurpose
	}
	return p
}

func purposeLabels(purposes []string) []string {
	out := make([]string, len(purposes))
	for i, p := range purposes {
		out[i] = PurposeLabel(p)
	}
	return out
}

func categoryNames(categories []core.Category) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = c.Name
	}
	return out
}

func floats(in []int) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
