package charts

import (
	"io"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"ridesdash/internal/aggregate"
	"ridesdash/internal/core"
)

// Size bounds for rendered images.
const (
	DefaultWidth  = 1024
	DefaultHeight = 512
	MinSize       = 240
	MaxSize       = 4096
)

// Size is the pixel size of a rendered chart.
type Size struct {
	Width, Height int
}

// Normalize fills in defaults and clamps to the allowed bounds.
func (s Size) Normalize() Size {
	if s.Width <= 0 {
		s.Width = DefaultWidth
	}
	if s.Height <= 0 {
		s.Height = DefaultHeight
	}
	s.Width = max(MinSize, min(MaxSize, s.Width))
	s.Height = max(MinSize, min(MaxSize, s.Height))
	return s
}

var chartPadding = chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}}

// RenderPNG draws view for the snapshot as a PNG into w. It returns
// ErrUnknownView or ErrNoData without writing anything.
func RenderPNG(w io.Writer, view string, s core.Snapshot, size Size) error {
	size = size.Normalize()
	switch view {
	case ViewRidesByCategory:
		return renderCategoryBars(w, s, size)
	case ViewRidesByCategoryPurpose:
		return renderStackedBars(w, s, size)
	case ViewMilesPerRide:
		return renderMilesPerRide(w, s, size)
	case ViewCumulativeMiles:
		return renderCumulativeMiles(w, s, size)
	case ViewRidesByPurpose:
		return renderPurposePie(w, s, size)
	default:
		return ErrUnknownView
	}
}

func renderCategoryBars(w io.Writer, s core.Snapshot, size Size) error {
	counts := aggregate.CountByCategory(s.Categories, s.Rides)
	if len(counts) == 0 {
		return ErrNoData
	}

	style := chart.Style{
		FillColor:   Blue.Drawing(fillAlpha),
		StrokeColor: Blue.Drawing(strokeAlpha),
		StrokeWidth: 1,
	}
	bars := make([]chart.Value, len(counts))
	top := 0.0
	for i, n := range counts {
		bars[i] = chart.Value{Label: s.Categories[i].Name, Value: float64(n), Style: style}
		top = math.Max(top, float64(n))
	}

	graph := chart.BarChart{
		Title:      Title(ViewRidesByCategory),
		Background: chartPadding,
		Width:      size.Width,
		Height:     size.Height,
		BarWidth:   barWidth(size.Width, len(bars)),
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: niceMax(top)},
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, w)
}

// renderStackedBars draws one bar per category split by purpose. Bars are
// normalised to the category total, so categories with no rides are left out.
func renderStackedBars(w io.Writer, s core.Snapshot, size Size) error {
	sc := aggregate.CountByCategoryAndPurpose(s.Categories, s.Rides)

	var bars []chart.StackedBar
	for c, cat := range s.Categories {
		var values []chart.Value
		for p, purpose := range sc.Purposes {
			n := sc.Matrix[p][c]
			if n == 0 {
				continue
			}
			col := StackColor(p)
			values = append(values, chart.Value{
				Label: PurposeLabel(purpose),
				Value: float64(n),
				Style: chart.Style{FillColor: col.Drawing(fillAlpha), StrokeColor: col.Drawing(strokeAlpha), StrokeWidth: 1},
			})
		}
		if len(values) == 0 {
			continue
		}
		bars = append(bars, chart.StackedBar{Name: cat.Name, Values: values})
	}
	if len(bars) == 0 {
		return ErrNoData
	}

	graph := chart.StackedBarChart{
		Title:      Title(ViewRidesByCategoryPurpose),
		Background: chartPadding,
		Width:      size.Width,
		Height:     size.Height,
		BarSpacing: 40,
		Bars:       bars,
	}
	return graph.Render(chart.PNG, w)
}

func renderMilesPerRide(w io.Writer, s core.Snapshot, size Size) error {
	per := aggregate.PerRideMiles(s.Rides)
	if len(per.Miles) == 0 {
		return ErrNoData
	}

	xs := make([]float64, len(per.Miles))
	for i := range xs {
		xs[i] = float64(i + 1)
	}
	ys := append([]float64(nil), per.Miles...)
	// go-chart needs at least two X values.
	if len(xs) == 1 {
		xs = append(xs, xs[0]+1)
		ys = append(ys, ys[0])
	}

	graph := chart.Chart{
		Title:      Title(ViewMilesPerRide),
		Background: chartPadding,
		Width:      size.Width,
		Height:     size.Height,
		XAxis:      chart.XAxis{Name: "Ride"},
		YAxis:      chart.YAxis{Name: "Miles", Range: yRange(ys)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Miles Traveled",
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: Teal.Drawing(strokeAlpha), StrokeWidth: 2},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph.Render(chart.PNG, w)
}

// renderCumulativeMiles plots the running total against START_DATE. Rides
// without a parseable date have no place on a time axis and are not drawn,
// but their miles are already included in the following totals.
func renderCumulativeMiles(w io.Writer, s core.Snapshot, size Size) error {
	m := aggregate.CumulativeMilesOverTime(s.Rides)

	var xs []time.Time
	var ys []float64
	for i, at := range m.Dates {
		if at.IsZero() {
			continue
		}
		xs = append(xs, at)
		ys = append(ys, m.Cumulative[i])
	}
	if len(xs) == 0 {
		return ErrNoData
	}
	if xs[0].Equal(xs[len(xs)-1]) {
		xs = append(xs, xs[len(xs)-1].Add(time.Second))
		ys = append(ys, ys[len(ys)-1])
	}

	graph := chart.Chart{
		Title:      Title(ViewCumulativeMiles),
		Background: chartPadding,
		Width:      size.Width,
		Height:     size.Height,
		XAxis:      chart.XAxis{ValueFormatter: dateLabel},
		YAxis:      chart.YAxis{Name: "Miles", Range: yRange(ys)},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Cumulative Miles Traveled",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: Teal.Drawing(strokeAlpha),
					StrokeWidth: 2,
					FillColor:   Teal.Drawing(0.2),
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph.Render(chart.PNG, w)
}

func renderPurposePie(w io.Writer, s core.Snapshot, size Size) error {
	pc := aggregate.CountByPurpose(s.Rides)

	var values []chart.Value
	for i, p := range pc.Purposes {
		if pc.Counts[i] == 0 {
			continue
		}
		col := PieColor(i)
		values = append(values, chart.Value{
			Label: PurposeLabel(p),
			Value: float64(pc.Counts[i]),
			Style: chart.Style{FillColor: col.Drawing(fillAlpha), StrokeColor: col.Drawing(strokeAlpha), StrokeWidth: 1},
		})
	}
	if len(values) == 0 {
		return ErrNoData
	}

	side := min(size.Width, size.Height)
	graph := chart.PieChart{
		Title:      Title(ViewRidesByPurpose),
		Background: chartPadding,
		Width:      side,
		Height:     side,
		Values:     values,
	}
	return graph.Render(chart.PNG, w)
}

// dateLabel formats time axis ticks like the dashboard's date labels.
func dateLabel(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(aggregate.DateLabelLayout)
	case float64:
		return time.Unix(0, int64(t)).UTC().Format(aggregate.DateLabelLayout)
	default:
		return ""
	}
}

// yRange always spans a non-empty interval that includes zero.
func yRange(ys []float64) *chart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, y := range ys {
		lo = math.Min(lo, y)
		hi = math.Max(hi, y)
	}
	if hi <= lo {
		hi = lo + 1
	}
	return &chart.ContinuousRange{Min: lo, Max: niceMax(hi)}
}

func niceMax(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return math.Ceil(v * 1.1)
}

func barWidth(width, n int) int {
	if n == 0 {
		return 0
	}
	return max(8, min(80, (width-100)/(n*2)))
}
