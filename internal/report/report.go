// Package report renders the dashboard views as terminal tables.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ridesdash/internal/aggregate"
	"ridesdash/internal/charts"
	"ridesdash/internal/core"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorText   = lipgloss.Color("#FFFCF0")
	colorAccent = lipgloss.Color("#3AA99F")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	valueStyle  = lipgloss.NewStyle().Foreground(colorText)
	dimStyle    = lipgloss.NewStyle().Foreground(colorBorder)
)

// Table is a titled grid. The first column is left aligned, the rest right.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Build turns a snapshot into the report tables, in dashboard order.
func Build(s core.Snapshot) []Table {
	sum := aggregate.Summarize(s)
	tables := []Table{{
		Title:   "Summary",
		Headers: []string{"Collection", "Rows"},
		Rows: [][]string{
			{"Locations", strconv.Itoa(sum.Locations)},
			{"Categories", strconv.Itoa(sum.Categories)},
			{"Rides", strconv.Itoa(sum.Rides)},
		},
	}}

	byCategory := Table{Title: charts.Title(charts.ViewRidesByCategory), Headers: []string{"Category", "Rides"}}
	for i, n := range aggregate.CountByCategory(s.Categories, s.Rides) {
		byCategory.Rows = append(byCategory.Rows, []string{s.Categories[i].Name, strconv.Itoa(n)})
	}
	tables = append(tables, byCategory)

	sc := aggregate.CountByCategoryAndPurpose(s.Categories, s.Rides)
	stacked := Table{Title: charts.Title(charts.ViewRidesByCategoryPurpose), Headers: []string{"Purpose"}}
	for _, c := range s.Categories {
		stacked.Headers = append(stacked.Headers, c.Name)
	}
	for p, purpose := range sc.Purposes {
		row := []string{charts.PurposeLabel(purpose)}
		for _, n := range sc.Matrix[p] {
			row = append(row, strconv.Itoa(n))
		}
		stacked.Rows = append(stacked.Rows, row)
	}
	tables = append(tables, stacked)

	pc := aggregate.CountByPurpose(s.Rides)
	byPurpose := Table{Title: charts.Title(charts.ViewRidesByPurpose), Headers: []string{"Purpose", "Rides", "Share"}}
	for i, p := range pc.Purposes {
		byPurpose.Rows = append(byPurpose.Rows, []string{
			charts.PurposeLabel(p),
			strconv.Itoa(pc.Counts[i]),
			share(pc.Counts[i], len(s.Rides)),
		})
	}
	tables = append(tables, byPurpose)

	m := aggregate.CumulativeMilesOverTime(s.Rides)
	miles := Table{Title: charts.Title(charts.ViewCumulativeMiles), Headers: []string{"Date", "Cumulative Miles"}}
	for i, label := range m.Labels {
		miles.Rows = append(miles.Rows, []string{label, strconv.FormatFloat(m.Cumulative[i], 'f', 1, 64)})
	}
	tables = append(tables, miles)

	return tables
}

func share(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)*100/float64(total))
}

// Render draws t with rounded borders.
func Render(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < numCols && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	rule := func(left, mid, right string) {
		b.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render(mid))
			}
		}
		b.WriteString(dimStyle.Render(right))
		b.WriteString("\n")
	}
	line := func(cells []string, style lipgloss.Style) {
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if i == 0 {
				b.WriteString(style.Render(" " + cell + pad + " "))
			} else {
				b.WriteString(style.Render(" " + pad + cell + " "))
			}
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
	}

	rule("╭", "┬", "╮")
	line(t.Headers, headerStyle)
	rule("├", "┼", "┤")
	for _, row := range t.Rows {
		line(row, valueStyle)
	}
	rule("╰", "┴", "╯")
	return b.String()
}
