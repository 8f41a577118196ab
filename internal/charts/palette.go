package charts

import (
	"fmt"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RGB is an opaque colour; alpha is applied when it is rendered.
type RGB struct {
	R, G, B int
}

var (
	Blue   = RGB{54, 162, 235}
	Teal   = RGB{75, 192, 192}
	Pink   = RGB{255, 99, 132}
	Yellow = RGB{255, 206, 86}
	Violet = RGB{153, 102, 255}
)

// pieColors cycle when there are more slices than colours.
var pieColors = []RGB{Pink, Blue, Yellow, Teal, Violet}

const (
	fillAlpha   = 0.5
	strokeAlpha = 1.0
)

// StackColor is the colour of the i-th purpose series in the stacked view.
func StackColor(i int) RGB {
	return RGB{54 + i*20, 162 + i*10, 235 - i*15}
}

// PieColor is the colour of the i-th slice of the purpose pie.
func PieColor(i int) RGB {
	return pieColors[i%len(pieColors)]
}

// CSS renders the colour as a CSS rgba() value. Channels are clamped to 0..255.
func (c RGB) CSS(alpha float64) string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", clamp(c.R), clamp(c.G), clamp(c.B), formatAlpha(alpha))
}

// Drawing converts the colour for the PNG renderer.
func (c RGB) Drawing(alpha float64) drawing.Color {
	return drawing.Color{
		R: uint8(clamp(c.R)),
		G: uint8(clamp(c.G)),
		B: uint8(clamp(c.B)),
		A: uint8(math.Round(math.Max(0, math.Min(1, alpha)) * 255)),
	}
}

func clamp(v int) int {
	return max(0, min(255, v))
}

func formatAlpha(a float64) string {
	return strconv.FormatFloat(a, 'f', -1, 64)
}
