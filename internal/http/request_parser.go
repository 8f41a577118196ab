package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"ridesdash/internal/charts"
)

// ParseChartSize reads the optional width and height query parameters.
// Missing values take the renderer defaults; out-of-range values are clamped.
func ParseChartSize(q url.Values) (charts.Size, error) {
	width, err := parseDimension(q, "width")
	if err != nil {
		return charts.Size{}, err
	}
	height, err := parseDimension(q, "height")
	if err != nil {
		return charts.Size{}, err
	}
	return charts.Size{Width: width, Height: height}.Normalize(), nil
}

func parseDimension(q url.Values, name string) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, v)
	}
	return n, nil
}
