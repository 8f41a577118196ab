// Package core provides the ride dataset types and the lenient field parsers
// used by aggregation.
//
// Parsing never fails: malformed miles read as zero and malformed timestamps
// are reported through the boolean result so callers can decide placement.
package core

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// timestampLayouts are tried in order. Layouts without a zone parse as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"01-02-2006 15:04",
}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d+)?|\.\d+)([eE][+-]?\d+)?`)

// ParseTimestamp parses a START_DATE/END_DATE value.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseMiles parses a MILES value. Values that are not numbers, or that
// overflow a float64, read as zero; a numeric prefix such as "12.5 mi" is
// honoured.
//
//	ParseMiles("5.2")   -> 5.2
//	ParseMiles("3 mi")  -> 3
//	ParseMiles("N/A")   -> 0
//	ParseMiles("1e999") -> 0
func ParseMiles(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		m := leadingNumber.FindString(s)
		if m == "" {
			return decimal.Zero
		}
		if d, err = decimal.NewFromString(m); err != nil {
			return decimal.Zero
		}
	}
	if !FiniteFloat(d) {
		return decimal.Zero
	}
	return d
}

// FiniteFloat reports whether d converts to a finite float64.
func FiniteFloat(d decimal.Decimal) bool {
	f := d.InexactFloat64()
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
