package models

import (
	"math"
	"strconv"
	"strings"
)

// MaxValue bounds the magnitude of any reading or rate. Sums and products of
// values within it stay finite, so results always encode as JSON.
const MaxValue = 1e15

// ParseNumber parses a user-entered numeric field. Surrounding whitespace is
// ignored. ok is false for blank, non-numeric and non-finite input and for
// values beyond ±MaxValue, in which case the value is 0.
//
// This is the single parse rule for readings, tariffs and any mistyped blob
// field.
func ParseNumber(s string) (v float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !inRange(v) {
		return 0, false
	}
	return v, true
}

func inRange(v float64) bool {
	return !math.IsNaN(v) && math.Abs(v) <= MaxValue
}

// FormatNumber renders v the way it would be typed back into a field.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
