package calculator

import (
	"math"

	"github.com/kotlinhustle/power-split/internal/models"
)

// Usage is the consumption derived from one reading.
type Usage struct {
	Usage   float64 `json:"usage"`
	Invalid bool    `json:"invalid"`
}

// Normalize converts a raw reading into a non-negative, finite usage.
//
// Blank, non-numeric and out-of-range fields count as 0. Invalid is set when
// both fields are numbers and the current value is below the previous one,
// or when their difference is not finite; the usage is 0 in both cases.
func Normalize(r models.Reading) Usage {
	prev, prevOK := models.ParseNumber(r.Previous)
	curr, currOK := models.ParseNumber(r.Current)

	u := Usage{Usage: curr - prev}
	if math.IsNaN(u.Usage) || math.IsInf(u.Usage, 0) {
		return Usage{Invalid: true}
	}
	if u.Usage < 0 {
		u.Usage = 0
	}
	u.Invalid = prevOK && currOK && curr < prev
	return u
}
