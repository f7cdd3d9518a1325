package calculator

import "github.com/kotlinhustle/power-split/internal/models"

// MeterUsage is a sub-meter's usage together with the rooms it serves.
type MeterUsage struct {
	ID    string
	Usage float64
	Rooms []int
}

// Input is everything a Strategy needs to allocate usage.
type Input struct {
	Meters    []MeterUsage
	Common    float64
	Occupancy []int
}

// Allocation is the per-slot outcome of a Strategy. Slots are rooms for the
// communal policies and sub-meters for the metered policy.
type Allocation struct {
	Base     []float64
	Common   []float64
	Warnings []Warning
}

// Strategy distributes metered and common usage across slots.
type Strategy interface {
	Policy() models.Policy
	Allocate(in Input) Allocation
}

// NewStrategy returns the Strategy for p. Unknown policies fall back to the
// equal split.
func NewStrategy(p models.Policy) Strategy {
	switch p {
	case models.PolicyProportional:
		return proportionalSplit{}
	case models.PolicyOccupancy:
		return occupancyPair{}
	case models.PolicyMetered:
		return meteredSplit{}
	default:
		return equalSplit{}
	}
}

func newAllocation(slots int) Allocation {
	return Allocation{
		Base:   make([]float64, slots),
		Common: make([]float64, slots),
	}
}

// spread adds amount to dst in equal parts over the given indexes.
func spread(dst []float64, amount float64, indexes []int) {
	if len(indexes) == 0 {
		return
	}
	share := amount / float64(len(indexes))
	for _, i := range indexes {
		dst[i] += share
	}
}

// weighted adds amount to dst in proportion to weights. It reports false,
// leaving dst untouched, when the weights sum to zero.
func weighted(dst []float64, amount float64, weights []float64) bool {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return false
	}
	for i, w := range weights {
		dst[i] += amount * w / total
	}
	return true
}

func roomIndexes(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
