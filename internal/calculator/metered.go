package calculator

import "github.com/kotlinhustle/power-split/internal/models"

// meteredSplit bills every sub-meter as its own entity. There is no
// common pool; the aggregate meter only feeds the day/night shares.
type meteredSplit struct{}

func (meteredSplit) Policy() models.Policy { return models.PolicyMetered }

func (meteredSplit) Allocate(in Input) Allocation {
	a := newAllocation(len(in.Meters))
	for i, m := range in.Meters {
		a.Base[i] = m.Usage
	}
	return a
}
