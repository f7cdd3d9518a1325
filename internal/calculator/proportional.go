package calculator

import "github.com/kotlinhustle/power-split/internal/models"

// proportionalSplit allocates sub-meters like equalSplit, then shares the
// common pool in proportion to each room's sub-meter usage. With no
// sub-meter usage at all the pool is split in equal quarters.
type proportionalSplit struct{}

func (proportionalSplit) Policy() models.Policy { return models.PolicyProportional }

func (proportionalSplit) Allocate(in Input) Allocation {
	a := newAllocation(models.RoomCount)
	allocateBase(a.Base, in.Meters)
	if !weighted(a.Common, in.Common, a.Base) {
		spread(a.Common, in.Common, roomIndexes(models.RoomCount))
	}
	return a
}
