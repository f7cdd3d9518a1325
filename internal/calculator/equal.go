package calculator

import "github.com/kotlinhustle/power-split/internal/models"

// equalSplit gives every room of a sub-meter the same share of it, and
// every room the same share of the common pool.
type equalSplit struct{}

func (equalSplit) Policy() models.Policy { return models.PolicyEqual }

func (equalSplit) Allocate(in Input) Allocation {
	a := newAllocation(models.RoomCount)
	allocateBase(a.Base, in.Meters)
	spread(a.Common, in.Common, roomIndexes(models.RoomCount))
	return a
}

func allocateBase(base []float64, meters []MeterUsage) {
	for _, m := range meters {
		spread(base, m.Usage, validRooms(m.Rooms, len(base)))
	}
}

func validRooms(rooms []int, limit int) []int {
	out := make([]int, 0, len(rooms))
	for _, r := range rooms {
		if r >= 0 && r < limit {
			out = append(out, r)
		}
	}
	return out
}
