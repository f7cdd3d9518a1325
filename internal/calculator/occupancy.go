package calculator

import "github.com/kotlinhustle/power-split/internal/models"

// occupancyPair only charges occupied rooms.
//
// Each sub-meter is split evenly over its occupied rooms: 50/50 when both
// rooms of a pair are occupied, 100% when only one is. A sub-meter with no
// occupied room is charged to nobody and raises NoOccupantsOnMeter.
//
// The common pool follows head count across all rooms. If nobody lives in
// the apartment it is not allocated and NoOccupantsAtAll is raised.
type occupancyPair struct{}

func (occupancyPair) Policy() models.Policy { return models.PolicyOccupancy }

func (occupancyPair) Allocate(in Input) Allocation {
	a := newAllocation(models.RoomCount)
	people := make([]float64, models.RoomCount)
	for i := range people {
		if i < len(in.Occupancy) && in.Occupancy[i] > 0 {
			people[i] = float64(in.Occupancy[i])
		}
	}

	for _, m := range in.Meters {
		occupied := make([]int, 0, len(m.Rooms))
		for _, r := range validRooms(m.Rooms, models.RoomCount) {
			if people[r] > 0 {
				occupied = append(occupied, r)
			}
		}
		if len(occupied) == 0 {
			a.Warnings = append(a.Warnings, NoOccupantsOnMeter(m.ID))
			continue
		}
		spread(a.Base, m.Usage, occupied)
	}

	if !weighted(a.Common, in.Common, people) {
		a.Warnings = append(a.Warnings, NoOccupantsAtAll())
	}

	for i := range people {
		if people[i] == 0 {
			a.Base[i], a.Common[i] = 0, 0
		}
	}
	return a
}
