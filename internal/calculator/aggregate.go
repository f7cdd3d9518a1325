package calculator

import "github.com/kotlinhustle/power-split/internal/models"

// RoomResult is the outcome for one billed slot: a room, or a sub-meter
// under the metered policy.
type RoomResult struct {
	Index       int     `json:"index"`
	Name        string  `json:"name"`
	People      int     `json:"people"`
	BaseUsage   float64 `json:"baseUsage"`
	CommonUsage float64 `json:"commonUsage"`
	TotalUsage  float64 `json:"totalUsage"`
	Cost        float64 `json:"cost"`
}

// GroupResult sums the rooms of one group.
type GroupResult struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	RoomIndexes []int   `json:"roomIndexes"`
	People      int     `json:"people"`
	TotalUsage  float64 `json:"totalUsage"`
	Cost        float64 `json:"cost"`
}

// Totals are the grand totals over all rooms.
type Totals struct {
	Usage  float64 `json:"usage"`
	Cost   float64 `json:"cost"`
	People int     `json:"people"`
}

// Aggregate prices each room and rolls rooms up into groups and totals.
// Room indexes a group cannot resolve are ignored. Groups may overlap; each
// is summed on its own.
func Aggregate(rooms []RoomResult, groups []models.Group, price float64) ([]RoomResult, []GroupResult, Totals) {
	out := make([]RoomResult, len(rooms))
	var totals Totals
	for i, r := range rooms {
		r.TotalUsage = r.BaseUsage + r.CommonUsage
		r.Cost = r.TotalUsage * price
		out[i] = r

		totals.Usage += r.TotalUsage
		totals.Cost += r.Cost
		totals.People += r.People
	}

	groupResults := make([]GroupResult, 0, len(groups))
	for _, g := range groups {
		gr := GroupResult{ID: g.ID, Name: g.Name, RoomIndexes: make([]int, 0, len(g.RoomIndexes))}
		for _, idx := range g.RoomIndexes {
			if idx < 0 || idx >= len(out) {
				continue
			}
			gr.RoomIndexes = append(gr.RoomIndexes, idx)
			gr.People += out[idx].People
			gr.TotalUsage += out[idx].TotalUsage
			gr.Cost += out[idx].Cost
		}
		groupResults = append(groupResults, gr)
	}

	return out, groupResults, totals
}
