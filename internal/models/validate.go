package models

import (
	"fmt"
	"math"
)

// MaxOccupancy is the largest head count a room can hold. Larger values are
// treated as invalid and become 0.
const MaxOccupancy = math.MaxInt32

// Validate returns a copy of s with every field brought into range. It never
// fails; each field falls back to a single documented default:
//
//	Policy        unknown value           -> PolicyEqual
//	Tariff        negative, NaN, > MaxValue -> 0
//	SubMeters     empty list              -> one DefaultSubMeter
//	SubMeter.ID   empty or duplicate      -> "m<n>" / "<id>-<n>"
//	SubMeter.Rooms out of range, repeated -> dropped; empty -> all rooms
//	Occupancy     missing entries         -> 1; negative or > MaxOccupancy -> 0; extra -> dropped
//	Group.RoomIndexes out of range, repeated -> dropped
//	Group         no rooms left           -> dropped
//	Group.ID      empty or duplicate      -> "g<n>" / "<id>-<n>"
func Validate(s Snapshot) Snapshot {
	out := Snapshot{
		Policy:    s.Policy,
		Aggregate: s.Aggregate,
		Tariff: Tariff{
			Day:   clampRate(s.Tariff.Day),
			Night: clampRate(s.Tariff.Night),
			Flat:  clampRate(s.Tariff.Flat),
		},
	}
	if !out.Policy.Valid() {
		out.Policy = PolicyEqual
	}

	out.SubMeters = validateSubMeters(s.SubMeters)
	out.Occupancy = validateOccupancy(s.Occupancy)
	out.Groups = validateGroups(s.Groups, out.RoomSlots())
	return out
}

func clampRate(v float64) float64 {
	if !inRange(v) || v < 0 {
		return 0
	}
	return v
}

func validateSubMeters(in []SubMeter) []SubMeter {
	if len(in) == 0 {
		return []SubMeter{DefaultSubMeter("m1")}
	}
	seen := make(map[string]bool, len(in))
	out := make([]SubMeter, 0, len(in))
	for i, m := range in {
		m.ID = uniqueID(m.ID, "m", i, seen)
		m.Rooms = filterIndexes(m.Rooms, RoomCount)
		if len(m.Rooms) == 0 {
			m.Rooms = allRooms()
		}
		out = append(out, m)
	}
	return out
}

func validateOccupancy(in []int) []int {
	out := make([]int, RoomCount)
	for i := range out {
		switch {
		case i >= len(in):
			out[i] = 1
		case in[i] < 0 || in[i] > MaxOccupancy:
			out[i] = 0
		default:
			out[i] = in[i]
		}
	}
	return out
}

func validateGroups(in []Group, slots int) []Group {
	seen := make(map[string]bool, len(in))
	out := make([]Group, 0, len(in))
	for i, g := range in {
		g.RoomIndexes = filterIndexes(g.RoomIndexes, slots)
		if len(g.RoomIndexes) == 0 {
			continue
		}
		g.ID = uniqueID(g.ID, "g", i, seen)
		out = append(out, g)
	}
	return out
}

// filterIndexes keeps indexes in [0, limit) in their original order, without repeats.
func filterIndexes(in []int, limit int) []int {
	out := make([]int, 0, len(in))
	seen := make(map[int]bool, len(in))
	for _, idx := range in {
		if idx < 0 || idx >= limit || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out
}

func uniqueID(id, prefix string, pos int, seen map[string]bool) string {
	if id == "" {
		id = fmt.Sprintf("%s%d", prefix, pos+1)
	}
	candidate := id
	for n := pos + 1; seen[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%d", id, n)
	}
	seen[candidate] = true
	return candidate
}
