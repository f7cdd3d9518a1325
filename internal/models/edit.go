package models

import (
	"errors"
	"fmt"
)

var (
	// ErrSubMeterNotFound is returned when an edit names an unknown sub-meter.
	ErrSubMeterNotFound = errors.New("sub-meter not found")

	// ErrGroupNotFound is returned when an edit names an unknown group.
	ErrGroupNotFound = errors.New("group not found")

	// ErrUnknownRate is returned for a rate other than day or night.
	ErrUnknownRate = errors.New("unknown rate")
)

// SubMeterPatch lists the sub-meter fields to change. Nil fields are left
// untouched.
type SubMeterPatch struct {
	Name     *string `json:"name,omitempty"`
	Previous *string `json:"prev,omitempty"`
	Current  *string `json:"curr,omitempty"`
	Rooms    []int   `json:"rooms,omitempty"`
}

// GroupPatch lists the group fields to change. Nil fields are left untouched.
type GroupPatch struct {
	Name        *string `json:"name,omitempty"`
	RoomIndexes []int   `json:"roomIndexes,omitempty"`
}

// The edits below never modify the receiver. Each returns a validated copy.

// WithTariff replaces the tariff.
func (s Snapshot) WithTariff(t Tariff) Snapshot {
	out := s.Clone()
	out.Tariff = t
	return Validate(out)
}

// WithPolicy switches the allocation policy.
func (s Snapshot) WithPolicy(p Policy) Snapshot {
	out := s.Clone()
	out.Policy = p
	return Validate(out)
}

// WithAggregateReading sets the day or night register of the aggregate meter.
func (s Snapshot) WithAggregateReading(rate Rate, r Reading) (Snapshot, error) {
	out := s.Clone()
	switch rate {
	case RateDay:
		out.Aggregate.Day = r
	case RateNight:
		out.Aggregate.Night = r
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownRate, rate)
	}
	return Validate(out), nil
}

// WithSubMeter appends a sub-meter.
func (s Snapshot) WithSubMeter(m SubMeter) Snapshot {
	out := s.Clone()
	m.Rooms = append([]int(nil), m.Rooms...)
	out.SubMeters = append(out.SubMeters, m)
	return Validate(out)
}

// UpdateSubMeter applies patch to the sub-meter with the given ID.
func (s Snapshot) UpdateSubMeter(id string, patch SubMeterPatch) (Snapshot, error) {
	out := s.Clone()
	i := out.subMeterIndex(id)
	if i < 0 {
		return s, fmt.Errorf("%w: %s", ErrSubMeterNotFound, id)
	}
	m := &out.SubMeters[i]
	if patch.Name != nil {
		m.Name = *patch.Name
	}
	if patch.Previous != nil {
		m.Reading.Previous = *patch.Previous
	}
	if patch.Current != nil {
		m.Reading.Current = *patch.Current
	}
	if patch.Rooms != nil {
		m.Rooms = append([]int(nil), patch.Rooms...)
	}
	return Validate(out), nil
}

// RemoveSubMeter drops the sub-meter with the given ID. Removing the last
// sub-meter leaves a single default one in its place.
func (s Snapshot) RemoveSubMeter(id string) (Snapshot, error) {
	out := s.Clone()
	i := out.subMeterIndex(id)
	if i < 0 {
		return s, fmt.Errorf("%w: %s", ErrSubMeterNotFound, id)
	}
	out.SubMeters = append(out.SubMeters[:i], out.SubMeters[i+1:]...)
	return Validate(out), nil
}

// WithOccupancy replaces the per-room head count.
func (s Snapshot) WithOccupancy(occupancy []int) Snapshot {
	out := s.Clone()
	out.Occupancy = append([]int(nil), occupancy...)
	return Validate(out)
}

// WithGroup appends a group. A group without valid rooms is dropped by
// validation.
func (s Snapshot) WithGroup(g Group) Snapshot {
	out := s.Clone()
	g.RoomIndexes = append([]int(nil), g.RoomIndexes...)
	out.Groups = append(out.Groups, g)
	return Validate(out)
}

// UpdateGroup applies patch to the group with the given ID.
func (s Snapshot) UpdateGroup(id string, patch GroupPatch) (Snapshot, error) {
	out := s.Clone()
	i := out.groupIndex(id)
	if i < 0 {
		return s, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	g := &out.Groups[i]
	if patch.Name != nil {
		g.Name = *patch.Name
	}
	if patch.RoomIndexes != nil {
		g.RoomIndexes = append([]int(nil), patch.RoomIndexes...)
	}
	return Validate(out), nil
}

// RemoveGroup drops the group with the given ID.
func (s Snapshot) RemoveGroup(id string) (Snapshot, error) {
	out := s.Clone()
	i := out.groupIndex(id)
	if i < 0 {
		return s, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	out.Groups = append(out.Groups[:i], out.Groups[i+1:]...)
	return Validate(out), nil
}

// SubMeter returns the sub-meter with the given ID.
func (s Snapshot) SubMeter(id string) (SubMeter, bool) {
	if i := s.subMeterIndex(id); i >= 0 {
		return s.SubMeters[i], true
	}
	return SubMeter{}, false
}

// Group returns the group with the given ID.
func (s Snapshot) Group(id string) (Group, bool) {
	if i := s.groupIndex(id); i >= 0 {
		return s.Groups[i], true
	}
	return Group{}, false
}

func (s Snapshot) subMeterIndex(id string) int {
	for i, m := range s.SubMeters {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s Snapshot) groupIndex(id string) int {
	for i, g := range s.Groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}
