package models

import "fmt"

// RoomCount is the number of rooms in the communal apartment.
const RoomCount = 4

// Policy selects how the calculator allocates sub-meter and common usage.
type Policy string

const (
	// PolicyEqual splits each sub-meter evenly across its rooms and the
	// common pool evenly across all rooms.
	PolicyEqual Policy = "equal"

	// PolicyProportional splits sub-meters like PolicyEqual but shares the
	// common pool in proportion to each room's sub-meter usage.
	PolicyProportional Policy = "proportional"

	// PolicyOccupancy only charges occupied rooms: sub-meters go to their
	// occupied rooms and the common pool follows head count.
	PolicyOccupancy Policy = "occupancy"

	// PolicyMetered treats every sub-meter as its own billed entity at a
	// flat rate. There is no common pool.
	PolicyMetered Policy = "metered"
)

// Policies lists the supported policies in display order.
var Policies = []Policy{PolicyEqual, PolicyProportional, PolicyOccupancy, PolicyMetered}

// Valid reports whether p is one of the supported policies.
func (p Policy) Valid() bool {
	for _, known := range Policies {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePolicy converts user input into a Policy.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown policy %q", s)
	}
	return p, nil
}

// DistributionMode is the common-pool setting written by the two-meter
// calculator. It maps onto PolicyEqual and PolicyProportional.
type DistributionMode string

const (
	DistributionEqual        DistributionMode = "equal"
	DistributionProportional DistributionMode = "proportional"
)

// Rate names one of the two registers of the aggregate meter.
type Rate string

const (
	RateDay   Rate = "day"
	RateNight Rate = "night"
)

// Reading is a previous/current pair of meter values, kept as typed.
type Reading struct {
	Previous string `json:"prev"`
	Current  string `json:"curr"`
}

// AggregateMeter is the whole-unit dual-rate meter ("A").
type AggregateMeter struct {
	Day   Reading
	Night Reading
}

// SubMeter is a meter covering a subset of rooms.
type SubMeter struct {
	// ID is a stable identifier (UUID for meters added by the user).
	ID string

	// Name is free display text and does not affect computation.
	Name string

	// Reading holds the previous and current values.
	Reading Reading

	// Rooms lists the room indexes served by this meter.
	// Ignored by PolicyMetered, where the meter itself is the billed entity.
	Rooms []int
}

// Tariff holds money-per-unit rates. All rates are non-negative.
type Tariff struct {
	Day   float64
	Night float64
	Flat  float64
}

// Snapshot is the complete input state. See the package documentation.
type Snapshot struct {
	Policy    Policy
	Tariff    Tariff
	Aggregate AggregateMeter
	SubMeters []SubMeter

	// Occupancy is the number of people per room, indexed like rooms.
	Occupancy []int

	Groups []Group
}

// RoomName returns the display name of room i.
func RoomName(i int) string {
	return fmt.Sprintf("Room %d", i+1)
}

// Default returns the state used on first start and after a reset: two
// sub-meters B (rooms 1-2) and C (rooms 3-4), one person per room, no
// tariffs, no readings and no groups.
func Default() Snapshot {
	return Snapshot{
		Policy: PolicyEqual,
		SubMeters: []SubMeter{
			{ID: "b", Name: "B", Rooms: []int{0, 1}},
			{ID: "c", Name: "C", Rooms: []int{2, 3}},
		},
		Occupancy: []int{1, 1, 1, 1},
		Groups:    []Group{},
	}
}

// DefaultSubMeter is what remains after the last sub-meter is removed. It
// serves every room so no usage goes unattributed.
func DefaultSubMeter(id string) SubMeter {
	return SubMeter{ID: id, Name: "Meter 1", Rooms: allRooms()}
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.SubMeters = make([]SubMeter, len(s.SubMeters))
	for i, m := range s.SubMeters {
		m.Rooms = append([]int(nil), m.Rooms...)
		out.SubMeters[i] = m
	}
	out.Occupancy = append([]int(nil), s.Occupancy...)
	out.Groups = make([]Group, len(s.Groups))
	for i, g := range s.Groups {
		g.RoomIndexes = append([]int(nil), g.RoomIndexes...)
		out.Groups[i] = g
	}
	return out
}

// RoomSlots is the number of valid room indexes for groups: rooms in the
// communal policies, meters in the metered policy.
func (s Snapshot) RoomSlots() int {
	if len(s.SubMeters) > RoomCount {
		return len(s.SubMeters)
	}
	return RoomCount
}

func allRooms() []int {
	rooms := make([]int, RoomCount)
	for i := range rooms {
		rooms[i] = i
	}
	return rooms
}
