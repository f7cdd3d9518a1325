package models

// Group is a named set of rooms whose results are summed for reporting,
// e.g. a family renting two rooms.
//
// Groups do not influence allocation. A room may appear in several groups;
// each group is summed independently, so group totals only add up to the
// grand total when groups partition the rooms.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Ivanovs").
	Name string `json:"name"`

	// RoomIndexes are zero-based room indexes. In the metered policy they
	// index sub-meters instead.
	RoomIndexes []int `json:"roomIndexes"`
}
