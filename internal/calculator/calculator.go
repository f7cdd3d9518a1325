package calculator

import (
	"fmt"
	"slices"

	"github.com/kotlinhustle/power-split/internal/models"
)

// MeterResult is the normalized usage of one sub-meter.
type MeterResult struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Usage
}

// AggregateResult is the normalized usage of the aggregate meter.
type AggregateResult struct {
	Day   Usage   `json:"day"`
	Night Usage   `json:"night"`
	Total float64 `json:"total"`
}

// Result is the complete breakdown computed from a snapshot.
type Result struct {
	Policy       models.Policy   `json:"policy"`
	Aggregate    AggregateResult `json:"aggregate"`
	SubMeters    []MeterResult   `json:"subMeters"`
	SubTotal     float64         `json:"subTotal"`
	Common       float64         `json:"common"`
	CommonExcess float64         `json:"commonExcess"`
	DayShare     float64         `json:"dayShare"`
	NightShare   float64         `json:"nightShare"`
	Price        float64         `json:"price"`
	Rooms        []RoomResult    `json:"rooms"`
	Groups       []GroupResult   `json:"groups"`
	Totals       Totals          `json:"totals"`
	Warnings     []Warning       `json:"warnings"`
}

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	out := r
	out.SubMeters = slices.Clone(r.SubMeters)
	out.Rooms = slices.Clone(r.Rooms)
	out.Groups = slices.Clone(r.Groups)
	for i := range out.Groups {
		out.Groups[i].RoomIndexes = slices.Clone(out.Groups[i].RoomIndexes)
	}
	out.Warnings = slices.Clone(r.Warnings)
	return out
}

// Compute runs the whole pipeline on a snapshot:
//
//	normalize readings -> resolve common pool -> allocate -> blend tariff -> aggregate
//
// It is a pure function of s. Malformed input yields zeros and warnings,
// never an error.
func Compute(s models.Snapshot) Result {
	s = models.Validate(s)
	res := Result{Policy: s.Policy, Warnings: []Warning{}}

	res.Aggregate.Day = Normalize(s.Aggregate.Day)
	res.Aggregate.Night = Normalize(s.Aggregate.Night)
	res.Aggregate.Total = res.Aggregate.Day.Usage + res.Aggregate.Night.Usage
	if res.Aggregate.Day.Invalid {
		res.Warnings = append(res.Warnings, InvalidReading(AggregateDayID))
	}
	if res.Aggregate.Night.Invalid {
		res.Warnings = append(res.Warnings, InvalidReading(AggregateNightID))
	}

	in := Input{Occupancy: s.Occupancy}
	subTotals := make([]float64, len(s.SubMeters))
	res.SubMeters = make([]MeterResult, len(s.SubMeters))
	for i, m := range s.SubMeters {
		u := Normalize(m.Reading)
		if u.Invalid {
			res.Warnings = append(res.Warnings, InvalidReading(m.ID))
		}
		res.SubMeters[i] = MeterResult{ID: m.ID, Name: m.Name, Usage: u}
		subTotals[i] = u.Usage
		res.SubTotal += u.Usage
		in.Meters = append(in.Meters, MeterUsage{ID: m.ID, Usage: u.Usage, Rooms: m.Rooms})
	}

	strategy := NewStrategy(s.Policy)
	metered := strategy.Policy() == models.PolicyMetered
	if !metered {
		res.Common, res.CommonExcess = ResolveCommon(res.Aggregate.Total, subTotals)
		if res.CommonExcess > 0 {
			res.Warnings = append(res.Warnings, SubMetersExceedAggregate(res.CommonExcess))
		}
		in.Common = res.Common
	}

	alloc := strategy.Allocate(in)
	res.Warnings = append(res.Warnings, alloc.Warnings...)

	res.Price, res.DayShare = Blend(res.Aggregate.Day.Usage, res.Aggregate.Night.Usage, s.Tariff.Day, s.Tariff.Night)
	res.NightShare = 1 - res.DayShare
	if metered {
		res.Price = s.Tariff.Flat
	}

	rooms := make([]RoomResult, len(alloc.Base))
	for i := range rooms {
		rooms[i] = RoomResult{
			Index:       i,
			BaseUsage:   alloc.Base[i],
			CommonUsage: alloc.Common[i],
		}
		if metered {
			rooms[i].Name = meterName(s.SubMeters[i], i)
		} else {
			rooms[i].Name = models.RoomName(i)
			rooms[i].People = s.Occupancy[i]
		}
	}
	res.Rooms, res.Groups, res.Totals = Aggregate(rooms, s.Groups, res.Price)
	return res
}

func meterName(m models.SubMeter, i int) string {
	if m.Name != "" {
		return m.Name
	}
	return fmt.Sprintf("Meter %d", i+1)
}
