package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// blobVersion is written into every encoded snapshot.
const blobVersion = 2

type wireSnapshot struct {
	Version          int              `json:"version"`
	Policy           Policy           `json:"policy"`
	DistributionMode DistributionMode `json:"distributionMode"`
	TariffDay        float64          `json:"tariffDay"`
	TariffNight      float64          `json:"tariffNight"`
	TariffFlat       float64          `json:"tariffFlat"`
	MeterA           wireAggregate    `json:"meterA"`
	SubMeters        []wireSubMeter   `json:"subMeters"`
	Occupancy        []int            `json:"occupancy"`
	Groups           []Group          `json:"groups"`
}

type wireAggregate struct {
	DayPrev   string `json:"dayPrev"`
	DayCurr   string `json:"dayCurr"`
	NightPrev string `json:"nightPrev"`
	NightCurr string `json:"nightCurr"`
}

type wireSubMeter struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Prev  string `json:"prev"`
	Curr  string `json:"curr"`
	Rooms []int  `json:"rooms"`
}

// Encode serializes the validated form of s as one JSON blob.
func Encode(s Snapshot) ([]byte, error) {
	s = Validate(s)

	w := wireSnapshot{
		Version:          blobVersion,
		Policy:           s.Policy,
		DistributionMode: DistributionEqual,
		TariffDay:        s.Tariff.Day,
		TariffNight:      s.Tariff.Night,
		TariffFlat:       s.Tariff.Flat,
		MeterA: wireAggregate{
			DayPrev:   s.Aggregate.Day.Previous,
			DayCurr:   s.Aggregate.Day.Current,
			NightPrev: s.Aggregate.Night.Previous,
			NightCurr: s.Aggregate.Night.Current,
		},
		SubMeters: make([]wireSubMeter, len(s.SubMeters)),
		Occupancy: s.Occupancy,
		Groups:    s.Groups,
	}
	if s.Policy == PolicyProportional {
		w.DistributionMode = DistributionProportional
	}
	for i, m := range s.SubMeters {
		w.SubMeters[i] = wireSubMeter{
			ID:    m.ID,
			Name:  m.Name,
			Prev:  m.Reading.Previous,
			Curr:  m.Reading.Current,
			Rooms: m.Rooms,
		}
	}

	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Decode turns a stored blob into a validated Snapshot. It never fails:
// blank, non-JSON or non-object input yields Default(), missing fields take
// their defaults and mistyped fields are coerced with ParseNumber.
func Decode(raw []byte) Snapshot {
	var fields map[string]json.RawMessage
	if len(bytes.TrimSpace(raw)) == 0 || json.Unmarshal(raw, &fields) != nil || fields == nil {
		return Default()
	}

	s := Snapshot{
		Policy: decodePolicy(fields),
		Tariff: Tariff{
			Day:   coerceFloat(fields["tariffDay"]),
			Night: coerceFloat(fields["tariffNight"]),
			Flat:  coerceFloat(fields["tariffFlat"]),
		},
	}

	a := coerceObject(fields["meterA"])
	s.Aggregate = AggregateMeter{
		Day:   Reading{Previous: coerceString(a["dayPrev"]), Current: coerceString(a["dayCurr"])},
		Night: Reading{Previous: coerceString(a["nightPrev"]), Current: coerceString(a["nightCurr"])},
	}

	s.SubMeters = decodeSubMeters(fields)
	if occ, ok := coerceArray(fields["occupancy"]); ok {
		s.Occupancy = make([]int, len(occ))
		for i, v := range occ {
			n, _ := coerceInt(v)
			s.Occupancy[i] = n
		}
	}

	if groups, ok := coerceArray(fields["groups"]); ok {
		for _, raw := range groups {
			g := coerceObject(raw)
			if g == nil {
				continue
			}
			s.Groups = append(s.Groups, Group{
				ID:          coerceString(g["id"]),
				Name:        coerceString(g["name"]),
				RoomIndexes: coerceIndexes(g["roomIndexes"]),
			})
		}
	}

	return Validate(s)
}

func decodePolicy(fields map[string]json.RawMessage) Policy {
	if p := Policy(coerceString(fields["policy"])); p.Valid() {
		return p
	}
	if DistributionMode(coerceString(fields["distributionMode"])) == DistributionProportional {
		return PolicyProportional
	}
	return PolicyEqual
}

// decodeSubMeters reads the subMeters list, falling back to the legacy
// meterB/meterC pair and then to the default pair.
func decodeSubMeters(fields map[string]json.RawMessage) []SubMeter {
	if list, ok := coerceArray(fields["subMeters"]); ok {
		meters := make([]SubMeter, 0, len(list))
		for _, raw := range list {
			m := coerceObject(raw)
			if m == nil {
				continue
			}
			meters = append(meters, SubMeter{
				ID:      coerceString(m["id"]),
				Name:    coerceString(m["name"]),
				Reading: Reading{Previous: coerceString(m["prev"]), Current: coerceString(m["curr"])},
				Rooms:   coerceIndexes(m["rooms"]),
			})
		}
		return meters
	}

	meters := Default().SubMeters
	for i, key := range []string{"meterB", "meterC"} {
		if m := coerceObject(fields[key]); m != nil {
			meters[i].Reading = Reading{Previous: coerceString(m["prev"]), Current: coerceString(m["curr"])}
		}
	}
	return meters
}

func coerceObject(raw json.RawMessage) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil {
		return nil
	}
	return m
}

func coerceArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	var list []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &list) != nil || list == nil {
		return nil, false
	}
	return list, true
}

// coerceString accepts strings as-is and keeps the literal text of numbers.
func coerceString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

func coerceFloat(raw json.RawMessage) float64 {
	v, _ := coerceNumber(raw)
	return v
}

func coerceNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		if !inRange(f) {
			return 0, false
		}
		return f, true
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return ParseNumber(s)
	}
	return 0, false
}

func coerceInt(raw json.RawMessage) (int, bool) {
	v, ok := coerceNumber(raw)
	if !ok || v > MaxOccupancy || v < math.MinInt32 {
		return 0, false
	}
	return int(math.Trunc(v)), true
}

// coerceIndexes drops entries that are not numbers rather than turning them
// into index 0.
func coerceIndexes(raw json.RawMessage) []int {
	list, ok := coerceArray(raw)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(list))
	for _, v := range list {
		if n, ok := coerceInt(v); ok {
			out = append(out, n)
		}
	}
	return out
}
