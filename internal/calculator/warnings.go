package calculator

// WarningKind enumerates the non-fatal conditions the engine reports.
type WarningKind string

const (
	// WarningNoOccupantsOnMeter: a sub-meter serves only empty rooms, so its
	// usage is charged to nobody.
	WarningNoOccupantsOnMeter WarningKind = "no_occupants_on_meter"

	// WarningNoOccupants: nobody lives in the apartment, so the common pool
	// is not allocated.
	WarningNoOccupants WarningKind = "no_occupants"

	// WarningInvalidReading: a meter's current value is below its previous one.
	WarningInvalidReading WarningKind = "invalid_reading"

	// WarningSubMetersExceedAggregate: the sub-meters add up to more than the
	// aggregate meter and the common pool was floored at zero.
	WarningSubMetersExceedAggregate WarningKind = "submeters_exceed_aggregate"
)

// Aggregate meter registers as they appear in invalid reading warnings.
const (
	AggregateDayID   = "aggregate:day"
	AggregateNightID = "aggregate:night"
)

// Warning is a structured advisory. Rendering to text happens in the report
// package.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	MeterID string      `json:"meterId,omitempty"`
	Amount  float64     `json:"amount,omitempty"`
}

// NoOccupantsOnMeter reports a sub-meter whose rooms are all empty.
func NoOccupantsOnMeter(meterID string) Warning {
	return Warning{Kind: WarningNoOccupantsOnMeter, MeterID: meterID}
}

// NoOccupantsAtAll reports a snapshot with nobody living in any room.
func NoOccupantsAtAll() Warning {
	return Warning{Kind: WarningNoOccupants}
}

// InvalidReading reports a meter whose current reading is below the previous one.
func InvalidReading(meterID string) Warning {
	return Warning{Kind: WarningInvalidReading, MeterID: meterID}
}

// SubMetersExceedAggregate reports sub-meter usage above the aggregate total by amount.
func SubMetersExceedAggregate(amount float64) Warning {
	return Warning{Kind: WarningSubMetersExceedAggregate, Amount: amount}
}
