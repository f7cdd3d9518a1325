package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotlinhustle/power-split/internal/calculator"
	"github.com/kotlinhustle/power-split/internal/models"
)

func scenario() models.Snapshot {
	s := models.Default()
	s.Tariff = models.Tariff{Day: 5, Night: 3}
	s.Aggregate.Day = models.Reading{Previous: "0", Current: "100"}
	s.Aggregate.Night = models.Reading{Previous: "0", Current: "50"}
	s.SubMeters[0].Reading = models.Reading{Previous: "0", Current: "40"}
	s.SubMeters[1].Reading = models.Reading{Previous: "0", Current: "60"}
	s.Groups = []models.Group{{ID: "g1", Name: "Ivanovs", RoomIndexes: []int{0, 1}}}
	return s
}

func TestFormat(t *testing.T) {
	s := scenario()
	out := Format(s, calculator.Compute(s), Options{})

	for _, want := range []string{
		"Power Split\n",
		"Tariffs: day 5.00 ₽, night 3.00 ₽\n",
		"Price per kWh: 4.33 ₽\n",
		"Aggregate meter: day 100.00 kWh, night 50.00 kWh, total 150.00 kWh (day 66.67%, night 33.33%)\n",
		"  B (rooms 1, 2): 40.00 kWh\n",
		"  C (rooms 3, 4): 60.00 kWh\n",
		"Sub-meters total: 100.00 kWh\n",
		"Common pool (equal split): 50.00 kWh\n",
		"  Ivanovs: 65.00 kWh = 281.67 ₽ (2 people)\n",
		"  Room 1: 32.50 kWh = 140.83 ₽ (base 20.00 kWh + common 12.50 kWh, 1 person)\n",
		"  Room 4: 42.50 kWh = 184.17 ₽ (base 30.00 kWh + common 12.50 kWh, 1 person)\n",
		"People total: 4\n",
		"Total: 150.00 kWh = 650.00 ₽\n",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Warnings:")
}

func TestFormatOrder(t *testing.T) {
	s := scenario()
	s.Aggregate.Night = models.Reading{Previous: "60", Current: "50"}
	out := Format(s, calculator.Compute(s), Options{})

	order := []string{"Tariffs:", "Aggregate meter:", "Sub-meters:", "Common pool", "Groups:", "Rooms:", "People total:", "Total:", "Warnings:"}
	last := -1
	for _, marker := range order {
		idx := strings.Index(out, marker)
		require.GreaterOrEqual(t, idx, 0, "missing %q", marker)
		assert.Greater(t, idx, last, "%q out of order", marker)
		last = idx
	}
}

func TestFormatIsDeterministic(t *testing.T) {
	s := scenario()
	res := calculator.Compute(s)
	assert.Equal(t, Format(s, res, Options{}), Format(s, res, Options{}))
}

func TestFormatOptions(t *testing.T) {
	s := scenario()
	out := Format(s, calculator.Compute(s), Options{Title: "Flat 7", Currency: "EUR", Unit: "units"})

	assert.True(t, strings.HasPrefix(out, "Flat 7\n"))
	assert.Contains(t, out, "Total: 150.00 units = 650.00 EUR\n")
}

func TestFormatMetered(t *testing.T) {
	s := models.Default()
	s.Policy = models.PolicyMetered
	s.Tariff.Flat = 2
	s.SubMeters = []models.SubMeter{{ID: "k", Name: "Kitchen", Reading: models.Reading{Current: "5"}}}
	out := Format(s, calculator.Compute(s), Options{})

	assert.Contains(t, out, "Tariff: 2.00 ₽ flat\n")
	assert.Contains(t, out, "  Kitchen: 5.00 kWh\n")
	assert.Contains(t, out, "Common pool: none (metered)\n")
	assert.Contains(t, out, "Meters:\n  Kitchen: 5.00 kWh = 10.00 ₽\n")
}

func TestDescribeWarning(t *testing.T) {
	s := models.Default()
	tests := []struct {
		warning calculator.Warning
		want    string
	}{
		{calculator.NoOccupantsOnMeter("b"), "No occupants on meter B; its usage is not charged to any room."},
		{calculator.NoOccupantsAtAll(), "No occupants in any room; the common pool is not charged."},
		{calculator.InvalidReading(calculator.AggregateNightID), "Meter A (night): current reading is lower than the previous one; usage counted as zero."},
		{calculator.InvalidReading("gone"), "Meter gone: current reading is lower than the previous one; usage counted as zero."},
		{calculator.SubMetersExceedAggregate(12.5), "Sub-meters exceed the aggregate meter by 12.50 kWh; the common pool is set to zero."},
	}

	for _, tt := range tests {
		t.Run(string(tt.warning.Kind), func(t *testing.T) {
			assert.Equal(t, tt.want, DescribeWarning(tt.warning, s, Options{}))
		})
	}
}
