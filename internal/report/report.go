// Package report renders a computed result as plain text for sharing.
package report

import (
	"fmt"
	"strings"

	"github.com/kotlinhustle/power-split/internal/calculator"
	"github.com/kotlinhustle/power-split/internal/models"
)

// Options control labels and units.
type Options struct {
	Title    string
	Currency string
	Unit     string
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "Power Split"
	}
	if o.Currency == "" {
		o.Currency = "₽"
	}
	if o.Unit == "" {
		o.Unit = "kWh"
	}
	return o
}

// Format renders s and its result. Lines always come in the same order:
// tariffs, aggregate meter, sub-meters, common pool, groups, rooms, people
// total, grand total, then warnings. Quantities use two decimals.
func Format(s models.Snapshot, res calculator.Result, opts Options) string {
	opts = opts.withDefaults()
	f := formatter{opts: opts}
	metered := res.Policy == models.PolicyMetered

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("%s", opts.Title)

	if metered {
		line("Tariff: %s flat", f.money(s.Tariff.Flat))
	} else {
		line("Tariffs: day %s, night %s", f.money(s.Tariff.Day), f.money(s.Tariff.Night))
	}
	line("Price per %s: %s", opts.Unit, f.money(res.Price))

	line("Aggregate meter: day %s, night %s, total %s (day %s, night %s)",
		f.energy(res.Aggregate.Day.Usage), f.energy(res.Aggregate.Night.Usage), f.energy(res.Aggregate.Total),
		percent(res.DayShare), percent(res.NightShare))

	line("Sub-meters:")
	for i, m := range res.SubMeters {
		label := meterLabel(m.Name, i)
		if !metered && i < len(s.SubMeters) {
			label += " (" + roomList(s.SubMeters[i].Rooms) + ")"
		}
		line("  %s: %s", label, f.energy(m.Usage.Usage))
	}
	line("Sub-meters total: %s", f.energy(res.SubTotal))

	if metered {
		line("Common pool: none (%s)", policyName(res.Policy))
	} else {
		line("Common pool (%s): %s", policyName(res.Policy), f.energy(res.Common))
	}

	if len(res.Groups) > 0 {
		line("Groups:")
		for _, g := range res.Groups {
			line("  %s: %s = %s (%s)", groupLabel(g), f.energy(g.TotalUsage), f.money(g.Cost), people(g.People))
		}
	}

	if metered {
		line("Meters:")
	} else {
		line("Rooms:")
	}
	for _, r := range res.Rooms {
		if metered {
			line("  %s: %s = %s", r.Name, f.energy(r.TotalUsage), f.money(r.Cost))
			continue
		}
		line("  %s: %s = %s (base %s + common %s, %s)",
			r.Name, f.energy(r.TotalUsage), f.money(r.Cost), f.energy(r.BaseUsage), f.energy(r.CommonUsage), people(r.People))
	}

	line("People total: %d", res.Totals.People)
	line("Total: %s = %s", f.energy(res.Totals.Usage), f.money(res.Totals.Cost))

	if len(res.Warnings) > 0 {
		line("Warnings:")
		for _, w := range res.Warnings {
			line("  - %s", DescribeWarning(w, s, opts))
		}
	}

	return b.String()
}

// DescribeWarning renders one warning as a sentence.
func DescribeWarning(w calculator.Warning, s models.Snapshot, opts Options) string {
	opts = opts.withDefaults()
	f := formatter{opts: opts}

	switch w.Kind {
	case calculator.WarningNoOccupantsOnMeter:
		return fmt.Sprintf("No occupants on meter %s; its usage is not charged to any room.", meterDisplayName(w.MeterID, s))
	case calculator.WarningNoOccupants:
		return "No occupants in any room; the common pool is not charged."
	case calculator.WarningInvalidReading:
		return fmt.Sprintf("Meter %s: current reading is lower than the previous one; usage counted as zero.", meterDisplayName(w.MeterID, s))
	case calculator.WarningSubMetersExceedAggregate:
		return fmt.Sprintf("Sub-meters exceed the aggregate meter by %s; the common pool is set to zero.", f.energy(w.Amount))
	default:
		return string(w.Kind)
	}
}

type formatter struct {
	opts Options
}

func (f formatter) money(v float64) string {
	return fmt.Sprintf("%.2f %s", v, f.opts.Currency)
}

func (f formatter) energy(v float64) string {
	return fmt.Sprintf("%.2f %s", v, f.opts.Unit)
}

func percent(share float64) string {
	return fmt.Sprintf("%.2f%%", share*100)
}

func people(n int) string {
	if n == 1 {
		return "1 person"
	}
	return fmt.Sprintf("%d people", n)
}

func policyName(p models.Policy) string {
	switch p {
	case models.PolicyEqual:
		return "equal split"
	case models.PolicyProportional:
		return "proportional to consumption"
	case models.PolicyOccupancy:
		return "by occupancy"
	case models.PolicyMetered:
		return "metered"
	default:
		return string(p)
	}
}

func roomList(rooms []int) string {
	parts := make([]string, len(rooms))
	for i, r := range rooms {
		parts[i] = fmt.Sprint(r + 1)
	}
	if len(rooms) == 1 {
		return "room " + parts[0]
	}
	return "rooms " + strings.Join(parts, ", ")
}

func meterLabel(name string, i int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("Meter %d", i+1)
}

func groupLabel(g calculator.GroupResult) string {
	if g.Name != "" {
		return g.Name
	}
	return g.ID
}

func meterDisplayName(id string, s models.Snapshot) string {
	switch id {
	case calculator.AggregateDayID:
		return "A (day)"
	case calculator.AggregateNightID:
		return "A (night)"
	}
	for i, m := range s.SubMeters {
		if m.ID == id {
			return meterLabel(m.Name, i)
		}
	}
	return id
}
