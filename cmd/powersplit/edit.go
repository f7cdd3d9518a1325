package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kotlinhustle/power-split/internal/models"
	"github.com/kotlinhustle/power-split/internal/state"
)

// apply runs a one-shot edit against the stored state.
func (c *cli) apply(cmd *cobra.Command, edit state.Edit) error {
	return c.withApp(cmd, func(a *app) error {
		_, err := a.state.Apply(cmd.Context(), edit)
		return err
	})
}

func (c *cli) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard all readings and settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app) error {
				_, err := a.state.Reset(cmd.Context())
				return err
			})
		},
	}
}

func (c *cli) tariffCmd() *cobra.Command {
	var day, night, flat float64
	cmd := &cobra.Command{
		Use:   "tariff",
		Short: "Set the day, night or flat rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			return c.apply(cmd, func(s models.Snapshot) (models.Snapshot, error) {
				t := s.Tariff
				if f.Changed("day") {
					t.Day = day
				}
				if f.Changed("night") {
					t.Night = night
				}
				if f.Changed("flat") {
					t.Flat = flat
				}
				return s.WithTariff(t), nil
			})
		},
	}
	cmd.Flags().Float64Var(&day, "day", 0, "day rate per unit")
	cmd.Flags().Float64Var(&night, "night", 0, "night rate per unit")
	cmd.Flags().Float64Var(&flat, "flat", 0, "flat rate per unit for the metered policy")
	return cmd
}

func (c *cli) readingCmd() *cobra.Command {
	var prev, curr string
	cmd := &cobra.Command{
		Use:   "reading <day|night|meter-id>",
		Short: "Set the previous and current reading of a meter",
		Long: "Set a reading. \"day\" and \"night\" name the registers of the aggregate meter;\n" +
			"anything else is a sub-meter ID.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			target := args[0]
			return c.apply(cmd, func(s models.Snapshot) (models.Snapshot, error) {
				patch := models.SubMeterPatch{}
				if f.Changed("prev") {
					patch.Previous = &prev
				}
				if f.Changed("curr") {
					patch.Current = &curr
				}

				rate := models.Rate(target)
				if rate != models.RateDay && rate != models.RateNight {
					return s.UpdateSubMeter(target, patch)
				}
				r := s.Aggregate.Day
				if rate == models.RateNight {
					r = s.Aggregate.Night
				}
				if patch.Previous != nil {
					r.Previous = prev
				}
				if patch.Current != nil {
					r.Current = curr
				}
				return s.WithAggregateReading(rate, r)
			})
		},
	}
	cmd.Flags().StringVar(&prev, "prev", "", "previous reading")
	cmd.Flags().StringVar(&curr, "curr", "", "current reading")
	return cmd
}

func (c *cli) policyCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "policy <equal|proportional|occupancy|metered>",
		Short:     "Choose how usage is allocated",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"equal", "proportional", "occupancy", "metered"},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := models.ParsePolicy(args[0])
			if err != nil {
				return err
			}
			return c.apply(cmd, func(s models.Snapshot) (models.Snapshot, error) {
				return s.WithPolicy(p), nil
			})
		},
	}
}

func (c *cli) occupancyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "occupancy <people in room 1> [room 2] [room 3] [room 4]",
		Short: "Set the number of people per room",
		Args:  cobra.RangeArgs(1, models.RoomCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			occupancy := make([]int, len(args))
			for i, arg := range args {
				n, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("invalid head count %q for room %d", arg, i+1)
				}
				occupancy[i] = n
			}
			return c.apply(cmd, func(s models.Snapshot) (models.Snapshot, error) {
				next := append(occupancy, s.Occupancy[len(occupancy):]...)
				return s.WithOccupancy(next), nil
			})
		},
	}
}

func (c *cli) meterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meter",
		Short: "Manage sub-meters",
	}

	var name, prev, curr string
	var rooms []int
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a sub-meter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app) error {
				id := a.state.NewID()
				_, err := a.state.Apply(cmd.Context(), func(s models.Snapshot) (models.Snapshot, error) {
					return s.WithSubMeter(models.SubMeter{
						ID:      id,
						Name:    name,
						Reading: models.Reading{Previous: prev, Current: curr},
						Rooms:   roomIndexes(rooms),
					}), nil
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	add.Flags().StringVar(&name, "name", "", "display name")
	add.Flags().StringVar(&prev, "prev", "", "previous reading")
	add.Flags().StringVar(&curr, "curr", "", "current reading")
	add.Flags().IntSliceVar(&rooms, "rooms", nil, "rooms served, numbered from 1 (default all)")

	var uName, uPrev, uCurr string
	var uRooms []int
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename a sub-meter or change its reading or rooms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			var patch models.SubMeterPatch
			if f.Changed("name") {
				patch.Name = &uName
			}
			if f.Changed("prev") {
				patch.Previous = &uPrev
			}
			if f.Changed("curr") {
				patch.Current = &uCurr
			}
			if f.Changed("rooms") {
				patch.Rooms = roomIndexes(uRooms)
			}
			return c.apply(cmd, func(s models.Snapshot) (models.Snapshot, error) {
				return s.UpdateSubMeter(args[0], patch)
			})
		},
	}
	update.Flags().StringVar(&uName, "name", "", "display name")
	update.Flags().StringVar(&uPrev, "prev", "", "previous reading")
	update.Flags().StringVar(&uCurr, "curr", "", "current reading")
	update.Flags().IntSliceVar(&uRooms, "rooms", nil, "rooms served, numbered from 1")

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a sub-meter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.apply(cmd, func(s models.Snapshot) (models.Snapshot, error) {
				return s.RemoveSubMeter(args[0])
			})
		},
	}

	cmd.AddCommand(add, update, remove)
	return cmd
}

func (c *cli) groupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage room groups",
	}

	var name string
	var rooms []int
	add := &cobra.Command{
		Use:   "add",
		Short: "Group rooms for reporting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app) error {
				id := a.state.NewID()
				_, err := a.state.Apply(cmd.Context(), func(s models.Snapshot) (models.Snapshot, error) {
					next := s.WithGroup(models.Group{ID: id, Name: name, RoomIndexes: roomIndexes(rooms)})
					if _, ok := next.Group(id); !ok {
						return s, fmt.Errorf("group %q has no valid rooms", name)
					}
					return next, nil
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	add.Flags().StringVar(&name, "name", "", "display name")
	add.Flags().IntSliceVar(&rooms, "rooms", nil, "rooms in the group, numbered from 1")
	_ = add.MarkFlagRequired("rooms")

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.apply(cmd, func(s models.Snapshot) (models.Snapshot, error) {
				return s.RemoveGroup(args[0])
			})
		},
	}

	cmd.AddCommand(add, remove)
	return cmd
}

// roomIndexes turns 1-based room numbers into indexes.
func roomIndexes(rooms []int) []int {
	if rooms == nil {
		return nil
	}
	out := make([]int, len(rooms))
	for i, r := range rooms {
		out[i] = r - 1
	}
	return out
}
