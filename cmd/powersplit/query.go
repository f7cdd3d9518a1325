package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kotlinhustle/power-split/internal/models"
	"github.com/kotlinhustle/power-split/internal/report"
	"github.com/kotlinhustle/power-split/internal/state"
)

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app) error {
				data, err := models.Encode(a.state.Snapshot())
				if err != nil {
					return err
				}
				var out bytes.Buffer
				if err := json.Indent(&out, data, "", "  "); err != nil {
					return err
				}
				out.WriteByte('\n')
				_, err = cmd.OutOrStdout().Write(out.Bytes())
				return err
			})
		},
	}
}

func (c *cli) resultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "result",
		Short: "Print the computed breakdown as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app) error {
				return writeIndented(cmd, a.state.Result())
			})
		},
	}
}

func (c *cli) reportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the text report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app) error {
				text := report.Format(a.state.Snapshot(), a.state.Result(), c.reportOptions())
				if out == "" {
					_, err := fmt.Fprint(cmd.OutOrStdout(), text)
					return err
				}
				if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the report to this file instead of stdout")
	return cmd
}

func (c *cli) syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Inspect remote sync",
	}
	status := &cobra.Command{
		Use:   "status",
		Short: "Print the remote sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(a *app) error {
				st, err := a.state.SyncState()
				if errors.Is(err, state.ErrSyncDisabled) {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "remote sync disabled")
					return err
				}
				return writeIndented(cmd, st)
			})
		},
	}
	cmd.AddCommand(status)
	return cmd
}

func writeIndented(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
