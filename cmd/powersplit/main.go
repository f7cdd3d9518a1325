package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kotlinhustle/power-split/internal/config"
	"github.com/kotlinhustle/power-split/internal/report"
	"github.com/kotlinhustle/power-split/internal/state"
	"github.com/kotlinhustle/power-split/internal/storage"
	"github.com/kotlinhustle/power-split/internal/storage/remote"
	"github.com/kotlinhustle/power-split/internal/storage/sqlite"
	"github.com/kotlinhustle/power-split/internal/syncer"
	"github.com/kotlinhustle/power-split/pkg/logging"
)

func main() {
	logging.Setup()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// cli carries what every subcommand needs.
type cli struct {
	v          *viper.Viper
	configFile string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	root := &cobra.Command{
		Use:          "powersplit",
		Short:        "Split a shared electricity bill between rooms",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.v, c.configFile)
			if err != nil {
				return err
			}
			c.cfg = cfg
			logging.Configure(cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default: powersplit.yaml in . or ~/.config/powersplit)")
	flags.String("db-path", "./data/powersplit.db", "path of the local SQLite database")
	flags.String("state-key", state.DefaultKey, "key the state is stored under")
	flags.String("remote-driver", "", "remote store: none, memory, postgrest, postgres or redis")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")
	_ = c.v.BindPFlag("db_path", flags.Lookup("db-path"))
	_ = c.v.BindPFlag("state_key", flags.Lookup("state-key"))
	_ = c.v.BindPFlag("remote.driver", flags.Lookup("remote-driver"))
	_ = c.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = c.v.BindPFlag("log.format", flags.Lookup("log-format"))

	root.AddCommand(
		c.serveCmd(),
		c.showCmd(),
		c.resultCmd(),
		c.reportCmd(),
		c.resetCmd(),
		c.tariffCmd(),
		c.readingCmd(),
		c.policyCmd(),
		c.occupancyCmd(),
		c.meterCmd(),
		c.groupCmd(),
		c.syncCmd(),
	)
	return root
}

// app is an opened state container with the stores behind it.
type app struct {
	local  *sqlite.SQLiteStore
	remote storage.RemoteStore
	state  *state.Container
}

func (c *cli) open(ctx context.Context) (*app, error) {
	cfg := c.cfg

	local, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	slog.Debug("Storage initialized", "database", cfg.DBPath)

	rs, err := remote.Open(ctx, remote.Config{
		Driver:        cfg.Remote.Driver,
		URL:           cfg.Remote.URL,
		APIKey:        cfg.Remote.APIKey,
		Table:         cfg.Remote.Table,
		DSN:           cfg.Remote.DSN,
		RedisAddr:     cfg.Remote.RedisAddr,
		RedisPassword: cfg.Remote.RedisPassword,
		RedisDB:       cfg.Remote.RedisDB,
		KeyPrefix:     cfg.Remote.KeyPrefix,
	})
	if err != nil {
		local.Close()
		return nil, fmt.Errorf("failed to open remote storage: %w", err)
	}

	container, err := state.Open(ctx, state.Options{
		Local:  local,
		Remote: rs,
		Key:    cfg.StateKey,
		Sync:   syncer.Options{Debounce: cfg.Sync.Debounce},
	})
	if err != nil {
		if rs != nil {
			rs.Close()
		}
		local.Close()
		return nil, err
	}
	return &app{local: local, remote: rs, state: container}, nil
}

// Close flushes pending remote writes and closes the stores.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if err := a.state.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.remote != nil {
		if err := a.remote.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close remote storage: %w", err))
		}
	}
	if err := a.local.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
	}
	return errors.Join(errs...)
}

// withApp opens the app, runs fn and closes the app again, flushing any
// pending remote write. Closing outlives a cancelled command context.
func (c *cli) withApp(cmd *cobra.Command, fn func(a *app) error) error {
	ctx := cmd.Context()
	a, err := c.open(ctx)
	if err != nil {
		return err
	}
	runErr := fn(a)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func (c *cli) reportOptions() report.Options {
	return report.Options{Currency: c.cfg.Report.Currency, Unit: c.cfg.Report.Unit}
}
