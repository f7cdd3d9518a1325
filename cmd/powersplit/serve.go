package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/kotlinhustle/power-split/internal/middleware"
	"github.com/kotlinhustle/power-split/internal/service"
)

const shutdownTimeout = 15 * time.Second

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)
			return c.withApp(cmd, func(a *app) error {
				return c.serve(ctx, a)
			})
		},
	}
	cmd.Flags().String("listen", ":8080", "address to listen on")
	_ = c.v.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	return cmd
}

func (c *cli) serve(ctx context.Context, a *app) error {
	svc := service.New(a.state, c.reportOptions())

	// h2c serves HTTP/2 without TLS next to HTTP/1.1.
	handler := h2c.NewHandler(middleware.Logging(middleware.CORS(svc.Handler())), &http2.Server{})
	srv := &http.Server{
		Addr:              c.cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server starting", "address", c.cfg.Listen, "remote", c.cfg.Remote.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
