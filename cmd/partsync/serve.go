package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/partsync/partsync/internal/config"
	"github.com/partsync/partsync/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the coordinator server",
		Long: `Serve runs the coordinator HTTP server on its own, for a long-lived desk
setup where a separate consumer (a review UI, or repeated update/batch
invocations against the same queue) dequeues results.

The server accepts scrape results from the browser extension, answers its
close polls, and exposes prometheus metrics at /metrics. It runs until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddr,
		"Coordinator listen address")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .partsync in current or home directory)")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	coordinator := server.NewCoordinator(cfg,
		server.WithLogger(logger),
		server.WithMetrics(server.NewMetrics()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return coordinator.Start(gctx)
	})
	g.Go(func() error {
		return logStats(gctx, coordinator, logger, cfg.StatsInterval)
	})

	return g.Wait()
}

// logStats periodically reports live session counts while the server runs.
// Session expiry itself is TTL-driven inside the registry; this loop only
// keeps the operator informed.
func logStats(ctx context.Context, c *server.Coordinator, logger *slog.Logger, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			logger.Debug("coordinator stats", slog.Int("sessions", c.Sessions()))
		}
	}
}
