package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ghltech15/fault-watch-sub001/internal/adapters"
	"github.com/ghltech15/fault-watch-sub001/internal/application"
	"github.com/ghltech15/fault-watch-sub001/internal/config"
	"github.com/ghltech15/fault-watch-sub001/internal/domain"
	"github.com/ghltech15/fault-watch-sub001/internal/refdata"
)

func main() {
	root := &cobra.Command{
		Use:           "faultwatch",
		Short:         "Crisis-dashboard aggregation service",
		Long:          "faultwatch polls public market, inventory, credit, filing, and news feeds,\nderives the dashboard's exposure and contagion figures, and serves them as JSON.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newSnapshotCmd(), newHistoryCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the refresh scheduler and the read API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg.App.Env)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ref, err := refdata.Load(cfg.Refdata)
			if err != nil {
				return err
			}

			cache, archive := connectBackends(cfg, logger)
			svc := application.NewService(cfg, ref, cache, archive, logger)

			errCh := make(chan error, 1)
			go func() {
				errCh <- svc.Start()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			// Both exits run the same drain: the scheduler and batcher
			// are already started even when the listener never came up.
			var runErr error
			select {
			case sig := <-sigCh:
				logger.Info("signal received, shutting down", zap.String("signal", sig.String()))
			case err := <-errCh:
				runErr = err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := svc.Shutdown(ctx); err != nil && runErr == nil {
				runErr = err
			}
			return runErr
		},
	}
}

func newSnapshotCmd() *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Run one refresh cycle and print the snapshot as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			// Keep stdout parseable: the only output is the snapshot.
			logger := zap.NewNop()

			ref, err := refdata.Load(cfg.Refdata)
			if err != nil {
				return err
			}

			svc := application.NewService(cfg, ref, nil, nil, logger)

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.FetchTimeout+5*time.Second)
			defer cancel()

			snapshot, err := svc.RefreshOnce(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(snapshot)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int
	var pretty bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the most recent archived snapshots from Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			archive, err := adapters.NewPostgresAdapter(cfg.Database)
			if err != nil {
				return err
			}
			defer archive.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			records, err := archive.ListSnapshots(ctx, limit)
			if err != nil {
				return err
			}

			type row struct {
				TakenAt  time.Time       `json:"taken_at"`
				Degraded bool            `json:"degraded"`
				Snapshot json.RawMessage `json:"snapshot"`
			}
			rows := make([]row, 0, len(records))
			for _, rec := range records {
				rows = append(rows, row{TakenAt: rec.TakenAt, Degraded: rec.Degraded, Snapshot: rec.Payload})
			}

			enc := json.NewEncoder(os.Stdout)
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(rows)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of snapshots to print, newest first")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	return cmd
}

// connectBackends dials Redis and Postgres when enabled. Both are
// optional: the serving path works without them, so a failed dial is a
// warning, not a fatal error.
func connectBackends(cfg *config.Config, logger *zap.Logger) (domain.SnapshotCache, domain.ArchiveRepository) {
	var cache domain.SnapshotCache
	if cfg.Redis.Enabled {
		c, err := adapters.NewRedisAdapter(cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, running without snapshot mirror", zap.Error(err))
		} else {
			cache = c
		}
	}

	var archive domain.ArchiveRepository
	if cfg.Database.Enabled {
		a, err := adapters.NewPostgresAdapter(cfg.Database)
		if err != nil {
			logger.Warn("postgres unavailable, running without visit log and history", zap.Error(err))
		} else {
			archive = a
		}
	}
	return cache, archive
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
