package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ignite/netsuite-kpi/internal/config"
	"github.com/ignite/netsuite-kpi/internal/metrics"
	"github.com/ignite/netsuite-kpi/internal/netsuite"
	"github.com/ignite/netsuite-kpi/internal/pkg/distlock"
	"github.com/ignite/netsuite-kpi/internal/pkg/logger"
	"github.com/ignite/netsuite-kpi/internal/refresh"
	"github.com/ignite/netsuite-kpi/internal/snapshot"
	"github.com/ignite/netsuite-kpi/internal/storage"
	"github.com/ignite/netsuite-kpi/internal/warehouse"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, enrich and write one snapshot",
	Args:  cobra.NoArgs,
	RunE:  runRefresh,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	fetcher, closeFetcher, err := buildFetcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFetcher()

	writer, history, err := buildOutputs(ctx, cfg)
	if err != nil {
		return err
	}

	opts := []refresh.Option{}
	if history != nil {
		opts = append(opts, refresh.WithHistory(history))
	}
	if cfg.Metrics.PushgatewayURL != "" {
		opts = append(opts, refresh.WithMetrics(metrics.NewPusher(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job)))
	}
	runner := refresh.NewRunner(fetcher, writer, opts...)

	lock, closeLock, err := distlock.Open(ctx, cfg.Lock)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrMissingConfig, err)
	}
	defer closeLock()

	return distlock.Guard(ctx, lock, func(ctx context.Context) error {
		res, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		cmd.Printf("Saved %d records to %s (last updated %s)\n",
			res.Snapshot.Metadata.RecordCount, cfg.Snapshot.Path, res.Snapshot.Metadata.LastUpdated)
		return nil
	})
}

// buildFetcher returns the configured source and a func that releases it.
func buildFetcher(ctx context.Context, cfg *config.Config) (refresh.Fetcher, func() error, error) {
	switch cfg.Source {
	case config.SourceWarehouse:
		src, err := warehouse.Open(cfg.Warehouse)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", config.ErrMissingConfig, err)
		}
		logger.Info("using warehouse source", "driver", cfg.Warehouse.Driver)
		return src, src.Close, nil

	default:
		client, err := netsuite.New(ctx, cfg.NetSuite)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", config.ErrMissingConfig, err)
		}
		logger.Info("connecting to NetSuite", "account", cfg.NetSuite.AccountID, "auth_mode", cfg.NetSuite.AuthMode)
		return client, func() error { return nil }, nil
	}
}

// buildOutputs creates the snapshot writer and, when configured, the run
// history store. AWS settings are only loaded if S3 or DynamoDB is in use.
func buildOutputs(ctx context.Context, cfg *config.Config) (*snapshot.Writer, *storage.History, error) {
	sinks := []snapshot.Sink{snapshot.NewFileSink(cfg.Snapshot.Path)}
	var history *storage.History

	if cfg.Snapshot.S3Bucket != "" || cfg.History.Table != "" {
		awsCfg, err := snapshot.LoadAWSConfig(ctx, cfg.Snapshot)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", config.ErrMissingConfig, err)
		}
		if cfg.Snapshot.S3Bucket != "" {
			sinks = append(sinks, snapshot.NewS3SinkFromConfig(awsCfg, cfg.Snapshot))
		}
		if cfg.History.Table != "" {
			history = storage.NewHistoryFromConfig(awsCfg, cfg.History.Table, cfg.Metrics.Job, cfg.History.TTL())
		}
	}
	return snapshot.NewWriter(sinks...), history, nil
}
