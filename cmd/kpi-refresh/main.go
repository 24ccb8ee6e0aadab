package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ignite/netsuite-kpi/internal/config"
	"github.com/ignite/netsuite-kpi/internal/pkg/distlock"
	"github.com/ignite/netsuite-kpi/internal/pkg/logger"
	"github.com/ignite/netsuite-kpi/internal/refresh"
	"github.com/ignite/netsuite-kpi/internal/snapshot"
)

// Process exit codes.
const (
	exitOK       = 0
	exitOther    = 1
	exitConfig   = 2
	exitFetch    = 3
	exitPersist  = 4
	exitLockHeld = 5
)

var (
	configPath string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "kpi-refresh",
	Short: "Refresh the NetSuite sales-order KPI snapshot",
	Long: `Fetches sales orders from NetSuite (or a warehouse replica), derives
order-cycle and delivery KPIs for each order, and replaces the JSON snapshot
the dashboard reads. Without a subcommand it performs one refresh.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRefresh,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (optional)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		logger.Error("kpi-refresh failed", "error", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps a command error onto the process exit contract.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, config.ErrMissingConfig):
		return exitConfig
	case errors.Is(err, distlock.ErrLockHeld), errors.Is(err, distlock.ErrLockLost):
		return exitLockHeld
	case errors.Is(err, refresh.ErrFetch):
		return exitFetch
	case errors.Is(err, refresh.ErrPersist), errors.Is(err, snapshot.ErrNoRecords):
		return exitPersist
	default:
		return exitOther
	}
}

// loadConfig reads and validates configuration and applies the log settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv(configPath, envFile)
	if err != nil {
		if errors.Is(err, config.ErrMissingConfig) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", config.ErrMissingConfig, err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedact(!cfg.Log.NoRedact)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
