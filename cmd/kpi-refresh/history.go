package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ignite/netsuite-kpi/internal/config"
	"github.com/ignite/netsuite-kpi/internal/snapshot"
	"github.com/ignite/netsuite-kpi/internal/storage"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent refresh runs from the history table",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFromEnv(configPath, envFile)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrMissingConfig, err)
	}
	if cfg.History.Table == "" {
		return fmt.Errorf("%w: KPI_HISTORY_TABLE", config.ErrMissingConfig)
	}

	awsCfg, err := snapshot.LoadAWSConfig(cmd.Context(), cfg.Snapshot)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrMissingConfig, err)
	}
	h := storage.NewHistoryFromConfig(awsCfg, cfg.History.Table, cfg.Metrics.Job, cfg.History.TTL())

	runs, err := h.RecentRuns(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	return printRuns(cmd, runs)
}

func printRuns(cmd *cobra.Command, runs []storage.Run) error {
	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LAST UPDATED\tSOURCE\tRECORDS\tON TIME\tLATE\tPENDING\tDURATION\tRUN ID")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%dms\t%s\n",
			r.LastUpdated, r.Source, r.Summary.Records, r.Summary.OnTime,
			r.Summary.Late, r.Summary.Pending, r.DurationMs, r.RunID)
	}
	return w.Flush()
}
