package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ignite/netsuite-kpi/internal/domain"
	"github.com/ignite/netsuite-kpi/internal/kpi"
	"github.com/ignite/netsuite-kpi/internal/snapshot"
)

var (
	enrichInput  string
	enrichOutput string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Build a snapshot from a saved SuiteQL response",
	Long: `Reads raw sales orders from a file, either a SuiteQL response body
({"items": [...]}) or a bare JSON array of records, and writes the enriched
snapshot. No network access or credentials are needed.`,
	Args: cobra.NoArgs,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().StringVarP(&enrichInput, "input", "i", "", "raw records file (- for stdin)")
	enrichCmd.Flags().StringVarP(&enrichOutput, "output", "o", "", "snapshot file to write (default stdout)")
	_ = enrichCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, _ []string) error {
	var (
		data []byte
		err  error
	)
	if enrichInput == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(enrichInput)
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	records, err := decodeRecords(data)
	if err != nil {
		return err
	}
	enriched := kpi.EnrichAll(records)

	if enrichOutput != "" {
		snap, err := snapshot.NewWriter(snapshot.NewFileSink(enrichOutput)).Write(cmd.Context(), enriched)
		if err != nil {
			return err
		}
		cmd.Printf("Saved %d records to %s\n", snap.Metadata.RecordCount, enrichOutput)
		return nil
	}

	snap, err := snapshot.NewWriter().Build(enriched)
	if err != nil {
		return err
	}
	out, err := snapshot.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// decodeRecords accepts a SuiteQL page or a bare array. Numbers are kept as
// json.Number, as the live client does.
func decodeRecords(data []byte) ([]domain.Record, error) {
	trimmed := bytes.TrimSpace(data)
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []domain.Record
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("parsing records: %w", err)
		}
		return records, nil
	}

	var page struct {
		Items []domain.Record `json:"items"`
	}
	if err := dec.Decode(&page); err != nil {
		return nil, fmt.Errorf("parsing SuiteQL response: %w", err)
	}
	for _, item := range page.Items {
		delete(item, "links")
	}
	return page.Items, nil
}
