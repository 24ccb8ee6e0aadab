package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/netsuite-kpi/internal/domain"
	"github.com/ignite/netsuite-kpi/internal/pkg/logger"
)

// ErrNoRecords is returned when there is nothing to write. An empty snapshot
// would blank the dashboard, so the prior artifact is kept instead.
var ErrNoRecords = errors.New("no records to write")

// Sink persists serialized snapshot bytes somewhere.
type Sink interface {
	Name() string
	Put(ctx context.Context, data []byte) error
}

// Writer stamps and serializes snapshots and hands them to its sinks in order.
type Writer struct {
	sinks []Sink
	now   func() time.Time
}

// NewWriter creates a writer. The first sink should be the primary artifact;
// later sinks are only reached once it succeeds.
func NewWriter(sinks ...Sink) *Writer {
	return &Writer{sinks: sinks, now: time.Now}
}

// WithClock replaces the wall clock, for tests.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

// Build wraps records with metadata without persisting anything.
func (w *Writer) Build(records []domain.EnrichedRecord) (*domain.Snapshot, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return &domain.Snapshot{
		Metadata: domain.Metadata{
			LastUpdated: w.now().Format(domain.TimestampLayout),
			RecordCount: len(records),
		},
		Data: records,
	}, nil
}

// Write builds the snapshot and persists it to every sink.
func (w *Writer) Write(ctx context.Context, records []domain.EnrichedRecord) (*domain.Snapshot, error) {
	snap, err := w.Build(records)
	if err != nil {
		return nil, err
	}

	data, err := Marshal(snap)
	if err != nil {
		return nil, err
	}

	for _, sink := range w.sinks {
		if err := sink.Put(ctx, data); err != nil {
			return nil, fmt.Errorf("writing snapshot to %s: %w", sink.Name(), err)
		}
		logger.Info("snapshot written", "sink", sink.Name(), "bytes", len(data), "records", snap.Metadata.RecordCount)
	}
	return snap, nil
}

// Marshal renders a snapshot as two-space indented JSON.
func Marshal(snap *domain.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling snapshot: %w", err)
	}
	return append(data, '\n'), nil
}
