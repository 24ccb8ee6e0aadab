package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/netsuite-kpi/internal/domain"
	"github.com/ignite/netsuite-kpi/internal/kpi"
	"github.com/ignite/netsuite-kpi/internal/pkg/logger"
	"github.com/ignite/netsuite-kpi/internal/storage"
)

// Failure classes. Run wraps every error in exactly one of them.
var (
	ErrFetch   = errors.New("fetch failed")
	ErrPersist = errors.New("persist failed")
)

// Fetcher retrieves the raw sales orders. A failure must return no records.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Record, error)
}

// SnapshotWriter persists the enriched records as one snapshot.
type SnapshotWriter interface {
	Write(ctx context.Context, records []domain.EnrichedRecord) (*domain.Snapshot, error)
}

// HistoryRecorder keeps a log of successful runs.
type HistoryRecorder interface {
	SaveRun(ctx context.Context, run storage.Run) error
}

// MetricsReporter publishes the outcome of a run.
type MetricsReporter interface {
	ObserveSuccess(s kpi.Summary, finished time.Time, elapsed time.Duration)
	ObserveFailure(elapsed time.Duration)
	Push(ctx context.Context) error
}

// Result describes a successful run.
type Result struct {
	RunID    string
	Source   string
	Snapshot *domain.Snapshot
	Summary  kpi.Summary
	Started  time.Time
	Finished time.Time
}

// Duration returns the run's wall time.
func (r *Result) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// Runner wires the three stages together. History and metrics are optional
// side channels; their failures are logged and never fail the run.
type Runner struct {
	fetcher Fetcher
	writer  SnapshotWriter
	history HistoryRecorder
	metrics MetricsReporter
	now     func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithHistory records successful runs.
func WithHistory(h HistoryRecorder) Option {
	return func(r *Runner) { r.history = h }
}

// WithMetrics pushes run metrics after every run, failed or not.
func WithMetrics(m MetricsReporter) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a runner.
func NewRunner(fetcher Fetcher, writer SnapshotWriter, opts ...Option) *Runner {
	r := &Runner{fetcher: fetcher, writer: writer, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one refresh.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:   uuid.NewString(),
		Source:  r.fetcher.Name(),
		Started: r.now(),
	}
	log := logger.With("run_id", res.RunID, "source", res.Source)
	log.Info("kpi refresh started", "started_at", res.Started.Format(domain.TimestampLayout))

	err := r.run(ctx, log, res)
	res.Finished = r.now()

	if err != nil {
		log.Error("kpi refresh failed", "error", err, "elapsed_ms", res.Duration().Milliseconds())
		r.report(ctx, log, res, false)
		return nil, err
	}

	log.Info("kpi refresh complete",
		"records", res.Summary.Records,
		"on_time", res.Summary.OnTime,
		"late", res.Summary.Late,
		"pending", res.Summary.Pending,
		"on_time_rate", fmt.Sprintf("%.1f%%", res.Summary.OnTimeRate()*100),
		"last_updated", res.Snapshot.Metadata.LastUpdated,
		"elapsed_ms", res.Duration().Milliseconds(),
	)
	r.record(ctx, log, res)
	r.report(ctx, log, res, true)
	return res, nil
}

func (r *Runner) run(ctx context.Context, log *logger.Logger, res *Result) error {
	records, err := r.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFetch, res.Source, err)
	}
	log.Info("sales orders retrieved", "records", len(records))

	enriched := kpi.EnrichAll(records)
	res.Summary = kpi.Summarize(enriched)
	log.Debug("kpi fields calculated",
		"avg_days_order_entry", res.Summary.AvgDaysOrderEntry,
		"avg_days_fulfillment", res.Summary.AvgDaysFulfillment,
		"avg_days_late_early", res.Summary.AvgDaysLateEarly,
	)

	snap, err := r.writer.Write(ctx, enriched)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	res.Snapshot = snap
	return nil
}

func (r *Runner) record(ctx context.Context, log *logger.Logger, res *Result) {
	if r.history == nil {
		return
	}
	err := r.history.SaveRun(ctx, storage.Run{
		RunID:       res.RunID,
		Source:      res.Source,
		LastUpdated: res.Snapshot.Metadata.LastUpdated,
		Finished:    res.Finished,
		DurationMs:  res.Duration().Milliseconds(),
		Summary:     res.Summary,
	})
	if err != nil {
		log.Warn("failed to record run history", "error", err)
	}
}

func (r *Runner) report(ctx context.Context, log *logger.Logger, res *Result, ok bool) {
	if r.metrics == nil {
		return
	}
	if ok {
		r.metrics.ObserveSuccess(res.Summary, res.Finished, res.Duration())
	} else {
		r.metrics.ObserveFailure(res.Duration())
	}
	if err := r.metrics.Push(ctx); err != nil {
		log.Warn("failed to push metrics", "error", err)
	}
}
