package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/netsuite-kpi/internal/domain"
	"github.com/ignite/netsuite-kpi/internal/kpi"
	"github.com/ignite/netsuite-kpi/internal/snapshot"
	"github.com/ignite/netsuite-kpi/internal/storage"
)

type fakeFetcher struct {
	records []domain.Record
	err     error
	calls   int
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) Fetch(ctx context.Context) ([]domain.Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeHistory struct {
	runs []storage.Run
	err  error
}

func (h *fakeHistory) SaveRun(ctx context.Context, run storage.Run) error {
	if h.err != nil {
		return h.err
	}
	h.runs = append(h.runs, run)
	return nil
}

type fakeMetrics struct {
	successes int
	failures  int
	pushes    int
	summary   kpi.Summary
	pushErr   error
}

func (m *fakeMetrics) ObserveSuccess(s kpi.Summary, finished time.Time, elapsed time.Duration) {
	m.successes++
	m.summary = s
}

func (m *fakeMetrics) ObserveFailure(elapsed time.Duration) { m.failures++ }

func (m *fakeMetrics) Push(ctx context.Context) error {
	m.pushes++
	return m.pushErr
}

func orders() []domain.Record {
	return []domain.Record{
		{
			"sales_order_number": "SO-3",
			"target_ship_date":   "2025-01-10",
			"actual_ship_date":   "2025-01-12",
			"shipping_cost":      json.Number("12.5"),
			"order_total":        json.Number("250"),
		},
		{
			"sales_order_number": "SO-2",
			"target_ship_date":   "2025-01-10",
			"actual_ship_date":   "2025-01-09",
		},
		{
			"sales_order_number": "SO-1",
			"actual_ship_date":   nil,
		},
	}
}

func clock() func() time.Time {
	t := time.Date(2025, 3, 4, 15, 6, 7, 0, time.Local)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestRunWritesSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "NetSuite_KPI_Data.json")
	writer := snapshot.NewWriter(snapshot.NewFileSink(path)).WithClock(func() time.Time {
		return time.Date(2025, 3, 4, 15, 6, 7, 0, time.Local)
	})
	history := &fakeHistory{}
	metrics := &fakeMetrics{}

	r := NewRunner(&fakeFetcher{records: orders()}, writer,
		WithHistory(history), WithMetrics(metrics), WithClock(clock()))

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "fake", res.Source)
	assert.Equal(t, 3, res.Snapshot.Metadata.RecordCount)
	assert.Equal(t, "2025-03-04 15:06:07", res.Snapshot.Metadata.LastUpdated)
	assert.Equal(t, time.Second, res.Duration())
	assert.Equal(t, kpi.Summary{
		Records: 3, OnTime: 1, Late: 1, Pending: 1,
		AvgDaysLateEarly: 0.5,
	}, res.Summary)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var snap struct {
		Metadata domain.Metadata  `json:"metadata"`
		Data     []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &snap))
	require.Len(t, snap.Data, 3)
	for i, want := range []string{"SO-3", "SO-2", "SO-1"} {
		assert.Equal(t, want, snap.Data[i]["sales_order_number"], "fetch order is kept")
	}
	assert.Equal(t, "Late", snap.Data[0]["on_time_delivery"])
	assert.Equal(t, "On Time", snap.Data[1]["on_time_delivery"])
	assert.Equal(t, "Pending", snap.Data[2]["on_time_delivery"])

	require.Len(t, history.runs, 1)
	assert.Equal(t, res.RunID, history.runs[0].RunID)
	assert.Equal(t, "2025-03-04 15:06:07", history.runs[0].LastUpdated)
	assert.Equal(t, int64(1000), history.runs[0].DurationMs)

	assert.Equal(t, 1, metrics.successes)
	assert.Equal(t, 0, metrics.failures)
	assert.Equal(t, 1, metrics.pushes)
	assert.Equal(t, 3, metrics.summary.Records)
}

func TestFetchFailureLeavesSnapshotUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "NetSuite_KPI_Data.json")
	prior := []byte(`{"metadata":{"last_updated":"2025-01-01 00:00:00","record_count":1},"data":[{}]}`)
	require.NoError(t, os.WriteFile(path, prior, 0644))

	history := &fakeHistory{}
	metrics := &fakeMetrics{}
	r := NewRunner(&fakeFetcher{err: errors.New("netsuite API error 401: INVALID_LOGIN")},
		snapshot.NewWriter(snapshot.NewFileSink(path)),
		WithHistory(history), WithMetrics(metrics))

	res, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrFetch)
	assert.NotErrorIs(t, err, ErrPersist)
	assert.Contains(t, err.Error(), "INVALID_LOGIN")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, prior, data)

	assert.Empty(t, history.runs)
	assert.Equal(t, 1, metrics.failures)
	assert.Equal(t, 1, metrics.pushes)
}

func TestZeroRecordsIsPersistFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "NetSuite_KPI_Data.json")
	require.NoError(t, os.WriteFile(path, []byte("prior"), 0644))

	r := NewRunner(&fakeFetcher{records: []domain.Record{}}, snapshot.NewWriter(snapshot.NewFileSink(path)))

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrPersist)
	assert.ErrorIs(t, err, snapshot.ErrNoRecords)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "prior", string(data))
}

func TestWriteFailureIsPersistFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "out.json")
	r := NewRunner(&fakeFetcher{records: orders()}, snapshot.NewWriter(snapshot.NewFileSink(path)))

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrPersist)
	assert.NotErrorIs(t, err, ErrFetch)
}

func TestSideChannelFailuresDoNotFailRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	metrics := &fakeMetrics{pushErr: errors.New("connection refused")}
	r := NewRunner(&fakeFetcher{records: orders()}, snapshot.NewWriter(snapshot.NewFileSink(path)),
		WithHistory(&fakeHistory{err: errors.New("throttled")}), WithMetrics(metrics))

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Snapshot.Metadata.RecordCount)
	assert.Equal(t, 1, metrics.pushes)
}

func TestRunIDsAreUnique(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(&fakeFetcher{records: orders()}, snapshot.NewWriter(snapshot.NewFileSink(filepath.Join(dir, "out.json"))))

	first, err := r.Run(context.Background())
	require.NoError(t, err)
	second, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
}
