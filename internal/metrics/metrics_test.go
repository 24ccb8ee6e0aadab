package metrics

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/netsuite-kpi/internal/kpi"
)

type capturedPush struct {
	method string
	path   string
	body   []byte
}

func gateway(t *testing.T, status int) (*httptest.Server, *capturedPush) {
	t.Helper()
	got := &capturedPush{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

// gauge returns the value of a gathered gauge, matching the status label
// when one is given.
func gauge(t *testing.T, reg *prometheus.Registry, name, status string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if status == "" || labelValue(m, "status") == status {
				return m.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s{status=%q} not gathered", name, status)
	return 0
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestObserveSuccess(t *testing.T) {
	p := NewPusher("http://unused", "netsuite_kpi_refresh")
	finished := time.Unix(1700000000, 0)

	p.ObserveSuccess(kpi.Summary{Records: 10, OnTime: 6, Late: 3, Pending: 1}, finished, 2500*time.Millisecond)

	reg := p.Registry()
	assert.Equal(t, float64(1), gauge(t, reg, "kpi_refresh_success", ""))
	assert.Equal(t, float64(1700000000), gauge(t, reg, "kpi_refresh_last_success_timestamp_seconds", ""))
	assert.Equal(t, float64(10), gauge(t, reg, "kpi_refresh_records", ""))
	assert.Equal(t, float64(6), gauge(t, reg, "kpi_refresh_orders", "on_time"))
	assert.Equal(t, float64(3), gauge(t, reg, "kpi_refresh_orders", "late"))
	assert.Equal(t, float64(1), gauge(t, reg, "kpi_refresh_orders", "pending"))
	assert.Equal(t, 2.5, gauge(t, reg, "kpi_refresh_duration_seconds", ""))
}

func TestPushSendsJobGroup(t *testing.T) {
	srv, got := gateway(t, http.StatusOK)

	p := NewPusher(srv.URL, "netsuite_kpi_refresh")
	p.ObserveSuccess(kpi.Summary{Records: 2, OnTime: 1, Pending: 1}, time.Now(), time.Second)
	require.NoError(t, p.Push(context.Background()))

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/metrics/job/netsuite_kpi_refresh", got.path)
	assert.True(t, bytes.Contains(got.body, []byte("kpi_refresh_last_success_timestamp_seconds")))
	assert.True(t, bytes.Contains(got.body, []byte("kpi_refresh_orders")))
}

func TestFailurePushOmitsSuccessMetrics(t *testing.T) {
	srv, got := gateway(t, http.StatusOK)

	p := NewPusher(srv.URL, "netsuite_kpi_refresh")
	p.ObserveFailure(3 * time.Second)
	require.NoError(t, p.Push(context.Background()))

	assert.True(t, bytes.Contains(got.body, []byte("kpi_refresh_success")))
	assert.True(t, bytes.Contains(got.body, []byte("kpi_refresh_duration_seconds")))
	assert.False(t, bytes.Contains(got.body, []byte("kpi_refresh_last_success_timestamp_seconds")))
	assert.False(t, bytes.Contains(got.body, []byte("kpi_refresh_records")))
}

func TestPushGatewayError(t *testing.T) {
	srv, _ := gateway(t, http.StatusInternalServerError)

	p := NewPusher(srv.URL, "netsuite_kpi_refresh")
	p.ObserveFailure(time.Second)
	err := p.Push(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), srv.URL)
}
