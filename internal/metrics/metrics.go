package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/ignite/netsuite-kpi/internal/kpi"
)

// Pusher reports the outcome of one refresh run to a Prometheus Pushgateway.
// A batch job has no scrape endpoint, so metrics are pushed once at exit.
type Pusher struct {
	url string
	job string
	reg *prometheus.Registry

	lastSuccess prometheus.Gauge
	records     prometheus.Gauge
	orders      *prometheus.GaugeVec
	duration    prometheus.Gauge
	success     prometheus.Gauge
}

// NewPusher registers the run metrics on a private registry.
func NewPusher(url, job string) *Pusher {
	p := &Pusher{
		url: url,
		job: job,
		reg: prometheus.NewRegistry(),
	}
	p.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kpi_refresh",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful snapshot write",
	})
	p.records = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kpi_refresh",
		Name:      "records",
		Help:      "Sales orders written to the last snapshot",
	})
	p.orders = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "kpi_refresh",
		Name:      "orders",
		Help:      "Sales orders in the last snapshot by delivery status",
	}, []string{"status"})
	p.duration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kpi_refresh",
		Name:      "duration_seconds",
		Help:      "Wall time of the last run",
	})
	p.success = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "kpi_refresh",
		Name:      "success",
		Help:      "1 if the last run wrote a snapshot, 0 otherwise",
	})

	p.reg.MustRegister(p.lastSuccess, p.records, p.orders, p.duration, p.success)
	return p
}

// Registry exposes the underlying registry, for tests and extra collectors.
func (p *Pusher) Registry() *prometheus.Registry { return p.reg }

// ObserveSuccess records a run that wrote a snapshot.
func (p *Pusher) ObserveSuccess(s kpi.Summary, finished time.Time, elapsed time.Duration) {
	p.success.Set(1)
	p.lastSuccess.Set(float64(finished.Unix()))
	p.records.Set(float64(s.Records))
	p.orders.WithLabelValues("on_time").Set(float64(s.OnTime))
	p.orders.WithLabelValues("late").Set(float64(s.Late))
	p.orders.WithLabelValues("pending").Set(float64(s.Pending))
	p.duration.Set(elapsed.Seconds())
}

// ObserveFailure records a failed run. The last-success timestamp is left
// out of the push so the gateway keeps the previous value.
func (p *Pusher) ObserveFailure(elapsed time.Duration) {
	p.success.Set(0)
	p.duration.Set(elapsed.Seconds())
	p.reg.Unregister(p.lastSuccess)
	p.reg.Unregister(p.records)
	p.reg.Unregister(p.orders)
}

// Push sends the gathered metrics. It uses POST semantics so metrics
// missing from this push keep their previous values on the gateway.
func (p *Pusher) Push(ctx context.Context) error {
	if err := push.New(p.url, p.job).Gatherer(p.reg).AddContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", p.url, err)
	}
	return nil
}
