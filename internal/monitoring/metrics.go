package monitoring

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"
)

const jobName = "auction_watch"

// Metrics holds the counters of a single run. Each run owns its registry so
// pushed values never mix with another run's.
type Metrics struct {
	registry *prometheus.Registry

	RowsTotal   *prometheus.CounterVec
	AlertsTotal *prometheus.CounterVec
	RunDuration prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_watch_rows_total",
			Help: "Rows handled in the run, by outcome",
		}, []string{"status"}), // updated, skipped, failed
		AlertsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_watch_alerts_total",
			Help: "Closing-soon alerts attempted, by result",
		}, []string{"result"}), // sent, failed
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "auction_watch_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
	}
}

func (m *Metrics) IncRows(status string) {
	if m == nil {
		return
	}
	m.RowsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncAlerts(result string) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRun(seconds float64) {
	if m == nil {
		return
	}
	m.RunDuration.Set(seconds)
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push sends the run's metrics to a Pushgateway. An empty url is a no-op.
func (m *Metrics) Push(ctx context.Context, url string) error {
	if m == nil || url == "" {
		return nil
	}
	err := push.New(url, jobName).Gatherer(m.registry).PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	log.Debug().Str("gateway", url).Msg("Metrics pushed")
	return nil
}
