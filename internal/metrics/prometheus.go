package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Render pipeline metrics
	RenderTotal    *prometheus.CounterVec
	RenderDuration prometheus.Histogram
	QueueMessages  *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RenderTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spec_render_total",
				Help: "Render pipeline deliveries by outcome",
			},
			[]string{"outcome"},
		),

		RenderDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "spec_render_duration_seconds",
				Help:    "Time from receive to settle for one delivery",
				Buckets: prometheus.DefBuckets,
			},
		),

		QueueMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spec_queue_messages_total",
				Help: "Change queue messages by settlement",
			},
			[]string{"result"},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spec_http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"method", "path", "status"},
		),
	}
}

// ObserveRender records one settled delivery. Retries are released back to
// the queue; every other outcome is acked.
func (m *Metrics) ObserveRender(outcome string, elapsed time.Duration) {
	m.RenderTotal.WithLabelValues(outcome).Inc()
	m.RenderDuration.Observe(elapsed.Seconds())
	if outcome == "retry" {
		m.QueueMessages.WithLabelValues("released").Inc()
	} else {
		m.QueueMessages.WithLabelValues("acked").Inc()
	}
}

func (m *Metrics) ObserveRequest(method, path string, status int) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}
