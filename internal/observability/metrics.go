package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the gateway.
type Metrics struct {
	RequestsTotal  *prometheus.CounterVec
	PipelineStages *prometheus.CounterVec
	ProviderErrors *prometheus.CounterVec
	StageLatency   *prometheus.HistogramVec
	ActiveSessions prometheus.Gauge

	// Window keeps exact recent per-stage quantiles for the stats endpoint.
	Window *StageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Window: NewStageWindow(256),
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		PipelineStages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_stages_total",
			Help:      "Pipeline stage executions by stage and outcome.",
		}, []string{"stage", "outcome"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Collaborator failures by stage and error code.",
		}, []string{"stage", "code"}),
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_ms",
			Help:      "Collaborator call latency per stage in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"stage"}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently holding conversation history.",
		}),
	}
}

func (m *Metrics) ObserveStage(stage string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ms := float64(time.Since(start).Milliseconds())
	m.PipelineStages.WithLabelValues(stage, outcome).Inc()
	m.StageLatency.WithLabelValues(stage).Observe(ms)
	m.Window.Observe(stage, ms)
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
