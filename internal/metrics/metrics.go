// Package metrics exposes Prometheus instruments for provider calls and
// pipeline stages. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dichai"

type Metrics struct {
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	stageDuration    *prometheus.HistogramVec
	pipelineRuns     *prometheus.CounterVec
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		providerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Model provider calls by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		),
		providerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Latency of model provider calls.",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
			},
			[]string{"provider"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages.",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
			},
			[]string{"stage", "outcome"},
		),
		pipelineRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_runs_total",
				Help:      "Pipeline runs by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
	}
	reg.MustRegister(m.providerRequests, m.providerLatency, m.stageDuration, m.pipelineRuns)
	return m
}

// Outcome maps an error to an "ok"/"error" label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveProvider(provider string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(provider, Outcome(err)).Inc()
	m.providerLatency.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) ObserveStage(stage string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, Outcome(err)).Observe(d.Seconds())
}

func (m *Metrics) CountRun(kind string, err error) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(kind, Outcome(err)).Inc()
}
