package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	stages    *prometheus.CounterVec
	reports   *prometheus.CounterVec
	duration  prometheus.Histogram
	responses *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		stages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "thooimai_stage_total",
			Help: "Pipeline stage executions by outcome.",
		}, []string{"stage", "outcome"}),
		reports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "thooimai_reports_total",
			Help: "Stored reports by extracted priority.",
		}, []string{"priority"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "thooimai_pipeline_duration_seconds",
			Help:    "End to end report assembly latency.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		responses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "thooimai_http_responses_total",
			Help: "HTTP responses by route and status code.",
		}, []string{"route", "code"}),
	}
}

func (m *Metrics) Stage(stage, outcome string) {
	if m == nil {
		return
	}
	m.stages.WithLabelValues(stage, outcome).Inc()
}

func (m *Metrics) Report(priority string) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(priority).Inc()
}

func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) Response(route, code string) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(route, code).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Counter values, mostly for tests.
func (m *Metrics) StageCounter(stage, outcome string) prometheus.Counter {
	return m.stages.WithLabelValues(stage, outcome)
}

func (m *Metrics) ResponseCounter(route, code string) prometheus.Counter {
	return m.responses.WithLabelValues(route, code)
}
