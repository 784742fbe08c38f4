// Package metricsvc exposes the application's Prometheus metrics.
package metricsvc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qacenter/qacenter/core/evaluation"
	"github.com/qacenter/qacenter/core/rubric"
)

type Manager struct {
	namespace      string
	scoreBuckets   []float64
	latencyBuckets []float64
	registry       *prometheus.Registry

	evaluationsCreated  *prometheus.CounterVec
	evaluationScore     *prometheus.HistogramVec
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var _ evaluation.Recorder = (*Manager)(nil)

// NewManager registers every metric on its own registry (with Go and process collectors).
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "qa_center",
		scoreBuckets:   []float64{50, 60, 70, 75, 80, 85, 90, 95, 100},
		latencyBuckets: prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	auto := promauto.With(m.registry)
	m.evaluationsCreated = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "evaluations_created_total",
		Help:      "Total number of evaluations stored",
	}, []string{"channel"})

	m.evaluationScore = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "evaluation_score",
		Help:      "Scores of the stored evaluations",
		Buckets:   m.scoreBuckets,
	}, []string{"channel"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   m.latencyBuckets,
	}, []string{"method", "route"})

	return m
}

func (m *Manager) EvaluationCreated(ch rubric.Channel, score float64) {
	m.evaluationsCreated.WithLabelValues(string(ch)).Inc()
	m.evaluationScore.WithLabelValues(string(ch)).Observe(score)
}

// ObserveHTTPRequest records one served request. route is the route pattern, not the raw path.
func (m *Manager) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
