package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/formflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "formflow"

// Metrics holds the Prometheus collectors of one process.
type Metrics struct {
	registry *prometheus.Registry

	instancesStarted   *prometheus.CounterVec
	instancesCompleted *prometheus.CounterVec
	instancesStuck     *prometheus.CounterVec
	stepVisits         *prometheus.CounterVec
	navigationDenied   *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewMetrics registers every collector on a fresh registry.
// Go runtime and process collectors are included.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		instancesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_started_total",
			Help:      "Form instances created.",
		}, []string{"form_id"}),
		instancesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_completed_total",
			Help:      "Form instances that reached a terminal step.",
		}, []string{"form_id"}),
		instancesStuck: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_stuck_total",
			Help:      "Submissions that found no eligible transition on a non-terminal step.",
		}, []string{"form_id", "step_code"}),
		stepVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_visits_total",
			Help:      "Steps entered by form instances.",
		}, []string{"form_id", "step_code"}),
		navigationDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigation_denied_total",
			Help:      "Direct step accesses rejected as unreachable.",
		}, []string{"form_id", "step_code"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.instancesStarted,
		m.instancesCompleted,
		m.instancesStuck,
		m.stepVisits,
		m.navigationDenied,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry exposes the underlying registry, e.g. for tests or extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served HTTP request. route is the matched pattern, not the raw path.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Hooks returns lifecycle hooks that update the engine counters.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnInstanceStart: func(_ context.Context, e *domain.InstanceEvent) {
			m.instancesStarted.WithLabelValues(formLabel(e.FormID)).Inc()
		},
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) {
			m.stepVisits.WithLabelValues(formLabel(e.FormID), e.StepCode).Inc()
		},
		OnInstanceComplete: func(_ context.Context, e *domain.InstanceEvent) {
			m.instancesCompleted.WithLabelValues(formLabel(e.FormID)).Inc()
		},
		OnInstanceStuck: func(_ context.Context, e *domain.InstanceEvent) {
			m.instancesStuck.WithLabelValues(formLabel(e.FormID), e.StepCode).Inc()
		},
		OnNavigationDenied: func(_ context.Context, e *domain.StepEvent) {
			m.navigationDenied.WithLabelValues(formLabel(e.FormID), e.StepCode).Inc()
		},
	}
}

func formLabel(id int64) string {
	return strconv.FormatInt(id, 10)
}
