package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the console process.
type Metrics struct {
	// Session metrics
	SignIns       prometheus.Counter
	SignInFailure prometheus.Counter
	Logouts       prometheus.Counter
	Restorations  *prometheus.CounterVec

	// Backend metrics
	BackendLatency *prometheus.HistogramVec
	FetchFailures  *prometheus.CounterVec
	BreakerOpen    prometheus.Gauge
	DiscardedLoads prometheus.Counter
}

// New creates the console metrics and registers them on reg. Passing a fresh
// registry keeps tests independent of the process-wide default.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SignIns: factory.NewCounter(prometheus.CounterOpts{
			Name: "coopconsole_sign_ins_total",
			Help: "Total number of successful sign-ins",
		}),
		SignInFailure: factory.NewCounter(prometheus.CounterOpts{
			Name: "coopconsole_sign_in_failures_total",
			Help: "Total number of rejected sign-in attempts",
		}),
		Logouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "coopconsole_logouts_total",
			Help: "Total number of logouts, including forced ones",
		}),
		Restorations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coopconsole_session_restorations_total",
			Help: "Session restoration attempts on startup, labeled by outcome",
		}, []string{"outcome"}),
		BackendLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coopconsole_backend_latency_seconds",
			Help:    "Latency of backend calls in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coopconsole_fetch_failures_total",
			Help: "Failed backend calls, labeled by endpoint and error code",
		}, []string{"endpoint", "code"}),
		BreakerOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coopconsole_backend_breaker_open",
			Help: "1 while the backend circuit breaker is open",
		}),
		DiscardedLoads: factory.NewCounter(prometheus.CounterOpts{
			Name: "coopconsole_discarded_loads_total",
			Help: "Fetch results dropped because the screen was torn down or superseded",
		}),
	}
}

// RecordRestoration increments the restoration counter for outcome.
func (m *Metrics) RecordRestoration(outcome string) {
	if m == nil {
		return
	}
	m.Restorations.WithLabelValues(outcome).Inc()
}

// ObserveBackend records latency for a backend endpoint.
func (m *Metrics) ObserveBackend(endpoint string, seconds float64) {
	if m == nil {
		return
	}
	m.BackendLatency.WithLabelValues(endpoint).Observe(seconds)
}

// IncFetchFailure records a failed backend call.
func (m *Metrics) IncFetchFailure(endpoint, code string) {
	if m == nil {
		return
	}
	m.FetchFailures.WithLabelValues(endpoint, code).Inc()
}

// SetBreakerOpen reflects the breaker state.
func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}

// IncSignIn records a sign-in outcome.
func (m *Metrics) IncSignIn(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.SignIns.Inc()
		return
	}
	m.SignInFailure.Inc()
}

// IncLogout records a logout.
func (m *Metrics) IncLogout() {
	if m == nil {
		return
	}
	m.Logouts.Inc()
}

// IncDiscarded records a dropped late fetch result.
func (m *Metrics) IncDiscarded() {
	if m == nil {
		return
	}
	m.DiscardedLoads.Inc()
}
