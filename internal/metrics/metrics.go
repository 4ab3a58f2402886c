// Package metrics exposes CampusConnect counters to Prometheus. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "campusconnect"

type Metrics struct {
	registry     *prometheus.Registry
	signups      *prometheus.CounterVec
	logins       *prometheus.CounterVec
	cityLookups  *prometheus.CounterVec
	feedWatchers prometheus.Gauge
}

// New registers all collectors, plus Go runtime and process collectors, on a
// fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signup_submissions_total",
			Help:      "Signup submissions by result.",
		}, []string{"result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by method and result.",
		}, []string{"method", "result"}),
		cityLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "city_lookups_total",
			Help:      "City directory lookups by source of the returned list.",
		}, []string{"source"}),
		feedWatchers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_watchers",
			Help:      "Open event feed streams.",
		}),
	}
	m.registry.MustRegister(
		m.signups,
		m.logins,
		m.cityLookups,
		m.feedWatchers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Signup(result string) {
	if m == nil {
		return
	}
	m.signups.WithLabelValues(result).Inc()
}

func (m *Metrics) Login(method, result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(method, result).Inc()
}

func (m *Metrics) CityLookup(source string) {
	if m == nil {
		return
	}
	m.cityLookups.WithLabelValues(source).Inc()
}

func (m *Metrics) FeedWatchers(n int) {
	if m == nil {
		return
	}
	m.feedWatchers.Set(float64(n))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
