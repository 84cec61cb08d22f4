// Package metrics exposes the service's Prometheus instrumentation:
// query volume by response code, cache effectiveness, rate-limit
// rejections, health-check outcomes and DDNS update activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector the service registers. Callers hold one
// instance and pass it (or the handlers that close over it) to whichever
// component emits that signal.
type Metrics struct {
	QueriesTotal      *prometheus.CounterVec
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter
	RateLimitRejected  prometheus.Counter
	HealthCheckResults *prometheus.CounterVec
	DDNSUpdatesTotal   *prometheus.CounterVec
}

// New registers every collector against reg and returns the handle.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authdns",
			Name:      "queries_total",
			Help:      "DNS queries served, labeled by response code.",
		}, []string{"rcode"}),
		CacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "authdns",
			Name:      "cache_hits_total",
			Help:      "Lookup cache hits.",
		}),
		CacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "authdns",
			Name:      "cache_misses_total",
			Help:      "Lookup cache misses.",
		}),
		RateLimitRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "authdns",
			Name:      "rate_limit_rejected_total",
			Help:      "Queries refused by the per-source rate limiter.",
		}),
		HealthCheckResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authdns",
			Name:      "health_check_results_total",
			Help:      "Health check outcomes, labeled healthy/unhealthy.",
		}, []string{"result"}),
		DDNSUpdatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authdns",
			Name:      "ddns_updates_total",
			Help:      "DDNS update attempts, labeled by outcome.",
		}, []string{"outcome"}),
	}
}
