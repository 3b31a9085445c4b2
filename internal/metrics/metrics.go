// Package metrics holds the prometheus collectors recorded by the composer.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/deploymenttheory/go-service-composer/internal/common/fsutil"
)

const namespace = "service_composer"

// Metrics is a set of composition collectors bound to one registry. A nil
// *Metrics records nothing.
type Metrics struct {
	registry prometheus.Gatherer

	compositions   *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	statesExplored *prometheus.HistogramVec
	utility        *prometheus.GaugeVec
	cacheRequests  *prometheus.CounterVec
	poolServices   prometheus.Gauge
	candidates     prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg gets
// a fresh private registry.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: reg,
		compositions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compositions_total",
				Help:      "Number of composition requests by strategy and failure kind.",
			},
			[]string{"strategy", "failure"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "composition_duration_seconds",
				Help:      "Time taken to compose a workflow.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
		statesExplored: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "states_explored",
				Help:      "Search iterations spent per composition.",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
			[]string{"strategy"},
		),
		utility: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_utility",
				Help:      "Utility of the last successful composition by strategy.",
			},
			[]string{"strategy"},
		),
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Result cache lookups by outcome.",
			},
			[]string{"outcome"},
		),
		poolServices: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_services",
				Help:      "Number of services in the pool used by the last composition.",
			},
		),
		candidates: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reachable_candidates",
				Help:      "Candidates left after reachability filtering.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
	}

	collectors := []prometheus.Collector{
		m.compositions,
		m.duration,
		m.statesExplored,
		m.utility,
		m.cacheRequests,
		m.poolServices,
		m.candidates,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return m, nil
}

// ObserveComposition records one finished composition.
func (m *Metrics) ObserveComposition(strategy, failure string, success bool, utility float64, states int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.compositions.WithLabelValues(strategy, failure).Inc()
	m.duration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	m.statesExplored.WithLabelValues(strategy).Observe(float64(states))
	if success {
		m.utility.WithLabelValues(strategy).Set(utility)
	}
}

// ObserveFilter records the pool size and the number of candidates kept.
func (m *Metrics) ObserveFilter(poolSize, candidates int) {
	if m == nil {
		return
	}
	m.poolServices.Set(float64(poolSize))
	m.candidates.Observe(float64(candidates))
}

// CacheHit counts a result served from the cache.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("hit").Inc()
}

// CacheMiss counts a cache lookup that fell through to a search.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues("miss").Inc()
}

// WriteTextfile writes every registered metric to path in the text
// exposition format, for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := fsutil.EnsureParentDir(path); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
