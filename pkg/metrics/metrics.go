// Package metrics provides Prometheus metrics for a runtime.
//
// Each Collector owns its registry, so several runtimes in one process do not
// collide. A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "schemaui"

// Reconciliation outcomes.
const (
	OutcomeReused   = "reused"
	OutcomeReplaced = "replaced"
	OutcomeInserted = "inserted"
	OutcomeRemoved  = "removed"
)

// Collector holds the metrics of one runtime.
type Collector struct {
	registry *prometheus.Registry

	ContextsCreated   prometheus.Counter
	ContextsDestroyed prometheus.Counter
	ContextsLive      prometheus.Gauge

	Reconciled      *prometheus.CounterVec
	ReactionRuns    *prometheus.CounterVec
	ModuleLoads     *prometheus.CounterVec
	ChannelMessages prometheus.Counter
	InitDuration    prometheus.Histogram
}

// New creates a collector with all metrics registered on a new registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		ContextsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "contexts_created_total",
			Help:      "Total number of contexts built",
		}),
		ContextsDestroyed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "contexts_destroyed_total",
			Help:      "Total number of contexts destroyed",
		}),
		ContextsLive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "contexts_live",
			Help:      "Number of contexts currently alive",
		}),
		Reconciled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reconciled_total",
			Help:      "Segment positions reconciled, by outcome",
		}, []string{"outcome"}),
		ReactionRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reaction_runs_total",
			Help:      "Reaction re-runs, by result",
		}, []string{"result"}),
		ModuleLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "module_loads_total",
			Help:      "Module loads, by cache result",
		}, []string{"result"}),
		ChannelMessages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "channel_deliveries_total",
			Help:      "Channel handler invocations",
		}),
		InitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "init_hooks_duration_seconds",
			Help:      "Time spent running a batch of init hooks",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ContextCreated records a built context.
func (c *Collector) ContextCreated() {
	if c == nil {
		return
	}
	c.ContextsCreated.Inc()
	c.ContextsLive.Inc()
}

// ContextDestroyed records a destroyed context.
func (c *Collector) ContextDestroyed() {
	if c == nil {
		return
	}
	c.ContextsDestroyed.Inc()
	c.ContextsLive.Dec()
}

// Reconcile records n positions with the given outcome.
func (c *Collector) Reconcile(outcome string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.Reconciled.WithLabelValues(outcome).Add(float64(n))
}

// ReactionRun records a reaction re-run.
func (c *Collector) ReactionRun(failed bool) {
	if c == nil {
		return
	}
	result := "ok"
	if failed {
		result = "failed"
	}
	c.ReactionRuns.WithLabelValues(result).Inc()
}

// ModuleLoad records a module load.
func (c *Collector) ModuleLoad(cached bool, err error) {
	if c == nil {
		return
	}
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case cached:
		result = "hit"
	}
	c.ModuleLoads.WithLabelValues(result).Inc()
}

// ChannelDelivered records n channel handler invocations.
func (c *Collector) ChannelDelivered(n int) {
	if c == nil || n == 0 {
		return
	}
	c.ChannelMessages.Add(float64(n))
}

// ObserveInit records how long an init batch took.
func (c *Collector) ObserveInit(d time.Duration) {
	if c == nil {
		return
	}
	c.InitDuration.Observe(d.Seconds())
}
