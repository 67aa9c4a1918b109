package world

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes manager activity as Prometheus metrics. Each collector
// owns its registry so several managers can live in one process.
type Collector struct {
	registry *prometheus.Registry

	eventsIngested     *prometheus.CounterVec
	eventsFailed       *prometheus.CounterVec
	snapshotsDerived   prometheus.Counter
	delayedApplied     prometheus.Counter
	delayedPending     prometheus.Gauge
	arrestedEntities   prometheus.Gauge
	materializedFrames prometheus.Gauge
}

// NewCollector creates a collector and registers its metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		eventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_events_ingested_total",
			Help: "Events ingested, by payload kind",
		}, []string{"kind"}),
		eventsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_events_failed_total",
			Help: "Events rejected or failed, by payload kind",
		}, []string{"kind"}),
		snapshotsDerived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triage_snapshots_derived_total",
			Help: "Snapshots computed or recomputed",
		}),
		delayedApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "triage_delayed_actions_applied_total",
			Help: "Delayed actions applied once due",
		}),
		delayedPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "triage_delayed_actions_pending",
			Help: "Delayed actions waiting for their due time",
		}),
		arrestedEntities: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "triage_entities_arrested",
			Help: "Entities in cardiac arrest at their latest snapshot",
		}),
		materializedFrames: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "triage_snapshots_materialized",
			Help: "Snapshots held across all timelines",
		}),
	}

	c.registry.MustRegister(
		c.eventsIngested,
		c.eventsFailed,
		c.snapshotsDerived,
		c.delayedApplied,
		c.delayedPending,
		c.arrestedEntities,
		c.materializedFrames,
	)
	return c
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// The Record methods are no-ops on a nil collector so the manager can run
// without metrics.

// RecordIngested counts a successfully ingested event.
func (c *Collector) RecordIngested(kind PayloadKind) {
	if c == nil {
		return
	}
	c.eventsIngested.WithLabelValues(string(kind)).Inc()
}

// RecordFailed counts a rejected event.
func (c *Collector) RecordFailed(kind PayloadKind) {
	if c == nil {
		return
	}
	c.eventsFailed.WithLabelValues(string(kind)).Inc()
}

// RecordDerived counts n derived snapshots.
func (c *Collector) RecordDerived(n int) {
	if c == nil {
		return
	}
	c.snapshotsDerived.Add(float64(n))
}

// RecordApplied counts a delayed action applied.
func (c *Collector) RecordApplied() {
	if c == nil {
		return
	}
	c.delayedApplied.Inc()
}

// UpdateWorldStats sets the instantaneous gauges.
func (c *Collector) UpdateWorldStats(pending, arrested, snapshots int) {
	if c == nil {
		return
	}
	c.delayedPending.Set(float64(pending))
	c.arrestedEntities.Set(float64(arrested))
	c.materializedFrames.Set(float64(snapshots))
}
