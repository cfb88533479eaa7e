// Package metrics provides Prometheus metrics for the stream checker.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProbesTotal counts liveness probes by result.
	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_probes_total",
		Help: "Total liveness probes by result",
	}, []string{"result"}) // result: "working" or "dead"

	// ProbeDuration tracks probe duration in seconds.
	ProbeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "streamgate_probe_duration_seconds",
		Help:    "Liveness probe duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	// FullPassesTotal counts completed full verification passes.
	FullPassesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamgate_full_passes_total",
		Help: "Total completed full verification passes",
	})

	// FullPassDuration tracks full pass duration in seconds.
	FullPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "streamgate_full_pass_duration_seconds",
		Help:    "Full verification pass duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
	})

	// CacheHits counts selection cache hits.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamgate_cache_hits_total",
		Help: "Total selection cache hits",
	})

	// CacheMisses counts selection cache misses.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamgate_cache_misses_total",
		Help: "Total selection cache misses",
	})

	// FailoversTotal counts index advances by group.
	FailoversTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_failovers_total",
		Help: "Total failovers by channel group",
	}, []string{"group"})

	// ActiveGroups tracks groups with a believed-working candidate.
	ActiveGroups = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamgate_active_groups",
		Help: "Channel groups with a believed-working candidate",
	})

	// TotalGroups tracks all configured non-empty groups.
	TotalGroups = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamgate_total_groups",
		Help: "Configured non-empty channel groups",
	})

	// MonitorCyclesTotal counts background monitor cycles.
	MonitorCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamgate_monitor_cycles_total",
		Help: "Total background monitor cycles",
	})

	// ReloadsTotal counts playlist reloads.
	ReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamgate_reloads_total",
		Help: "Total playlist reloads",
	})
)

// Stats holds runtime statistics for the /stats endpoint.
type Stats struct {
	ProbesTotal   int64     `json:"probes_total"`
	ProbesFailed  int64     `json:"probes_failed"`
	FullPasses    int64     `json:"full_passes"`
	Failovers     int64     `json:"failovers"`
	CacheHits     int64     `json:"cache_hits"`
	CacheMisses   int64     `json:"cache_misses"`
	Reloads       int64     `json:"reloads"`
	LastPass      time.Time `json:"last_pass,omitempty"`
	MonitorCycles int64     `json:"monitor_cycles"`
}

// StatsCollector collects runtime statistics.
type StatsCollector struct {
	probesTotal   atomic.Int64
	probesFailed  atomic.Int64
	fullPasses    atomic.Int64
	failovers     atomic.Int64
	cacheHits     atomic.Int64
	cacheMisses   atomic.Int64
	reloads       atomic.Int64
	monitorCycles atomic.Int64
	lastPassUnix  atomic.Int64
}

// NewStatsCollector creates a new stats collector.
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{}
}

// RecordProbe records one probe outcome.
func (sc *StatsCollector) RecordProbe(ok bool) {
	sc.probesTotal.Add(1)
	if !ok {
		sc.probesFailed.Add(1)
	}
}

// RecordFullPass records a completed full pass.
func (sc *StatsCollector) RecordFullPass() {
	sc.fullPasses.Add(1)
	sc.lastPassUnix.Store(time.Now().Unix())
}

// RecordFailover records an index advance.
func (sc *StatsCollector) RecordFailover() {
	sc.failovers.Add(1)
}

// RecordCacheHit records a selection cache hit.
func (sc *StatsCollector) RecordCacheHit() {
	sc.cacheHits.Add(1)
}

// RecordCacheMiss records a selection cache miss.
func (sc *StatsCollector) RecordCacheMiss() {
	sc.cacheMisses.Add(1)
}

// RecordReload records a playlist reload.
func (sc *StatsCollector) RecordReload() {
	sc.reloads.Add(1)
}

// RecordMonitorCycle records one background monitor cycle.
func (sc *StatsCollector) RecordMonitorCycle() {
	sc.monitorCycles.Add(1)
}

// GetStats returns a snapshot of the current statistics.
func (sc *StatsCollector) GetStats() Stats {
	s := Stats{
		ProbesTotal:   sc.probesTotal.Load(),
		ProbesFailed:  sc.probesFailed.Load(),
		FullPasses:    sc.fullPasses.Load(),
		Failovers:     sc.failovers.Load(),
		CacheHits:     sc.cacheHits.Load(),
		CacheMisses:   sc.cacheMisses.Load(),
		Reloads:       sc.reloads.Load(),
		MonitorCycles: sc.monitorCycles.Load(),
	}
	if unix := sc.lastPassUnix.Load(); unix > 0 {
		s.LastPass = time.Unix(unix, 0)
	}
	return s
}
