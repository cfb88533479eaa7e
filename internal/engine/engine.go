// Package engine implements the stream liveness checking and failover core:
// per-group candidate lists with sticky current indices, a TTL cache of the
// last known good selection, a single-flight full verification pass over a
// bounded probe pool, and a slow background monitor of current selections.
package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"streamgate/internal/logger"
	"streamgate/internal/metrics"
	"streamgate/internal/playlist"
	"streamgate/internal/probe"
)

// DefaultConcurrency bounds parallel probes during a pass. Deliberately low
// to avoid hammering upstream providers.
const DefaultConcurrency = 3

// Config holds engine configuration.
type Config struct {
	Prober      probe.Prober
	Concurrency int
	CacheTTL    time.Duration
	Stats       *metrics.StatsCollector
}

// Engine owns all checker state. All mutation goes through its methods;
// its three locks (store, cache, checking flag) are independent and never
// nested, and no probe ever runs while one is held.
type Engine struct {
	store       *GroupStore
	cache       *selectionCache
	prober      probe.Prober
	concurrency int
	stats       *metrics.StatsCollector

	// checking is true while one full pass is in flight.
	checkMu  sync.Mutex
	checking bool
}

// New creates an Engine with an empty group store.
func New(cfg Config) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Stats == nil {
		cfg.Stats = metrics.NewStatsCollector()
	}
	return &Engine{
		store:       NewGroupStore(),
		cache:       newSelectionCache(cfg.CacheTTL),
		prober:      cfg.Prober,
		concurrency: cfg.Concurrency,
		stats:       cfg.Stats,
	}
}

// ActiveStreams returns the current best known live candidate per group.
// A fresh cache is served as is; otherwise one full pass runs and its
// result is returned. Groups with no working candidate are absent.
func (e *Engine) ActiveStreams() map[string]playlist.Entry {
	if selection, ok := e.cache.Read(); ok {
		e.stats.RecordCacheHit()
		metrics.CacheHits.Inc()
		return selection
	}
	e.stats.RecordCacheMiss()
	metrics.CacheMisses.Inc()
	return e.RunFullPass(context.Background())
}

// MarkFailed advances the group's current index and invalidates the cache
// so the next read reselects from the new position. Unknown groups are a
// no-op. Safe to call repeatedly.
func (e *Engine) MarkFailed(name string) {
	oldIdx, newIdx, ok := e.store.Advance(name)
	if !ok {
		logger.Debug("failover_unknown_group", "group", name)
		return
	}
	e.cache.Invalidate()

	e.stats.RecordFailover()
	metrics.FailoversTotal.WithLabelValues(name).Inc()
	logger.LogFailover(name, oldIdx, newIdx)
}

// UpdateConfig replaces the candidate lists, optimistically populates the
// cache with each group's untested current candidate, and kicks off a real
// verification pass in the background.
func (e *Engine) UpdateConfig(newGroups map[string][]playlist.Entry) {
	e.store.Replace(newGroups)
	e.populateOptimistic()

	e.stats.RecordReload()
	metrics.ReloadsTotal.Inc()
	metrics.TotalGroups.Set(float64(e.store.Len()))
	logger.Info("config_updated", "groups", e.store.Len())

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("full_pass_panic", "panic", r)
			}
		}()
		e.RunFullPass(context.Background())
	}()
}

// populateOptimistic fills the cache with the candidate at every group's
// current index, untested, so readers get a plausible answer with zero
// latency while the real pass runs.
func (e *Engine) populateOptimistic() {
	selection := e.store.Selected()
	e.cache.Write(selection)
	logger.Debug("cache_populated_optimistic", "groups", len(selection))
}

// RunFullPass probes every candidate in every group and reselects. At most
// one pass runs at a time; a caller that loses the race immediately gets
// the cache's current contents, fresh or not, instead of a second pass.
func (e *Engine) RunFullPass(ctx context.Context) map[string]playlist.Entry {
	e.checkMu.Lock()
	if e.checking {
		e.checkMu.Unlock()
		logger.Debug("full_pass_already_running")
		return e.cache.Contents()
	}
	e.checking = true
	e.checkMu.Unlock()

	// Must never leak: a stuck flag would starve every future pass.
	defer func() {
		e.checkMu.Lock()
		e.checking = false
		e.checkMu.Unlock()
	}()

	start := time.Now()
	snapshot := e.store.Snapshot()
	results := e.probeAll(ctx, snapshot)

	selection := make(map[string]playlist.Entry, len(snapshot))
	for name, g := range snapshot {
		idx, ok := selectWorking(g.Index, results[name])
		if !ok {
			logger.Warn("no_working_candidate", "group", name, "candidates", len(g.Entries))
			continue
		}
		e.store.SetIndex(name, idx)
		selection[name] = g.Entries[idx]
		logger.LogSelection(name, g.Entries[idx].URL, idx, len(g.Entries))
	}
	e.cache.Write(selection)

	e.stats.RecordFullPass()
	metrics.FullPassesTotal.Inc()
	metrics.FullPassDuration.Observe(time.Since(start).Seconds())
	metrics.ActiveGroups.Set(float64(len(selection)))
	logger.Info("full_pass_complete",
		"groups", len(snapshot),
		"active", len(selection),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return selection
}

// probeAll runs one probe per candidate across all groups with bounded
// parallelism and waits for every result. Every slot is pre-allocated to
// false, so a probe that panics still yields a deterministic "not working"
// for that candidate alone.
func (e *Engine) probeAll(ctx context.Context, snapshot map[string]GroupSnapshot) map[string][]bool {
	results := make(map[string][]bool, len(snapshot))
	for name, g := range snapshot {
		results[name] = make([]bool, len(g.Entries))
	}

	var grp errgroup.Group
	grp.SetLimit(e.concurrency)
	for name, g := range snapshot {
		name := name
		slots := results[name]
		for i, entry := range g.Entries {
			i, entry := i, entry
			grp.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("probe_panic", "group", name, "index", i, "panic", r)
					}
				}()
				ok := e.prober.Probe(ctx, entry.URL)
				e.stats.RecordProbe(ok)
				slots[i] = ok
				return nil
			})
		}
	}
	grp.Wait()
	return results
}

// selectWorking picks the first working candidate in round-robin order from
// the current index, wrapping once. The index only moves off a candidate
// that actually failed its check.
func selectWorking(start int, results []bool) (int, bool) {
	n := len(results)
	if n == 0 {
		return 0, false
	}
	if start < 0 || start >= n {
		start = 0
	}
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if results[idx] {
			return idx, true
		}
	}
	return 0, false
}

// GroupStatus describes one group for the status endpoint.
type GroupStatus struct {
	Group      string `json:"group"`
	Candidates int    `json:"candidates"`
	Index      int    `json:"index"`
	Active     bool   `json:"active"`
	ActiveURL  string `json:"active_url,omitempty"`
}

// Status describes the engine for the status endpoint.
type Status struct {
	Groups       []GroupStatus `json:"groups"`
	ActiveGroups int           `json:"active_groups"`
	CacheAgeMS   int64         `json:"cache_age_ms"`
	CachePresent bool          `json:"cache_present"`
}

// GetStatus reports per-group and cache state without probing anything.
func (e *Engine) GetStatus() Status {
	snapshot := e.store.Snapshot()
	current := e.cache.Contents()

	st := Status{Groups: make([]GroupStatus, 0, len(snapshot))}
	for name, g := range snapshot {
		gs := GroupStatus{
			Group:      name,
			Candidates: len(g.Entries),
			Index:      g.Index,
		}
		if entry, ok := current[name]; ok {
			gs.Active = true
			gs.ActiveURL = entry.URL
			st.ActiveGroups++
		}
		st.Groups = append(st.Groups, gs)
	}
	sort.Slice(st.Groups, func(i, j int) bool { return st.Groups[i].Group < st.Groups[j].Group })
	if age, ok := e.cache.Age(); ok {
		st.CacheAgeMS = age.Milliseconds()
		st.CachePresent = true
	}
	return st
}
