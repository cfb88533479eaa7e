package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Snapshot is the engine state reported on the operational endpoints.
// The engine supplies it through a callback so this package does not
// import the engine.
type Snapshot struct {
	Groups       int   `json:"groups"`
	ActiveGroups int   `json:"active_groups"`
	CachePresent bool  `json:"cache_present"`
	CacheAgeMS   int64 `json:"cache_age_ms"`
}

// SnapshotFunc returns the current engine state. May be nil.
type SnapshotFunc func() Snapshot

// Server serves /metrics plus the operational endpoints on a port
// separate from the playlist API: /health (liveness and group summary),
// /ready (readiness, gated on the playlist having produced at least one
// group) and /stats (counters plus the engine snapshot).
type Server struct {
	httpServer *http.Server
	stats      *StatsCollector
	snapshot   SnapshotFunc
	ready      atomic.Bool
	started    time.Time
}

func NewServer(port int, stats *StatsCollector, snapshot SnapshotFunc) *Server {
	s := &Server{
		stats:    stats,
		snapshot: snapshot,
		started:  time.Now(),
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/stats", s.handleStats)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start starts the metrics server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// SetReady flips the serving half of readiness. Full readiness also
// requires the engine to know at least one group.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Server) engineState() (Snapshot, bool) {
	if s.snapshot == nil {
		return Snapshot{}, false
	}
	return s.snapshot(), true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status": "healthy",
		"uptime": time.Since(s.started).String(),
	}
	if snap, ok := s.engineState(); ok {
		body["groups"] = snap.Groups
		body["active_groups"] = snap.ActiveGroups
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"reason": "starting",
		})
		return
	}
	if snap, ok := s.engineState(); ok && snap.Groups == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"reason": "no playlist groups loaded",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"counters": s.stats.GetStats(),
	}
	if snap, ok := s.engineState(); ok {
		body["engine"] = snap
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
