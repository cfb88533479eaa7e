// Package api exposes the HTTP surface: the active playlist, a JSON view
// of the current selection, a failover trigger and a manual reload hook.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"streamgate/internal/engine"
	"streamgate/internal/logger"
	"streamgate/internal/playlist"
)

const playlistContentType = "application/vnd.apple.mpegurl"

// Reloader reloads the playlist and pushes it into the engine.
type Reloader interface {
	Reload() error
}

// Server is the API HTTP server.
type Server struct {
	engine     *engine.Engine
	reloader   Reloader
	httpServer *http.Server
}

// NewServer creates the API server on the given port.
func NewServer(port int, eng *engine.Engine, reloader Reloader) *Server {
	s := &Server{
		engine:   eng,
		reloader: reloader,
	}

	r := chi.NewRouter()
	r.Use(logger.RequestLogger())
	r.Get("/playlist.m3u8", s.handlePlaylist)
	r.Route("/api", func(r chi.Router) {
		r.Get("/streams", s.handleStreams)
		r.Get("/status", s.handleStatus)
		r.Post("/streams/{group}/failed", s.handleMarkFailed)
		r.Post("/reload", s.handleReload)
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // a cold cache read may wait on a full pass
	}

	return s
}

// Start starts the API server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handlePlaylist serves the active selection as an M3U playlist. Groups
// with no working candidate are simply absent.
func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	selection := s.engine.ActiveStreams()

	w.Header().Set("Content-Type", playlistContentType)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(playlist.Render(selection)))
}

// handleStreams serves the active selection as JSON.
func (s *Server) handleStreams(w http.ResponseWriter, r *http.Request) {
	selection := s.engine.ActiveStreams()
	writeJSON(w, http.StatusOK, selection)
}

// handleStatus serves per-group engine state without triggering probes.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.GetStatus())
}

// handleMarkFailed advances the group's failover index. Unknown groups are
// accepted and ignored; the call is idempotent-safe.
func (s *Server) handleMarkFailed(w http.ResponseWriter, r *http.Request) {
	group, err := url.PathUnescape(chi.URLParam(r, "group"))
	if err != nil || group == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.engine.MarkFailed(playlist.CanonicalName(group))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "group": group})
}

// handleReload reloads the playlist from disk.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.reloader == nil {
		w.WriteHeader(http.StatusNotImplemented)
		return
	}

	if err := s.reloader.Reload(); err != nil {
		logger.LogError("manual_reload", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
