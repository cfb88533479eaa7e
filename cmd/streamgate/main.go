// Package main is the entry point for streamgate.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"streamgate/internal/api"
	"streamgate/internal/config"
	"streamgate/internal/engine"
	"streamgate/internal/logger"
	"streamgate/internal/metrics"
	"streamgate/internal/playlist"
	"streamgate/internal/probe"
)

// Version information set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// playlistReloader reloads the playlist file and pushes it into the engine.
type playlistReloader struct {
	path string
	eng  *engine.Engine
}

func (r *playlistReloader) Reload() error {
	groups, err := playlist.Load(r.path)
	if err != nil {
		return err
	}
	r.eng.UpdateConfig(groups)
	return nil
}

func main() {
	// Optional .env next to the binary; system env and flags still win.
	_ = godotenv.Load()

	cfg, err := config.ParseFlags()
	if err != nil {
		logger.Error("failed to parse configuration", "error", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)
	logger.Info("streamgate starting",
		"version", version,
		"commit", commit,
		"date", date,
		"playlist", cfg.PlaylistPath,
		"port", cfg.Port,
		"metrics_port", cfg.MetricsPort,
	)

	// Create components
	stats := metrics.NewStatsCollector()
	prober := probe.NewHTTPProber(cfg.ProbeTimeout, cfg.UserAgent)
	eng := engine.New(engine.Config{
		Prober:      prober,
		Concurrency: cfg.ProbeConcurrency,
		CacheTTL:    cfg.CacheTTL,
		Stats:       stats,
	})

	reloader := &playlistReloader{path: cfg.PlaylistPath, eng: eng}
	if err := reloader.Reload(); err != nil {
		logger.Error("failed to load playlist", "error", err)
		os.Exit(1)
	}

	monitor := engine.NewMonitor(eng, cfg.MonitorInterval)
	monitor.Start()

	// Watch the playlist file for changes
	var watcher *config.PlaylistWatcher
	if cfg.WatchPlaylist {
		var watcherErr error
		watcher, watcherErr = config.NewPlaylistWatcher(cfg.PlaylistPath, func() {
			if reloadErr := reloader.Reload(); reloadErr != nil {
				logger.Error("playlist_reload_failed", "error", reloadErr)
			}
		})
		if watcherErr != nil {
			logger.Error("failed to create playlist watcher", "error", watcherErr)
		} else if startErr := watcher.Start(); startErr != nil {
			logger.Error("failed to start playlist watcher", "error", startErr)
			watcher = nil
		}
	}

	// Create servers
	apiServer := api.NewServer(cfg.Port, eng, reloader)
	metricsServer := metrics.NewServer(cfg.MetricsPort, stats, func() metrics.Snapshot {
		st := eng.GetStatus()
		return metrics.Snapshot{
			Groups:       len(st.Groups),
			ActiveGroups: st.ActiveGroups,
			CachePresent: st.CachePresent,
			CacheAgeMS:   st.CacheAgeMS,
		}
	})

	// Start metrics server
	go func() {
		logger.Info("starting metrics server", "port", cfg.MetricsPort)
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Start API server
	go func() {
		logger.Info("starting api server", "port", cfg.Port)
		metricsServer.SetReady(true)
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server error", "error", err)
			os.Exit(1)
		}
	}()

	// Set up signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigCh

		// SIGHUP forces a manual reload: playlist, and log settings
		// from the config file when one is in use
		if sig == syscall.SIGHUP {
			logger.Info("received SIGHUP, reloading")
			if cfg.ConfigFile != "" {
				if fileCfg, cfgErr := config.LoadFromFile(cfg.ConfigFile); cfgErr != nil {
					logger.Error("config file reload failed", "error", cfgErr)
				} else {
					logger.Reconfigure(fileCfg.LogLevel, fileCfg.LogFormat)
				}
			}
			if reloadErr := reloader.Reload(); reloadErr != nil {
				logger.Error("playlist reload failed", "error", reloadErr)
			}
			continue
		}

		// SIGINT or SIGTERM - shutdown
		logger.Info("received shutdown signal", "signal", sig)
		break
	}

	// Graceful shutdown
	if watcher != nil {
		watcher.Stop()
	}

	metricsServer.SetReady(false)
	monitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("api server shutdown error", "error", err)
	}

	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
	}

	logger.Info("streamgate stopped")
}
