package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.MetricsPort != 9090 {
		t.Errorf("expected default metrics port 9090, got %d", cfg.MetricsPort)
	}
	if cfg.ProbeTimeout != 10*time.Second {
		t.Errorf("expected default probe timeout 10s, got %v", cfg.ProbeTimeout)
	}
	if cfg.ProbeConcurrency != 3 {
		t.Errorf("expected default probe concurrency 3, got %d", cfg.ProbeConcurrency)
	}
	if cfg.CacheTTL != 300*time.Second {
		t.Errorf("expected default cache TTL 300s, got %v", cfg.CacheTTL)
	}
	if cfg.MonitorInterval != 60*time.Second {
		t.Errorf("expected default monitor interval 60s, got %v", cfg.MonitorInterval)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("expected default log format 'json', got %s", cfg.LogFormat)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) { c.PlaylistPath = "channels.m3u" },
			wantErr: false,
		},
		{
			name:    "no playlist",
			modify:  func(c *Config) {},
			wantErr: true,
		},
		{
			name:    "invalid port - zero",
			modify:  func(c *Config) { c.PlaylistPath = "channels.m3u"; c.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port - too high",
			modify:  func(c *Config) { c.PlaylistPath = "channels.m3u"; c.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "same port for API and metrics",
			modify:  func(c *Config) { c.PlaylistPath = "channels.m3u"; c.Port = 9090 },
			wantErr: true,
		},
		{
			name:    "zero probe timeout",
			modify:  func(c *Config) { c.PlaylistPath = "channels.m3u"; c.ProbeTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "zero probe concurrency",
			modify:  func(c *Config) { c.PlaylistPath = "channels.m3u"; c.ProbeConcurrency = 0 },
			wantErr: true,
		},
		{
			name:    "zero cache TTL",
			modify:  func(c *Config) { c.PlaylistPath = "channels.m3u"; c.CacheTTL = 0 },
			wantErr: true,
		},
		{
			name:    "zero monitor interval",
			modify:  func(c *Config) { c.PlaylistPath = "channels.m3u"; c.MonitorInterval = 0 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.PlaylistPath = "channels.m3u"; c.LogLevel = "verbose" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			modify:  func(c *Config) { c.PlaylistPath = "channels.m3u"; c.LogFormat = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
playlist: /data/channels.m3u
port: 9000
probe_timeout: 5s
probe_concurrency: 10
cache_ttl: 2m
log_level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.PlaylistPath != "/data/channels.m3u" {
		t.Errorf("expected playlist path from file, got %q", cfg.PlaylistPath)
	}
	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.ProbeTimeout != 5*time.Second {
		t.Errorf("expected probe timeout 5s, got %v", cfg.ProbeTimeout)
	}
	if cfg.ProbeConcurrency != 10 {
		t.Errorf("expected probe concurrency 10, got %d", cfg.ProbeConcurrency)
	}
	if cfg.CacheTTL != 2*time.Minute {
		t.Errorf("expected cache TTL 2m, got %v", cfg.CacheTTL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.LogLevel)
	}
	// Unset fields keep their defaults.
	if cfg.MetricsPort != 9090 {
		t.Errorf("expected default metrics port, got %d", cfg.MetricsPort)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFromFile_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("playlist: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STREAMGATE_PLAYLIST", "/env/channels.m3u")
	t.Setenv("STREAMGATE_PROBE_CONCURRENCY", "7")
	t.Setenv("STREAMGATE_CACHE_TTL", "90s")
	t.Setenv("STREAMGATE_WATCH_PLAYLIST", "false")

	cfg := DefaultConfig()
	loadFromEnv(cfg)

	if cfg.PlaylistPath != "/env/channels.m3u" {
		t.Errorf("expected playlist from env, got %q", cfg.PlaylistPath)
	}
	if cfg.ProbeConcurrency != 7 {
		t.Errorf("expected probe concurrency 7, got %d", cfg.ProbeConcurrency)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Errorf("expected cache TTL 90s, got %v", cfg.CacheTTL)
	}
	if cfg.WatchPlaylist {
		t.Error("expected watch disabled from env")
	}
}

func TestLoadFromEnv_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("STREAMGATE_PROBE_CONCURRENCY", "not-a-number")
	t.Setenv("STREAMGATE_CACHE_TTL", "soon")

	cfg := DefaultConfig()
	loadFromEnv(cfg)

	if cfg.ProbeConcurrency != 3 {
		t.Errorf("invalid env int must keep default, got %d", cfg.ProbeConcurrency)
	}
	if cfg.CacheTTL != 300*time.Second {
		t.Errorf("invalid env duration must keep default, got %v", cfg.CacheTTL)
	}
}
