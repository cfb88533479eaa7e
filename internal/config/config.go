// Package config handles configuration parsing from CLI flags, environment
// variables and YAML files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for streamgate.
type Config struct {
	// PlaylistPath is the M3U playlist with candidate stream endpoints.
	PlaylistPath string `yaml:"playlist"`
	// Port is the API listening port.
	Port int `yaml:"port"`
	// MetricsPort is the metrics server port.
	MetricsPort int `yaml:"metrics_port"`
	// ProbeTimeout bounds one liveness probe (connect plus response).
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	// ProbeConcurrency is the maximum number of parallel probes.
	ProbeConcurrency int `yaml:"probe_concurrency"`
	// CacheTTL is how long a completed selection stays fresh.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// MonitorInterval is the period of the background monitor.
	MonitorInterval time.Duration `yaml:"monitor_interval"`
	// UserAgent is sent with every probe.
	UserAgent string `yaml:"user_agent"`
	// WatchPlaylist enables automatic reload when the playlist file changes.
	WatchPlaylist bool `yaml:"watch_playlist"`
	// LogLevel is the logging level (trace, debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
	// LogFormat is the log format (json, text).
	LogFormat string `yaml:"log_format"`
	// ConfigFile is the optional config file path.
	ConfigFile string `yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:             8080,
		MetricsPort:      9090,
		ProbeTimeout:     10 * time.Second,
		ProbeConcurrency: 3,
		CacheTTL:         300 * time.Second,
		MonitorInterval:  60 * time.Second,
		WatchPlaylist:    true,
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// ParseFlags parses command line flags and returns a Config.
func ParseFlags() (*Config, error) {
	cfg := DefaultConfig()

	pflag.StringVar(&cfg.PlaylistPath, "playlist", "", "M3U playlist path")
	pflag.IntVar(&cfg.Port, "port", cfg.Port, "API listening port")
	pflag.IntVar(&cfg.MetricsPort, "metrics-port", cfg.MetricsPort, "Metrics server port")
	pflag.DurationVar(&cfg.ProbeTimeout, "probe-timeout", cfg.ProbeTimeout, "Liveness probe timeout")
	pflag.IntVar(&cfg.ProbeConcurrency, "probe-concurrency", cfg.ProbeConcurrency, "Max parallel probes")
	pflag.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "Selection cache TTL")
	pflag.DurationVar(&cfg.MonitorInterval, "monitor-interval", cfg.MonitorInterval, "Background monitor interval")
	pflag.StringVar(&cfg.UserAgent, "user-agent", "", "User agent sent with probes (default: browser-like)")
	pflag.BoolVar(&cfg.WatchPlaylist, "watch-playlist", cfg.WatchPlaylist, "Reload automatically when the playlist file changes")
	pflag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (trace, debug, info, warn, error)")
	pflag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (json, text)")
	pflag.StringVar(&cfg.ConfigFile, "config", "", "Config file path (YAML)")

	pflag.Parse()

	// Env vars take precedence over defaults, CLI flags over env vars.
	loadFromEnv(cfg)

	// If a config file is specified, load it first, then override with flags.
	if cfg.ConfigFile != "" {
		fileCfg, err := LoadFromFile(cfg.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		cfg = mergeConfigs(fileCfg, cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// mergeConfigs merges file config with CLI config. CLI flags take precedence.
func mergeConfigs(file, cli *Config) *Config {
	result := *file

	pflag.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "playlist":
			result.PlaylistPath = cli.PlaylistPath
		case "port":
			result.Port = cli.Port
		case "metrics-port":
			result.MetricsPort = cli.MetricsPort
		case "probe-timeout":
			result.ProbeTimeout = cli.ProbeTimeout
		case "probe-concurrency":
			result.ProbeConcurrency = cli.ProbeConcurrency
		case "cache-ttl":
			result.CacheTTL = cli.CacheTTL
		case "monitor-interval":
			result.MonitorInterval = cli.MonitorInterval
		case "user-agent":
			result.UserAgent = cli.UserAgent
		case "watch-playlist":
			result.WatchPlaylist = cli.WatchPlaylist
		case "log-level":
			result.LogLevel = cli.LogLevel
		case "log-format":
			result.LogFormat = cli.LogFormat
		}
	})

	return &result
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.PlaylistPath == "" {
		return fmt.Errorf("a playlist file is required (--playlist)")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.MetricsPort < 1 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.MetricsPort)
	}

	if c.Port == c.MetricsPort {
		return fmt.Errorf("API port and metrics port must be different")
	}

	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe-timeout must be positive")
	}

	if c.ProbeConcurrency < 1 {
		return fmt.Errorf("probe-concurrency must be at least 1")
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache-ttl must be positive")
	}

	if c.MonitorInterval <= 0 {
		return fmt.Errorf("monitor-interval must be positive")
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be trace, debug, info, warn, or error)", c.LogLevel)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.LogFormat)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables with the
// STREAMGATE_ prefix. Env vars take precedence over defaults but CLI flags
// take precedence over env vars.
func loadFromEnv(cfg *Config) {
	getEnvString := func(key string) (string, bool) {
		v := os.Getenv("STREAMGATE_" + key)
		return v, v != ""
	}

	getEnvInt := func(key string) (int, bool) {
		if v, ok := getEnvString(key); ok {
			if i, err := strconv.Atoi(v); err == nil {
				return i, true
			}
		}
		return 0, false
	}

	getEnvBool := func(key string) (bool, bool) {
		if v, ok := getEnvString(key); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				return b, true
			}
		}
		return false, false
	}

	getEnvDuration := func(key string) (time.Duration, bool) {
		if v, ok := getEnvString(key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				return d, true
			}
		}
		return 0, false
	}

	// Only apply env vars when the CLI flag was not explicitly set.
	applyIfNotSet := func(flagName string, apply func()) {
		flagSet := false
		pflag.Visit(func(f *pflag.Flag) {
			if f.Name == flagName {
				flagSet = true
			}
		})
		if !flagSet {
			apply()
		}
	}

	if v, ok := getEnvString("PLAYLIST"); ok {
		applyIfNotSet("playlist", func() { cfg.PlaylistPath = strings.TrimSpace(v) })
	}

	if v, ok := getEnvInt("PORT"); ok {
		applyIfNotSet("port", func() { cfg.Port = v })
	}

	if v, ok := getEnvInt("METRICS_PORT"); ok {
		applyIfNotSet("metrics-port", func() { cfg.MetricsPort = v })
	}

	if v, ok := getEnvDuration("PROBE_TIMEOUT"); ok {
		applyIfNotSet("probe-timeout", func() { cfg.ProbeTimeout = v })
	}

	if v, ok := getEnvInt("PROBE_CONCURRENCY"); ok {
		applyIfNotSet("probe-concurrency", func() { cfg.ProbeConcurrency = v })
	}

	if v, ok := getEnvDuration("CACHE_TTL"); ok {
		applyIfNotSet("cache-ttl", func() { cfg.CacheTTL = v })
	}

	if v, ok := getEnvDuration("MONITOR_INTERVAL"); ok {
		applyIfNotSet("monitor-interval", func() { cfg.MonitorInterval = v })
	}

	if v, ok := getEnvString("USER_AGENT"); ok {
		applyIfNotSet("user-agent", func() { cfg.UserAgent = v })
	}

	if v, ok := getEnvBool("WATCH_PLAYLIST"); ok {
		applyIfNotSet("watch-playlist", func() { cfg.WatchPlaylist = v })
	}

	if v, ok := getEnvString("LOG_LEVEL"); ok {
		applyIfNotSet("log-level", func() { cfg.LogLevel = v })
	}

	if v, ok := getEnvString("LOG_FORMAT"); ok {
		applyIfNotSet("log-format", func() { cfg.LogFormat = v })
	}
}
