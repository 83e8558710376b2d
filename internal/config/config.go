// Package config defines service configuration and its defaults.
//
// Conventions:
//   - New returns a Config populated with defaults.
//   - Load layers defaults, an optional YAML file and IPA27_* env vars.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN ERROR"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// Development relaxes the security headers for local work.
	Development bool `koanf:"development"`

	// SnapshotURL is the location of the dashboard JSON document. Relative
	// paths are resolved against BaseURL.
	SnapshotURL string `koanf:"snapshot_url" validate:"required_without=SnapshotFile"`

	// BaseURL is prepended to a relative SnapshotURL.
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`

	// SnapshotFile reads the snapshot from disk instead of over HTTP.
	SnapshotFile string `koanf:"snapshot_file"`

	// DataDir, when set, is served under /data/ so the service can host its
	// own snapshot document.
	DataDir string `koanf:"data_dir"`

	// CacheBust appends a timestamp query parameter to every snapshot GET.
	CacheBust bool `koanf:"cache_bust"`

	// FetchTimeoutMS bounds a single snapshot fetch.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms" validate:"gte=0"`

	// RefreshIntervalS enables periodic refresh; 0 disables it.
	RefreshIntervalS int `koanf:"refresh_interval_s" validate:"gte=0"`

	// RefreshSchedule is a standard cron expression for periodic refresh,
	// e.g. "0 6 * * 1". It takes precedence over RefreshIntervalS.
	RefreshSchedule string `koanf:"refresh_schedule" validate:"omitempty,cron"`

	// RefreshRatePerMinute caps POST /api/refresh per client.
	RefreshRatePerMinute int `koanf:"refresh_rate_per_minute" validate:"gte=1"`

	// RedisAddr enables the shared snapshot cache when set.
	RedisAddr string `koanf:"redis_addr" validate:"omitempty,hostname_port"`

	// CacheTTLS is the lifetime of a cached snapshot in seconds.
	CacheTTLS int `koanf:"cache_ttl_s" validate:"gte=0"`

	// Locale selects number formatting on the site, e.g. "es-ES".
	Locale string `koanf:"locale" validate:"required,bcp47_language_tag"`

	// FallbackReference is the reference value used when an indicator has
	// no comparator at all.
	FallbackReference float64 `koanf:"fallback_reference"`

	// IndicatorReference compares indicators against the reference region's
	// own indicator values when present, ahead of its pillar scores.
	IndicatorReference bool `koanf:"indicator_reference"`

	// RegionLabel and ReferenceLabel name the compared regions in the UI.
	RegionLabel    string `koanf:"region_label" validate:"required"`
	ReferenceLabel string `koanf:"reference_label" validate:"required"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		SnapshotURL:          "/data/dashboard_data.json",
		BaseURL:              "http://localhost:9080",
		DataDir:              "public/data",
		CacheBust:            true,
		FetchTimeoutMS:       10_000,
		RefreshIntervalS:     0,
		RefreshRatePerMinute: 6,
		CacheTTLS:            300,
		Locale:               "es-ES",
		FallbackReference:    50,
		RegionLabel:          "Andalucía",
		ReferenceLabel:       "España",
	}
}

// FetchTimeout returns FetchTimeoutMS as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// RefreshInterval returns RefreshIntervalS as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalS) * time.Second
}

// CacheTTL returns CacheTTLS as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLS) * time.Second
}
