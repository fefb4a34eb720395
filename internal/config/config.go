// Package config provides configuration loading for coolify-mcp.
//
// Configuration is read once at startup from an optional YAML file and the
// process environment, then treated as immutable. The bearer credential is
// loaded separately by LoadCredential.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyrsmithlabs/coolify-mcp/internal/sanitize"
)

const (
	// DefaultPort is the Coolify API port used when only PLATFORM_IP is set.
	DefaultPort = 8000

	// DefaultTimeout bounds every upstream request.
	DefaultTimeout = 30 * time.Second

	// productionEnv is the NODE_ENV value that enables https enforcement.
	productionEnv = "production"
)

// Config holds the complete coolify-mcp configuration.
type Config struct {
	Coolify   CoolifyConfig   `koanf:"coolify"`
	Platform  PlatformConfig  `koanf:"platform"`
	Node      NodeConfig      `koanf:"node"`
	Log       LogConfig       `koanf:"log"`
	Scrub     ScrubConfig     `koanf:"scrub"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// CoolifyConfig holds upstream API settings.
type CoolifyConfig struct {
	URL       string   `koanf:"url"`        // COOLIFY_URL
	TokenPath string   `koanf:"token_path"` // COOLIFY_TOKEN_PATH
	Timeout   Duration `koanf:"timeout"`    // COOLIFY_TIMEOUT
	RateLimit float64  `koanf:"rate_limit"` // COOLIFY_RATE_LIMIT, requests/second, 0 disables
	RateBurst int      `koanf:"rate_burst"` // COOLIFY_RATE_BURST
}

// PlatformConfig holds the fallback host used to derive the base URL.
type PlatformConfig struct {
	IP string `koanf:"ip"` // PLATFORM_IP
}

// NodeConfig mirrors the NODE_ENV switch used by existing deployments.
type NodeConfig struct {
	Env string `koanf:"env"` // NODE_ENV
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ScrubConfig toggles secret scrubbing of tool output.
type ScrubConfig struct {
	Enabled bool `koanf:"enabled"`
}

// TelemetryConfig controls OpenTelemetry export. Disabled by default; the
// exporter settings are validated by the telemetry package.
type TelemetryConfig struct {
	Enabled        bool     `koanf:"enabled"`         // TELEMETRY_ENABLED
	Endpoint       string   `koanf:"endpoint"`        // TELEMETRY_ENDPOINT
	Protocol       string   `koanf:"protocol"`        // grpc or http/protobuf
	Insecure       bool     `koanf:"insecure"`        // plaintext, local endpoints only
	SampleRate     float64  `koanf:"sample_rate"`     // 0.0-1.0
	Metrics        bool     `koanf:"metrics"`         // export tool metrics
	ExportInterval Duration `koanf:"export_interval"` // metric export period
}

// IsProduction reports whether production TLS rules apply.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Node.Env), productionEnv)
}

// BaseURL returns the Coolify base URL without a trailing slash.
// COOLIFY_URL wins; otherwise the URL is derived from PLATFORM_IP.
func (c *Config) BaseURL() (string, error) {
	if u := strings.TrimSpace(c.Coolify.URL); u != "" {
		return strings.TrimRight(u, "/"), nil
	}
	if ip := strings.TrimSpace(c.Platform.IP); ip != "" {
		return fmt.Sprintf("http://%s:%d", ip, DefaultPort), nil
	}
	return "", fmt.Errorf("%w: COOLIFY_URL or PLATFORM_IP must be set", sanitize.ErrConfig)
}

// Validate validates the configuration.
//
// Returns an error if:
//   - no base URL can be determined, or it is not an absolute http(s) URL
//   - production mode is enabled and the base URL is not https
//   - the timeout is not positive
//   - the rate limit or burst is negative
//   - the log format is unknown
func (c *Config) Validate() error {
	base, err := c.BaseURL()
	if err != nil {
		return err
	}

	parsed, err := url.Parse(base)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("%w: invalid Coolify base URL", sanitize.ErrConfig)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: Coolify base URL must use http or https", sanitize.ErrConfig)
	}
	if parsed.User != nil {
		return fmt.Errorf("%w: Coolify base URL must not embed credentials", sanitize.ErrConfig)
	}
	if c.IsProduction() && parsed.Scheme != "https" {
		return fmt.Errorf("%w: https is required in production", sanitize.ErrConfig)
	}

	if c.Coolify.Timeout.Duration() <= 0 {
		return fmt.Errorf("%w: timeout must be positive", sanitize.ErrConfig)
	}

	if c.Coolify.RateLimit < 0 || c.Coolify.RateBurst < 0 {
		return fmt.Errorf("%w: rate limit and burst must not be negative", sanitize.ErrConfig)
	}

	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("%w: log format must be 'json' or 'console'", sanitize.ErrConfig)
	}

	return nil
}

// applyDefaults sets values the default document cannot express.
func applyDefaults(cfg *Config) {
	if cfg.Coolify.Timeout == 0 {
		cfg.Coolify.Timeout = Duration(DefaultTimeout)
	}
	if cfg.Coolify.TokenPath == "" {
		cfg.Coolify.TokenPath = DefaultTokenPath()
	}
	cfg.Coolify.TokenPath = expandHome(cfg.Coolify.TokenPath)
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
