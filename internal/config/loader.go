package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	appDirName = "coolify-mcp"
)

// defaults is loaded before the config file and environment so that boolean
// settings which default to true can still be switched off.
const defaults = `
coolify:
  timeout: 30s
  rate_limit: 5
  rate_burst: 10
log:
  level: info
  format: json
scrub:
  enabled: true
telemetry:
  enabled: false
  endpoint: localhost:4317
  protocol: grpc
  insecure: true
  sample_rate: 1.0
  metrics: true
  export_interval: 15s
`

// envSections lists the environment variable prefixes that map onto config
// sections. Everything else in the environment is ignored.
var envSections = map[string]bool{
	"coolify":   true,
	"platform":  true,
	"node":      true,
	"log":       true,
	"scrub":     true,
	"telemetry": true,
}

// Load loads configuration from the default file location (if present) and
// the environment.
func Load() (*Config, error) {
	return LoadWithFile("")
}

// LoadWithFile loads configuration from YAML file, then overrides with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (COOLIFY_URL, COOLIFY_TOKEN_PATH, PLATFORM_IP, NODE_ENV, ...)
//  2. YAML config file (~/.config/coolify-mcp/config.yaml)
//  3. Built-in defaults
//
// An explicitly named file must exist. The default file is optional.
//
// # Security Considerations
//
// The config file must live in ~/.config/coolify-mcp/ or /etc/coolify-mcp/,
// must have 0600 or 0400 permissions and must not exceed 1MB.
//
// # Environment Variable Mapping
//
// Variables are lowercased and split on the first underscore:
//
//	COOLIFY_TOKEN_PATH -> coolify.token_path
//	PLATFORM_IP        -> platform.ip
//	NODE_ENV           -> node.env
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaults)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	explicit := configPath != ""
	if !explicit {
		configPath = filepath.Join(UserConfigDir(), "config.yaml")
	}

	content, err := readConfigFile(configPath, explicit)
	if err != nil {
		return nil, err
	}
	if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKey maps SECTION_FIELD_NAME to section.field_name. Variables outside the
// known sections return "" and are skipped by the provider.
func envKey(s string) string {
	lower := strings.ToLower(s)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) != 2 || !envSections[parts[0]] {
		return ""
	}
	return parts[0] + "." + parts[1]
}

// readConfigFile returns the validated file contents, or nil when an optional
// file does not exist.
func readConfigFile(path string, required bool) ([]byte, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	// Open once and validate through the descriptor to avoid a TOCTOU race.
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// UserConfigDir returns ~/.config/coolify-mcp.
func UserConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", appDirName)
	}
	return filepath.Join(home, ".config", appDirName)
}

// SystemConfigDir is the system-wide configuration directory.
const SystemConfigDir = "/etc/" + appDirName

// validateConfigPath checks if path is in allowed directories.
// This validation runs even if the file doesn't exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	// Follow symlinks so a link cannot escape the allowed directories.
	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	for _, dir := range []string{UserConfigDir(), SystemConfigDir} {
		if resolvedPath == dir || strings.HasPrefix(resolvedPath, dir+string(filepath.Separator)) {
			return nil
		}
	}

	return fmt.Errorf("config file must be in ~/.config/%s/ or %s/", appDirName, SystemConfigDir)
}

// validateConfigFileProperties checks file permissions and size.
// Takes FileInfo from an already-opened file descriptor to avoid TOCTOU race.
func validateConfigFileProperties(info os.FileInfo) error {
	if !info.Mode().IsRegular() {
		return fmt.Errorf("config file is not a regular file")
	}

	// Skip on Windows (different permission model)
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	return nil
}
