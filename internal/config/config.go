// Package config holds the runtime settings shared by the CLI and the MCP server.
//
// Values come from three layers, later ones winning: built-in defaults, an optional YAML
// file, and XLREPORT_* environment variables. Command-line flags are applied on top by the
// cli package.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPreviewRows is how many rows of each sheet are sampled for header selection
	DefaultPreviewRows = 20

	// DefaultPreviewConcurrency caps parallel per-sheet preview requests
	DefaultPreviewConcurrency = 4

	// DefaultMaxFileSize is the largest workbook accepted for import (50MB)
	DefaultMaxFileSize = 50 * 1024 * 1024

	// DefaultCacheEntries is the number of parsed sheets kept by the local service
	DefaultCacheEntries = 32

	// DefaultFileName is looked up in the user config dir when --config is not given
	DefaultFileName = "config.yaml"
)

// Environment variable names
const (
	EnvPreviewRows        = "XLREPORT_PREVIEW_ROWS"
	EnvPreviewConcurrency = "XLREPORT_PREVIEW_CONCURRENCY"
	EnvMaxFileSize        = "XLREPORT_MAX_FILE_SIZE"
	EnvCacheEntries       = "XLREPORT_CACHE_ENTRIES"
	EnvAllowedPaths       = "XLREPORT_ALLOWED_PATHS"
	EnvLogLevel           = "XLREPORT_LOG_LEVEL"
	EnvFormat             = "XLREPORT_FORMAT"
	EnvBasepath           = "XLREPORT_BASEPATH"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full set of tunables
type Config struct {
	PreviewRows        int      `yaml:"preview_rows"`
	PreviewConcurrency int      `yaml:"preview_concurrency"`
	MaxFileSize        int64    `yaml:"max_file_size"`
	CacheEntries       int      `yaml:"cache_entries"`
	AllowedPaths       []string `yaml:"allowed_paths,omitempty"`
	LogLevel           string   `yaml:"log_level"`
	Format             string   `yaml:"format"`
	Basepath           string   `yaml:"basepath,omitempty"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		PreviewRows:        DefaultPreviewRows,
		PreviewConcurrency: DefaultPreviewConcurrency,
		MaxFileSize:        DefaultMaxFileSize,
		CacheEntries:       DefaultCacheEntries,
		LogLevel:           "warn",
		Format:             "json",
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/xlreport/config.yaml (or the OS equivalent)
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "xlreport", DefaultFileName)
}

// Load reads a YAML file over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from XLREPORT_* environment variables
func (c *Config) ApplyEnv() error {
	if err := envInt(EnvPreviewRows, &c.PreviewRows); err != nil {
		return err
	}
	if err := envInt(EnvPreviewConcurrency, &c.PreviewConcurrency); err != nil {
		return err
	}
	if err := envInt(EnvCacheEntries, &c.CacheEntries); err != nil {
		return err
	}
	if v := os.Getenv(EnvMaxFileSize); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvMaxFileSize, v, err)
		}
		c.MaxFileSize = n
	}
	if v := os.Getenv(EnvAllowedPaths); v != "" {
		c.AllowedPaths = splitList(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvFormat); v != "" {
		c.Format = v
	}
	if v := os.Getenv(EnvBasepath); v != "" {
		c.Basepath = v
	}
	return nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.PreviewRows < 1 {
		return fmt.Errorf("%w: preview_rows must be >= 1, got %d", ErrInvalidConfig, c.PreviewRows)
	}
	if c.PreviewConcurrency < 1 {
		return fmt.Errorf("%w: preview_concurrency must be >= 1, got %d", ErrInvalidConfig, c.PreviewConcurrency)
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("%w: max_file_size must be >= 0, got %d", ErrInvalidConfig, c.MaxFileSize)
	}
	if c.CacheEntries < 1 {
		return fmt.Errorf("%w: cache_entries must be >= 1, got %d", ErrInvalidConfig, c.CacheEntries)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured level, falling back to warn
func (c *Config) SlogLevel() slog.Level {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return lvl
}

// ParseLevel maps debug/info/warn/error to a slog.Level
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfig, s)
	}
	return lvl, nil
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, name, v, err)
	}
	*dst = n
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
