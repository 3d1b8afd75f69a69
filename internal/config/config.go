// Package config implements sparsedex's layered configuration: an
// IndexConfig tunable persisted alongside the index files, plus the
// search, telemetry and logging sections that ride along with it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the file config.yaml is stored under, relative to
// an index's directory.
const ConfigFileName = "config.yaml"

// Config is the full persisted configuration for one index directory.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IndexConfig is the router's persisted, operator-tunable routing knob.
type IndexConfig struct {
	// FullScanThreshold is the cardinality below which the router
	// prefers the brute-force plain path over the inverted index.
	FullScanThreshold uint32 `yaml:"full_scan_threshold"`
	// OnDisk selects the mmap-backed inverted index variant instead of
	// the in-memory Ram variant.
	OnDisk bool `yaml:"on_disk"`
}

// SearchConfig bounds the K a caller may request, the sparse-search
// analogue of an engine's DefaultLimit/MaxLimit pair.
type SearchConfig struct {
	DefaultK int `yaml:"default_k"`
	MaxK     int `yaml:"max_k"`
}

// TelemetryConfig sizes the telemetry ring buffers and optional persistence.
type TelemetryConfig struct {
	RingBufferSize        int    `yaml:"ring_buffer_size"`
	TopDimensionsCapacity int    `yaml:"top_dimensions_capacity"`
	StorePath             string `yaml:"store_path"`
}

// LoggingConfig configures the rotating structured log writer.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	FilePath      string `yaml:"file_path"`
	MaxSizeMB     int    `yaml:"max_size_mb"`
	MaxFiles      int    `yaml:"max_files"`
	WriteToStderr bool   `yaml:"write_to_stderr"`
}

// DefaultConfig returns the configuration a fresh, unconfigured index
// starts with.
func DefaultConfig() Config {
	return Config{
		Index: IndexConfig{
			FullScanThreshold: 10000,
			OnDisk:            false,
		},
		Search: SearchConfig{
			DefaultK: 10,
			MaxK:     1000,
		},
		Telemetry: TelemetryConfig{
			RingBufferSize:        512,
			TopDimensionsCapacity: 256,
		},
		Logging: LoggingConfig{
			Level:         "info",
			MaxSizeMB:     50,
			MaxFiles:      5,
			WriteToStderr: false,
		},
	}
}

// Path returns the config.yaml path for an index directory.
func Path(indexDir string) string {
	return filepath.Join(indexDir, ConfigFileName)
}

// Load reads config.yaml from indexDir. A missing file means the index
// has not been built yet: Load returns DefaultConfig(), false,
// nil rather than an error, so callers can distinguish "not built" from
// a genuine read/parse failure.
func Load(indexDir string) (Config, bool, error) {
	path := Path(indexDir)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), false, nil
	}
	if err != nil {
		return Config{}, false, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, false, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, true, nil
}

// Save writes cfg to indexDir/config.yaml, creating indexDir if
// necessary. Callers must only persist config after a
// successful build so a crashed build never leaves behind a config
// file for an index that doesn't actually exist.
func Save(indexDir string, cfg Config) error {
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return fmt.Errorf("create index directory %s: %w", indexDir, err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	path := Path(indexDir)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Validate checks the invariants a loaded config must satisfy.
func (c Config) Validate() error {
	if c.Search.DefaultK <= 0 {
		return fmt.Errorf("search.default_k must be positive, got %d", c.Search.DefaultK)
	}
	if c.Search.MaxK < c.Search.DefaultK {
		return fmt.Errorf("search.max_k (%d) must be >= search.default_k (%d)", c.Search.MaxK, c.Search.DefaultK)
	}
	if c.Telemetry.RingBufferSize <= 0 {
		return fmt.Errorf("telemetry.ring_buffer_size must be positive, got %d", c.Telemetry.RingBufferSize)
	}
	return nil
}
