// Package config loads extractor settings from .extractor.yaml, the
// environment and command line flags.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/mamaar/extractor/pkg/evaluate"
	"github.com/mamaar/extractor/pkg/extract"
	"github.com/mamaar/extractor/pkg/naming"
	"github.com/mamaar/extractor/pkg/report"
)

// Config is the complete extractor configuration.
type Config struct {
	Tolerance int            `yaml:"tolerance" mapstructure:"tolerance"` // residual drift tolerance in lines
	Workers   int            `yaml:"workers" mapstructure:"workers"`     // concurrent target trials
	Exclude   []string       `yaml:"exclude" mapstructure:"exclude"`     // file globs skipped when loading
	Verbose   bool           `yaml:"verbose" mapstructure:"verbose"`
	Naming    NamingConfig   `yaml:"naming" mapstructure:"naming"`
	Evaluate  EvaluateConfig `yaml:"evaluate" mapstructure:"evaluate"`
	Cache     CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Output    OutputConfig   `yaml:"output" mapstructure:"output"`
	Watch     WatchConfig    `yaml:"watch" mapstructure:"watch"`
}

// NamingConfig configures the method-name suggester.
type NamingConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
}

// EvaluateConfig configures placement evaluation.
type EvaluateConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	CrossClass  bool   `yaml:"cross_class" mapstructure:"cross_class"`
	ScratchRoot string `yaml:"scratch_root" mapstructure:"scratch_root"` // empty means the system temp dir
}

// CacheConfig sizes the before-move metric cache.
type CacheConfig struct {
	Size int `yaml:"size" mapstructure:"size"`
}

// OutputConfig controls the report.
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"` // text, json or yaml
	Color  bool   `yaml:"color" mapstructure:"color"`
	Limit  int    `yaml:"limit" mapstructure:"limit"` // 0 keeps every candidate
	Diff   bool   `yaml:"diff" mapstructure:"diff"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Tolerance: extract.DefaultTolerance,
		Workers:   runtime.NumCPU(),
		Exclude:   []string{"*_gen.go", "*.pb.go"},
		Naming: NamingConfig{
			Model:   naming.DefaultModel,
			Timeout: naming.DefaultTimeout,
		},
		Evaluate: EvaluateConfig{
			Enabled:    true,
			CrossClass: true,
		},
		Cache:  CacheConfig{Size: evaluate.DefaultCacheSize},
		Output: OutputConfig{Format: string(report.FormatText), Color: true},
		Watch:  WatchConfig{Debounce: 300 * time.Millisecond},
	}
}

// Validate checks the configuration for values the pipeline cannot use.
func Validate(cfg *Config) error {
	if cfg.Tolerance < 0 {
		return fmt.Errorf("tolerance must be >= 0, got %d", cfg.Tolerance)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", cfg.Workers)
	}
	if cfg.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be > 0, got %d", cfg.Cache.Size)
	}
	if cfg.Naming.Enabled && cfg.Naming.Timeout <= 0 {
		return fmt.Errorf("naming.timeout must be positive when naming is enabled")
	}
	if cfg.Output.Limit < 0 {
		return fmt.Errorf("output.limit must be >= 0, got %d", cfg.Output.Limit)
	}
	if _, err := report.ParseFormat(cfg.Output.Format); err != nil {
		return err
	}
	return nil
}
