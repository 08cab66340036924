package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Loader reads configuration with the priority flags, environment
// (EXTRACTOR_*), config file, defaults.
type Loader struct {
	v *viper.Viper
}

// NewLoader searches for .extractor.yaml in rootDir and the home directory.
// A non-empty file overrides the search.
func NewLoader(rootDir, file string) *Loader {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(".extractor")
		v.SetConfigType("yaml")
		v.AddConfigPath(rootDir)
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	v.SetEnvPrefix("EXTRACTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return &Loader{v: v}
}

// Viper exposes the underlying instance so commands can bind their flags.
func (l *Loader) Viper() *viper.Viper { return l.v }

// Load reads, unmarshals and validates the configuration. A missing config
// file is not an error.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// File returns the config file that was read, if any.
func (l *Loader) File() string { return l.v.ConfigFileUsed() }

// setDefaults registers every key, which also makes AutomaticEnv see it
// during Unmarshal.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("tolerance", d.Tolerance)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("verbose", d.Verbose)

	v.SetDefault("naming.enabled", d.Naming.Enabled)
	v.SetDefault("naming.model", d.Naming.Model)
	v.SetDefault("naming.timeout", d.Naming.Timeout)
	v.SetDefault("naming.api_key", d.Naming.APIKey)
	v.SetDefault("naming.base_url", d.Naming.BaseURL)

	v.SetDefault("evaluate.enabled", d.Evaluate.Enabled)
	v.SetDefault("evaluate.cross_class", d.Evaluate.CrossClass)
	v.SetDefault("evaluate.scratch_root", d.Evaluate.ScratchRoot)

	v.SetDefault("cache.size", d.Cache.Size)

	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.color", d.Output.Color)
	v.SetDefault("output.limit", d.Output.Limit)
	v.SetDefault("output.diff", d.Output.Diff)

	v.SetDefault("watch.debounce", d.Watch.Debounce)
}
