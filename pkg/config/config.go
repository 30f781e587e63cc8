// Package config loads mailidx's own settings: logging, sync driver
// tunables, metrics, and the config_filter blocks that feed pkg/filter.
// Grounded on the teacher's Viper-backed YAML loader.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is mailidx's top-level configuration.
//
// Precedence (highest to lowest): environment variables (MAILIDX_*),
// configuration file, default values. The environment is read only
// when a configuration file is found, and only for keys that file
// sets; with no file, Load returns DefaultConfig without consulting
// the environment.
type Config struct {
	Logging LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Sync    SyncConfig     `mapstructure:"sync" yaml:"sync"`
	Metrics MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Filters []FilterConfig `mapstructure:"config_filter" yaml:"config_filter"`
}

// LoggingConfig controls logging behavior, mirroring internal/logger.Config.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// SyncConfig tunes the sync driver.
type SyncConfig struct {
	// WantsRewriteRatio: unread log bytes exceeding this multiple of the
	// index's on-disk size marks the index "wants rewrite".
	WantsRewriteRatio float64 `mapstructure:"wants_rewrite_ratio" yaml:"wants_rewrite_ratio"`
}

// MetricsConfig controls the optional Prometheus registry.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := DefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("MAILIDX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(".")
	v.SetConfigName("mailidx")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read config file: %w", err)
	}
	return true, nil
}

// DefaultConfigPath returns the conventional config file location.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "mailidx", "config.yaml")
}

// Validate checks structural invariants Load can't express via viper alone.
func Validate(cfg *Config) error {
	switch strings.ToUpper(cfg.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("config: invalid logging.level %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("config: invalid logging.format %q", cfg.Logging.Format)
	}
	if cfg.Sync.WantsRewriteRatio <= 0 {
		return fmt.Errorf("config: sync.wants_rewrite_ratio must be > 0")
	}
	for i, f := range cfg.Filters {
		if _, err := f.buildFilter(); err != nil {
			return fmt.Errorf("config: config_filter[%d]: %w", i, err)
		}
	}
	return nil
}
