package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that points at a config file.
const EnvConfigPath = "PROCCOUNT_CONFIG"

// DefaultFileName is looked up in the working directory and next to the executable.
const DefaultFileName = "proccount.yml"

// Config is the root configuration.
type Config struct {
	ProcCount ProcCountConfig `yaml:"proccount"`
}

// ProcCountConfig is the project configuration.
type ProcCountConfig struct {
	Input   InputConfig   `yaml:"input"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// InputConfig controls how the audit log is read.
type InputConfig struct {
	Compression   string `yaml:"compression"` // auto|none|gzip|zstd|lz4
	BufferSize    int    `yaml:"buffer_size"`
	ProgressEvery int64  `yaml:"progress_every"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // console|json
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Listen          string        `yaml:"listen"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindConfigFile returns the first existing config file, or "" when there is none.
// An explicit path from the environment must exist.
func FindConfigFile() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return path, nil
	}

	if _, err := os.Stat(DefaultFileName); err == nil {
		return DefaultFileName, nil
	}

	exePath, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(exePath), DefaultFileName)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", nil
}

// Load finds and loads the config file, falling back to defaults when none exists.
func Load() (*Config, string, error) {
	path, err := FindConfigFile()
	if err != nil {
		return nil, "", err
	}

	cfg := &Config{}
	if path != "" {
		cfg, err = LoadConfig(path)
		if err != nil {
			return nil, path, err
		}
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// ApplyDefaults fills zero values.
func ApplyDefaults(cfg *Config) {
	if cfg.ProcCount.Input.Compression == "" {
		cfg.ProcCount.Input.Compression = "auto"
	}
	if cfg.ProcCount.Input.BufferSize <= 0 {
		cfg.ProcCount.Input.BufferSize = 1 << 20
	}
	if cfg.ProcCount.Input.ProgressEvery < 0 {
		cfg.ProcCount.Input.ProgressEvery = 0
	} else if cfg.ProcCount.Input.ProgressEvery == 0 {
		cfg.ProcCount.Input.ProgressEvery = 1000000
	}

	if cfg.ProcCount.Logging.Level == "" {
		cfg.ProcCount.Logging.Level = "info"
	}
	if cfg.ProcCount.Logging.Format == "" {
		cfg.ProcCount.Logging.Format = "console"
	}
	if cfg.ProcCount.Logging.MaxSizeMB <= 0 {
		cfg.ProcCount.Logging.MaxSizeMB = 100
	}

	if cfg.ProcCount.Metrics.Listen == "" {
		cfg.ProcCount.Metrics.Listen = "127.0.0.1:9464"
	}
	if cfg.ProcCount.Metrics.ShutdownTimeout <= 0 {
		cfg.ProcCount.Metrics.ShutdownTimeout = 2 * time.Second
	}
}

// Validate rejects values that defaults cannot repair.
func Validate(cfg *Config) error {
	switch cfg.ProcCount.Input.Compression {
	case "auto", "none", "gzip", "zstd", "lz4":
	default:
		return errors.New("input.compression must be one of auto, none, gzip, zstd, lz4")
	}
	switch cfg.ProcCount.Logging.Format {
	case "console", "json":
	default:
		return errors.New("logging.format must be console or json")
	}
	return nil
}
