// Package config loads Drone Relay Container configuration by merging
// baseline defaults, DRC_* environment overrides, and an optional YAML
// file, then validating the result.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// DefaultConfigFile is consulted when it exists in the working directory.
const DefaultConfigFile = "drc.yaml"

// Config holds every tunable the relay consumes.
type Config struct {
	// Transport
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Shared-secret credential expected from both actors.
	AppToken string

	// Storage
	DBPath string

	// Audit log directory.
	LogDir string

	// Mailbox policy
	MaxPositionAge    time.Duration
	MaxAccuracyM      float64
	CommandWindow     time.Duration
	StatusRetention   int
	StatusReadDefault int
}

// fileConfig is the YAML shape of the config file. Durations are plain
// integer seconds so the file stays editable by hand.
type fileConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeoutSec  int    `yaml:"readTimeoutSec"`
	WriteTimeoutSec int    `yaml:"writeTimeoutSec"`
	IdleTimeoutSec  int    `yaml:"idleTimeoutSec"`

	AppToken string `yaml:"appToken"`
	DBPath   string `yaml:"dbPath"`
	LogDir   string `yaml:"logDir"`

	MaxPositionAgeSec int     `yaml:"maxPositionAgeSec"`
	MaxAccuracyM      float64 `yaml:"maxAccuracyM"`
	CommandWindowSec  int     `yaml:"commandWindowSec"`
	StatusRetention   int     `yaml:"statusRetention"`
	StatusReadDefault int     `yaml:"statusReadDefault"`
}

// Defaults returns the baseline configuration. The mailbox values mirror
// the deployed service: 60s position staleness ceiling, 50m accuracy
// ceiling, 10s command freshness window, 50 retained status entries, 20
// entries in the default console feed.
func Defaults() *Config {
	return &Config{
		Addr:              ":8000",
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		AppToken:          "CHANGE_ME",
		DBPath:            "targets.db",
		LogDir:            "logs",
		MaxPositionAge:    60 * time.Second,
		MaxAccuracyM:      50,
		CommandWindow:     10 * time.Second,
		StatusRetention:   50,
		StatusReadDefault: 20,
	}
}

// Load merges Defaults() + optional DefaultConfigFile + DRC_* env
// overrides, then validates. Environment wins over the file so operators
// can patch a containerized deployment without editing it.
func Load() (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(DefaultConfigFile); err == nil {
		if err := applyFile(cfg, DefaultConfigFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", DefaultConfigFile, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyFile overlays values from a YAML file onto cfg. Zero values in the
// file leave the current value in place.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	if file.Addr != "" {
		cfg.Addr = file.Addr
	}
	if file.ReadTimeoutSec != 0 {
		cfg.ReadTimeout = time.Duration(file.ReadTimeoutSec) * time.Second
	}
	if file.WriteTimeoutSec != 0 {
		cfg.WriteTimeout = time.Duration(file.WriteTimeoutSec) * time.Second
	}
	if file.IdleTimeoutSec != 0 {
		cfg.IdleTimeout = time.Duration(file.IdleTimeoutSec) * time.Second
	}
	if file.AppToken != "" {
		cfg.AppToken = file.AppToken
	}
	if file.DBPath != "" {
		cfg.DBPath = file.DBPath
	}
	if file.LogDir != "" {
		cfg.LogDir = file.LogDir
	}
	if file.MaxPositionAgeSec != 0 {
		cfg.MaxPositionAge = time.Duration(file.MaxPositionAgeSec) * time.Second
	}
	if file.MaxAccuracyM != 0 {
		cfg.MaxAccuracyM = file.MaxAccuracyM
	}
	if file.CommandWindowSec != 0 {
		cfg.CommandWindow = time.Duration(file.CommandWindowSec) * time.Second
	}
	if file.StatusRetention != 0 {
		cfg.StatusRetention = file.StatusRetention
	}
	if file.StatusReadDefault != 0 {
		cfg.StatusReadDefault = file.StatusReadDefault
	}
	return nil
}

// applyEnvOverrides applies DRC_* environment variables to cfg. Values
// that fail to parse are ignored, leaving the current value in place.
func applyEnvOverrides(cfg *Config) {
	cfg.Addr = GetEnvVar("DRC_ADDR", cfg.Addr)
	cfg.AppToken = GetEnvVar("DRC_APP_TOKEN", cfg.AppToken)
	cfg.DBPath = GetEnvVar("DRC_DB_PATH", cfg.DBPath)
	cfg.LogDir = GetEnvVar("DRC_LOG_DIR", cfg.LogDir)

	cfg.ReadTimeout = GetEnvDuration("DRC_READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = GetEnvDuration("DRC_WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.IdleTimeout = GetEnvDuration("DRC_IDLE_TIMEOUT", cfg.IdleTimeout)

	cfg.MaxPositionAge = GetEnvDuration("DRC_MAX_POSITION_AGE", cfg.MaxPositionAge)
	cfg.MaxAccuracyM = GetEnvFloat("DRC_MAX_ACCURACY_M", cfg.MaxAccuracyM)
	cfg.CommandWindow = GetEnvDuration("DRC_COMMAND_WINDOW", cfg.CommandWindow)
	cfg.StatusRetention = GetEnvInt("DRC_STATUS_RETENTION", cfg.StatusRetention)
	cfg.StatusReadDefault = GetEnvInt("DRC_STATUS_READ_DEFAULT", cfg.StatusReadDefault)
}

// Validate rejects configurations the mailboxes cannot operate under.
func Validate(cfg *Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if cfg.AppToken == "" {
		return fmt.Errorf("appToken must not be empty")
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("dbPath must not be empty")
	}
	if cfg.MaxPositionAge <= 0 {
		return fmt.Errorf("maxPositionAge must be positive, got %v", cfg.MaxPositionAge)
	}
	if cfg.MaxAccuracyM <= 0 {
		return fmt.Errorf("maxAccuracyM must be positive, got %v", cfg.MaxAccuracyM)
	}
	if cfg.CommandWindow <= 0 {
		return fmt.Errorf("commandWindow must be positive, got %v", cfg.CommandWindow)
	}
	if cfg.StatusRetention <= 0 {
		return fmt.Errorf("statusRetention must be positive, got %d", cfg.StatusRetention)
	}
	if cfg.StatusReadDefault <= 0 || cfg.StatusReadDefault > cfg.StatusRetention {
		return fmt.Errorf("statusReadDefault must be in [1,%d], got %d", cfg.StatusRetention, cfg.StatusReadDefault)
	}
	return nil
}

// GetEnvVar returns the value of an environment variable with a default.
func GetEnvVar(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvDuration returns the value of an environment variable as a
// duration with a default.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetEnvFloat returns the value of an environment variable as a float64
// with a default.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// GetEnvInt returns the value of an environment variable as an int with a
// default.
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
