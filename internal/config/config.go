// Package config loads server settings from defaults, an optional YAML file
// and PRICE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type StorageConfig struct {
	Backend string `yaml:"backend"`
	// Quota is the byte budget shared by all stored collections. Zero is unlimited.
	Quota int64  `yaml:"quota"`
	Codec string `yaml:"codec"`
}

type Config struct {
	Port           string        `yaml:"port"`
	DBPath         string        `yaml:"db_path"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	Storage        StorageConfig `yaml:"storage"`
	BackupDir      string        `yaml:"backup_dir"`
	UndoWindow     time.Duration `yaml:"undo_window"`
	WriteLimit     int           `yaml:"write_limit"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Port:      "8080",
		DBPath:    "price.db",
		LogLevel:  "info",
		LogFormat: "text",
		Storage: StorageConfig{
			Backend: BackendSQLite,
			Quota:   5 << 20,
			Codec:   "json",
		},
		BackupDir:  "backups",
		UndoWindow: 3 * time.Second,
		WriteLimit: 60,
	}
}

// Load reads path (skipped when empty) over the defaults, applies the
// environment and validates the result.
func Load(path string) (Config, error) {
	return LoadWith(path, os.LookupEnv)
}

// LoadWith is Load with an explicit environment lookup.
func LoadWith(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("PRICE_PORT", &c.Port)
	str("PRICE_DB_PATH", &c.DBPath)
	str("PRICE_LOG_LEVEL", &c.LogLevel)
	str("PRICE_LOG_FORMAT", &c.LogFormat)
	str("PRICE_STORAGE_BACKEND", &c.Storage.Backend)
	str("PRICE_CODEC", &c.Storage.Codec)
	str("PRICE_BACKUP_DIR", &c.BackupDir)

	if v, ok := lookup("PRICE_STORAGE_QUOTA"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: PRICE_STORAGE_QUOTA: %w", ErrInvalidConfig, err)
		}
		c.Storage.Quota = n
	}
	if v, ok := lookup("PRICE_UNDO_WINDOW"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: PRICE_UNDO_WINDOW: %w", ErrInvalidConfig, err)
		}
		c.UndoWindow = d
	}
	if v, ok := lookup("PRICE_WRITE_LIMIT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PRICE_WRITE_LIMIT: %w", ErrInvalidConfig, err)
		}
		c.WriteLimit = n
	}
	if v, ok := lookup("PRICE_ALLOWED_ORIGINS"); ok && v != "" {
		c.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, o)
			}
		}
	}
	return nil
}

// Validate reports every problem with c, each wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		errs = append(errs, fmt.Errorf("%w: port %q", ErrInvalidConfig, c.Port))
	}
	switch c.Storage.Backend {
	case BackendSQLite:
		if c.DBPath == "" {
			errs = append(errs, fmt.Errorf("%w: db_path is required for sqlite", ErrInvalidConfig))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("%w: storage backend %q", ErrInvalidConfig, c.Storage.Backend))
	}
	if c.Storage.Quota < 0 {
		errs = append(errs, fmt.Errorf("%w: negative storage quota", ErrInvalidConfig))
	}
	switch c.Storage.Codec {
	case "json", "msgpack":
	default:
		errs = append(errs, fmt.Errorf("%w: codec %q", ErrInvalidConfig, c.Storage.Codec))
	}
	if c.UndoWindow <= 0 {
		errs = append(errs, fmt.Errorf("%w: undo window must be positive", ErrInvalidConfig))
	}
	if c.WriteLimit < 0 {
		errs = append(errs, fmt.Errorf("%w: negative write limit", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}
