// Package config loads distillai settings from a YAML file and DISTILLAI_*
// environment variables, in that order of precedence, lowest first.
//
// Example file:
//
//	database:
//	  driver: postgres
//	  dsn: postgres://distillai@localhost/distillai?sslmode=disable
//	  change_tracking: true
//	server:
//	  port: "8080"
//	surrealdb:
//	  url: ws://localhost:8000/rpc
//	  namespace: distillai
//	  database: replica
//	sync:
//	  interval: 30s
//	system_categories:
//	  - name: Lecture
//	    icon: book
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/paduck86/distillai/pkg/store"
	"gopkg.in/yaml.v3"
)

const envPrefix = "DISTILLAI_"

type Config struct {
	Database         DatabaseConfig      `yaml:"database"`
	Server           ServerConfig        `yaml:"server"`
	SurrealDB        SurrealDBConfig     `yaml:"surrealdb"`
	Sync             SyncConfig          `yaml:"sync"`
	Log              LogConfig           `yaml:"log"`
	SystemCategories []store.NewCategory `yaml:"system_categories"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver         string `yaml:"driver"`
	DSN            string `yaml:"dsn"`
	MaxOpenConns   int    `yaml:"max_open_conns"`
	MaxIdleConns   int    `yaml:"max_idle_conns"`
	ChangeTracking bool   `yaml:"change_tracking"`
}

type ServerConfig struct {
	Port     string `yaml:"port"`
	ReadOnly bool   `yaml:"read_only"`
}

type SurrealDBConfig struct {
	URL       string `yaml:"url"`
	Namespace string `yaml:"namespace"`
	Database  string `yaml:"database"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

type SyncConfig struct {
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
	Interval   time.Duration `yaml:"interval"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Format is "json" or "console".
	Format string `yaml:"format"`
	// Path appends logs to a file instead of stderr.
	Path string `yaml:"path"`
}

// Default returns the settings used when nothing is configured: a local
// SQLite database and no replica.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "distillai.db",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Server: ServerConfig{Port: "8080"},
		SurrealDB: SurrealDBConfig{
			Namespace: "distillai",
			Database:  "replica",
		},
		Sync: SyncConfig{
			BatchSize:  500,
			MaxRetries: 5,
			Interval:   30 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		SystemCategories: []store.NewCategory{
			{Name: "Lecture", Icon: "book"},
			{Name: "Meeting Notes", Icon: "users"},
			{Name: "Paper", Icon: "file-text"},
			{Name: "Video", Icon: "video"},
			{Name: "Podcast", Icon: "mic"},
		},
	}
}

// Load reads path, when not empty, over the defaults, applies the
// environment and validates the result. Unknown keys in the file are errors.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// getEnv returns the value of DISTILLAI_<key>, or defaultValue when unset or
// empty.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) applyEnv() error {
	c.Database.Driver = getEnv("DATABASE_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DATABASE_DSN", c.Database.DSN)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.SurrealDB.URL = getEnv("SURREALDB_URL", c.SurrealDB.URL)
	c.SurrealDB.Namespace = getEnv("SURREALDB_NAMESPACE", c.SurrealDB.Namespace)
	c.SurrealDB.Database = getEnv("SURREALDB_DATABASE", c.SurrealDB.Database)
	c.SurrealDB.Username = getEnv("SURREALDB_USERNAME", c.SurrealDB.Username)
	c.SurrealDB.Password = getEnv("SURREALDB_PASSWORD", c.SurrealDB.Password)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Log.Path = getEnv("LOG_PATH", c.Log.Path)

	var errs []error
	boolEnv := func(key string, target *bool) {
		if raw := getEnv(key, ""); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*target = v
		}
	}
	intEnv := func(key string, target *int) {
		if raw := getEnv(key, ""); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*target = v
		}
	}
	boolEnv("CHANGE_TRACKING", &c.Database.ChangeTracking)
	boolEnv("READ_ONLY", &c.Server.ReadOnly)
	intEnv("SYNC_BATCH_SIZE", &c.Sync.BatchSize)
	intEnv("SYNC_MAX_RETRIES", &c.Sync.MaxRetries)
	if raw := getEnv("SYNC_INTERVAL", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSYNC_INTERVAL: %w", envPrefix, err))
		} else {
			c.Sync.Interval = d
		}
	}
	return errors.Join(errs...)
}

// Validate checks the settings that have no usable fallback.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be a number between 1 and 65535, got %q", c.Server.Port))
	}
	if c.Sync.BatchSize <= 0 {
		errs = append(errs, errors.New("sync.batch_size must be positive"))
	}
	if c.Sync.Interval <= 0 {
		errs = append(errs, errors.New("sync.interval must be positive"))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	for i, cat := range c.SystemCategories {
		if cat.Name == "" {
			errs = append(errs, fmt.Errorf("system_categories[%d]: name is required", i))
		}
	}
	return errors.Join(errs...)
}

// ReplicaEnabled reports whether a SurrealDB replica is configured.
func (c *Config) ReplicaEnabled() bool {
	return c.SurrealDB.URL != ""
}
