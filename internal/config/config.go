// Package config loads the service configuration from a YAML file and FORMFLOW_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/formflow/internal/logging"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix starts every environment override, e.g. FORMFLOW_SERVER_ADDR.
const EnvPrefix = "FORMFLOW_"

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// Admin mounts the authoring API under /admin.
	Admin bool `mapstructure:"admin"`
}

type DatabaseConfig struct {
	Path         string        `mapstructure:"path"`
	BusyTimeout  time.Duration `mapstructure:"busy_timeout"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	WAL          bool          `mapstructure:"wal"`
}

type CacheConfig struct {
	Driver string        `mapstructure:"driver"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
	// Lock serializes instance mutations across replicas with a Redis lock.
	Lock bool `mapstructure:"lock"`
	// LockTTL bounds how long a crashed holder can block others. Zero keeps the session default.
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			Admin:           true,
		},
		Database: DatabaseConfig{
			Path:         "formflow.db",
			BusyTimeout:  5 * time.Second,
			MaxOpenConns: 1,
			WAL:          true,
		},
		Cache: CacheConfig{
			Driver: CacheMemory,
			TTL:    30 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "formflow:session:",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path (optional; empty skips the file), overlays the process environment
// and validates the result.
func Load(path string) (*Config, error) {
	return load(path, os.Environ())
}

func load(path string, environ []string) (*Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}
	overlayEnv(raw, environ)

	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var sections = map[string]bool{"server": true, "database": true, "cache": true, "redis": true, "log": true}

// overlayEnv maps FORMFLOW_<SECTION>_<KEY>=v onto raw[section][key]. Variables naming an
// unknown section are ignored.
func overlayEnv(raw map[string]any, environ []string) {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		section, key, ok := strings.Cut(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "_")
		if !ok || !sections[section] || key == "" {
			continue
		}
		m, ok := raw[section].(map[string]any)
		if !ok {
			m = map[string]any{}
			raw[section] = m
		}
		m[key] = value
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	switch c.Cache.Driver {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required by the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.driver %q must be one of none, memory, redis", c.Cache.Driver))
	}
	if c.Redis.Lock && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required by redis.lock"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}
