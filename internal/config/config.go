package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Progress storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" validate:"omitempty,numeric"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" validate:"omitempty,hostname_port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" validate:"omitempty,url"`
	} `yaml:"postgres"`
	Progress struct {
		Backend string `yaml:"backend" validate:"omitempty,oneof=memory file redis sqlite"`
		Dir     string `yaml:"dir"`
		DSN     string `yaml:"dsn"`
		IdleTTL string `yaml:"idleTTL"`
	} `yaml:"progress"`
	Trivia struct {
		BaseURL       string `yaml:"baseURL" validate:"omitempty,url"`
		Timeout       string `yaml:"timeout"`
		CacheTTL      string `yaml:"cacheTTL"`
		MinInterval   string `yaml:"minInterval"`
		DefaultAmount int    `yaml:"defaultAmount" validate:"gte=0,lte=50"`
	} `yaml:"trivia"`
	Auth struct {
		Mode     string `yaml:"mode" validate:"omitempty,oneof=noop jwt"`
		Secret   string `yaml:"secret" validate:"required_if=Mode jwt"`
		Issuer   string `yaml:"issuer"`
		Audience string `yaml:"audience"`
	} `yaml:"auth"`
	Sentry struct {
		DSN         string `yaml:"dsn"`
		Environment string `yaml:"environment"`
	} `yaml:"sentry"`
	Log struct {
		Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Progress.Backend = BackendMemory
	cfg.Progress.IdleTTL = "30m"
	cfg.Trivia.Timeout = "10s"
	cfg.Trivia.CacheTTL = "10m"
	cfg.Trivia.MinInterval = "5s"
	cfg.Auth.Mode = "noop"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads YAML config from path on top of Default and validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields Default.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

var validate = validator.New()

// Validate checks field constraints and that the chosen progress backend has
// what it needs.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Progress.Backend == BackendRedis && c.Redis.Addr == "" {
		return errors.New("invalid config: progress backend redis requires redis.addr")
	}
	for name, raw := range map[string]string{
		"redis.ttl":        c.Redis.TTL,
		"progress.idleTTL": c.Progress.IdleTTL,
		"trivia.timeout":   c.Trivia.Timeout,
		"trivia.cacheTTL":  c.Trivia.CacheTTL,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid config: %s: %w", name, err)
		}
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
