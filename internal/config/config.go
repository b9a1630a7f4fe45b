// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type APIConfig struct {
	BaseURL         string        `yaml:"base_url"`
	ProtectedPrefix string        `yaml:"protected_prefix"` // paths containing this are signed with the api credential
	RequestTimeout  time.Duration `yaml:"request_timeout"`  // 0 = never abort a dispatched call
	UserAgent       string        `yaml:"user_agent"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type CredentialsConfig struct {
	Backend      string        `yaml:"backend"`     // memory|file|redis
	Persistence  string        `yaml:"persistence"` // ephemeral|durable|none
	Dir          string        `yaml:"dir"`         // durable dir for the file backend
	Namespace    string        `yaml:"namespace"`   // key/file suffix, one per account
	EphemeralTTL time.Duration `yaml:"ephemeral_ttl"`
	SealKey      string        `yaml:"seal_key"` // 16/24/32 bytes; seals the api secret at rest when set
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type CacheConfig struct {
	Backend  string        `yaml:"backend"` // memory|redis
	GuardTTL time.Duration `yaml:"guard_ttl"`
}

type ReconcileConfig struct {
	SettleDelay  time.Duration `yaml:"settle_delay"`
	PollInterval time.Duration `yaml:"poll_interval"` // 0 disables periodic polling
	PageSize     int           `yaml:"page_size"`
	Workers      int           `yaml:"workers"`
	Concurrency  int           `yaml:"concurrency"` // parallel status checks per poll
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type Config struct {
	API         APIConfig         `yaml:"api"`
	Log         LogConfig         `yaml:"log"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Redis       RedisConfig       `yaml:"redis"`
	Cache       CacheConfig       `yaml:"cache"`
	Reconcile   ReconcileConfig   `yaml:"reconcile"`
	Server      ServerConfig      `yaml:"server"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies defaults and validates it.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse decodes raw YAML; split out so tests need no files.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if v := os.Getenv("VERIFYCTL_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("VERIFYCTL_SEAL_KEY"); v != "" {
		cfg.Credentials.SealKey = v
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.API.ProtectedPrefix == "" {
		cfg.API.ProtectedPrefix = "/api/v1/"
	}
	if cfg.API.UserAgent == "" {
		cfg.API.UserAgent = "verifyctl"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	cfg.Credentials.Backend = strings.ToLower(cfg.Credentials.Backend)
	if cfg.Credentials.Backend == "" {
		cfg.Credentials.Backend = "file"
	}
	if cfg.Credentials.Persistence == "" {
		cfg.Credentials.Persistence = "ephemeral"
	}
	if cfg.Credentials.Namespace == "" {
		cfg.Credentials.Namespace = "default"
	}
	if cfg.Credentials.EphemeralTTL <= 0 {
		cfg.Credentials.EphemeralTTL = 12 * time.Hour
	}
	cfg.Cache.Backend = strings.ToLower(cfg.Cache.Backend)
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.GuardTTL <= 0 {
		cfg.Cache.GuardTTL = 10 * time.Minute
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Reconcile.SettleDelay <= 0 {
		cfg.Reconcile.SettleDelay = 5 * time.Second
	}
	if cfg.Reconcile.PageSize <= 0 {
		cfg.Reconcile.PageSize = 50
	}
	if cfg.Reconcile.Workers <= 0 {
		cfg.Reconcile.Workers = 4
	}
	if cfg.Reconcile.Concurrency <= 0 {
		cfg.Reconcile.Concurrency = 4
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8088
	}
}

func (cfg *Config) validate() error {
	if cfg.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if _, err := url.ParseRequestURI(cfg.API.BaseURL); err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	switch strings.ToLower(cfg.Credentials.Backend) {
	case "memory", "file":
	case "redis":
		if cfg.Redis.URL == "" {
			return errors.New("redis.url is required for the redis credential backend")
		}
	default:
		return fmt.Errorf("credentials.backend %q not supported", cfg.Credentials.Backend)
	}
	if n := len(cfg.Credentials.SealKey); n != 0 && n != 16 && n != 24 && n != 32 {
		return fmt.Errorf("credentials.seal_key must be 16, 24 or 32 bytes; got %d", n)
	}
	switch strings.ToLower(cfg.Cache.Backend) {
	case "memory":
	case "redis":
		if cfg.Redis.URL == "" {
			return errors.New("redis.url is required for the redis job cache")
		}
	default:
		return fmt.Errorf("cache.backend %q not supported", cfg.Cache.Backend)
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
