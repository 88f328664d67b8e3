package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tjfontaine/mobile-api-client/internal/auth"
)

// EnvPrefix prefixes every environment override, e.g. DEMO_API__BASE_URL.
const EnvPrefix = "DEMO_"

// DefaultPath is the config file read when no path is given.
const DefaultPath = "config.yaml"

type Config struct {
	App       AppConfig       `koanf:"app"`
	API       APIConfig       `koanf:"api"`
	Auth      AuthConfig      `koanf:"auth"`
	Storage   StorageConfig   `koanf:"storage"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Server    ServerConfig    `koanf:"server"`
}

type AppConfig struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

// APIConfig configures the request pipeline.
type APIConfig struct {
	BaseURL   string `koanf:"base_url"`
	TimeoutMS int    `koanf:"timeout_ms"`
	Retries   int    `koanf:"retries"`
	Debug     bool   `koanf:"debug"`
}

// Timeout returns TimeoutMS as a duration.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// AuthConfig enables token refresh when TokenURL is set.
type AuthConfig struct {
	TokenURL string `koanf:"token_url"`
	ClientID string `koanf:"client_id"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // memory, sqlite
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// RateLimitConfig limits outgoing requests. A non-positive RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps"`
	Burst int     `koanf:"burst"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`
}

// ServerConfig configures the local stub backend.
type ServerConfig struct {
	Port           int             `koanf:"port"`
	RequestTimeout time.Duration   `koanf:"request_timeout"`
	RateLimit      RateLimitConfig `koanf:"rate_limit"`
	Tokens         []auth.Token    `koanf:"tokens"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

var defaults = map[string]any{
	"app.name":               "mobile-api-client",
	"app.version":            "dev",
	"api.base_url":           "https://jsonplaceholder.typicode.com",
	"api.timeout_ms":         30000,
	"api.retries":            0,
	"api.debug":              false,
	"storage.type":           "memory",
	"storage.sqlite.path":    "demo.db",
	"server.port":            8080,
	"server.request_timeout": "30s",
}

// Load reads path (DefaultPath when empty), then applies DEMO_ environment
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			if err := k.Set(key, value); err != nil {
				return nil, fmt.Errorf("set default %s: %w", key, err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.API.BaseURL = substituteEnvVars(cfg.API.BaseURL)
	cfg.Auth.TokenURL = substituteEnvVars(cfg.Auth.TokenURL)
	cfg.Auth.ClientID = substituteEnvVars(cfg.Auth.ClientID)
	cfg.Storage.SQLite.Path = substituteEnvVars(cfg.Storage.SQLite.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL)
	}
	if c.API.TimeoutMS <= 0 {
		return fmt.Errorf("api.timeout_ms must be positive, got %d", c.API.TimeoutMS)
	}
	if c.API.Retries < 0 {
		return fmt.Errorf("api.retries must not be negative, got %d", c.API.Retries)
	}

	switch c.Storage.Type {
	case "memory":
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return errors.New("storage.sqlite.path is required for sqlite storage")
		}
	default:
		return fmt.Errorf("unknown storage.type %q", c.Storage.Type)
	}

	if c.Auth.TokenURL != "" && c.Auth.ClientID == "" {
		return errors.New("auth.client_id is required when auth.token_url is set")
	}

	for i, t := range c.Server.Tokens {
		if t.Hash == "" {
			return fmt.Errorf("server.tokens[%d]: token_hash is required", i)
		}
		if t.UserID <= 0 {
			return fmt.Errorf("server.tokens[%d]: user_id must be positive", i)
		}
	}

	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
