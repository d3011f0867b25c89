// Package config loads actiond configuration from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes environment overrides. Double underscores separate
// levels: ACTIONPIPE_SERVER__PORT sets server.port.
const EnvPrefix = "ACTIONPIPE_"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Admin     AdminConfig     `koanf:"admin"`
	Filters   []FilterConfig  `koanf:"filters"`
}

type ServerConfig struct {
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory, none
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// AdminConfig controls the read-only invocation audit endpoints.
type AdminConfig struct {
	Enabled bool `koanf:"enabled"`
}

// FilterConfig declares one global filter. Only the fields relevant to Type
// are read.
type FilterConfig struct {
	Name  string `koanf:"name"`
	Type  string `koanf:"type"` // api_key, policy, webhook, validation, headers, logging, metrics, audit
	Order int    `koanf:"order"`
	When  string `koanf:"when"` // Optional expr condition over the action descriptor

	// api_key
	Keys []APIKeyConfig `koanf:"keys"`

	// policy
	Expression string `koanf:"expression"`
	DenyStatus int    `koanf:"deny_status"`

	// webhook
	URL     string            `koanf:"url"`
	Timeout time.Duration     `koanf:"timeout"`
	OnError string            `koanf:"on_error"` // allow or deny (default: deny)
	Retries int               `koanf:"retries"`
	Headers map[string]string `koanf:"headers"` // also used by the headers filter

	AllowPrivateNetwork bool `koanf:"allow_private_network"`
}

type APIKeyConfig struct {
	KeyHash     string   `koanf:"key_hash"`
	Principal   string   `koanf:"principal"`
	Scopes      []string `koanf:"scopes"`
	Description string   `koanf:"description"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path (a missing file is fine), applies environment overrides
// and defaults, and substitutes ${VAR} references in secrets.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	defaults := map[string]any{
		"server.port":            8080,
		"server.timeout":         "30s",
		"storage.type":           "memory",
		"storage.sqlite.path":    "actionpipe.db",
		"telemetry.service_name": "actiond",
		"metrics.path":           "/metrics",
	}
	for key, v := range defaults {
		if !k.Exists(key) {
			k.Set(key, v)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	for i := range cfg.Filters {
		f := &cfg.Filters[i]
		f.URL = substituteEnvVars(f.URL)
		for name, v := range f.Headers {
			f.Headers[name] = substituteEnvVars(v)
		}
		for j := range f.Keys {
			f.Keys[j].KeyHash = substituteEnvVars(f.Keys[j].KeyHash)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be expressed as defaults.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Storage.Type {
	case "memory", "sqlite", "none":
	default:
		return fmt.Errorf("storage.type %q not supported", c.Storage.Type)
	}
	seen := make(map[string]bool, len(c.Filters))
	for i, f := range c.Filters {
		if f.Type == "" {
			return fmt.Errorf("filters[%d]: type required", i)
		}
		name := f.Name
		if name == "" {
			name = f.Type
		}
		if seen[name] {
			return fmt.Errorf("filters[%d]: duplicate name %q", i, name)
		}
		seen[name] = true
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
