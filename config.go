package ddns

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the process-wide configuration, loaded once at startup and
// treated as immutable for the process lifetime.
type Config struct {
	Server    ServerConfig     `toml:"server"`
	Providers []ProviderConfig `toml:"providers"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
	// ProviderTimeout bounds the remote calls of one reconciliation,
	// in seconds. Zero means DefaultTimeout.
	ProviderTimeout int `toml:"provider_timeout"`
}

// ProviderConfig describes one DNS provider entry. Name is the token
// used in request paths, Type selects the client implementation, and
// Settings carries type-specific credentials and scope (zone) opaquely.
type ProviderConfig struct {
	Name     string            `toml:"name"`
	Type     string            `toml:"type"`
	Settings map[string]string `toml:"settings"`
}

// LoadConfig reads and validates a TOML config file. Setting values may
// reference environment variables as ${VAR}, which are expanded here so
// credentials can stay out of the file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			Port:     3000,
			LogLevel: "info",
		},
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("config %s: no providers configured", path)
	}
	seen := make(map[string]bool, len(cfg.Providers))
	for i, p := range cfg.Providers {
		if p.Name == "" {
			return nil, fmt.Errorf("config %s: provider %d: missing required field \"name\"", path, i)
		}
		if p.Type == "" {
			return nil, fmt.Errorf("config %s: provider %q: missing required field \"type\"", path, p.Name)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("config %s: duplicate provider name %q", path, p.Name)
		}
		seen[p.Name] = true

		for k, v := range p.Settings {
			p.Settings[k] = os.ExpandEnv(v)
		}
	}

	return cfg, nil
}
