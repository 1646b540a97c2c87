// Package config loads server configuration from an optional YAML file,
// falling back to built-in defaults when the file is absent.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigPathEnv names the environment variable used to override the default
// config file path.
const ConfigPathEnv = "MATCH_CONFIG"

// DefaultConfigPath is used when ConfigPathEnv is unset.
const DefaultConfigPath = "config/server.yaml"

// Server holds all configuration for the match server.
type Server struct {
	// Network
	BindAddress string `yaml:"bind_address"`

	// Game rules sent to both players at Start.
	Rules GameRules `yaml:"rules"`

	// Logging
	LogLevel string `yaml:"log_level"` // debug, info, warn, error (default: info)

	// Audit log, optional.
	Audit AuditConfig `yaml:"audit"`
}

// GameRules are the tunable parameters of a match.
type GameRules struct {
	MaxTurns    uint32 `yaml:"max_turns"`
	TotalPoints uint32 `yaml:"total_points"`
}

// AuditConfig controls the optional Postgres-backed audit log.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// DefaultServer returns Server config with sensible defaults.
func DefaultServer() Server {
	return Server{
		BindAddress: "0.0.0.0:7777",
		Rules: GameRules{
			MaxTurns:    7,
			TotalPoints: 700,
		},
		LogLevel: "info",
		Audit: AuditConfig{
			Enabled: false,
		},
	}
}

// LoadServer loads server config from a YAML file. If the file doesn't
// exist, returns defaults.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// ConfigPath resolves the config file path: the env var override if set,
// otherwise the default path.
func ConfigPath() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p
	}
	return DefaultConfigPath
}
