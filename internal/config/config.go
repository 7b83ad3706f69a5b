// Package config loads TOML configuration with validated defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Defaults DefaultsConfig `toml:"defaults"`
	Logging  LoggingConfig  `toml:"logging"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type ServerConfig struct {
	Bind        string `toml:"bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type DefaultsConfig struct {
	// Actor is recorded in the change ledger when a mutation carries no
	// explicit actor.
	Actor string `toml:"actor"`
	// StreamColors overrides the palette cycled through when streams are
	// created without a color.
	StreamColors []string `toml:"stream_colors"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Server: ServerConfig{
			Bind:        "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Defaults: DefaultsConfig{
			Actor: "alignd-user",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	api := normalizePath(c.Server.APIEndpoint)
	mcp := normalizePath(c.Server.MCPEndpoint)
	if api != "" && api == mcp {
		return errors.New("server.api_endpoint and server.mcp_endpoint must differ")
	}

	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	for i, color := range c.Defaults.StreamColors {
		if !validHexColor(color) {
			return fmt.Errorf("defaults.stream_colors[%d] is not a hex color: %q", i, color)
		}
	}

	return nil
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return "/" + strings.Trim(path, "/")
}

func validHexColor(color string) bool {
	color = strings.TrimSpace(color)
	if len(color) != 7 || color[0] != '#' {
		return false
	}
	for _, r := range color[1:] {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
