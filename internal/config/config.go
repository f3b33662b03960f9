// Package config provides configuration loading for the repoquiz client.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the full client configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Files   FilesConfig   `koanf:"files"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig points the client at the analysis service.
type ServerConfig struct {
	// BaseURL is the API root, e.g. "http://localhost:8000/api".
	BaseURL string `koanf:"base_url"`

	// Timeout bounds each request.
	Timeout time.Duration `koanf:"timeout"`

	// RateLimit caps outgoing requests per second.
	RateLimit float64 `koanf:"rate_limit"`
}

// FilesConfig bounds the file-tree retrieval.
type FilesConfig struct {
	MaxDepth int `koanf:"max_depth"`
	MaxFiles int `koanf:"max_files"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:8000/api"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 60 * time.Second
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 10
	}
	if cfg.Files.MaxDepth == 0 {
		cfg.Files.MaxDepth = 4
	}
	if cfg.Files.MaxFiles == 0 {
		cfg.Files.MaxFiles = 500
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return fmt.Errorf("server.base_url must be an http(s) URL, got %q", c.Server.BaseURL)
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must not be negative")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	if c.Files.MaxDepth < 1 {
		return fmt.Errorf("files.max_depth must be at least 1")
	}
	if c.Files.MaxFiles < 1 {
		return fmt.Errorf("files.max_files must be at least 1")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
