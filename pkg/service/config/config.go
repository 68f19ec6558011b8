// Package config holds the server configuration, loaded from defaults, an
// optional .env file, and MEDIAMATE_* environment variables in that order.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/mediamate/mediamate/pkg/domain/errors"
)

// Config is the runtime configuration of the mediamate server.
type Config struct {
	ListenAddr      string
	DBPath          string
	LogLevel        string
	EnableCORS      bool
	ShutdownTimeout time.Duration
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:      ":8080",
		DBPath:          "data/mediamate.db",
		LogLevel:        "info",
		EnableCORS:      true,
		ShutdownTimeout: 30 * time.Second,
	}
}

// envMappings binds environment variables to configuration fields.
var envMappings = []struct {
	envVar string
	apply  func(c *Config, v string)
}{
	{"MEDIAMATE_LISTEN_ADDR", func(c *Config, v string) { c.ListenAddr = v }},
	{"MEDIAMATE_DB_PATH", func(c *Config, v string) { c.DBPath = v }},
	{"MEDIAMATE_LOG_LEVEL", func(c *Config, v string) { c.LogLevel = v }},
	{"MEDIAMATE_ENABLE_CORS", func(c *Config, v string) {
		if b, err := strconv.ParseBool(v); err == nil {
			c.EnableCORS = b
		}
	}},
	{"MEDIAMATE_SHUTDOWN_TIMEOUT", func(c *Config, v string) {
		if d, err := time.ParseDuration(v); err == nil {
			c.ShutdownTimeout = d
		}
	}},
}

// Load builds the configuration: defaults, then the .env file if present,
// then process environment variables.
func Load() (Config, error) {
	// missing .env is fine; an unreadable one is not
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, errors.New(errors.CodeConfigInvalid, "config", "failed to load .env file", err)
	}

	c := Default()
	c.ApplyEnv()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ApplyEnv overlays MEDIAMATE_* environment variables onto the config.
func (c *Config) ApplyEnv() {
	for _, m := range envMappings {
		if v := os.Getenv(m.envVar); v != "" {
			m.apply(c, v)
		}
	}
}

// Validate checks the configuration for usability.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New(errors.CodeConfigInvalid, "config", "listen address must not be empty", nil)
	}
	if c.DBPath == "" {
		return errors.New(errors.CodeConfigInvalid, "config", "database path must not be empty", nil)
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return errors.Newf(errors.CodeConfigInvalid, "config", "unknown log level %q", c.LogLevel)
	}
	return nil
}
