// Package config loads server configuration from defaults, an optional YAML
// file, command-line flags and environment overrides, in that order.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment override variables. They beat both the file and the flags,
// matching container deployments where the image bakes a config file and the
// orchestrator injects the address.
const (
	EnvListen = "STREAM_LISTEN"
	EnvMode   = "STREAM_ENV"
)

// Config holds all server configuration.
type Config struct {
	Listen string `yaml:"listen"`
	Env    string `yaml:"env"`

	MaxConnections int `yaml:"max_connections"`
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// CrossDomain enables the CORS wrapper around the mux.
	CrossDomain bool `yaml:"crossdomain"`

	// RateLimit caps requests per second per server; 0 disables limiting.
	RateLimit int `yaml:"rate_limit"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:         ":8080",
		Env:            "development",
		MaxConnections: 10000,
		MaxHeaderBytes: 80 * 1024,
		IdleTimeout:    60 * time.Second,
		WriteTimeout:   30 * time.Second,
		CrossDomain:    true,
	}
}

// Load builds a configuration from the defaults, the YAML file at path (when
// non-empty) and the environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// New loads configuration for the server binary: flags select the file and
// override individual fields.
func New() (*Config, error) {
	def := Default()
	confPath := flag.String("conf", "", "path to YAML config file")
	listen := flag.String("listen", def.Listen, "TCP listen address")
	env := flag.String("env", def.Env, "environment (development/production)")
	maxConns := flag.Int("max-connections", def.MaxConnections, "maximum concurrent connections")
	idle := flag.Duration("idle-timeout", def.IdleTimeout, "keep-alive idle timeout")
	write := flag.Duration("write-timeout", def.WriteTimeout, "response write timeout")
	crossDomain := flag.Bool("crossdomain", def.CrossDomain, "enable CORS responses")
	flag.Parse()

	cfg := Default()
	if *confPath != "" {
		data, err := os.ReadFile(*confPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", *confPath, err)
		}
	}

	// Flags given explicitly on the command line beat the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = *listen
		case "env":
			cfg.Env = *env
		case "max-connections":
			cfg.MaxConnections = *maxConns
		case "idle-timeout":
			cfg.IdleTimeout = *idle
		case "write-timeout":
			cfg.WriteTimeout = *write
		case "crossdomain":
			cfg.CrossDomain = *crossDomain
		}
	})

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvMode); v != "" {
		c.Env = v
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address is empty")
	}
	if c.MaxHeaderBytes < 0 {
		return fmt.Errorf("config: max_header_bytes %d is negative", c.MaxHeaderBytes)
	}
	if c.IdleTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("config: timeouts must not be negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("config: rate_limit %d is negative", c.RateLimit)
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
