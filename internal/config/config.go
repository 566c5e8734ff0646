// Package config loads tool configuration from YAML, layered over
// defaults so a partial file only overrides what it names.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linsu-lab/growthrate/internal/expphase"
)

// Config is the full configuration for the growthrate tool.
type Config struct {
	Detector expphase.Config `yaml:"detector"`
	Output   OutputConfig    `yaml:"output"`
	Plot     PlotConfig      `yaml:"plot"`
	Server   ServerConfig    `yaml:"server"`
	Store    StoreConfig     `yaml:"store"`
}

// OutputConfig controls console reporting.
type OutputConfig struct {
	Format      string `yaml:"format"`      // table, json, or csv
	Concurrency int    `yaml:"concurrency"` // Replicates analyzed in parallel
}

// PlotConfig controls growth-curve rendering.
type PlotConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"` // Output directory for PNG files
}

// ServerConfig controls the analysis HTTP service.
type ServerConfig struct {
	Addr             string  `yaml:"addr"`
	ReadTimeoutSecs  int     `yaml:"read_timeout_secs"`
	WriteTimeoutSecs int     `yaml:"write_timeout_secs"`
	IdleTimeoutSecs  int     `yaml:"idle_timeout_secs"`
	RateLimitRPS     float64 `yaml:"rate_limit_rps"`
	RateBurst        int     `yaml:"rate_burst"`
}

// ReadTimeout returns the configured read timeout as a duration.
func (c ServerConfig) ReadTimeout() time.Duration { return secs(c.ReadTimeoutSecs) }

// WriteTimeout returns the configured write timeout as a duration.
func (c ServerConfig) WriteTimeout() time.Duration { return secs(c.WriteTimeoutSecs) }

// IdleTimeout returns the configured idle timeout as a duration.
func (c ServerConfig) IdleTimeout() time.Duration { return secs(c.IdleTimeoutSecs) }

// StoreConfig controls optional Postgres persistence of analysis runs.
// An empty DSN disables persistence.
type StoreConfig struct {
	DSN         string `yaml:"dsn"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// Timeout returns the configured query timeout as a duration.
func (c StoreConfig) Timeout() time.Duration { return secs(c.TimeoutSecs) }

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Detector: expphase.DefaultConfig(),
		Output: OutputConfig{
			Format:      "table",
			Concurrency: 4,
		},
		Plot: PlotConfig{
			Dir: "plots",
		},
		Server: ServerConfig{
			Addr:             "127.0.0.1:8080",
			ReadTimeoutSecs:  10,
			WriteTimeoutSecs: 30,
			IdleTimeoutSecs:  60,
			RateLimitRPS:     5,
			RateBurst:        10,
		},
		Store: StoreConfig{
			TimeoutSecs: 5,
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return cfg, nil
}
