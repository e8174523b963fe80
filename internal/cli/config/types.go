// Package config loads the CLI configuration.
//
// The pipeline settings themselves are the shared internal/config types;
// this package adds the CLI-only fields and the layered loading from
// defaults, genmigrate.yaml, .env, GENMIGRATE_* environment variables and
// flags.
package config

import (
	intconfig "github.com/leapstack-labs/genmigrate/internal/config"
)

// Default CLI values.
const (
	DefaultOutput = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	EnvPrefix     = "GENMIGRATE_"
	// APIKeyEnv is read when generation.api_key is not configured.
	APIKeyEnv = "GROQ_API_KEY"
)

// Config holds all CLI configuration options.
type Config struct {
	intconfig.PipelineConfig `koanf:",squash"`

	Verbose      bool                 `koanf:"verbose"`
	OutputFormat string               `koanf:"output"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
	// Environment is the selected entry of Environments, if any.
	Environment string `koanf:"-"`
}

// EnvConfig holds per-environment overrides selected with --target.
type EnvConfig struct {
	SourceDir string                    `koanf:"source_dir"`
	OutputDir string                    `koanf:"output_dir"`
	Database  *intconfig.DatabaseConfig `koanf:"database"`
}

// Pipeline returns the pipeline configuration for the engine.
func (c *Config) Pipeline() *intconfig.PipelineConfig {
	return &c.PipelineConfig
}
