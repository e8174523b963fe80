// Package config provides the configuration value types shared by the
// pipeline engine and the CLI. It is decoupled from flag parsing so that
// tests and other callers can build a run configuration directly.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/genmigrate/pkg/adapter"
)

// DatabaseConfig holds the target database connection settings.
type DatabaseConfig struct {
	Type string `koanf:"type"` // mysql, postgres, sqlite, duckdb

	// File-based databases (SQLite, DuckDB)
	Path string `koanf:"path"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	// Database is the server database to connect to before selecting the
	// schema (Postgres only).
	Database string `koanf:"database"`

	// Schema is created if absent and selected as the active context.
	Schema string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`
}

// Validate checks the database configuration against the adapter registry.
func (d *DatabaseConfig) Validate() error {
	if d.Type == "" {
		return fmt.Errorf("database type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(d.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      d.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}

// AdapterConfig converts the settings into an adapter.Config.
func (d *DatabaseConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:     strings.ToLower(d.Type),
		Path:     d.Path,
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		Schema:   d.Schema,
		Username: d.User,
		Password: d.Password,
		Options:  d.Options,
	}
}

// GenerationConfig holds settings for the OpenAI-compatible generation
// endpoint.
type GenerationConfig struct {
	BaseURL     string  `koanf:"base_url"`
	APIKey      string  `koanf:"api_key"`
	Model       string  `koanf:"model"`
	Temperature float32 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`
}

// LoadConfig controls bulk loading.
type LoadConfig struct {
	// OnConflict is "ignore" (skip rows violating uniqueness) or "error".
	OnConflict string `koanf:"on_conflict"`
	// BatchSize caps rows per INSERT statement; 0 lets the dialect decide.
	BatchSize int `koanf:"batch_size"`
	// TextColumns are always loaded as text, e.g. phone numbers.
	TextColumns []string `koanf:"text_columns"`
}

// ConflictMode maps OnConflict to an adapter.ConflictMode.
func (l *LoadConfig) ConflictMode() (adapter.ConflictMode, error) {
	switch strings.ToLower(l.OnConflict) {
	case "", "ignore":
		return adapter.ConflictIgnore, nil
	case "error":
		return adapter.ConflictError, nil
	default:
		return 0, fmt.Errorf("invalid load.on_conflict %q (expected ignore or error)", l.OnConflict)
	}
}

// Reference is a foreign key from the fact dataset to a parent dataset.
type Reference struct {
	Column       string `koanf:"column"`
	Table        string `koanf:"table"`
	ParentColumn string `koanf:"parent_column"`
}

// DomainConfig names the transactional dataset and its relationships. It
// drives the validation instruction.
type DomainConfig struct {
	Fact         string      `koanf:"fact"`
	AmountColumn string      `koanf:"amount_column"`
	References   []Reference `koanf:"references"`
}

// AnalyticsConfig controls the analytics stage.
type AnalyticsConfig struct {
	// Execute runs the generated analytic queries and records their results.
	Execute bool `koanf:"execute"`
	// RowLimit caps rows kept per analytic query result; 0 keeps all.
	RowLimit int `koanf:"row_limit"`
}

// PipelineConfig is the complete configuration of one migration run.
type PipelineConfig struct {
	SourceDir      string            `koanf:"source_dir"`
	OutputDir      string            `koanf:"output_dir"`
	StatePath      string            `koanf:"state_path"`
	Datasets       []string          `koanf:"datasets"`
	SampleRows     int               `koanf:"sample_rows"`
	ProceduralFile string            `koanf:"procedural_file"`
	Database       *DatabaseConfig   `koanf:"database"`
	Generation     *GenerationConfig `koanf:"generation"`
	Load           *LoadConfig       `koanf:"load"`
	Domain         *DomainConfig     `koanf:"domain"`
	Analytics      *AnalyticsConfig  `koanf:"analytics"`
}

// Validate checks required fields.
func (p *PipelineConfig) Validate() error {
	if p.SourceDir == "" {
		return fmt.Errorf("source_dir is required")
	}
	if len(p.Datasets) == 0 {
		return fmt.Errorf("datasets must name at least one dataset")
	}
	seen := make(map[string]bool, len(p.Datasets))
	for _, name := range p.Datasets {
		key := strings.ToUpper(name)
		if seen[key] {
			return fmt.Errorf("dataset %s is listed twice", name)
		}
		seen[key] = true
	}
	if p.Database == nil {
		return fmt.Errorf("database configuration is required")
	}
	if err := p.Database.Validate(); err != nil {
		return err
	}
	if p.Load != nil {
		if _, err := p.Load.ConflictMode(); err != nil {
			return err
		}
	}
	if p.Domain != nil && p.Domain.Fact != "" && !seen[strings.ToUpper(p.Domain.Fact)] {
		return fmt.Errorf("domain.fact %s is not one of the datasets", p.Domain.Fact)
	}
	return nil
}
