// Package duckdb provides a DuckDB database adapter for genmigrate.
package duckdb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/genmigrate/pkg/adapter"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Dialect is the DuckDB spelling used by the pipeline.
var Dialect = &adapter.Dialect{
	Name:         "duckdb",
	IdentQuote:   `"`,
	MaxParams:    65535,
	IgnorePrefix: "INSERT OR IGNORE INTO",
}

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, SQL: Dialect},
	}
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == ":memory:" {
		path = ""
	}

	if err := a.Open(ctx, "duckdb", path); err != nil {
		return err
	}
	a.Cfg = cfg

	if cfg.Schema == "" || cfg.Schema == "main" {
		return nil
	}
	name := a.SQL.QuoteIdent(cfg.Schema)
	if err := a.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+name); err != nil {
		_ = a.Close()
		return fmt.Errorf("failed to create schema %s: %w", cfg.Schema, err)
	}
	if err := a.Exec(ctx, "SET schema = '"+cfg.Schema+"'"); err != nil {
		_ = a.Close()
		return fmt.Errorf("failed to select schema %s: %w", cfg.Schema, err)
	}
	return nil
}
