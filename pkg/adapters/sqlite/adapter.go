// Package sqlite provides an embedded SQLite database adapter for genmigrate.
// It needs no server, which makes it the adapter of choice for dry runs and
// tests.
package sqlite

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/genmigrate/pkg/adapter"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Dialect is the SQLite spelling used by the pipeline.
var Dialect = &adapter.Dialect{
	Name:         "sqlite",
	IdentQuote:   `"`,
	MaxParams:    32766,
	IgnorePrefix: "INSERT OR IGNORE INTO",
}

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, SQL: Dialect},
	}
}

// Connect opens the database file. Use ":memory:" (or an empty path) for an
// in-memory database. SQLite has a single schema per file, so cfg.Schema is
// only logged.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("opening sqlite", slog.String("path", path), slog.String("schema", cfg.Schema))

	if err := a.Open(ctx, "sqlite", path); err != nil {
		return err
	}
	a.Cfg = cfg
	return nil
}
