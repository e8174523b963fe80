// Package postgres provides a PostgreSQL database adapter for genmigrate.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/leapstack-labs/genmigrate/pkg/adapter"
)

// Dialect is the PostgreSQL spelling used by the pipeline.
var Dialect = &adapter.Dialect{
	Name:                 "postgres",
	IdentQuote:           `"`,
	NumberedPlaceholders: true,
	MaxParams:            65535,
	IgnoreSuffix:         " ON CONFLICT DO NOTHING",
	DropCascade:          true,
}

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, SQL: Dialect},
	}
}

// Connect establishes a connection to PostgreSQL, creates the target schema
// if absent and puts it first on the search path.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	if err := a.Open(ctx, "pgx", buildPostgresDSN(cfg)); err != nil {
		return err
	}
	a.Cfg = cfg

	if cfg.Schema == "" {
		return nil
	}
	name := a.SQL.QuoteIdent(cfg.Schema)
	if err := a.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+name); err != nil {
		_ = a.Close()
		return fmt.Errorf("failed to create schema %s: %w", cfg.Schema, err)
	}
	if err := a.Exec(ctx, "SET search_path TO "+name); err != nil {
		_ = a.Close()
		return fmt.Errorf("failed to select schema %s: %w", cfg.Schema, err)
	}
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	database := cfg.Database
	if database == "" {
		database = "postgres"
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	parts := []string{
		fmt.Sprintf("host=%s", host),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("dbname=%s", database),
		fmt.Sprintf("sslmode=%s", sslmode),
	}
	if cfg.Username != "" {
		parts = append(parts, fmt.Sprintf("user=%s", cfg.Username))
	}
	if cfg.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", quoteValue(cfg.Password)))
	}

	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		if k != "sslmode" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, quoteValue(cfg.Options[k])))
	}

	return strings.Join(parts, " ")
}

// quoteValue quotes a keyword/value connection string value when needed.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
