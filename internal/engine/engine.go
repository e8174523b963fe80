// Package engine sequences the migration pipeline.
//
// A run checks the source files, connects to the target database, clears
// the dataset tables, then synthesizes and applies the schema, loads every
// dataset, runs generated validation queries, translates optional
// procedural SQL, generates analytic queries and finally writes the report.
// Only the source check and the connection are fatal; every later stage is
// best-effort and folds its failures into the RunResult.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/genmigrate/internal/catalog"
	"github.com/leapstack-labs/genmigrate/internal/config"
	"github.com/leapstack-labs/genmigrate/internal/generate"
	"github.com/leapstack-labs/genmigrate/internal/prompts"
	"github.com/leapstack-labs/genmigrate/internal/state"
	"github.com/leapstack-labs/genmigrate/pkg/adapter"
)

// Engine runs the pipeline for one configuration. An Engine owns at most one
// database session, opened by Run and released by Close.
type Engine struct {
	cfg      *config.PipelineConfig
	catalog  *catalog.Catalog
	gen      generate.Generator
	dbConfig adapter.Config
	db       adapter.Adapter

	store     state.Store
	ownsStore bool

	logger   *slog.Logger
	progress func(Event)
	now      func() time.Time
}

// Config holds engine configuration.
type Config struct {
	// Pipeline is the run configuration. Defaults are applied to unset fields.
	Pipeline *config.PipelineConfig
	// Generator answers the four generation calls. Nil builds one from
	// Pipeline.Generation.
	Generator generate.Generator
	// Store records run history. When nil and Pipeline.StatePath is set, a
	// SQLite store is opened there.
	Store state.Store
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// Progress receives stage events as they happen (optional).
	Progress func(Event)
	// Now overrides the clock (tests).
	Now func() time.Time
}

// New validates the configuration and prepares an engine. No database
// connection is made until Run.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline configuration is required")
	}

	p := cfg.Pipeline
	config.ApplyDefaults(p)
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	gen := cfg.Generator
	if gen == nil {
		gen = generate.New(generate.Config{
			BaseURL:     p.Generation.BaseURL,
			APIKey:      p.Generation.APIKey,
			Model:       p.Generation.Model,
			Temperature: p.Generation.Temperature,
			MaxTokens:   p.Generation.MaxTokens,
		}, logger)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	dbConfig := p.Database.AdapterConfig()
	dbConfig.BatchRows = p.Load.BatchSize

	e := &Engine{
		cfg:      p,
		catalog:  catalog.New(p.SourceDir, p.Datasets, p.SampleRows),
		gen:      gen,
		dbConfig: dbConfig,
		store:    cfg.Store,
		logger:   logger,
		progress: cfg.Progress,
		now:      now,
	}

	if e.store == nil && p.StatePath != "" {
		store := state.NewSQLiteStore(logger)
		if err := store.Open(p.StatePath); err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		e.store = store
		e.ownsStore = true
	}

	logger.Debug("engine initialized",
		slog.String("source_dir", p.SourceDir),
		slog.String("database", dbConfig.Type),
		slog.String("schema", dbConfig.Schema))
	return e, nil
}

// Catalog returns the source catalog of the configured datasets.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Dialect returns the product name of the target database.
func (e *Engine) Dialect() string {
	return prompts.DialectName(e.dbConfig.Type)
}

// connect opens the single database session used for the rest of the run.
func (e *Engine) connect(ctx context.Context) error {
	e.logger.Debug("connecting to database", slog.String("adapter_type", e.dbConfig.Type))

	db, err := adapter.NewAdapter(e.dbConfig, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create database adapter: %w", err)
	}
	if err := db.Connect(ctx, e.dbConfig); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	e.db = db
	return nil
}

// Close releases the database session and, when the engine opened it, the
// state store.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
		e.db = nil
	}
	if e.store != nil && e.ownsStore {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
		e.store = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing engine: %w", errors.Join(errs...))
	}
	return nil
}
