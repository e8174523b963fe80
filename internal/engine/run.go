package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/genmigrate/internal/catalog"
	"github.com/leapstack-labs/genmigrate/internal/generate"
	"github.com/leapstack-labs/genmigrate/internal/loader"
	"github.com/leapstack-labs/genmigrate/internal/prompts"
	"github.com/leapstack-labs/genmigrate/internal/report"
	"github.com/leapstack-labs/genmigrate/internal/schema"
	"github.com/leapstack-labs/genmigrate/internal/state"
	"github.com/leapstack-labs/genmigrate/internal/statement"
	"github.com/leapstack-labs/genmigrate/internal/validate"
)

// Run executes every stage once, in order. An error is returned only when
// the sources are incomplete or the database is unreachable; in that case
// nothing else has happened. Any other failure is recorded in the result.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	res := &RunResult{StartedAt: e.now()}
	e.logger.Info("starting run", slog.String("source_dir", e.catalog.Dir()), slog.String("database", e.dbConfig.Type))

	if e.store != nil {
		run := &state.Run{
			SourceDir:    e.catalog.Dir(),
			DatabaseType: e.dbConfig.Type,
			Schema:       e.dbConfig.Schema,
			Model:        e.cfg.Generation.Model,
			StartedAt:    res.StartedAt.UTC(),
		}
		if err := e.store.CreateRun(ctx, run); err != nil {
			e.logger.Warn("failed to record run", slog.String("error", err.Error()))
		} else {
			res.RunID = run.ID
		}
	}

	if err := e.checkSources(ctx, res); err != nil {
		return e.abort(ctx, res, err)
	}
	if err := e.connectStage(ctx, res); err != nil {
		return e.abort(ctx, res, err)
	}

	e.dropTables(ctx, res)

	datasets := e.describe(res)
	summary := catalog.Summary(datasets)

	e.schemaStage(ctx, res, summary)
	e.loadStage(ctx, res, datasets)
	e.validationStage(ctx, res, summary)
	e.translationStage(ctx, res)
	e.analyticsStage(ctx, res, summary)
	e.reportStage(ctx, res)

	res.CompletedAt = e.now()
	if e.store != nil && res.RunID != "" {
		if err := e.store.CompleteRun(ctx, res.RunID, state.RunStatusCompleted, res.ReportPath, ""); err != nil {
			e.logger.Warn("failed to complete run record", slog.String("error", err.Error()))
		}
	}
	e.logger.Info("run completed", slog.String("run_id", res.RunID), slog.String("report", res.ReportPath))
	return res, nil
}

func (e *Engine) abort(ctx context.Context, res *RunResult, err error) (*RunResult, error) {
	res.CompletedAt = e.now()
	if e.store != nil && res.RunID != "" {
		if serr := e.store.CompleteRun(ctx, res.RunID, state.RunStatusFailed, "", err.Error()); serr != nil {
			e.logger.Warn("failed to complete run record", slog.String("error", serr.Error()))
		}
	}
	e.logger.Error("run failed", slog.String("run_id", res.RunID), slog.String("error", err.Error()))
	return res, err
}

func (e *Engine) checkSources(ctx context.Context, res *RunResult) error {
	t := e.startStage(res.RunID, StageCheckSources)
	if err := e.catalog.Check(); err != nil {
		t.finish(ctx, StatusFailed, err.Error())
		return err
	}
	t.finish(ctx, StatusOK, fmt.Sprintf("%d datasets present", len(e.catalog.Names())))
	return nil
}

func (e *Engine) connectStage(ctx context.Context, res *RunResult) error {
	t := e.startStage(res.RunID, StageConnect)
	if err := e.connect(ctx); err != nil {
		t.finish(ctx, StatusFailed, err.Error())
		return err
	}
	t.finish(ctx, StatusOK, fmt.Sprintf("%s schema %s", e.dbConfig.Type, e.dbConfig.Schema))
	return nil
}

// dropTables removes the dataset tables, children first, so every run starts
// from an empty schema. Failures are logged and ignored.
func (e *Engine) dropTables(ctx context.Context, res *RunResult) {
	t := e.startStage(res.RunID, StageDropTables)
	names := e.catalog.Names()
	failed := 0
	for i := len(names) - 1; i >= 0; i-- {
		if err := e.db.DropTable(ctx, names[i]); err != nil {
			failed++
			e.logger.Warn("failed to drop table",
				slog.String("stage", StageDropTables),
				slog.String("table", names[i]),
				slog.String("error", err.Error()))
		}
	}
	if err := e.db.Commit(ctx); err != nil {
		e.logger.Warn("failed to commit table drops", slog.String("error", err.Error()))
	}

	status := StatusOK
	if failed > 0 {
		status = StatusPartial
	}
	t.finish(ctx, status, fmt.Sprintf("%d/%d tables dropped", len(names)-failed, len(names)))
}

// describe summarizes the datasets for the generation calls. A dataset that
// cannot be read is kept without columns; the loader still attempts it and
// records the error.
func (e *Engine) describe(res *RunResult) []catalog.Dataset {
	datasets, err := e.catalog.Describe()
	if err != nil {
		e.logger.Warn("failed to describe datasets", slog.String("error", err.Error()))
		res.fail(StageSchema, err)
	}
	res.Datasets = datasets
	return datasets
}

func (e *Engine) schemaStage(ctx context.Context, res *RunResult, summary string) {
	t := e.startStage(res.RunID, StageSchema)

	raw, batch, err := schema.Synthesize(ctx, e.gen, e.Dialect(), summary)
	if err != nil {
		res.fail(StageSchema, err)
		t.finish(ctx, generationStatus(err), err.Error())
		return
	}
	res.SchemaSQL = cleanSQL(raw)
	res.Plan = schema.BuildPlan(batch)
	res.SchemaResults = schema.Apply(ctx, e.db, res.Plan, statement.Schema(), e.logger)

	t.finish(ctx, partialStatus(res.SchemaFailures()),
		fmt.Sprintf("%d/%d statements in %d tiers", len(res.SchemaResults)-res.SchemaFailures(), len(res.SchemaResults), len(res.Plan.Tiers)))
}

func (e *Engine) loadStage(ctx context.Context, res *RunResult, datasets []catalog.Dataset) {
	t := e.startStage(res.RunID, StageLoad)

	mode, err := e.cfg.Load.ConflictMode()
	if err != nil {
		res.fail(StageLoad, err)
		t.finish(ctx, StatusFailed, err.Error())
		return
	}

	res.LoadResults = loader.Load(ctx, e.db, e.catalog, datasets, loader.Options{
		Mode:        mode,
		TextColumns: e.cfg.Load.TextColumns,
		Logger:      e.logger,
	})

	var inserted int64
	for _, o := range res.LoadResults {
		inserted += o.Inserted
	}
	t.finish(ctx, partialStatus(res.LoadFailures()),
		fmt.Sprintf("%d/%d datasets, %d rows inserted", len(res.LoadResults)-res.LoadFailures(), len(res.LoadResults), inserted))
}

func (e *Engine) validationStage(ctx context.Context, res *RunResult, summary string) {
	t := e.startStage(res.RunID, StageValidation)

	raw, batch, err := validate.Generate(ctx, e.gen, e.Dialect(), e.catalog.Names(), *e.cfg.Domain, summary)
	if err != nil {
		res.fail(StageValidation, err)
		t.finish(ctx, generationStatus(err), err.Error())
		return
	}
	res.ValidationSQL = cleanSQL(raw)
	res.ValidationResults = validate.Run(ctx, e.db, batch, statement.ReadOnly(), e.logger)

	t.finish(ctx, partialStatus(res.ValidationFailures()),
		fmt.Sprintf("%d/%d queries succeeded", len(res.ValidationResults)-res.ValidationFailures(), len(res.ValidationResults)))
}

// translationStage converts the optional procedural source. Its output is
// recorded for review and never executed.
func (e *Engine) translationStage(ctx context.Context, res *RunResult) {
	t := e.startStage(res.RunID, StageTranslation)

	source, ok, err := e.catalog.ProceduralSource(e.cfg.ProceduralFile)
	if err != nil {
		res.fail(StageTranslation, err)
		t.finish(ctx, StatusFailed, err.Error())
		return
	}
	if !ok {
		res.TranslationSkipped = true
		t.finish(ctx, StatusSkipped, fmt.Sprintf("%s not found", e.cfg.ProceduralFile))
		return
	}

	raw, err := e.gen.Generate(ctx, prompts.Translation(e.Dialect(), source))
	if err != nil {
		err = fmt.Errorf("failed to translate procedural SQL: %w", err)
		res.fail(StageTranslation, err)
		t.finish(ctx, generationStatus(err), err.Error())
		return
	}
	res.TranslatedSQL = cleanSQL(raw)
	t.finish(ctx, StatusOK, fmt.Sprintf("translated %s", e.cfg.ProceduralFile))
}

func (e *Engine) analyticsStage(ctx context.Context, res *RunResult, summary string) {
	t := e.startStage(res.RunID, StageAnalytics)

	raw, err := e.gen.Generate(ctx, prompts.Analytics(e.Dialect(), *e.cfg.Domain, summary))
	if err != nil {
		err = fmt.Errorf("failed to generate analytic queries: %w", err)
		res.fail(StageAnalytics, err)
		t.finish(ctx, generationStatus(err), err.Error())
		return
	}
	res.AnalyticsSQL = cleanSQL(raw)
	batch := statement.Extract(raw)

	if !e.cfg.Analytics.Execute {
		t.finish(ctx, StatusOK, fmt.Sprintf("%d queries generated", len(batch)))
		return
	}

	res.AnalyticsResults = validate.RunLimited(ctx, e.db, batch, statement.ReadOnly(), e.cfg.Analytics.RowLimit, e.logger)
	failed := 0
	for _, o := range res.AnalyticsResults {
		if !o.OK() {
			failed++
		}
	}
	t.finish(ctx, partialStatus(failed), fmt.Sprintf("%d/%d queries executed", len(batch)-failed, len(batch)))
}

func (e *Engine) reportStage(ctx context.Context, res *RunResult) {
	t := e.startStage(res.RunID, StageReport)

	at := e.now()
	body, err := report.Render(res.Sections(), at)
	if err == nil {
		res.ReportPath, err = report.Write(e.cfg.OutputDir, body, at)
	}
	if err != nil {
		res.fail(StageReport, err)
		t.finish(ctx, StatusFailed, err.Error())
		return
	}
	t.finish(ctx, StatusOK, res.ReportPath)
}

// generationStatus reports a disabled generator as skipped rather than failed.
func generationStatus(err error) string {
	if errors.Is(err, generate.ErrDisabled) {
		return StatusSkipped
	}
	return StatusFailed
}

func partialStatus(failed int) string {
	if failed > 0 {
		return StatusPartial
	}
	return StatusOK
}
