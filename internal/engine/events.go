package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/leapstack-labs/genmigrate/internal/state"
)

// Stage names, in execution order.
const (
	StageCheckSources = "check_sources"
	StageConnect      = "connect"
	StageDropTables   = "drop_tables"
	StageSchema       = "schema"
	StageLoad         = "load"
	StageValidation   = "validation"
	StageTranslation  = "translation"
	StageAnalytics    = "analytics"
	StageReport       = "report"
)

// Stages lists every stage in execution order.
var Stages = []string{
	StageCheckSources, StageConnect, StageDropTables, StageSchema, StageLoad,
	StageValidation, StageTranslation, StageAnalytics, StageReport,
}

// Phase marks the start or end of a stage.
type Phase string

// Phase values.
const (
	PhaseStart  Phase = "start"
	PhaseFinish Phase = "finish"
)

// Stage statuses carried by finish events.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
	// StatusPartial means the stage ran but some statements or datasets failed.
	StatusPartial = "partial"
)

// Event reports stage progress.
type Event struct {
	RunID   string        `json:"run_id"`
	Stage   string        `json:"stage"`
	Phase   Phase         `json:"phase"`
	Status  string        `json:"status,omitempty"`
	Detail  string        `json:"detail,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns,omitempty"`
	Time    time.Time     `json:"time"`
}

// stageTimer tracks one stage from start to finish.
type stageTimer struct {
	e     *Engine
	runID string
	name  string
	start time.Time
}

func (e *Engine) startStage(runID, name string) *stageTimer {
	t := &stageTimer{e: e, runID: runID, name: name, start: e.now()}
	e.logger.Info("stage started", slog.String("stage", name))
	e.emit(Event{RunID: runID, Stage: name, Phase: PhaseStart, Time: t.start})
	return t
}

// finish emits the finish event and records it in the state store.
func (t *stageTimer) finish(ctx context.Context, status, detail string) {
	e := t.e
	at := e.now()
	elapsed := at.Sub(t.start)

	level := slog.LevelInfo
	if status == StatusFailed || status == StatusPartial {
		level = slog.LevelWarn
	}
	e.logger.Log(ctx, level, "stage finished",
		slog.String("stage", t.name),
		slog.String("status", status),
		slog.String("detail", detail),
		slog.Duration("elapsed", elapsed))

	e.emit(Event{RunID: t.runID, Stage: t.name, Phase: PhaseFinish, Status: status, Detail: detail, Elapsed: elapsed, Time: at})

	if e.store != nil && t.runID != "" {
		ev := state.StageEvent{RunID: t.runID, Stage: t.name, Status: status, Detail: detail, Elapsed: elapsed, RecordedAt: at.UTC()}
		if err := e.store.RecordStage(ctx, ev); err != nil {
			e.logger.Warn("failed to record stage", slog.String("stage", t.name), slog.String("error", err.Error()))
		}
	}
}

func (e *Engine) emit(ev Event) {
	if e.progress != nil {
		e.progress(ev)
	}
}
