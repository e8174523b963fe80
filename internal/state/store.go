// Package state records the history of migration runs in a local SQLite
// database. Each run gets a row with its target and final status, and every
// stage boundary is appended as a stage event.
package state

import (
	"context"
	"time"
)

// RunStatus represents the status of a run.
type RunStatus string

// Run status values.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID           string     `json:"id"`
	SourceDir    string     `json:"source_dir"`
	DatabaseType string     `json:"database_type"`
	Schema       string     `json:"schema"`
	Model        string     `json:"model"`
	Status       RunStatus  `json:"status"`
	ReportPath   string     `json:"report_path,omitempty"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Duration returns how long the run took, or 0 while it is running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// StageEvent is one stage boundary of a run.
type StageEvent struct {
	RunID      string        `json:"run_id"`
	Stage      string        `json:"stage"`
	Status     string        `json:"status"`
	Detail     string        `json:"detail,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// Store persists run history.
type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	RecordStage(ctx context.Context, ev StageEvent) error
	CompleteRun(ctx context.Context, id string, status RunStatus, reportPath, errMsg string) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	ListStages(ctx context.Context, runID string) ([]StageEvent, error)
	Close() error
}
