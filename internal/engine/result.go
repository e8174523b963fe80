package engine

import (
	"strings"
	"time"

	"github.com/leapstack-labs/genmigrate/internal/catalog"
	"github.com/leapstack-labs/genmigrate/internal/loader"
	"github.com/leapstack-labs/genmigrate/internal/report"
	"github.com/leapstack-labs/genmigrate/internal/schema"
	"github.com/leapstack-labs/genmigrate/internal/statement"
	"github.com/leapstack-labs/genmigrate/internal/validate"
)

// Report section names, in report order.
const (
	SectionSchemaSQL         = "schema_sql"
	SectionSchemaResults     = "schema_results"
	SectionLoadResults       = "load_results"
	SectionValidationSQL     = "validation_sql"
	SectionValidationResults = "validation_results"
	SectionTranslatedSQL     = "translated_sql"
	SectionAnalyticsSQL      = "analytics_sql"
	SectionAnalyticsResults  = "analytics_results"
)

// RunResult is everything one run produced. Each stage fills its own fields
// once and never touches the others.
type RunResult struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	Datasets []catalog.Dataset `json:"datasets"`

	SchemaSQL     string           `json:"schema_sql,omitempty"`
	Plan          schema.Plan      `json:"-"`
	SchemaResults []schema.Outcome `json:"schema_results,omitempty"`

	LoadResults []loader.Outcome `json:"load_results,omitempty"`

	ValidationSQL     string             `json:"validation_sql,omitempty"`
	ValidationResults []validate.Outcome `json:"validation_results,omitempty"`

	TranslatedSQL      string `json:"translated_sql,omitempty"`
	TranslationSkipped bool   `json:"translation_skipped,omitempty"`

	AnalyticsSQL     string             `json:"analytics_sql,omitempty"`
	AnalyticsResults []validate.Outcome `json:"analytics_results,omitempty"`

	ReportPath string `json:"report_path,omitempty"`

	// Errors holds stage-level failures (generation, report write) keyed by
	// stage name. Statement and dataset failures live in the outcomes.
	Errors map[string]string `json:"errors,omitempty"`
}

func (r *RunResult) fail(stage string, err error) {
	if r.Errors == nil {
		r.Errors = make(map[string]string)
	}
	r.Errors[stage] = err.Error()
}

// Sections returns the report sections in report order.
func (r *RunResult) Sections() []report.Section {
	return []report.Section{
		{Name: SectionSchemaSQL, Value: r.SchemaSQL},
		{Name: SectionSchemaResults, Value: r.SchemaResults},
		{Name: SectionLoadResults, Value: r.LoadResults},
		{Name: SectionValidationSQL, Value: r.ValidationSQL},
		{Name: SectionValidationResults, Value: r.ValidationResults},
		{Name: SectionTranslatedSQL, Value: r.TranslatedSQL},
		{Name: SectionAnalyticsSQL, Value: r.AnalyticsSQL},
		{Name: SectionAnalyticsResults, Value: r.AnalyticsResults},
	}
}

// SchemaFailures counts failed schema statements.
func (r *RunResult) SchemaFailures() int {
	n := 0
	for _, o := range r.SchemaResults {
		if !o.OK() {
			n++
		}
	}
	return n
}

// LoadFailures counts datasets that failed to load.
func (r *RunResult) LoadFailures() int {
	n := 0
	for _, o := range r.LoadResults {
		if !o.OK() {
			n++
		}
	}
	return n
}

// ValidationFailures counts validation queries that errored.
func (r *RunResult) ValidationFailures() int {
	n := 0
	for _, o := range r.ValidationResults {
		if !o.OK() {
			n++
		}
	}
	return n
}

// cleanSQL strips fence markers from generated text for the report.
func cleanSQL(raw string) string {
	return strings.TrimSpace(statement.Clean(raw))
}
