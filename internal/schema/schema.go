// Package schema synthesizes the target schema through the generation
// endpoint and applies it in dependency order.
package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/genmigrate/internal/generate"
	"github.com/leapstack-labs/genmigrate/internal/prompts"
	"github.com/leapstack-labs/genmigrate/internal/statement"
)

// Session is the slice of a database session the schema stage needs.
type Session interface {
	Exec(ctx context.Context, sql string) error
	Commit(ctx context.Context) error
}

// Outcome records the execution of one DDL statement. Error is empty on
// success.
type Outcome struct {
	Index     int    `json:"index"`
	Tier      int    `json:"tier"`
	Statement string `json:"statement"`
	Error     string `json:"error,omitempty"`
}

// OK reports whether the statement succeeded.
func (o Outcome) OK() bool { return o.Error == "" }

// Synthesize asks the generator for CREATE statements describing the
// summarized datasets and extracts them. On generation failure the raw text
// and batch are empty.
func Synthesize(ctx context.Context, gen generate.Generator, dialect, summary string) (string, statement.Batch, error) {
	raw, err := gen.Generate(ctx, prompts.Schema(dialect, summary))
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate schema: %w", err)
	}
	return raw, statement.Extract(raw), nil
}

// Apply executes the plan tier by tier. Each statement runs on its own; a
// failing or disallowed statement is recorded and the next one runs. Each
// tier is committed once all of its statements were attempted.
func Apply(ctx context.Context, sess Session, plan Plan, guard statement.Guard, logger *slog.Logger) []Outcome {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if plan.Cyclic {
		logger.Warn("schema references form a cycle; applying in emission order",
			slog.Any("cycle", plan.Cycle))
	}

	outcomes := make([]Outcome, 0, plan.Len())
	for _, tier := range plan.Tiers {
		for _, st := range tier.Statements {
			out := Outcome{Index: st.Index, Tier: tier.Level, Statement: st.SQL}
			err := guard.Check(st.SQL)
			if err == nil {
				err = sess.Exec(ctx, st.SQL)
			}
			if err != nil {
				out.Error = err.Error()
				logger.Warn("schema statement failed",
					slog.String("stage", "schema"),
					slog.String("statement", firstLine(st.SQL)),
					slog.String("error", out.Error))
			} else {
				logger.Info("schema statement executed",
					slog.String("stage", "schema"),
					slog.String("statement", firstLine(st.SQL)))
			}
			outcomes = append(outcomes, out)
		}
		if err := sess.Commit(ctx); err != nil {
			logger.Warn("schema tier commit failed", slog.Int("tier", tier.Level), slog.String("error", err.Error()))
		}
	}
	return outcomes
}

// firstLine returns the first line of a statement for log output.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
