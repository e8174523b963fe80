// Package validate generates and runs the post-load integrity checks.
package validate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/genmigrate/internal/config"
	"github.com/leapstack-labs/genmigrate/internal/generate"
	"github.com/leapstack-labs/genmigrate/internal/prompts"
	"github.com/leapstack-labs/genmigrate/internal/statement"
	"github.com/leapstack-labs/genmigrate/pkg/adapter"
)

// Outcome is the result of one validation query. Exactly one of Result and
// Error is set.
type Outcome struct {
	Query  string             `json:"query"`
	Result *adapter.ResultSet `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// OK reports whether the query returned rows.
func (o Outcome) OK() bool { return o.Error == "" }

// Generate asks for the domain's integrity checks and extracts them.
func Generate(ctx context.Context, gen generate.Generator, dialect string, datasets []string, domain config.DomainConfig, summary string) (string, statement.Batch, error) {
	raw, err := gen.Generate(ctx, prompts.Validation(dialect, datasets, domain, summary))
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate validation queries: %w", err)
	}
	return raw, statement.Extract(raw), nil
}

// Run executes every query of the batch independently and records an
// Outcome for each. Queries the guard rejects are recorded as errors without
// reaching the database.
func Run(ctx context.Context, q adapter.Querier, batch statement.Batch, guard statement.Guard, logger *slog.Logger) []Outcome {
	return RunLimited(ctx, q, batch, guard, 0, logger)
}

// RunLimited is Run with results truncated to limit rows when limit > 0.
func RunLimited(ctx context.Context, q adapter.Querier, batch statement.Batch, guard statement.Guard, limit int, logger *slog.Logger) []Outcome {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	outcomes := make([]Outcome, 0, len(batch))
	for _, query := range batch {
		out := Outcome{Query: query}

		rs, err := fetch(ctx, q, query, guard)
		if err != nil {
			out.Error = err.Error()
			logger.Warn("query failed", slog.String("statement", query), slog.String("error", out.Error))
		} else {
			if limit > 0 && len(rs.Rows) > limit {
				rs.Rows = rs.Rows[:limit]
			}
			out.Result = rs
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

func fetch(ctx context.Context, q adapter.Querier, query string, guard statement.Guard) (*adapter.ResultSet, error) {
	if err := guard.Check(query); err != nil {
		return nil, err
	}
	return adapter.Fetch(ctx, q, query)
}
