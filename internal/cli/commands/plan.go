package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/leapstack-labs/genmigrate/internal/cli/output"
	"github.com/leapstack-labs/genmigrate/internal/schema"
	"github.com/leapstack-labs/genmigrate/internal/statement"
	"github.com/spf13/cobra"
)

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <file>",
		Short: "Show the dependency tiers of a DDL file",
		Long: `Split a SQL file into statements and show the order the schema stage would
apply them in. Tables are grouped into tiers: every table a statement
references is created in an earlier tier. Nothing is executed.`,
		Example: `  genmigrate plan schema.sql
  genmigrate plan schema.sql -o json`,
		Args: cobra.ExactArgs(1),
		RunE: runPlan,
	}
}

func runPlan(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	r := getRenderer(cmd)

	batch := statement.Extract(string(data))
	plan := schema.BuildPlan(batch)

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(plan)
	}

	r.Header(1, fmt.Sprintf("%d statements in %d tiers, %d table dependencies", plan.Len(), len(plan.Tiers), plan.Edges))
	if plan.Cyclic {
		r.Warning("references form a cycle (" + strings.Join(plan.Cycle, " -> ") + "); statements run in file order")
	}

	rows := make([][]any, 0, plan.Len())
	for _, tier := range plan.Tiers {
		for _, st := range tier.Statements {
			var depends string
			if name, ok := schema.CreatedTable(st.SQL); ok {
				depends = strings.Join(tier.Depends[name], ", ")
			}
			rows = append(rows, []any{tier.Level, st.Index + 1, statement.KindOf(st.SQL), firstLine(st.SQL), depends})
		}
	}
	r.Table([]string{"tier", "#", "kind", "statement", "depends on"}, rows)
	return nil
}

// firstLine shortens a statement to its first line.
func firstLine(s string) string {
	line, _, more := strings.Cut(strings.TrimSpace(s), "\n")
	line = strings.TrimSpace(line)
	if more {
		line += " ..."
	}
	return line
}
