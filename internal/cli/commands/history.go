package commands

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/genmigrate/internal/cli/output"
	"github.com/leapstack-labs/genmigrate/internal/state"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs",
		Long: `List the runs recorded in the state database, newest first. With a run ID,
show the stages of that run.`,
		Example: `  genmigrate history
  genmigrate history --limit 5
  genmigrate history 3f2c9c1e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string, limit int) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	r := getRenderer(cmd)
	ctx := commandContext(cmd)

	store := state.NewSQLiteStore(getLogger(cmd))
	if err := store.Open(cfg.StatePath); err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer func() { _ = store.Close() }()

	if len(args) == 1 {
		run, err := store.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		stages, err := store.ListStages(ctx, run.ID)
		if err != nil {
			return err
		}
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(struct {
				*state.Run
				Stages []state.StageEvent `json:"stages"`
			}{run, stages})
		}

		r.Header(1, "Run "+run.ID)
		r.KeyValue("status", run.Status)
		r.KeyValue("started", run.StartedAt.Local().Format(time.DateTime))
		r.KeyValue("database", fmt.Sprintf("%s (%s)", run.DatabaseType, run.Schema))
		r.KeyValue("sources", run.SourceDir)
		if run.ReportPath != "" {
			r.KeyValue("report", run.ReportPath)
		}
		if run.Error != "" {
			r.KeyValue("error", run.Error)
		}
		r.Println()
		for _, st := range stages {
			r.StatusLine(st.Stage, st.Status, fmt.Sprintf("%s (%s)", st.Detail, st.Elapsed.Round(time.Millisecond)))
		}
		return nil
	}

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if r.EffectiveMode() == output.ModeJSON {
		if runs == nil {
			runs = []state.Run{}
		}
		return r.JSON(runs)
	}
	if len(runs) == 0 {
		r.Println("No runs recorded yet.")
		return nil
	}

	rows := make([][]any, 0, len(runs))
	for _, run := range runs {
		duration := "-"
		if run.CompletedAt != nil {
			duration = run.Duration().Round(time.Millisecond).String()
		}
		rows = append(rows, []any{run.ID, run.StartedAt.Local().Format(time.DateTime), run.Status, run.DatabaseType, duration, run.ReportPath})
	}
	r.Table([]string{"run", "started", "status", "database", "duration", "report"}, rows)
	return nil
}
