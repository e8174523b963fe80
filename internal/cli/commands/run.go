package commands

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/leapstack-labs/genmigrate/internal/cli/config"
	"github.com/leapstack-labs/genmigrate/internal/cli/output"
	"github.com/leapstack-labs/genmigrate/internal/engine"
	"github.com/leapstack-labs/genmigrate/internal/generate"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	JSONOutput bool
	Analytics  bool
	OnConflict string
	BatchSize  int
}

// NewGenerator builds the generator for a run. Nil lets the engine build one
// from the configuration. Tests replace it.
var NewGenerator func(cfg *config.Config, logger *slog.Logger) generate.Generator

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full migration pipeline",
		Long: `Run every stage of the migration once, in order:

  check sources, connect, drop existing tables, synthesize and apply the
  schema, load the datasets, generate and run validation queries,
  translate procedural SQL (when present), generate analytic queries and
  write the report.

Missing source files or an unreachable database stop the run before any
change is made. Every later failure is recorded in the report and the run
continues.`,
		Example: `  # Run against the configured database
  genmigrate run

  # Dry run into a local SQLite file
  genmigrate run --db-type sqlite --db-path ./retail.db

  # JSON lines for CI pipelines
  genmigrate run --json`,
		Aliases: []string{"migrate"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Output as JSON lines for progress tracking")
	cmd.Flags().BoolVar(&opts.Analytics, "execute-analytics", false, "Execute the generated analytic queries")
	cmd.Flags().StringVar(&opts.OnConflict, "on-conflict", "", "Duplicate rows: ignore or error")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 0, "Maximum rows per INSERT statement")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	r := getRenderer(cmd)
	logger := getLogger(cmd)
	ctx := commandContext(cmd)

	p := cfg.Pipeline()
	if cmd.Flags().Changed("execute-analytics") {
		p.Analytics.Execute = opts.Analytics
	}
	if opts.OnConflict != "" {
		p.Load.OnConflict = opts.OnConflict
	}
	if opts.BatchSize > 0 {
		p.Load.BatchSize = opts.BatchSize
	}

	jsonMode := opts.JSONOutput || r.EffectiveMode() == output.ModeJSON
	start := time.Now()

	engCfg := engine.Config{
		Pipeline: p,
		Logger:   logger,
	}
	if NewGenerator != nil {
		engCfg.Generator = NewGenerator(cfg, logger)
	}
	if jsonMode {
		engCfg.Progress = func(ev engine.Event) { emitStageEvent(r, ev) }
	} else {
		engCfg.Progress = func(ev engine.Event) { printStageEvent(r, ev) }
	}

	eng, err := engine.New(engCfg)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	if jsonMode {
		_ = r.JSONLine(output.RunEvent{
			Event:     "run_start",
			Timestamp: timestamp(start),
			SourceDir: p.SourceDir,
			Datasets:  p.Datasets,
			Database:  p.Database.Type,
		})
	} else {
		r.Header(1, "Migration run")
		r.KeyValue("sources", p.SourceDir)
		r.KeyValue("database", fmt.Sprintf("%s (%s)", p.Database.Type, p.Database.Schema))
		r.KeyValue("model", p.Generation.Model)
		r.Println()
	}

	res, runErr := eng.Run(ctx)

	if jsonMode {
		ev := output.RunEvent{
			Event:     "run_complete",
			Timestamp: timestamp(time.Now()),
			Status:    engine.StatusOK,
			TotalMS:   time.Since(start).Milliseconds(),
		}
		if res != nil {
			ev.RunID = res.RunID
			ev.ReportPath = res.ReportPath
			ev.Errors = res.Errors
		}
		if runErr != nil {
			ev.Status = engine.StatusFailed
			ev.Error = runErr.Error()
		}
		_ = r.JSONLine(ev)
		return runErr
	}

	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	printRunSummary(r, res, time.Since(start))
	return nil
}

func emitStageEvent(r *output.Renderer, ev engine.Event) {
	name := "stage_start"
	if ev.Phase == engine.PhaseFinish {
		name = "stage_complete"
	}
	_ = r.JSONLine(output.RunEvent{
		Event:     name,
		RunID:     ev.RunID,
		Timestamp: timestamp(ev.Time),
		Stage:     ev.Stage,
		Status:    ev.Status,
		Detail:    ev.Detail,
		ElapsedMS: ev.Elapsed.Milliseconds(),
	})
}

func printStageEvent(r *output.Renderer, ev engine.Event) {
	if ev.Phase != engine.PhaseFinish {
		return
	}
	detail := ev.Detail
	if ev.Elapsed > 0 {
		detail = fmt.Sprintf("%s (%s)", detail, ev.Elapsed.Round(time.Millisecond))
	}
	r.StatusLine(ev.Stage, ev.Status, detail)
}

func printRunSummary(r *output.Renderer, res *engine.RunResult, elapsed time.Duration) {
	r.Println()
	if len(res.LoadResults) > 0 {
		r.Header(2, "Load")
		rows := make([][]any, 0, len(res.LoadResults))
		for _, o := range res.LoadResults {
			rows = append(rows, []any{o.Table, o.Rows, o.Inserted, o.Skipped, o.Error})
		}
		r.Table([]string{"table", "rows", "inserted", "skipped", "error"}, rows)
		r.Println()
	}

	if len(res.Errors) > 0 {
		stages := make([]string, 0, len(res.Errors))
		for stage := range res.Errors {
			stages = append(stages, stage)
		}
		slices.Sort(stages)
		for _, stage := range stages {
			r.Warning(fmt.Sprintf("%s: %s", stage, res.Errors[stage]))
		}
	}

	if res.ReportPath != "" {
		r.Success("Report written to " + res.ReportPath)
	}
	r.Println(r.Muted(fmt.Sprintf("Completed in %s", elapsed.Round(time.Millisecond))))
}
