package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leapstack-labs/genmigrate/internal/catalog"
	"github.com/leapstack-labs/genmigrate/internal/config"
	"github.com/leapstack-labs/genmigrate/internal/generate"
	"github.com/leapstack-labs/genmigrate/internal/state"
	"github.com/leapstack-labs/genmigrate/internal/testutil"
	_ "github.com/leapstack-labs/genmigrate/pkg/adapters/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const analyticsSQL = "SELECT strftime('%Y-%m', sale_date) AS month, SUM(total_amount) AS revenue FROM SALES GROUP BY month ORDER BY month;\n" +
	"SELECT customer_id, SUM(total_amount) AS revenue FROM SALES GROUP BY customer_id ORDER BY revenue DESC LIMIT 5;\n" +
	"SELECT product_name, stock_quantity FROM INVENTORY WHERE stock_quantity < 100 ORDER BY product_id;"

const translatedSQL = "CREATE PROCEDURE refresh_totals() BEGIN UPDATE SALES SET total_amount = quantity * 1; END"

var runTime = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

// fakeGenerator answers each instruction with canned SQL. Responses can be
// overridden per instruction keyword.
type fakeGenerator struct {
	schema     string
	validation string
	failOn     string
	calls      atomic.Int32
	summary    string
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{schema: testutil.RetailSchema, validation: testutil.RetailValidation}
}

func (f *fakeGenerator) Generate(_ context.Context, req generate.Request) (string, error) {
	f.calls.Add(1)
	if f.failOn != "" && strings.Contains(req.System, f.failOn) {
		return "", errors.New("generation endpoint unavailable")
	}
	switch {
	case strings.Contains(req.System, "database architect"):
		f.summary = req.User
		return f.schema, nil
	case strings.Contains(req.System, "data QA expert"):
		return "```sql\n" + f.validation + "\n```", nil
	case strings.Contains(req.System, "PL/SQL"):
		return translatedSQL, nil
	case strings.Contains(req.System, "KPIs"):
		return analyticsSQL, nil
	}
	return "", errors.New("unexpected instruction")
}

func retailConfig(t *testing.T, sourceDir string) *config.PipelineConfig {
	t.Helper()
	work := t.TempDir()
	return &config.PipelineConfig{
		SourceDir: sourceDir,
		OutputDir: filepath.Join(work, "output"),
		StatePath: ":memory:",
		Database: &config.DatabaseConfig{
			Type: "sqlite",
			Path: filepath.Join(work, "target.db"),
		},
	}
}

func newEngine(t *testing.T, p *config.PipelineConfig, gen generate.Generator, opts ...func(*Config)) *Engine {
	t.Helper()
	cfg := Config{
		Pipeline:  p,
		Generator: gen,
		Logger:    testutil.NewTestLogger(t),
		Now:       func() time.Time { return runTime },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func loadedRows(res *RunResult) map[string]int64 {
	out := make(map[string]int64)
	for _, o := range res.LoadResults {
		out[o.Table] = o.Inserted
	}
	return out
}

// firstValue returns the single value of the validation query whose column
// matches name.
func firstValue(t *testing.T, res *RunResult, name string) any {
	t.Helper()
	for _, o := range res.ValidationResults {
		if o.Result != nil && len(o.Result.Columns) == 1 && o.Result.Columns[0] == name {
			require.Len(t, o.Result.Rows, 1)
			return o.Result.Rows[0][0]
		}
	}
	t.Fatalf("no validation result named %s", name)
	return nil
}

func TestRun_RetailPipeline(t *testing.T) {
	dir := testutil.RetailSources(t)
	testutil.WriteFile(t, dir, config.DefaultProcedural, "CREATE OR REPLACE PROCEDURE refresh_totals IS BEGIN NULL; END;")

	p := retailConfig(t, dir)
	var events []Event
	e := newEngine(t, p, newFakeGenerator(), func(c *Config) {
		c.Progress = func(ev Event) { events = append(events, ev) }
	})

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	// Parents are created before the table that references them.
	require.Len(t, res.SchemaResults, 3)
	assert.Equal(t, 0, res.SchemaFailures())
	assert.Equal(t, []int{1, 2, 0}, []int{res.SchemaResults[0].Index, res.SchemaResults[1].Index, res.SchemaResults[2].Index})
	assert.False(t, res.Plan.Cyclic)

	assert.Equal(t, map[string]int64{"CUSTOMERS": 10, "INVENTORY": 5, "SALES": 8}, loadedRows(res))

	require.Len(t, res.ValidationResults, 6)
	assert.Equal(t, 0, res.ValidationFailures())
	assert.EqualValues(t, 10, firstValue(t, res, "customers"))
	assert.EqualValues(t, 0, firstValue(t, res, "orphan_customers"))
	assert.EqualValues(t, 0, firstValue(t, res, "orphan_products"))
	total, ok := firstValue(t, res, "total_sales").(float64)
	require.True(t, ok)
	assert.InDelta(t, 152.94, total, 0.001)

	assert.Equal(t, translatedSQL, res.TranslatedSQL)
	assert.False(t, res.TranslationSkipped)
	assert.Contains(t, res.AnalyticsSQL, "stock_quantity < 100")
	assert.Nil(t, res.AnalyticsResults)
	assert.Empty(t, res.Errors)

	// Report
	require.NotEmpty(t, res.ReportPath)
	assert.Equal(t, "migration_report_20240501_093000.md", filepath.Base(res.ReportPath))
	body, err := os.ReadFile(res.ReportPath)
	require.NoError(t, err)
	for _, section := range []string{SectionSchemaSQL, SectionSchemaResults, SectionLoadResults, SectionValidationSQL,
		SectionValidationResults, SectionTranslatedSQL, SectionAnalyticsSQL} {
		assert.Contains(t, string(body), "## "+section+"\n")
	}
	assert.NotContains(t, string(body), "## "+SectionAnalyticsResults)
	assert.NotContains(t, string(body), "```sql\n```sql")

	// Every stage reports start and finish, in order.
	var finished []string
	for _, ev := range events {
		if ev.Phase == PhaseFinish {
			finished = append(finished, ev.Stage)
		}
	}
	assert.Equal(t, Stages, finished)
}

func TestRun_RerunIsIdempotent(t *testing.T) {
	dir := testutil.RetailSources(t)
	p := retailConfig(t, dir)

	first := newEngine(t, p, newFakeGenerator())
	res1, err := first.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newEngine(t, p, newFakeGenerator())
	res2, err := second.Run(context.Background())
	require.NoError(t, err)

	want := map[string]int64{"CUSTOMERS": 10, "INVENTORY": 5, "SALES": 8}
	assert.Equal(t, want, loadedRows(res1))
	assert.Equal(t, want, loadedRows(res2))
	assert.EqualValues(t, 8, firstValue(t, res2, "sales"))
	assert.Equal(t, 0, res2.SchemaFailures())

	// Same second, so the second report gets a suffix instead of overwriting.
	assert.NotEqual(t, res1.ReportPath, res2.ReportPath)
	assert.Equal(t, "migration_report_20240501_093000_1.md", filepath.Base(res2.ReportPath))
	assert.FileExists(t, res1.ReportPath)
}

func TestRun_MissingSourcesHaltBeforeConnect(t *testing.T) {
	dir := testutil.RetailSources(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "INVENTORY.csv")))
	require.NoError(t, os.Remove(filepath.Join(dir, "SALES.csv")))

	p := retailConfig(t, dir)
	gen := newFakeGenerator()
	var stages []string
	e := newEngine(t, p, gen, func(c *Config) {
		c.Progress = func(ev Event) { stages = append(stages, ev.Stage) }
	})

	res, err := e.Run(context.Background())
	require.Error(t, err)

	var missing *catalog.MissingSourcesError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"INVENTORY.csv", "SALES.csv"}, missing.Missing)
	assert.Contains(t, err.Error(), "INVENTORY")
	assert.Contains(t, err.Error(), "SALES")

	assert.Equal(t, []string{StageCheckSources, StageCheckSources}, stages)
	assert.Zero(t, gen.calls.Load())
	assert.Empty(t, res.ReportPath)
	assert.NoFileExists(t, p.Database.Path)
	assert.NoDirExists(t, p.OutputDir)
}

func TestRun_ConnectFailureIsFatal(t *testing.T) {
	dir := testutil.RetailSources(t)
	p := retailConfig(t, dir)
	p.Database.Path = filepath.Join(t.TempDir(), "no", "such", "dir", "target.db")

	gen := newFakeGenerator()
	e := newEngine(t, p, gen)

	_, err := e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to database")
	assert.Zero(t, gen.calls.Load())
}

func TestRun_SchemaStatementFailuresAreIsolated(t *testing.T) {
	dir := testutil.RetailSources(t)
	p := retailConfig(t, dir)

	gen := newFakeGenerator()
	gen.schema = testutil.RetailSchema + "\nCREATE TABLE BROKEN id INTEGER;\nDROP TABLE CUSTOMERS;"
	e := newEngine(t, p, gen)

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.SchemaResults, 5)
	assert.Equal(t, 2, res.SchemaFailures())
	for _, o := range res.SchemaResults {
		if strings.HasPrefix(o.Statement, "DROP") {
			assert.Contains(t, o.Error, "not allowed")
		}
	}
	assert.Equal(t, map[string]int64{"CUSTOMERS": 10, "INVENTORY": 5, "SALES": 8}, loadedRows(res))
}

func TestRun_UnreadableDatasetKeepsOthersDescribed(t *testing.T) {
	dir := testutil.RetailSources(t)
	testutil.WriteFile(t, dir, "INVENTORY.csv", "product_id,product_name\n1,\"Widget\n")
	p := retailConfig(t, dir)

	gen := newFakeGenerator()
	e := newEngine(t, p, gen)

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Datasets, 3)
	assert.Equal(t, []string{"customer_id", "name", "phone_number", "city"}, res.Datasets[0].ColumnNames())
	assert.Empty(t, res.Datasets[1].Columns)
	assert.NotEmpty(t, res.Datasets[2].Columns)
	assert.Contains(t, res.Errors[StageSchema], "INVENTORY.csv")

	assert.Contains(t, gen.summary, "- customer_id: numeric (integer)")
	assert.Contains(t, gen.summary, "- total_amount: numeric (decimal)")

	rows := loadedRows(res)
	assert.EqualValues(t, 10, rows["CUSTOMERS"])
	assert.EqualValues(t, 8, rows["SALES"])
	for _, o := range res.LoadResults {
		if o.Dataset == "INVENTORY" {
			assert.False(t, o.OK())
		}
	}
}

func TestRun_ValidationGenerationFailureContinues(t *testing.T) {
	dir := testutil.RetailSources(t)
	testutil.WriteFile(t, dir, config.DefaultProcedural, "CREATE OR REPLACE PROCEDURE p IS BEGIN NULL; END;")
	p := retailConfig(t, dir)

	gen := newFakeGenerator()
	gen.failOn = "data QA expert"
	e := newEngine(t, p, gen)

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, res.ValidationSQL)
	assert.Empty(t, res.ValidationResults)
	assert.Contains(t, res.Errors[StageValidation], "generation endpoint unavailable")
	assert.NotEmpty(t, res.TranslatedSQL)
	assert.NotEmpty(t, res.AnalyticsSQL)

	body, err := os.ReadFile(res.ReportPath)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "## "+SectionValidationSQL)
	assert.Contains(t, string(body), "## "+SectionTranslatedSQL)
	assert.Contains(t, string(body), "## "+SectionAnalyticsSQL)
}

func TestRun_TranslationSkippedWithoutProceduralFile(t *testing.T) {
	dir := testutil.RetailSources(t)
	p := retailConfig(t, dir)
	var translation Event
	e := newEngine(t, p, newFakeGenerator(), func(c *Config) {
		c.Progress = func(ev Event) {
			if ev.Stage == StageTranslation && ev.Phase == PhaseFinish {
				translation = ev
			}
		}
	})

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.TranslationSkipped)
	assert.Empty(t, res.TranslatedSQL)
	assert.NotContains(t, res.Errors, StageTranslation)
	assert.Equal(t, StatusSkipped, translation.Status)
}

func TestRun_DisabledGeneration(t *testing.T) {
	dir := testutil.RetailSources(t)
	p := retailConfig(t, dir)
	e := newEngine(t, p, generate.Disabled{})

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, res.SchemaSQL)
	assert.Empty(t, res.SchemaResults)
	assert.Empty(t, res.ValidationSQL)
	assert.Empty(t, res.AnalyticsSQL)
	// Without a schema the tables do not exist; every dataset fails alone.
	assert.Equal(t, 3, res.LoadFailures())
	assert.FileExists(t, res.ReportPath)
}

func TestRun_ExecutesAnalyticsWhenEnabled(t *testing.T) {
	dir := testutil.RetailSources(t)
	p := retailConfig(t, dir)
	p.Analytics = &config.AnalyticsConfig{Execute: true, RowLimit: 1}
	e := newEngine(t, p, newFakeGenerator())

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.AnalyticsResults, 3)
	for _, o := range res.AnalyticsResults {
		require.True(t, o.OK(), o.Error)
		assert.Len(t, o.Result.Rows, 1)
	}
	assert.Equal(t, []any{"Gadget", int64(80)}, res.AnalyticsResults[2].Result.Rows[0])
}

func TestRun_RecordsHistory(t *testing.T) {
	dir := testutil.RetailSources(t)
	p := retailConfig(t, dir)

	store := state.NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	defer func() { _ = store.Close() }()

	e := newEngine(t, p, newFakeGenerator(), func(c *Config) { c.Store = store })
	res, err := e.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	ctx := context.Background()
	run, err := store.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, state.RunStatusCompleted, run.Status)
	assert.Equal(t, res.ReportPath, run.ReportPath)
	assert.Equal(t, "sqlite", run.DatabaseType)

	stages, err := store.ListStages(ctx, res.RunID)
	require.NoError(t, err)
	require.Len(t, stages, len(Stages))
	assert.Equal(t, StageReport, stages[len(stages)-1].Stage)

	// Engine.Close leaves a caller-supplied store open.
	require.NoError(t, e.Close())
	_, err = store.ListRuns(ctx, 10)
	assert.NoError(t, err)
}

func TestRun_FailedRunIsRecorded(t *testing.T) {
	dir := t.TempDir()
	p := retailConfig(t, dir)

	store := state.NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	defer func() { _ = store.Close() }()

	e := newEngine(t, p, newFakeGenerator(), func(c *Config) { c.Store = store })
	res, err := e.Run(context.Background())
	require.Error(t, err)

	run, err := store.GetRun(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, state.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "CUSTOMERS")
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	p := retailConfig(t, t.TempDir())
	p.Database.Type = "oracle"
	_, err = New(Config{Pipeline: p, Generator: generate.Disabled{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

func TestRunResult_Sections(t *testing.T) {
	res := &RunResult{SchemaSQL: "CREATE TABLE t (id INT)"}
	sections := res.Sections()

	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		SectionSchemaSQL, SectionSchemaResults, SectionLoadResults, SectionValidationSQL,
		SectionValidationResults, SectionTranslatedSQL, SectionAnalyticsSQL, SectionAnalyticsResults,
	}, names)
	assert.False(t, sections[0].Empty())
	assert.True(t, sections[1].Empty())
}
