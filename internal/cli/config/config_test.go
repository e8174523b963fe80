package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/genmigrate/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/genmigrate/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/genmigrate/pkg/adapters/sqlite"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "genmigrate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("target", "", "")
	fs.String("source-dir", "", "")
	fs.String("output-dir", "", "")
	fs.String("state", "", "")
	fs.StringSlice("datasets", nil, "")
	fs.String("db-type", "", "")
	fs.String("db-host", "", "")
	fs.Int("db-port", 0, "")
	fs.String("db-user", "", "")
	fs.String("db-path", "", "")
	fs.String("schema", "", "")
	fs.String("model", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.StringP("output", "o", "", "")
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(APIKeyEnv, "")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	root, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(cfg.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, root, gotRoot)

	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "data"), cfg.SourceDir)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "output"), cfg.OutputDir)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, ".genmigrate", "state.db"), cfg.StatePath)
	assert.Equal(t, []string{"CUSTOMERS", "INVENTORY", "SALES"}, cfg.Datasets)
	assert.Equal(t, "mysql", cfg.Database.Type)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "root", cfg.Database.User)
	assert.Equal(t, "retail_dw", cfg.Database.Schema)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Generation.Model)
	assert.InDelta(t, 0.1, cfg.Generation.Temperature, 1e-6)
	assert.Equal(t, 2000, cfg.Generation.MaxTokens)
	assert.Empty(t, cfg.Generation.APIKey)
	assert.Equal(t, "ignore", cfg.Load.OnConflict)
	assert.Equal(t, "SALES", cfg.Domain.Fact)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.Empty(t, GetConfigFileUsed())
}

func TestLoadConfig_FileEnvAndFlags(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeConfig(t, dir, `
source_dir: csv
datasets: [CUSTOMERS, INVENTORY, SALES]
database:
  type: postgres
  host: db.internal
  user: etl
  password: ${TEST_GENMIGRATE_PW}
  schema: staging
generation:
  model: from-file
load:
  on_conflict: error
  batch_size: 250
analytics:
  execute: true
`)
	t.Chdir(dir)
	t.Setenv("TEST_GENMIGRATE_PW", "s3cret")
	t.Setenv("GENMIGRATE_DATABASE__HOST", "env-host")
	t.Setenv("GENMIGRATE_GENERATION__API_KEY", "gsk-env")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--model", "from-flag", "--db-port", "6543"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "csv"), cfg.SourceDir)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "etl", cfg.Database.User)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "staging", cfg.Database.Schema)
	assert.Equal(t, "from-flag", cfg.Generation.Model)
	assert.Equal(t, "gsk-env", cfg.Generation.APIKey)
	assert.Equal(t, "error", cfg.Load.OnConflict)
	assert.Equal(t, 250, cfg.Load.BatchSize)
	assert.True(t, cfg.Analytics.Execute)
	assert.NotEmpty(t, GetConfigFileUsed())
}

func TestLoadConfig_DotEnvAndAPIKeyFallback(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GROQ_API_KEY=gsk-dotenv\n"), 0o600))
	t.Chdir(dir)
	// Unset in the real environment so .env supplies it; restored on cleanup.
	t.Setenv(APIKeyEnv, "")
	require.NoError(t, os.Unsetenv(APIKeyEnv))

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "gsk-dotenv", cfg.Generation.APIKey)
}

func TestLoadConfig_DatasetsFromEnv(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())
	t.Setenv("GENMIGRATE_DATASETS", "CUSTOMERS, SALES")
	t.Setenv("GENMIGRATE_DOMAIN__FACT", "SALES")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"CUSTOMERS", "SALES"}, cfg.Datasets)
}

func TestLoadConfig_PathFlagsRelativeToCWD(t *testing.T) {
	ResetConfig()
	project := t.TempDir()
	cfgPath := writeConfig(t, project, "source_dir: data\n")
	work := t.TempDir()
	t.Chdir(work)

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--output-dir", "reports", "--db-type", "sqlite", "--db-path", "target.db"}))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(project, "data"), cfg.SourceDir)
	assert.Equal(t, filepath.Join(cwd, "reports"), cfg.OutputDir)
	assert.Equal(t, filepath.Join(cwd, "target.db"), cfg.Database.Path)
	assert.Equal(t, "sqlite", cfg.Database.Type)
}

func TestLoadConfig_Target(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeConfig(t, dir, `
database:
  type: mysql
  host: prod-db
environments:
  local:
    output_dir: local-out
    database:
      type: sqlite
      path: ":memory:"
`)
	t.Chdir(dir)

	cfg, err := LoadConfigWithTarget("", "local", nil)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, "local-out"), cfg.OutputDir)

	_, err = LoadConfigWithTarget("", "staging", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown target "staging"`)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		errSubstr string
	}{
		{"unknown adapter", "database:\n  type: oracle\n", "unknown adapter type"},
		{"bad conflict mode", "load:\n  on_conflict: replace\n", "on_conflict"},
		{"duplicate dataset", "datasets: [SALES, sales]\n", "listed twice"},
		{"fact not a dataset", "domain:\n  fact: ORDERS\n", "ORDERS"},
		{"malformed yaml", "datasets: [\n", "error reading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			dir := t.TempDir()
			writeConfig(t, dir, tt.yaml)
			t.Chdir(dir)

			_, err := LoadConfig("", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoadConfig_UpwardSearch(t *testing.T) {
	ResetConfig()
	project := t.TempDir()
	writeConfig(t, project, "source_dir: inputs\n")
	nested := filepath.Join(project, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "inputs", filepath.Base(cfg.SourceDir))
	assert.Equal(t, filepath.Base(project), filepath.Base(filepath.Dir(cfg.SourceDir)))
}

func TestResolvePathRelativeTo(t *testing.T) {
	assert.Equal(t, "", resolvePathRelativeTo("", "/base"))
	assert.Equal(t, ":memory:", resolvePathRelativeTo(":memory:", "/base"))
	assert.Equal(t, "/abs/x", resolvePathRelativeTo("/abs/x", "/base"))
	assert.Equal(t, filepath.Join("/base", "rel"), resolvePathRelativeTo("rel", "/base"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "C"}, splitList([]string{"A, B", "C"}))
	assert.Nil(t, splitList(nil))
}
