package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/leapstack-labs/genmigrate/internal/cli/config"
	"github.com/leapstack-labs/genmigrate/internal/cli/output"
	intconfig "github.com/leapstack-labs/genmigrate/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/genmigrate/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/genmigrate/pkg/adapters/sqlite"
)

// testConfig returns a sqlite-backed configuration for sourceDir.
func testConfig(t *testing.T, sourceDir string) *config.Config {
	t.Helper()
	cfg := &config.Config{OutputFormat: "text"}
	cfg.SourceDir = sourceDir
	cfg.OutputDir = t.TempDir()
	cfg.StatePath = ":memory:"
	cfg.Database = &intconfig.DatabaseConfig{Type: "sqlite", Path: ":memory:"}
	intconfig.ApplyDefaults(&cfg.PipelineConfig)
	return cfg
}

// executeWith runs cmd with cfg and a renderer in its context and returns
// stdout and stderr.
func executeWith(t *testing.T, cmd *cobra.Command, cfg *config.Config, mode output.OutputMode, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)

	ctx := context.Background()
	if cfg != nil {
		ctx = config.WithConfig(ctx, cfg)
	}
	ctx = output.WithRenderer(ctx, output.NewRendererWithTTY(&out, &errOut, false, mode))
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestNewRunCommand(t *testing.T) {
	cmd := NewRunCommand()

	assert.Equal(t, "run", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	for _, flag := range []string{"json", "execute-analytics", "on-conflict", "batch-size"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	require.NotEmpty(t, cmd.Aliases)
	assert.Equal(t, "migrate", cmd.Aliases[0])
}

func TestNewCheckCommand(t *testing.T) {
	cmd := NewCheckCommand()
	assert.Equal(t, "check", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
}

func TestNewCatalogCommand(t *testing.T) {
	cmd := NewCatalogCommand()
	assert.Equal(t, "catalog", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("summary"))
}

func TestNewPlanCommand(t *testing.T) {
	cmd := NewPlanCommand()
	assert.Equal(t, "plan <file>", cmd.Use)
	assert.NotEmpty(t, cmd.Example)
}

func TestNewQueryCommand(t *testing.T) {
	cmd := NewQueryCommand()
	assert.Equal(t, "query [SQL]", cmd.Use)
	for _, flag := range []string{"format", "input"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewHistoryCommand(t *testing.T) {
	cmd := NewHistoryCommand()
	assert.Equal(t, "history [run-id]", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("limit"))
}

func TestCommandsRequireConfig(t *testing.T) {
	for _, cmd := range []*cobra.Command{NewRunCommand(), NewCheckCommand(), NewCatalogCommand(), NewHistoryCommand()} {
		_, _, err := executeWith(t, cmd, nil, output.ModeText)
		assert.ErrorIs(t, err, errNoConfig, cmd.Name())
	}
}
