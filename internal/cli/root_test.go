package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "genmigrate", cmd.Use)
	assert.Equal(t, Version, cmd.Version)

	for _, flag := range []string{
		"config", "target", "source-dir", "output-dir", "state", "datasets",
		"db-type", "db-host", "db-port", "db-user", "db-path", "schema", "model",
		"verbose", "output",
	} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"run", "check", "catalog", "plan", "query", "history", "init", "version", "completion"} {
		assert.True(t, names[want], "command %q should be registered", want)
	}
}

func TestCompletionCommand(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"completion", "bash"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "genmigrate")
}

func TestVersionSkipsConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version", "--db-type", "oracle"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "genmigrate v"+Version)
}
