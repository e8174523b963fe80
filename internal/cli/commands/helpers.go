// Package commands implements the genmigrate subcommands.
package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/leapstack-labs/genmigrate/internal/cli/config"
	"github.com/leapstack-labs/genmigrate/internal/cli/output"
	"github.com/spf13/cobra"
)

var errNoConfig = errors.New("configuration not loaded")

// getConfig returns the configuration loaded by the root command.
func getConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, errNoConfig
	}
	return cfg, nil
}

func getRenderer(cmd *cobra.Command) *output.Renderer {
	if r, ok := output.Lookup(cmd.Context()); ok {
		return r
	}
	return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeAuto)
}

func getLogger(cmd *cobra.Command) *slog.Logger {
	return config.GetLogger(cmd.Context())
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
