package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	intconfig "github.com/leapstack-labs/genmigrate/internal/config"
	"github.com/leapstack-labs/genmigrate/internal/generate"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// configKey is used to store the loaded config in context.
type configKey struct{}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
)

// flagKeys maps flag names to config keys where they differ beyond
// kebab-case to snake_case.
var flagKeys = map[string]string{
	"state":   "state_path",
	"db-type": "database.type",
	"db-host": "database.host",
	"db-port": "database.port",
	"db-user": "database.user",
	"db-path": "database.path",
	"schema":  "database.schema",
	"model":   "generation.model",
}

// pathFlags are resolved against the working directory rather than the
// project root.
var pathFlags = []string{"source-dir", "output-dir", "state", "db-path"}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
}

// inferProjectRoot determines the directory relative paths are anchored to:
// the directory of an explicit config file, else the nearest directory
// upward from CWD holding genmigrate.yaml, else CWD.
func inferProjectRoot(cfgFile string) string {
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}
	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	if root := intconfig.FindProjectRoot(cwd); root != "" {
		return root
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, in-memory or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func defaults() map[string]any {
	return map[string]any{
		"source_dir":             intconfig.DefaultSourceDir,
		"output_dir":             intconfig.DefaultOutputDir,
		"state_path":             intconfig.DefaultStateFile,
		"sample_rows":            intconfig.DefaultSampleRows,
		"procedural_file":        intconfig.DefaultProcedural,
		"database.type":          intconfig.DefaultDatabaseType,
		"database.schema":        intconfig.DefaultSchema,
		"generation.base_url":    generate.DefaultBaseURL,
		"generation.model":       generate.DefaultModel,
		"generation.temperature": intconfig.DefaultTemperature,
		"generation.max_tokens":  generate.DefaultMaxTokens,
		"load.on_conflict":       intconfig.DefaultOnConflict,
		"analytics.row_limit":    intconfig.DefaultAnalyticsLimit,
		"verbose":                false,
		"output":                 DefaultOutput,
	}
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > .env > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return LoadConfigWithTarget(cfgFile, "", flags)
}

// LoadConfigWithTarget loads configuration and applies the overrides of the
// named environment.
func LoadConfigWithTarget(cfgFile, target string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")
	configFileUsed = ""

	projectRoot := inferProjectRoot(cfgFile)

	// Paths given as flags are relative to CWD, not the project root.
	flagPaths := map[string]string{}
	if flags != nil {
		for _, name := range pathFlags {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if v := f.Value.String(); v != "" && v != ":memory:" {
				abs, err := filepath.Abs(v)
				if err == nil {
					v = abs
				}
				flagPaths[name] = v
			}
		}
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		cfgFile = intconfig.FindConfigFile(projectRoot)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		configFileUsed = cfgFile
	}

	// 3. .env next to the project; never overrides the real environment.
	if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 4. Environment variables: GENMIGRATE_DATABASE__PASSWORD -> database.password
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Flags (only those explicitly set)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" || f.Name == "target" {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 6. Unmarshal
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot
	cfg.Datasets = splitList(cfg.Datasets)

	if target != "" {
		envCfg, ok := cfg.Environments[target]
		if !ok {
			return nil, fmt.Errorf("unknown target %q", target)
		}
		cfg.Environment = target
		if envCfg.SourceDir != "" {
			cfg.SourceDir = envCfg.SourceDir
		}
		if envCfg.OutputDir != "" {
			cfg.OutputDir = envCfg.OutputDir
		}
		cfg.Database = intconfig.MergeDatabaseConfig(cfg.Database, envCfg.Database)
	}

	if cfg.Generation != nil && cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = os.Getenv(APIKeyEnv)
	}

	intconfig.ApplyDefaults(&cfg.PipelineConfig)
	intconfig.ExpandSecrets(&cfg.PipelineConfig)

	// 7. Resolve paths
	resolve := func(flag string, p *string) {
		if v, ok := flagPaths[flag]; ok {
			*p = v
			return
		}
		*p = resolvePathRelativeTo(*p, projectRoot)
	}
	resolve("source-dir", &cfg.SourceDir)
	resolve("output-dir", &cfg.OutputDir)
	resolve("state", &cfg.StatePath)
	resolve("db-path", &cfg.Database.Path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// splitList splits comma-separated entries, as delivered by environment
// variables, into separate trimmed items.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config stored by WithConfig, or nil.
func FromContext(ctx context.Context) *Config {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(configKey{}).(*Config)
	return c
}
