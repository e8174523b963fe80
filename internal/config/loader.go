package config

import (
	"os"
	"path/filepath"
	"regexp"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "genmigrate.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "genmigrate.yml"

// maxUpwardSearchLevels limits how far up the directory tree to search.
const maxUpwardSearchLevels = 10

// FindConfigFile returns the config file in dir, or "" if there is none.
func FindConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// FindProjectRoot walks up from startDir to the nearest directory holding a
// config file. Returns "" if none is found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for range maxUpwardSearchLevels {
		if FindConfigFile(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ExpandEnv expands ${VAR} patterns with environment values. Unset
// variables are left as written.
func ExpandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// ExpandSecrets expands ${VAR} in the credential-bearing fields of p.
func ExpandSecrets(p *PipelineConfig) {
	if p == nil {
		return
	}
	if d := p.Database; d != nil {
		d.Host = ExpandEnv(d.Host)
		d.User = ExpandEnv(d.User)
		d.Password = ExpandEnv(d.Password)
		d.Path = ExpandEnv(d.Path)
	}
	if g := p.Generation; g != nil {
		g.APIKey = ExpandEnv(g.APIKey)
		g.BaseURL = ExpandEnv(g.BaseURL)
	}
}

// MergeDatabaseConfig merges two database configs, with override taking
// precedence for every non-zero field.
func MergeDatabaseConfig(base, override *DatabaseConfig) *DatabaseConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	merged.Options = make(map[string]string, len(base.Options)+len(override.Options))
	for k, v := range base.Options {
		merged.Options[k] = v
	}

	if override.Type != "" {
		merged.Type = override.Type
	}
	if override.Path != "" {
		merged.Path = override.Path
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	if override.Schema != "" {
		merged.Schema = override.Schema
	}
	for k, v := range override.Options {
		merged.Options[k] = v
	}
	return &merged
}
