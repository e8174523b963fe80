package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/genmigrate/internal/cli/config"
	intconfig "github.com/leapstack-labs/genmigrate/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new genmigrate project",
		Long: `Initialize a migration project with a commented configuration file.

This creates:
  - genmigrate.yaml with every setting at its default
  - data/ directory for the source CSV files

The API key is never written to the file. Set GROQ_API_KEY in the
environment or in a .env file next to genmigrate.yaml.`,
		Example: `  # Initialize in current directory
  genmigrate init

  # Initialize in a new directory
  genmigrate init retail-migration

  # Overwrite an existing configuration
  genmigrate init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	r := getRenderer(cmd)

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, intconfig.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", intconfig.ConfigFileName)
	}

	body, err := defaultConfigYAML()
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	if err := os.WriteFile(configPath, body, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	r.StatusLine(intconfig.ConfigFileName, "success", "")

	dataDir := filepath.Join(dir, intconfig.DefaultSourceDir)
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dataDir, err)
	}
	r.StatusLine(intconfig.DefaultSourceDir+"/", "success", "")

	r.Println("")
	r.Success("genmigrate project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Copy CUSTOMERS.csv, INVENTORY.csv and SALES.csv into data/")
	r.Printf("  2. Export %s (or add it to .env)\n", config.APIKeyEnv)
	r.Println("  3. Run 'genmigrate check' to verify the sources")
	r.Println("  4. Run 'genmigrate run' to migrate")
	return nil
}

// defaultConfigYAML renders the default pipeline configuration with a
// comment above each setting.
func defaultConfigYAML() ([]byte, error) {
	d := intconfig.Default()

	database := mapping(
		entry("type", d.Database.Type, "mysql, postgres, sqlite or duckdb"),
		entry("host", d.Database.Host, ""),
		entry("port", d.Database.Port, ""),
		entry("user", d.Database.User, ""),
		entry("password", "${DB_PASSWORD}", "${VAR} references are expanded from the environment"),
		entry("schema", d.Database.Schema, "Created if absent and selected before the schema is applied"),
	)
	generation := mapping(
		entry("base_url", d.Generation.BaseURL, "OpenAI-compatible endpoint"),
		entry("model", d.Generation.Model, ""),
		entry("temperature", d.Generation.Temperature, ""),
		entry("max_tokens", d.Generation.MaxTokens, ""),
	)
	load := mapping(
		entry("on_conflict", d.Load.OnConflict, "ignore skips rows that violate a unique key, error fails the dataset"),
		entry("batch_size", d.Load.BatchSize, "Rows per INSERT statement, 0 lets the database decide"),
		entry("text_columns", d.Load.TextColumns, "Always loaded as text"),
	)
	domain := mapping(
		entry("fact", d.Domain.Fact, "Transactional dataset checked by the validation queries"),
		entry("amount_column", d.Domain.AmountColumn, ""),
		entry("references", referenceMaps(d.Domain.References), "Foreign keys from the fact dataset to its parents"),
	)
	analytics := mapping(
		entry("execute", d.Analytics.Execute, "Run the generated analytic queries and include their results"),
		entry("row_limit", d.Analytics.RowLimit, ""),
	)

	root := mapping(
		entry("source_dir", d.SourceDir, "Directory holding one <DATASET>.csv per dataset"),
		entry("output_dir", d.OutputDir, "Reports are written here"),
		entry("state_path", d.StatePath, "Run history"),
		entry("datasets", d.Datasets, "Parents before children"),
		entry("sample_rows", d.SampleRows, "Rows shown per dataset in generation prompts"),
		entry("procedural_file", d.ProceduralFile, "Optional procedural SQL translated for the target database"),
		entry("database", database, "Target database\nSelect an environment override with --target:\n  environments:\n    local:\n      database:\n        type: sqlite\n        path: ./retail.db"),
		entry("generation", generation, "SQL generation. The API key is read from "+config.APIKeyEnv),
		entry("load", load, ""),
		entry("domain", domain, ""),
		entry("analytics", analytics, ""),
	)

	if root.err != nil {
		return nil, root.err
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root.node}}
	doc.HeadComment = "genmigrate configuration"

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func referenceMaps(refs []intconfig.Reference) []map[string]string {
	out := make([]map[string]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, map[string]string{
			"column":        ref.Column,
			"table":         ref.Table,
			"parent_column": ref.ParentColumn,
		})
	}
	return out
}

type yamlEntry struct {
	key     string
	value   any
	comment string
}

type yamlMapping struct {
	node *yaml.Node
	err  error
}

func entry(key string, value any, comment string) yamlEntry {
	return yamlEntry{key: key, value: value, comment: comment}
}

func mapping(entries ...yamlEntry) yamlMapping {
	m := yamlMapping{node: &yaml.Node{Kind: yaml.MappingNode}}
	for _, e := range entries {
		k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.key, HeadComment: e.comment}

		var v *yaml.Node
		if sub, ok := e.value.(yamlMapping); ok {
			if sub.err != nil {
				m.err = sub.err
			}
			v = sub.node
		} else {
			v = &yaml.Node{}
			if err := v.Encode(e.value); err != nil {
				m.err = fmt.Errorf("%s: %w", e.key, err)
				continue
			}
		}
		m.node.Content = append(m.node.Content, k, v)
	}
	return m
}
