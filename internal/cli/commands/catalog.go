package commands

import (
	"fmt"

	"github.com/leapstack-labs/genmigrate/internal/catalog"
	"github.com/leapstack-labs/genmigrate/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand() *cobra.Command {
	var summary bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Describe the source datasets",
		Long: `Read the header and sample rows of every dataset and show the inferred
kind of each column. These descriptions are what the schema, validation
and analytics instructions are built from.`,
		Example: `  genmigrate catalog
  genmigrate catalog --summary   # exact text sent for schema synthesis`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCatalog(cmd, summary)
		},
	}

	cmd.Flags().BoolVar(&summary, "summary", false, "Print the plain structural summary")
	return cmd
}

func runCatalog(cmd *cobra.Command, summary bool) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	r := getRenderer(cmd)

	cat := catalog.New(cfg.SourceDir, cfg.Datasets, cfg.SampleRows)
	if err := cat.Check(); err != nil {
		return err
	}
	datasets, err := cat.Describe()
	if err != nil {
		return err
	}

	if summary {
		r.Printf("%s", catalog.Summary(datasets))
		return nil
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(datasets)
	}

	for _, ds := range datasets {
		r.Header(2, ds.Name+catalog.Extension)
		rows := make([][]any, 0, len(ds.Columns))
		for _, col := range ds.Columns {
			kind := string(col.Kind)
			if col.Kind == catalog.KindNumeric {
				if col.Integral {
					kind += " (integer)"
				} else {
					kind += " (decimal)"
				}
			}
			rows = append(rows, []any{col.Name, kind})
		}
		r.Table([]string{"column", "kind"}, rows)
		r.Println()
	}
	r.Println(r.Muted(fmt.Sprintf("%d datasets, kinds inferred from up to %d rows each", len(datasets), cfg.SampleRows)))
	return nil
}
