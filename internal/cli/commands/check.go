package commands

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/genmigrate/internal/catalog"
	"github.com/leapstack-labs/genmigrate/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that every source file is present",
		Long: `Check the source directory for the CSV file of every configured dataset
and the optional procedural SQL file. Nothing is read beyond file metadata
and no database connection is made.`,
		Example: `  genmigrate check
  genmigrate check --source-dir ./exports -o json`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}
}

// CheckOutput is the JSON form of the check result.
type CheckOutput struct {
	SourceDir  string   `json:"source_dir"`
	Present    []string `json:"present"`
	Missing    []string `json:"missing"`
	Procedural string   `json:"procedural,omitempty"`
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	r := getRenderer(cmd)

	cat := catalog.New(cfg.SourceDir, cfg.Datasets, cfg.SampleRows)
	checkErr := cat.Check()

	out := CheckOutput{SourceDir: cat.Dir(), Missing: []string{}}
	var missing *catalog.MissingSourcesError
	switch {
	case errors.As(checkErr, &missing):
		out.Missing = missing.Missing
	case checkErr != nil:
		return checkErr
	}
	absent := make(map[string]bool, len(out.Missing))
	for _, m := range out.Missing {
		absent[m] = true
	}
	for _, name := range cat.Names() {
		if file := name + catalog.Extension; !absent[file] {
			out.Present = append(out.Present, file)
		}
	}
	if _, ok, err := cat.ProceduralSource(cfg.ProceduralFile); err == nil && ok {
		out.Procedural = cfg.ProceduralFile
	}

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(out); err != nil {
			return err
		}
		return checkErr
	}

	r.Header(1, "Sources in "+out.SourceDir)
	for _, f := range out.Present {
		r.StatusLine(f, "ok", "")
	}
	for _, f := range out.Missing {
		r.StatusLine(f, "failed", "missing")
	}
	if out.Procedural != "" {
		r.StatusLine(out.Procedural, "ok", "procedural SQL will be translated")
	} else {
		r.StatusLine(cfg.ProceduralFile, "skipped", "not found; translation will be skipped")
	}

	if checkErr != nil {
		return checkErr
	}
	r.Println()
	r.Success(fmt.Sprintf("All %d source files present", len(out.Present)))
	return nil
}
