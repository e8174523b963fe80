package commands

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/genmigrate/internal/cli/output"
	"github.com/leapstack-labs/genmigrate/internal/statement"
	"github.com/leapstack-labs/genmigrate/pkg/adapter"
	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	Input  string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run a read-only query against the target database",
		Long: `Run SELECT or WITH statements against the migrated schema to inspect the
loaded data. Statements of any other kind are rejected before they reach the
database.`,
		Example: `  genmigrate query "SELECT COUNT(*) FROM SALES"
  genmigrate query -i checks.sql --format csv
  genmigrate query "SELECT * FROM CUSTOMERS" --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md (default follows --output)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	r := getRenderer(cmd)
	ctx := commandContext(cmd)

	var sqlText string
	switch {
	case opts.Input != "":
		data, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", opts.Input, err)
		}
		sqlText = string(data)
	case len(args) == 1:
		sqlText = args[0]
	default:
		return fmt.Errorf("no query given: pass SQL as an argument or use --input")
	}

	batch := statement.Extract(sqlText)
	if len(batch) == 0 {
		return fmt.Errorf("no statements found")
	}
	guard := statement.ReadOnly()
	for _, stmt := range batch {
		if err := guard.Check(stmt); err != nil {
			return err
		}
	}

	dbCfg := cfg.Database.AdapterConfig()
	db, err := adapter.NewAdapter(dbCfg, getLogger(cmd))
	if err != nil {
		return err
	}
	if err := db.Connect(ctx, dbCfg); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	format := queryFormat(opts.Format, r.EffectiveMode())
	for i, stmt := range batch {
		rs, err := adapter.Fetch(ctx, db, stmt)
		if err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
		if err := renderResultSet(r, rs, format); err != nil {
			return err
		}
	}
	return nil
}

func queryFormat(flag string, mode output.OutputMode) string {
	if flag != "" {
		return strings.ToLower(flag)
	}
	switch mode {
	case output.ModeJSON:
		return "json"
	case output.ModeMarkdown:
		return "md"
	}
	return "table"
}

func renderResultSet(r *output.Renderer, rs *adapter.ResultSet, format string) error {
	switch format {
	case "json":
		records := make([]map[string]any, 0, len(rs.Rows))
		for _, row := range rs.Rows {
			rec := make(map[string]any, len(rs.Columns))
			for i, col := range rs.Columns {
				rec[col] = row[i]
			}
			records = append(records, rec)
		}
		return r.JSON(records)
	case "csv":
		return writeCSV(r.Writer(), rs)
	case "md", "markdown", "table":
		if len(rs.Rows) == 0 {
			r.Println("(0 rows)")
			return nil
		}
		r.Table(rs.Columns, rs.Rows)
		r.Printf("(%d rows)\n", len(rs.Rows))
		return nil
	}
	return fmt.Errorf("unknown format %q (expected table, json, csv or md)", format)
}

func writeCSV(w io.Writer, rs *adapter.ResultSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rs.Columns); err != nil {
		return err
	}
	for _, row := range rs.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			if v != nil {
				record[i] = output.FormatValue(v)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
