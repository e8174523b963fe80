package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind is the inferred value kind of a column.
type Kind string

// Value kinds.
const (
	KindNumeric  Kind = "numeric"
	KindText     Kind = "text"
	KindTemporal Kind = "temporal"
)

// Column describes one CSV column.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	// Integral is set for numeric columns whose samples are all integers.
	Integral bool `json:"integral,omitempty"`
}

// Dataset is the structural description of one CSV file.
type Dataset struct {
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Columns []Column `json:"columns"`
}

// ColumnNames returns the dataset's column names in file order.
func (d Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// Describe samples each dataset file and infers column kinds. A file that
// cannot be read keeps its place in the result with no columns, and its
// error is joined into the returned error.
func (c *Catalog) Describe() ([]Dataset, error) {
	datasets := make([]Dataset, 0, len(c.names))
	var errs []error
	for _, name := range c.names {
		path := c.Path(name)
		ds := Dataset{Name: name, Path: path}
		header, rows, err := readCSV(path, c.sampleRows)
		if err != nil {
			errs = append(errs, err)
		} else {
			ds.Columns = inferColumns(header, rows)
		}
		datasets = append(datasets, ds)
	}
	return datasets, errors.Join(errs...)
}

// Summary renders datasets as the structural context handed to schema
// generation.
func Summary(datasets []Dataset) string {
	var b strings.Builder
	for _, ds := range datasets {
		fmt.Fprintf(&b, "\nCSV: %s%s\n", ds.Name, Extension)
		for _, col := range ds.Columns {
			kind := string(col.Kind)
			if col.Kind == KindNumeric {
				if col.Integral {
					kind += " (integer)"
				} else {
					kind += " (decimal)"
				}
			}
			fmt.Fprintf(&b, "- %s: %s\n", col.Name, kind)
		}
	}
	return b.String()
}

// readCSV reads the header and up to limit records (all when limit < 0).
func readCSV(path string, limit int) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	cr := csv.NewReader(f)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("failed to read csv header of %s: file is empty", path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read csv header of %s: %w", path, err)
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows [][]string
	for limit < 0 || len(rows) < limit {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func inferColumns(header []string, rows [][]string) []Column {
	cols := make([]Column, len(header))
	for i, name := range header {
		values := make([]string, 0, len(rows))
		for _, row := range rows {
			if i < len(row) {
				values = append(values, row[i])
			}
		}
		kind, integral := inferKind(values)
		cols[i] = Column{Name: name, Kind: kind, Integral: integral}
	}
	return cols
}

// inferKind requires every non-empty sample to satisfy the narrower kind.
// A column with no non-empty samples is text.
func inferKind(values []string) (Kind, bool) {
	var nonEmpty []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			nonEmpty = append(nonEmpty, v)
		}
	}
	if len(nonEmpty) == 0 {
		return KindText, false
	}
	if allMatch(nonEmpty, isInt) {
		return KindNumeric, true
	}
	if allMatch(nonEmpty, isNumber) {
		return KindNumeric, false
	}
	if allMatch(nonEmpty, isTemporal) {
		return KindTemporal, false
	}
	return KindText, false
}

func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// plainNumber is an optionally signed decimal without exponent.
var plainNumber = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)$`)

func isNumber(s string) bool {
	return plainNumber.MatchString(s)
}

// temporalLayouts are the date and timestamp formats recognised in samples.
var temporalLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
	"01/02/2006",
	"02/01/2006",
	"02-Jan-2006",
	"2 Jan 2006",
}

func isTemporal(s string) bool {
	for _, layout := range temporalLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
