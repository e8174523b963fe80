package loader

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/leapstack-labs/genmigrate/internal/catalog"
)

// textNameHints mark columns whose values are labels even when they look
// numeric.
var textNameHints = []string{"phone", "mobile", "fax", "zip", "postal"}

// identifierSuffixes mark identifier-like columns. They stay text only when
// a value would lose information as a number.
var identifierSuffixes = []string{"id", "_code", "_no", "_number"}

// TextColumns returns, for each column of t, whether it must be loaded as
// text: configured names, names with a text hint, and identifier-like
// columns holding a value with a leading zero or one that overflows int64.
func TextColumns(t *catalog.Table, configured []string) []bool {
	forced := make(map[string]bool, len(configured))
	for _, c := range configured {
		forced[strings.ToLower(c)] = true
	}

	out := make([]bool, len(t.Columns))
	for i, name := range t.Columns {
		lower := strings.ToLower(name)
		switch {
		case forced[lower]:
			out[i] = true
		case containsAny(lower, textNameHints):
			out[i] = true
		case hasAnySuffix(lower, identifierSuffixes):
			out[i] = columnLosesDigits(t.Rows, i)
		}
	}
	return out
}

// Normalize converts text cells into insert values. Empty cells become NULL.
// The type is decided per column: a column becomes numeric only when every
// non-empty cell is a plain decimal number, and its cells are then int64 or
// float64. Every other column keeps its exact text.
func Normalize(t *catalog.Table, textColumns []string) [][]any {
	text := TextColumns(t, textColumns)
	numeric := make([]bool, len(t.Columns))
	for i := range t.Columns {
		numeric[i] = !text[i] && numericColumn(t.Rows, i)
	}

	rows := make([][]any, len(t.Rows))
	for r, row := range t.Rows {
		values := make([]any, len(row))
		for i, cell := range row {
			values[i] = convert(cell, i < len(numeric) && numeric[i])
		}
		rows[r] = values
	}
	return rows
}

// plainNumber matches integers and decimals without exponent.
var plainNumber = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)$`)

// numericColumn reports whether every non-empty value of column i is a plain
// number that survives conversion unchanged.
func numericColumn(rows [][]string, i int) bool {
	seen := false
	for _, row := range rows {
		if i >= len(row) {
			continue
		}
		s := strings.TrimSpace(row[i])
		if s == "" {
			continue
		}
		if !plainNumber.MatchString(s) || leadingZero(s) {
			return false
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

func convert(cell string, numeric bool) any {
	if cell == "" {
		return nil
	}
	if !numeric {
		return cell
	}
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(strings.TrimPrefix(s, "+"), 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return cell
}

// columnLosesDigits reports whether any value of column i is a digit string
// that a numeric type would alter.
func columnLosesDigits(rows [][]string, i int) bool {
	for _, row := range rows {
		if i >= len(row) {
			continue
		}
		s := strings.TrimSpace(row[i])
		if s == "" || !isDigits(s) {
			continue
		}
		if leadingZero(s) {
			return true
		}
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			return true
		}
	}
	return false
}

// leadingZero reports a digit string like "0123" whose zero would be lost.
func leadingZero(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && s[1] != '.'
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
