package adapter

import (
	"fmt"
	"regexp"
	"strings"
)

// Dialect describes the SQL spelling differences the pipeline cares about.
type Dialect struct {
	// Name is the dialect name, matching the adapter type.
	Name string

	// IdentQuote is the character used to quote identifiers.
	IdentQuote string

	// NumberedPlaceholders selects $1, $2 … instead of ?.
	NumberedPlaceholders bool

	// MaxParams bounds the bind parameters of a single statement.
	MaxParams int

	// IgnorePrefix starts a duplicate-tolerant insert (e.g. "INSERT IGNORE INTO").
	IgnorePrefix string

	// IgnoreSuffix ends a duplicate-tolerant insert (e.g. " ON CONFLICT DO NOTHING").
	IgnoreSuffix string

	// CommitSQL is issued by Commit. Empty means the session autocommits.
	CommitSQL string

	// DropCascade appends CASCADE to DROP TABLE.
	DropCascade bool
}

var bareIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// QuoteIdent quotes each dot-separated part of an identifier that is not a
// plain word. Plain words stay bare so the database folds them the same way
// it folded the generated DDL.
func (d *Dialect) QuoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if bareIdent.MatchString(p) {
			continue
		}
		q := d.IdentQuote
		if q == "" {
			q = `"`
		}
		parts[i] = q + strings.ReplaceAll(p, q, q+q) + q
	}
	return strings.Join(parts, ".")
}

// FormatPlaceholder returns the n-th (1-based) bind placeholder.
func (d *Dialect) FormatPlaceholder(n int) string {
	if d.NumberedPlaceholders {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// RowsPerStatement returns how many rows of the given width fit in one
// multi-row INSERT.
func (d *Dialect) RowsPerStatement(width int) int {
	if width <= 0 {
		return 1
	}
	maxParams := d.MaxParams
	if maxParams <= 0 {
		maxParams = 999
	}
	n := maxParams / width
	if n < 1 {
		return 1
	}
	if n > 1000 {
		return 1000
	}
	return n
}

// InsertStatement builds a multi-row INSERT for rowCount rows.
func (d *Dialect) InsertStatement(table string, columns []string, rowCount int, mode ConflictMode) string {
	var sb strings.Builder

	if mode == ConflictIgnore && d.IgnorePrefix != "" {
		sb.WriteString(d.IgnorePrefix)
	} else {
		sb.WriteString("INSERT INTO")
	}
	sb.WriteString(" ")
	sb.WriteString(d.QuoteIdent(table))
	sb.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.QuoteIdent(c))
	}
	sb.WriteString(") VALUES ")

	n := 1
	for r := 0; r < rowCount; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for c := range columns {
			if c > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(d.FormatPlaceholder(n))
			n++
		}
		sb.WriteString(")")
	}

	if mode == ConflictIgnore {
		sb.WriteString(d.IgnoreSuffix)
	}
	return sb.String()
}

// DropTableStatement builds an idempotent DROP TABLE.
func (d *Dialect) DropTableStatement(table string) string {
	stmt := "DROP TABLE IF EXISTS " + d.QuoteIdent(table)
	if d.DropCascade {
		stmt += " CASCADE"
	}
	return stmt
}
