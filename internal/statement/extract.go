// Package statement turns generated text into executable SQL statements and
// classifies them by their leading keyword.
//
// Extraction is text normalization only: statements are split on ';', code
// fence markers and surrounding whitespace are removed and empty fragments
// are dropped. Malformed SQL passes through untouched and fails at the
// database.
package statement

import (
	"strings"
)

// Delimiter separates statements in generated text.
const Delimiter = ";"

// Batch is an ordered sequence of statements in emission order.
type Batch []string

// Indexed is a statement tagged with its position in the source batch.
type Indexed struct {
	Index int    `json:"index"`
	SQL   string `json:"sql"`
}

// fence markers produced by chat models around SQL.
var fences = []string{"```sql", "```SQL", "```"}

// Extract splits raw generated text into a Batch.
func Extract(raw string) Batch {
	var batch Batch
	for _, part := range strings.Split(raw, Delimiter) {
		if stmt := Clean(part); stmt != "" {
			batch = append(batch, stmt)
		}
	}
	return batch
}

// Clean removes code fence markers and surrounding whitespace from a single
// candidate statement.
func Clean(s string) string {
	for _, f := range fences {
		s = strings.ReplaceAll(s, f, "")
	}
	return strings.TrimSpace(s)
}

// Indexed returns the batch with each statement tagged by its position.
func (b Batch) Indexed() []Indexed {
	out := make([]Indexed, len(b))
	for i, s := range b {
		out[i] = Indexed{Index: i, SQL: s}
	}
	return out
}

// Text joins the batch back into a script, one statement per line.
func (b Batch) Text() string {
	if len(b) == 0 {
		return ""
	}
	return strings.Join(b, Delimiter+"\n") + Delimiter
}
