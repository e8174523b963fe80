// Package report renders run results as a markdown document and writes it to
// a fresh, timestamp-named file.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
)

// Title heads every report.
const Title = "GenAI-Assisted Data Migration Report"

// Section is one named stage output. A string value is rendered as a SQL
// code block; any other value as indented JSON.
type Section struct {
	Name  string
	Value any
}

// Empty reports whether the section has nothing to show.
func (s Section) Empty() bool {
	if s.Value == nil {
		return true
	}
	if str, ok := s.Value.(string); ok {
		return strings.TrimSpace(str) == ""
	}
	v := reflect.ValueOf(s.Value)
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Render produces the markdown document. Empty sections are left out.
func Render(sections []Section, at time.Time) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", Title)
	fmt.Fprintf(&b, "**Run Timestamp:** %s\n\n", at.Format("2006-01-02 15:04:05 MST"))

	for _, s := range sections {
		if s.Empty() {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", s.Name)
		if str, ok := s.Value.(string); ok {
			fmt.Fprintf(&b, "```sql\n%s\n```\n\n", strings.TrimSpace(str))
			continue
		}
		data, err := json.MarshalIndent(s.Value, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode section %s: %w", s.Name, err)
		}
		b.Write(data)
		b.WriteString("\n\n")
	}
	return b.Bytes(), nil
}

// FileName returns the report file name for a run started at at.
func FileName(at time.Time) string {
	return "migration_report_" + at.Format("20060102_150405") + ".md"
}

// maxSuffix bounds the search for a free file name.
const maxSuffix = 1000

// Write stores body under dir, creating dir if needed. An existing report is
// never overwritten: a clashing name gets a numeric suffix.
func Write(dir string, body []byte, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	base := strings.TrimSuffix(FileName(at), ".md")
	for i := 0; i < maxSuffix; i++ {
		name := base + ".md"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.md", base, i)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create report %s: %w", path, err)
		}
		if _, err := f.Write(body); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("failed to write report %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close report %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("failed to find a free report name for %s in %s", base, dir)
}
