// Package catalog locates the CSV files a run migrates and describes their
// structure for schema generation.
//
// A Catalog is bound to one source directory and a fixed, ordered list of
// dataset names. Each dataset NAME is backed by <dir>/NAME.csv.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSampleRows is the number of records sampled for type inference.
const DefaultSampleRows = 5

// Extension is the file extension of dataset files.
const Extension = ".csv"

// Catalog resolves dataset files in a source directory.
type Catalog struct {
	dir        string
	names      []string
	sampleRows int
}

// New creates a Catalog for the given datasets in dir. A sampleRows value
// below 1 selects DefaultSampleRows.
func New(dir string, names []string, sampleRows int) *Catalog {
	if sampleRows < 1 {
		sampleRows = DefaultSampleRows
	}
	return &Catalog{
		dir:        dir,
		names:      append([]string(nil), names...),
		sampleRows: sampleRows,
	}
}

// Dir returns the source directory.
func (c *Catalog) Dir() string { return c.dir }

// Names returns the dataset names in their configured order.
func (c *Catalog) Names() []string { return append([]string(nil), c.names...) }

// Path returns the backing file path for a dataset name.
func (c *Catalog) Path(name string) string {
	return filepath.Join(c.dir, name+Extension)
}

// Check confirms every dataset file exists. When any are absent it returns a
// *MissingSourcesError naming all of them.
func (c *Catalog) Check() error {
	var missing []string
	for _, name := range c.names {
		info, err := os.Stat(c.Path(name))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			missing = append(missing, name+Extension)
		case err != nil:
			return fmt.Errorf("failed to stat %s: %w", c.Path(name), err)
		case info.IsDir():
			missing = append(missing, name+Extension)
		}
	}
	if len(missing) > 0 {
		return &MissingSourcesError{Dir: c.dir, Missing: missing}
	}
	return nil
}

// MissingSourcesError lists every required file absent from the source
// directory.
type MissingSourcesError struct {
	Dir     string
	Missing []string
}

func (e *MissingSourcesError) Error() string {
	return fmt.Sprintf("missing CSV files in %q: %s", e.Dir, strings.Join(e.Missing, ", "))
}

// ProceduralSource reads an optional procedural SQL file from the source
// directory. ok is false when the file does not exist.
func (c *Catalog) ProceduralSource(name string) (text string, ok bool, err error) {
	if name == "" {
		return "", false, nil
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.dir, name)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read procedural source %s: %w", path, err)
	}
	return string(data), true, nil
}
