// Package loader streams dataset files into their target tables.
//
// Each dataset is one unit of work: the full file is read, normalized and
// inserted by a single bulk operation that commits on success and rolls back
// on failure. A failed dataset never affects the datasets before or after it.
package loader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/genmigrate/internal/catalog"
	"github.com/leapstack-labs/genmigrate/pkg/adapter"
)

// Reader supplies full dataset contents.
type Reader interface {
	ReadAll(ds catalog.Dataset) (*catalog.Table, error)
}

// Options controls a load.
type Options struct {
	Mode        adapter.ConflictMode
	TextColumns []string
	Logger      *slog.Logger
	// OnDataset, when set, is called after each dataset with its outcome.
	OnDataset func(Outcome)
}

// Outcome records the load of one dataset. Skipped counts rows the database
// did not insert (duplicates under ConflictIgnore).
type Outcome struct {
	Dataset  string `json:"dataset"`
	Table    string `json:"table"`
	Rows     int    `json:"rows"`
	Inserted int64  `json:"inserted"`
	Skipped  int64  `json:"skipped"`
	Error    string `json:"error,omitempty"`
}

// OK reports whether the dataset loaded.
func (o Outcome) OK() bool { return o.Error == "" }

// Load inserts every dataset into the table of the same name, in order.
func Load(ctx context.Context, ins adapter.Inserter, src Reader, datasets []catalog.Dataset, opts Options) []Outcome {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	outcomes := make([]Outcome, 0, len(datasets))
	for _, ds := range datasets {
		out := loadOne(ctx, ins, src, ds, opts)
		if out.OK() {
			logger.Info("dataset loaded",
				slog.String("stage", "load"),
				slog.String("table", out.Table),
				slog.Int("rows", out.Rows),
				slog.Int64("inserted", out.Inserted),
				slog.Int64("skipped", out.Skipped))
		} else {
			logger.Warn("dataset load failed",
				slog.String("stage", "load"),
				slog.String("table", out.Table),
				slog.String("error", out.Error))
		}
		if opts.OnDataset != nil {
			opts.OnDataset(out)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

func loadOne(ctx context.Context, ins adapter.Inserter, src Reader, ds catalog.Dataset, opts Options) Outcome {
	out := Outcome{Dataset: ds.Name, Table: ds.Name}

	table, err := src.ReadAll(ds)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Rows = len(table.Rows)

	rows := Normalize(table, opts.TextColumns)
	n, err := ins.InsertRows(ctx, ds.Name, table.Columns, rows, opts.Mode)
	if err != nil {
		out.Error = fmt.Sprintf("failed to load %s: %v", ds.Name, err)
		return out
	}
	out.Inserted = n
	out.Skipped = int64(out.Rows) - n
	return out
}
