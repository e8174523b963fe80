package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ResultSet is a fully fetched query result.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Fetch runs sqlStr and reads every row.
func Fetch(ctx context.Context, q Querier, sqlStr string) (*ResultSet, error) {
	rows, err := q.Query(ctx, sqlStr)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return ScanAll(rows.Rows)
}

// ScanAll reads every remaining row. Exact-decimal columns are converted to
// float64, integer columns delivered as text to int64, and other byte values
// to strings so the result is serializable.
func ScanAll(rows *sql.Rows) (*ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	kinds := make([]numericKind, len(cols))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			if i < len(kinds) {
				kinds[i] = kindOf(ct.DatabaseTypeName())
			}
		}
	}

	rs := &ResultSet{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			values[i] = normalizeValue(v, kinds[i])
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return rs, nil
}

type numericKind int

const (
	notNumeric numericKind = iota
	integerKind
	floatKind
)

func kindOf(typeName string) numericKind {
	switch strings.ToUpper(typeName) {
	case "DECIMAL", "NUMERIC", "NEWDECIMAL", "FLOAT", "DOUBLE", "REAL":
		return floatKind
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT",
		"UNSIGNED TINYINT", "UNSIGNED SMALLINT", "UNSIGNED MEDIUMINT", "UNSIGNED INT", "UNSIGNED BIGINT":
		return integerKind
	}
	return notNumeric
}

func normalizeValue(v any, kind numericKind) any {
	var s string
	switch x := v.(type) {
	case []byte:
		s = string(x)
	case string:
		if kind == notNumeric {
			return x
		}
		s = x
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	default:
		return v
	}
	switch kind {
	case integerKind:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case floatKind:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return finite(f)
		}
	}
	return s
}

// finite keeps f unless it is NaN or infinite, which JSON cannot encode; those
// become their text form.
func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return f
}
