package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// session is the part of database/sql shared by *sql.DB and *sql.Conn.
type session interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, Query, InsertRows, DropTable and Commit implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Conn   *sql.Conn
	Cfg    Config
	Logger *slog.Logger
	SQL    *Dialect
}

// Open opens the pool, checks it and pins a single connection as the
// session. All later statements run on that connection.
func (b *BaseSQLAdapter) Open(ctx context.Context, driver, dsn string) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", driver, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping %s: %w", driver, err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to acquire %s session: %w", driver, err)
	}

	b.DB = db
	b.Conn = conn
	return nil
}

func (b *BaseSQLAdapter) session() (session, error) {
	if b.Conn != nil {
		return b.Conn, nil
	}
	if b.IsConnected() {
		return b.DB, nil
	}
	return nil, fmt.Errorf("database connection not established")
}

func (b *BaseSQLAdapter) log() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// Dialect returns the adapter's SQL dialect.
func (b *BaseSQLAdapter) Dialect() *Dialect {
	if b.SQL == nil {
		return &Dialect{Name: "ansi", IdentQuote: `"`, MaxParams: 999}
	}
	return b.SQL
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.Conn != nil {
		_ = b.Conn.Close()
		b.Conn = nil
	}
	if !b.IsConnected() {
		return nil
	}
	b.log().Debug("closing database connection")
	err := b.DB.Close()
	b.DB = nil
	return err
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) error {
	s, err := b.session()
	if err != nil {
		return err
	}
	b.log().Debug("exec", slog.String("sql", sqlStr))
	if _, err := s.ExecContext(ctx, sqlStr); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a SQL statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string) (*Rows, error) {
	s, err := b.session()
	if err != nil {
		return nil, err
	}
	b.log().Debug("query", slog.String("sql", sqlStr))
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := s.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &Rows{Rows: rows}, nil
}

// DropTable drops a table if it exists.
func (b *BaseSQLAdapter) DropTable(ctx context.Context, table string) error {
	return b.Exec(ctx, b.Dialect().DropTableStatement(table))
}

// Commit issues the dialect's commit statement, if it has one.
func (b *BaseSQLAdapter) Commit(ctx context.Context) error {
	stmt := b.Dialect().CommitSQL
	if stmt == "" {
		return nil
	}
	if err := b.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// InsertRows inserts all rows into table as one unit of work: multi-row
// statements inside a single transaction, committed at the end. A failure
// rolls the whole unit back. The returned count is the number of rows the
// database reports as inserted, which excludes skipped duplicates.
func (b *BaseSQLAdapter) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, mode ConflictMode) (int64, error) {
	s, err := b.session()
	if err != nil {
		return 0, err
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("no columns to insert into %s", table)
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return 0, fmt.Errorf("row %d has %d values, expected %d", i+1, len(r), len(columns))
		}
	}
	if len(rows) == 0 {
		return 0, nil
	}

	d := b.Dialect()
	per := d.RowsPerStatement(len(columns))
	if b.Cfg.BatchRows > 0 && b.Cfg.BatchRows < per {
		per = b.Cfg.BatchRows
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	var inserted int64
	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))
		chunk := rows[start:end]

		args := make([]any, 0, len(chunk)*len(columns))
		for _, r := range chunk {
			args = append(args, r...)
		}

		res, err := tx.ExecContext(ctx, d.InsertStatement(table, columns, len(chunk), mode), args...)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to insert rows %d-%d into %s: %w", start+1, end, table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit insert into %s: %w", table, err)
	}

	b.log().Debug("bulk insert", slog.String("table", table), slog.Int("rows", len(rows)), slog.Int64("inserted", inserted))
	return inserted, nil
}

// IsConnected reports whether the pool is open. Close resets it.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}
