// Package adapter provides the database session contract used by the
// migration pipeline.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves with this package from their init() functions.
package adapter

import (
	"context"
	"database/sql"
)

// Config holds the configuration for connecting to a database.
type Config struct {
	// Type specifies the database type (e.g., "mysql", "postgres", "sqlite")
	Type string

	// Path is the file path for file-based databases (e.g., DuckDB, SQLite)
	// Use ":memory:" for in-memory databases
	Path string

	// Host is the hostname for network-based databases
	Host string

	// Port is the port number for network-based databases
	Port int

	// Database is the database to connect to before the target schema is
	// selected. Only meaningful for servers that separate the two (Postgres).
	Database string

	// Schema is the target schema. It is created if absent and selected as
	// the active context for the session.
	Schema string

	// Username for authentication
	Username string

	// Password for authentication
	Password string

	// Options contains additional driver-specific options
	Options map[string]string

	// BatchRows caps the rows per INSERT statement when positive. The
	// dialect's parameter limit applies either way.
	BatchRows int
}

// ConflictMode selects how bulk inserts treat rows that violate a
// uniqueness constraint.
type ConflictMode int

const (
	// ConflictIgnore silently skips conflicting rows.
	ConflictIgnore ConflictMode = iota
	// ConflictError fails the whole bulk operation on the first conflict.
	ConflictError
)

// String returns the config spelling of the mode.
func (m ConflictMode) String() string {
	if m == ConflictError {
		return "error"
	}
	return "ignore"
}

// Rows wraps sql.Rows to provide a consistent interface across adapters.
type Rows struct {
	*sql.Rows
}

// Executor runs a statement that doesn't return rows.
type Executor interface {
	Exec(ctx context.Context, sql string) error
}

// Querier runs a statement that returns rows.
type Querier interface {
	Query(ctx context.Context, sql string) (*Rows, error)
}

// Inserter performs one duplicate-aware bulk insertion.
type Inserter interface {
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any, mode ConflictMode) (int64, error)
}

// Adapter defines the interface that all database adapters must implement.
// An adapter owns exactly one database session for its lifetime.
type Adapter interface {
	Executor
	Querier
	Inserter

	// Connect establishes the session, creates the target schema if it is
	// absent and selects it.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// DropTable drops a table if it exists.
	DropTable(ctx context.Context, table string) error

	// Commit makes outstanding changes on the session durable.
	Commit(ctx context.Context) error

	// Dialect returns the SQL dialect of the connected database.
	Dialect() *Dialect
}
