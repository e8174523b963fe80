// Package mysql provides a MySQL database adapter for genmigrate.
package mysql

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	driver "github.com/go-sql-driver/mysql"
	"github.com/leapstack-labs/genmigrate/pkg/adapter"
)

// DefaultPort is the MySQL server port used when none is configured.
const DefaultPort = 3306

// Dialect is the MySQL spelling used by the pipeline.
var Dialect = &adapter.Dialect{
	Name:         "mysql",
	IdentQuote:   "`",
	MaxParams:    65535,
	IgnorePrefix: "INSERT IGNORE INTO",
	CommitSQL:    "COMMIT",
}

// Adapter implements the adapter.Adapter interface for MySQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new MySQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, SQL: Dialect},
	}
}

// Connect establishes a session with the server, then creates the target
// database if absent and selects it.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	a.Logger.Debug("connecting to mysql", slog.String("host", cfg.Host), slog.String("schema", cfg.Schema))

	if err := a.Open(ctx, "mysql", BuildDSN(cfg)); err != nil {
		return err
	}
	a.Cfg = cfg

	if cfg.Schema == "" {
		return nil
	}
	name := a.SQL.QuoteIdent(cfg.Schema)
	if err := a.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+name); err != nil {
		_ = a.Close()
		return fmt.Errorf("failed to create database %s: %w", cfg.Schema, err)
	}
	if err := a.Exec(ctx, "USE "+name); err != nil {
		_ = a.Close()
		return fmt.Errorf("failed to select database %s: %w", cfg.Schema, err)
	}
	return nil
}

// BuildDSN constructs a MySQL DSN without a default database; the schema is
// selected after it has been created.
func BuildDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	c := driver.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	c.ParseTime = true
	if len(cfg.Options) > 0 {
		c.Params = make(map[string]string, len(cfg.Options))
		for k, v := range cfg.Options {
			c.Params[k] = v
		}
	}
	return c.FormatDSN()
}
