package adapter

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Factory builds an unconnected adapter for one database type. A nil logger
// discards adapter logs.
type Factory func(logger *slog.Logger) Adapter

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register makes a database type available to NewAdapter. Adapter packages
// call it from init, so a blank import is enough to enable a target.
// Type names are case-insensitive; a later registration replaces an earlier one.
func Register(dbType string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[strings.ToLower(dbType)] = f
}

// Get returns the factory registered for dbType.
func Get(dbType string) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[strings.ToLower(dbType)]
	return f, ok
}

// NewAdapter builds the adapter for cfg.Type. The adapter is not connected.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}
	f, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	return f(logger), nil
}

// ListAdapters returns the registered database types in sorted order.
func ListAdapters() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}

// IsRegistered reports whether dbType has a factory.
func IsRegistered(dbType string) bool {
	_, ok := Get(dbType)
	return ok
}

// UnknownAdapterError reports a database type with no registered adapter.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q\nAvailable adapters: %v\nHint: Check database.type in genmigrate.yaml", e.Type, e.Available)
}
