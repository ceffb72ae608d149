package storage

import (
	"fmt"
)

// Options selects and configures a backend.
type Options struct {
	Backend      string
	Directory    string // file backend
	DatabaseFile string // duckdb and sqlite backends
	Duck         DuckOptions
}

// Open creates the configured backend.
func Open(opts Options) (KVStore, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileStore(opts.Directory)
	case BackendDuckDB:
		return NewDuckStore(opts.DatabaseFile, opts.Duck)
	case BackendSQLite:
		return NewSQLiteStore(opts.DatabaseFile)
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", opts.Backend)
	}
}
