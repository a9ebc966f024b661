package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Options selects and locates a store backend.
type Options struct {
	// Type is the backend: sqlite, badger or memory.
	Type string

	// Path is the database file (sqlite) or directory (badger).
	Path string
}

// Open opens the backend described by opts.
func Open(opts Options) (Store, error) {
	switch opts.Type {
	case TypeSQLite, "":
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
			return nil, fmt.Errorf("store: failed to create directory: %w", err)
		}
		return NewSQLiteStore(opts.Path)
	case TypeBadger:
		if err := os.MkdirAll(opts.Path, 0755); err != nil {
			return nil, fmt.Errorf("store: failed to create directory: %w", err)
		}
		return NewBadgerStore(opts.Path)
	case TypeMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("store: unsupported type %q", opts.Type)
	}
}
