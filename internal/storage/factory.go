package storage

import (
	"fmt"
	"log/slog"
	"strings"
)

const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
	KindBadger = "badger"
)

// StoreOptions carries backend settings that are not part of the path.
type StoreOptions struct {
	// InMemory keeps a badger database in RAM even when path is set.
	InMemory bool
	// Logger receives badger's internal logs.
	Logger *slog.Logger
}

// NewStore builds a backend by kind. path is the sqlite file or the badger
// directory; an empty badger path keeps the database in memory.
func NewStore(kind, path string, opts StoreOptions) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		return newSQLiteStore(path)
	case KindBadger:
		return NewBadgerStore(BadgerConfig{
			Path:     path,
			InMemory: opts.InMemory || path == "",
			Logger:   opts.Logger,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
