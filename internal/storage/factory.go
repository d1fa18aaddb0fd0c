package storage

import (
	"fmt"
	"strings"
)

const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

// NormalizeStoreKind lowercases kind; an empty kind selects the memory store.
func NormalizeStoreKind(kind string) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		return KindMemory
	}
	return kind
}

// NewStore opens the backend named by kind. sqlitePath is only read by the
// sqlite backend.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch NormalizeStoreKind(kind) {
	case KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend %q (want %s or %s)", kind, KindMemory, KindSQLite)
	}
}

// CloseIfSupported closes stores holding external resources.
func CloseIfSupported(store Store) error {
	if closer, ok := store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
