package characters

import (
	"fmt"
	"log/slog"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// OpenStore opens the configured backend. dir is used by the file backend,
// dbPath by the sqlite backend.
func OpenStore(backend, dir, dbPath string, logger *slog.Logger) (Store, error) {
	switch backend {
	case "", BackendFile:
		s, err := NewFileStore(dir, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		s, err := OpenSQLStore(dbPath, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown character store backend %q", backend)
	}
}
