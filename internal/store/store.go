// Package store manages the kernel's embedded SQLite-family databases:
// connection setup, schema + migration registration, the row-count
// migration safeguard, and WAL checkpointing.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens (creating if absent) a SQLite database at path with the
// pragmas every logical database shares: WAL journaling, a busy
// timeout so concurrent writers block rather than error, and foreign
// keys enforced.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	// Single-writer semantics: SQLite serialises writers regardless,
	// but capping Go's pool to one connection avoids SQLITE_BUSY churn
	// under WAL from this process's own concurrent goroutines.
	db.SetMaxOpenConns(1)

	return db, nil
}

// Checkpoint folds the write-ahead log into the main database file
// ("resolve"), used before backups. Callers must hold the workspace
// advisory lock so no other writer is active.
func Checkpoint(db *sql.DB) error {
	_, err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}
