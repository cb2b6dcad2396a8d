package store

import (
	"database/sql"
	"fmt"

	"github.com/iteebz/spaceos/internal/kernelerr"
)

// Migration is a single named, one-shot schema change. Apply receives
// the open transaction and performs whatever DDL/DML the step needs.
type Migration struct {
	Name  string
	Apply func(tx *sql.Tx) error
}

// Schema bundles a subsystem's declarative schema SQL with its ordered
// migrations, registered once at startup per spec §4.1.
type Schema struct {
	Source     string // owning subsystem, used in error reporting
	DDL        string
	Migrations []Migration
	// TrackedTables lists tables whose row counts must never regress
	// across a migration; an empty list disables the safeguard.
	TrackedTables []string
}

// Init creates the schema (idempotent, IF NOT EXISTS) and applies any
// migrations not yet recorded in _migrations, guarded by the row-count
// safeguard: before and after each migration, every tracked table's
// row count is measured; a loss rolls back and raises MigrationError.
func Init(db *sql.DB, schema Schema) error {
	if _, err := db.Exec(schema.DDL); err != nil {
		return kernelerr.Storage(schema.Source, "applying base schema", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY, applied_at TEXT DEFAULT CURRENT_TIMESTAMP)`); err != nil {
		return kernelerr.Storage(schema.Source, "creating _migrations table", err)
	}

	for _, m := range schema.Migrations {
		applied, err := migrationApplied(db, m.Name)
		if err != nil {
			return kernelerr.Storage(schema.Source, "checking migration state", err)
		}
		if applied {
			continue
		}
		if err := applyMigration(db, schema, m); err != nil {
			return err
		}
	}
	return nil
}

func migrationApplied(db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM _migrations WHERE name = ?`, name).Scan(&count)
	return count > 0, err
}

func applyMigration(db *sql.DB, schema Schema, m Migration) error {
	before, err := rowCounts(db, schema.TrackedTables)
	if err != nil {
		return kernelerr.Storage(schema.Source, "measuring row counts before migration", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return kernelerr.Storage(schema.Source, "beginning migration transaction", err)
	}

	if err := m.Apply(tx); err != nil {
		tx.Rollback()
		return kernelerr.Migration(schema.Source, fmt.Sprintf("migration %q failed", m.Name), err)
	}

	if _, err := tx.Exec(`INSERT INTO _migrations (name) VALUES (?)`, m.Name); err != nil {
		tx.Rollback()
		return kernelerr.Migration(schema.Source, fmt.Sprintf("recording migration %q", m.Name), err)
	}

	after, err := rowCounts(tx, schema.TrackedTables)
	if err != nil {
		tx.Rollback()
		return kernelerr.Storage(schema.Source, "measuring row counts after migration", err)
	}

	for table, beforeCount := range before {
		if after[table] < beforeCount {
			tx.Rollback()
			return kernelerr.Migration(schema.Source, fmt.Sprintf(
				"migration %q dropped rows from %q (%d -> %d); schema migrations must never lose data",
				m.Name, table, beforeCount, after[table]), nil)
		}
	}

	if err := tx.Commit(); err != nil {
		return kernelerr.Migration(schema.Source, fmt.Sprintf("committing migration %q", m.Name), err)
	}

	return nil
}

func rowCounts(db interface {
	QueryRow(query string, args ...any) *sql.Row
}, tables []string) (map[string]int, error) {
	counts := make(map[string]int, len(tables))
	for _, t := range tables {
		var exists int
		if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, t).Scan(&exists); err != nil {
			return nil, err
		}
		if exists == 0 {
			// Table doesn't exist yet (e.g. a migration that creates
			// it); nothing to protect until it does.
			counts[t] = 0
			continue
		}
		var n int
		if err := db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s`, t)).Scan(&n); err != nil {
			return nil, err
		}
		counts[t] = n
	}
	return counts, nil
}
