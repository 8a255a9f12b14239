package index

import (
	"database/sql"
	"fmt"
)

const schemaVersion = 2

func initSchema(db *sql.DB) error {
	// Check schema version
	var version int
	err := db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if version == schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The index is rebuilt from the vault, so older layouts are dropped.
	if version != 0 {
		if _, err := tx.Exec(`DROP TABLE IF EXISTS notes`); err != nil {
			return fmt.Errorf("failed to drop notes: %w", err)
		}
	}

	if err := createTables(tx); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	return tx.Commit()
}

func createTables(tx *sql.Tx) error {
	queries := []string{
		// One row per note of the vault.
		// - path: vault-relative path with forward slashes
		// - base: lower-cased file name without its note extension, for link lookups
		// - title: display title, empty when the note has none
		// - last_modified: unix nanoseconds, to skip unchanged files on scan
		`CREATE TABLE IF NOT EXISTS notes (
            path TEXT PRIMARY KEY,
            base TEXT NOT NULL,
            title TEXT NOT NULL DEFAULT '',
            last_modified INTEGER NOT NULL
        )`,

		// Links name notes by file name far more often than by path.
		`CREATE INDEX IF NOT EXISTS idx_notes_base
            ON notes(base)`,
	}

	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %q: %w", query, err)
		}
	}

	return nil
}
