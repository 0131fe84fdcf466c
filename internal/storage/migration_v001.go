package storage

import "database/sql"

// migrateV001 creates the scan journal schema. Every statement uses
// IF NOT EXISTS for idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id           TEXT PRIMARY KEY,
			browser      TEXT NOT NULL,
			state        TEXT NOT NULL CHECK (state IN ('idle', 'scanning', 'succeeded', 'failed')),
			window_start INTEGER NOT NULL,
			window_end   INTEGER NOT NULL,
			entries      INTEGER NOT NULL DEFAULT 0,
			error        TEXT NOT NULL DEFAULT '',
			started_at   TEXT NOT NULL,
			finished_at  TEXT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_scans_browser    ON scans(browser)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_state      ON scans(state)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_started_at ON scans(started_at)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
