package store

import (
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	apply   func(*sql.Tx) error
}

var migrations = []migration{
	{version: 1, apply: migrateV1},
}

func latestVersion() int {
	return migrations[len(migrations)-1].version
}

// migrate brings the schema up to the latest version, tracked through
// PRAGMA user_version.
func migrate(conn *sql.DB) error {
	var current int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if err := m.apply(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("stamp migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}

	return nil
}

func migrateV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS meetings (
			id TEXT PRIMARY KEY,
			meeting_date TEXT NOT NULL,
			body TEXT NOT NULL,
			source_filename TEXT NOT NULL,
			source_type TEXT NOT NULL,
			media_url TEXT,
			extract_text TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			UNIQUE(meeting_date, body)
		);

		CREATE TABLE IF NOT EXISTS votes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			meeting_id TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
			motion TEXT NOT NULL,
			result TEXT NOT NULL,
			unanimous INTEGER NOT NULL DEFAULT 1,
			yes_names TEXT NOT NULL DEFAULT '[]',
			no_names TEXT NOT NULL DEFAULT '[]',
			abstain_names TEXT NOT NULL DEFAULT '[]',
			context TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
		CREATE INDEX IF NOT EXISTS idx_votes_meeting ON votes(meeting_id);

		CREATE TABLE IF NOT EXISTS spending_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			meeting_id TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
			vendor TEXT NOT NULL DEFAULT 'Unknown',
			amount REAL NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT 'routine',
			project TEXT,
			budget_line TEXT,
			fiscal_year INTEGER,
			contract_term TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
		CREATE INDEX IF NOT EXISTS idx_spending_meeting ON spending_items(meeting_id);

		CREATE TABLE IF NOT EXISTS officials (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			body TEXT NOT NULL,
			role TEXT,
			first_seen TEXT NOT NULL DEFAULT (datetime('now')),
			UNIQUE(name, body)
		);

		CREATE TABLE IF NOT EXISTS newsletters (
			id TEXT PRIMARY KEY,
			week_of TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			markdown_content TEXT NOT NULL,
			meeting_ids TEXT NOT NULL DEFAULT '[]',
			ghost_post_id TEXT,
			ghost_post_url TEXT,
			generated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
	`)
	return err
}
