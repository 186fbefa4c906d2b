package state

import (
	"database/sql"
)

const currentSchemaVersion = 2

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS player_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			volume REAL NOT NULL DEFAULT 1.0,
			shuffle INTEGER NOT NULL DEFAULT 0,
			auth_token TEXT
		);

		CREATE TABLE IF NOT EXISTS play_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			position INTEGER NOT NULL,
			track_id TEXT NOT NULL,
			title TEXT NOT NULL,
			artist TEXT,
			album TEXT,
			cover_url TEXT,
			duration_seconds INTEGER,
			audio_url TEXT,
			played_at INTEGER NOT NULL,
			UNIQUE(position)
		);

		CREATE INDEX IF NOT EXISTS idx_play_history_position ON play_history(position);
	`)
	if err != nil {
		return err
	}

	// Set initial version if not exists
	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	if err != nil {
		return err
	}

	// Migration: add auth_token column if missing
	_, _ = db.Exec(`ALTER TABLE player_state ADD COLUMN auth_token TEXT`)

	return nil
}
