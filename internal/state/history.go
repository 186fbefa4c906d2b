package state

import (
	"database/sql"
	"time"

	"github.com/lmartel/cadenza/internal/catalog"
	dbutil "github.com/lmartel/cadenza/internal/db"
	"github.com/lmartel/cadenza/internal/session"
)

// GetHistory returns the saved play history, most recent first.
func (m *Manager) GetHistory() ([]session.HistoryEntry, error) {
	rows, err := m.db.Query(`
		SELECT track_id, title, artist, album, cover_url, duration_seconds, audio_url, played_at
		FROM play_history
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []session.HistoryEntry
	for rows.Next() {
		var t catalog.Track
		var artist, album, cover, audio sql.NullString
		var duration sql.NullInt64
		var playedAt int64

		err := rows.Scan(&t.ID, &t.Title, &artist, &album, &cover, &duration, &audio, &playedAt)
		if err != nil {
			return nil, err
		}

		t.Artist = dbutil.NullStringValue(artist)
		t.Album = dbutil.NullStringValue(album)
		t.CoverURL = dbutil.NullStringValue(cover)
		t.DurationSeconds = int(dbutil.NullInt64Value(duration))
		t.AudioURL = dbutil.NullStringValue(audio)

		entries = append(entries, session.HistoryEntry{
			Track:    t,
			PlayedAt: time.Unix(playedAt, 0),
		})
	}
	return entries, rows.Err()
}

// SaveHistory replaces the saved play history.
func (m *Manager) SaveHistory(entries []session.HistoryEntry) error {
	return dbutil.WithTx(m.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM play_history`)
		if err != nil {
			return err
		}

		stmt, err := tx.Prepare(`
			INSERT INTO play_history
				(position, track_id, title, artist, album, cover_url, duration_seconds, audio_url, played_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, e := range entries {
			t := e.Track
			_, err = stmt.Exec(i, t.ID, t.Title, t.Artist, t.Album,
				t.CoverURL, t.DurationSeconds, t.AudioURL, e.PlayedAt.Unix())
			if err != nil {
				return err
			}
		}
		return nil
	})
}
