package state

import (
	"database/sql"
	"errors"

	dbutil "github.com/lmartel/cadenza/internal/db"
)

func getPlayer(db *sql.DB) (*PlayerState, error) {
	var volume float64
	var shuffle bool
	var token sql.NullString

	row := db.QueryRow(`SELECT volume, shuffle, auth_token FROM player_state WHERE id = 1`)
	err := row.Scan(&volume, &shuffle, &token)
	if errors.Is(err, sql.ErrNoRows) {
		return &PlayerState{Volume: 1.0}, nil
	}
	if err != nil {
		return nil, err
	}

	return &PlayerState{
		Volume:    volume,
		Shuffle:   shuffle,
		AuthToken: dbutil.NullStringValue(token),
	}, nil
}

func savePlayer(db *sql.DB, state PlayerState) error {
	_, err := db.Exec(`
		INSERT INTO player_state (id, volume, shuffle, auth_token)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			volume = excluded.volume,
			shuffle = excluded.shuffle,
			auth_token = excluded.auth_token
	`, state.Volume, state.Shuffle, nullIfEmpty(state.AuthToken))
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
