package state

import (
	"database/sql"

	"github.com/lmartel/cadenza/internal/session"
)

// Interface defines the state manager contract for dependency injection and testing.
type Interface interface {
	DB() *sql.DB
	SavePlayer(state PlayerState)
	GetPlayer() (*PlayerState, error)
	SaveHistory(entries []session.HistoryEntry) error
	GetHistory() ([]session.HistoryEntry, error)
	Close() error
}

// Verify Manager implements Interface at compile time.
var _ Interface = (*Manager)(nil)
