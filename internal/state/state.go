// Package state persists session state between runs: volume, shuffle,
// the auth token, and the recently-played history.
package state

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName      = "cadenza"
	dbFileName   = "cadenza.db"
	saveDebounce = 500 * time.Millisecond
)

// PlayerState is the persisted slice of session state.
type PlayerState struct {
	Volume    float64
	Shuffle   bool
	AuthToken string
}

type Manager struct {
	db        *sql.DB
	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   *PlayerState
}

func Open() (*Manager, error) {
	dbPath, err := xdg.DataFile(filepath.Join(appName, dbFileName))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	return OpenPath(dbPath)
}

// OpenPath opens the database at an explicit location. Tests use it with
// a temp path or ":memory:".
func OpenPath(dbPath string) (*Manager, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Manager{db: db}, nil
}

func (m *Manager) Close() error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	pending := m.pending
	m.pending = nil
	m.saveMu.Unlock()

	// Flush pending state
	if pending != nil {
		_ = savePlayer(m.db, *pending)
	}

	return m.db.Close()
}

func (m *Manager) DB() *sql.DB {
	return m.db
}

// SavePlayer schedules a debounced write of the player state. Rapid
// volume drags collapse into one write.
func (m *Manager) SavePlayer(state PlayerState) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.pending = &state

	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}

	m.saveTimer = time.AfterFunc(saveDebounce, func() {
		m.saveMu.Lock()
		pending := m.pending
		m.pending = nil
		m.saveMu.Unlock()

		if pending != nil {
			_ = savePlayer(m.db, *pending)
		}
	})
}

// GetPlayer returns the saved player state, with defaults when nothing
// was saved yet.
func (m *Manager) GetPlayer() (*PlayerState, error) {
	return getPlayer(m.db)
}
