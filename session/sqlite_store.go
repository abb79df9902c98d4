package session

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/mensylisir/xmshell/common"
)

// SQLiteStore is a durable Store backed by SQLite. Cached credentials and
// installed-program facts survive process restarts.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and if necessary creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, common.FileMode0755); err != nil {
			return nil, errors.Wrapf(err, "failed to create session database directory %s", dir)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open session database %s", path)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session_state (
		session_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (session_id, key)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		type TEXT NOT NULL,
		command TEXT,
		detail TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Wrap(err, "failed to create session schema")
	}
	return nil
}

func (s *SQLiteStore) Get(sessionID, key string) ([]byte, bool, error) {
	row := s.db.QueryRow(
		`SELECT value FROM session_state WHERE session_id = ? AND key = ?`,
		sessionID, key,
	)
	var value []byte
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "failed to read state key %s", key)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(sessionID, key string, value []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO session_state (session_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, sessionID, key, value, time.Now().UTC())
	return errors.Wrapf(err, "failed to write state key %s", key)
}

func (s *SQLiteStore) Delete(sessionID, key string) error {
	_, err := s.db.Exec(
		`DELETE FROM session_state WHERE session_id = ? AND key = ?`,
		sessionID, key,
	)
	return errors.Wrapf(err, "failed to delete state key %s", key)
}

func (s *SQLiteStore) AppendEvent(sessionID string, ev Event) error {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO events (session_id, type, command, detail, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, ev.Type, ev.Command, ev.Detail, ts)
	return errors.Wrap(err, "failed to append session event")
}

// Events returns the session's event log in append order.
func (s *SQLiteStore) Events(sessionID string) ([]Event, error) {
	rows, err := s.db.Query(`
		SELECT type, command, detail, timestamp
		FROM events WHERE session_id = ? ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query session events")
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.Type, &ev.Command, &ev.Detail, &ev.Timestamp); err != nil {
			return nil, errors.Wrap(err, "failed to scan session event")
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
