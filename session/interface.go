package session

import "time"

// Event is one entry in a session's append-only log. The execution core only
// writes events; consumers outside the core read them.
type Event struct {
	Type      string    `json:"type"`
	Command   string    `json:"command,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Event types recorded by the execution core.
const (
	EventEpisodeStarted  = "episode_started"
	EventEpisodePaused   = "episode_paused"
	EventEpisodeResumed  = "episode_resumed"
	EventEpisodeFinished = "episode_finished"
)

// Store is the session-persistence collaborator: per-session key/value state
// plus an append-only event log.
type Store interface {
	// Get returns the value for a session-scoped key. The second result is
	// false when the key is absent.
	Get(sessionID, key string) ([]byte, bool, error)

	// Set writes a session-scoped key.
	Set(sessionID, key string, value []byte) error

	// Delete removes a session-scoped key. Deleting an absent key is not an
	// error.
	Delete(sessionID, key string) error

	// AppendEvent appends an entry to the session's event log.
	AppendEvent(sessionID string, ev Event) error

	// Close releases any resources held by the store.
	Close() error
}
