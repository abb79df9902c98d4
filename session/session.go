package session

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/mensylisir/xmshell/common"
)

// RequestKind distinguishes the two ways an episode can pause.
type RequestKind string

const (
	RequestKindAuth    RequestKind = "auth"
	RequestKindConfirm RequestKind = "confirm"
)

// PendingRequest is the suspended-state payload emitted when an episode needs
// external input to continue. It lives only in the Session handle; it is never
// written to the store and is consumed exactly once at resume.
type PendingRequest struct {
	Kind RequestKind
	// ID is the correlation identifier linking this pause to its resume.
	ID string
	// Hint is human-readable text for the party supplying the missing value.
	Hint string
	// Payload carries the original command line for a confirmation resume.
	Payload string
}

// InstalledFact records whether a base command is installed on the host.
type InstalledFact struct {
	Installed bool `json:"installed"`
}

// Session is the handle through which the execution core reads and writes one
// operator session. Durable state goes through the Store; the pending request
// slot is ephemeral. A session supports exactly one in-flight episode at a
// time; the mutex guards against accidental concurrent use, not as a license
// for it.
type Session struct {
	id    string
	store Store

	mu      sync.Mutex
	pending *PendingRequest
}

// New creates a session handle bound to the given store.
func New(id string, store Store) *Session {
	return &Session{id: id, store: store}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// GetJSON unmarshals the value stored under key into out. It returns false
// when the key is absent.
func (s *Session) GetJSON(key string, out interface{}) (bool, error) {
	raw, ok, err := s.store.Get(s.id, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, errors.Wrapf(err, "corrupt state value under key %s", key)
	}
	return true, nil
}

// SetJSON marshals v and stores it under key.
func (s *Session) SetJSON(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "failed to encode state value for key %s", key)
	}
	return s.store.Set(s.id, key, raw)
}

// Credential returns the cached elevation secret, if any.
func (s *Session) Credential() (string, bool, error) {
	raw, ok, err := s.store.Get(s.id, common.StateKeyCredential)
	if err != nil || !ok {
		return "", false, err
	}
	return string(raw), true, nil
}

// SetCredential caches the elevation secret for this session.
func (s *Session) SetCredential(secret string) error {
	return s.store.Set(s.id, common.StateKeyCredential, []byte(secret))
}

// EvictCredential drops the cached elevation secret. Called on authentication
// failure so a bad secret is never retried.
func (s *Session) EvictCredential() error {
	return s.store.Delete(s.id, common.StateKeyCredential)
}

// InstalledFacts returns the per-base-command fact table.
func (s *Session) InstalledFacts() (map[string]InstalledFact, error) {
	facts := make(map[string]InstalledFact)
	if _, err := s.GetJSON(common.StateKeyCommands, &facts); err != nil {
		return nil, err
	}
	return facts, nil
}

// RecordFact writes (or overwrites) the installed-program fact for a base
// command.
func (s *Session) RecordFact(baseCommand string, installed bool) error {
	facts, err := s.InstalledFacts()
	if err != nil {
		return err
	}
	facts[baseCommand] = InstalledFact{Installed: installed}
	return s.SetJSON(common.StateKeyCommands, facts)
}

// PendingRequest returns the outstanding request, if any.
func (s *Session) PendingRequest() *PendingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// SetPendingRequest records the outstanding request, replacing any stale one.
func (s *Session) SetPendingRequest(req *PendingRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = req
}

// TakePendingRequest returns and clears the outstanding request.
func (s *Session) TakePendingRequest() *PendingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	req := s.pending
	s.pending = nil
	return req
}

// AppendEvent writes an entry to the session's append-only log. Log failures
// are reported but must not abort an episode; callers log and continue.
func (s *Session) AppendEvent(ev Event) error {
	return s.store.AppendEvent(s.id, ev)
}
