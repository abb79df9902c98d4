package session

import "sync"

// MemoryStore is an in-process Store. State does not survive a restart; it is
// the default when no database path is configured, and the store used in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	state  map[string]map[string][]byte
	events map[string][]Event
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state:  make(map[string]map[string][]byte),
		events: make(map[string][]Event),
	}
}

func (m *MemoryStore) Get(sessionID, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	kv, ok := m.state[sessionID]
	if !ok {
		return nil, false, nil
	}
	value, ok := kv[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, true, nil
}

func (m *MemoryStore) Set(sessionID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kv, ok := m.state[sessionID]
	if !ok {
		kv = make(map[string][]byte)
		m.state[sessionID] = kv
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	kv[key] = cp
	return nil
}

func (m *MemoryStore) Delete(sessionID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kv, ok := m.state[sessionID]; ok {
		delete(kv, key)
	}
	return nil
}

func (m *MemoryStore) AppendEvent(sessionID string, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[sessionID] = append(m.events[sessionID], ev)
	return nil
}

// Events returns a copy of the session's event log. Not part of the Store
// interface; used by tests and external consumers.
func (m *MemoryStore) Events(sessionID string) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	evs := m.events[sessionID]
	cp := make([]Event, len(evs))
	copy(cp, evs)
	return cp
}

func (m *MemoryStore) Close() error {
	return nil
}
