package session

import (
	"time"

	"github.com/mensylisir/xmshell/cache"
)

// Registry hands out one Session handle per session id, so the pending-request
// slot is shared between the pause and the resume call. Idle handles are
// evicted after idleTTL; durable state stays in the store regardless.
type Registry struct {
	store    Store
	sessions *cache.Cache[string, *Session]
}

// NewRegistry creates a registry over the given store. idleTTL of zero keeps
// handles forever.
func NewRegistry(store Store, idleTTL time.Duration) *Registry {
	opts := []cache.Option[string, *Session]{}
	if idleTTL > 0 {
		opts = append(opts,
			cache.WithDefaultTTL[string, *Session](idleTTL),
			cache.WithJanitorInterval[string, *Session](idleTTL),
		)
	}
	return &Registry{
		store:    store,
		sessions: cache.New[string, *Session](opts...),
	}
}

// Get returns the handle for the given session id, creating it on first use.
func (r *Registry) Get(id string) *Session {
	sess, _ := r.sessions.GetOrSet(id, New(id, r.store))
	return sess
}

// Close stops the registry's eviction janitor.
func (r *Registry) Close() {
	r.sessions.Close()
}
