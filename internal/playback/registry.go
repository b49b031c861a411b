package playback

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/jukebox/internal/shared"
)

// DefaultIdleGrace is how long an idle session survives without activity.
const DefaultIdleGrace = 5 * time.Minute

// Registry maps destination keys to their sessions.
//
// The registry lock is never held while waiting on a session lock, so a slow
// destination cannot block lookups for any other.
type Registry struct {
	opts  Options
	grace time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry. Sessions it creates share opts.
func NewRegistry(opts Options, grace time.Duration) *Registry {
	if grace <= 0 {
		grace = DefaultIdleGrace
	}
	return &Registry{
		opts:     opts.withDefaults(),
		grace:    grace,
		sessions: make(map[string]*Session),
	}
}

// Hub returns the hub sessions publish to, which may be nil.
func (r *Registry) Hub() *Hub { return r.opts.Hub }

// GetOrCreate returns the live session for key, creating an Idle one if there is none.
//
// A Stopped entry is replaced, so a stopped destination never comes back on its old connection.
func (r *Registry) GetOrCreate(key string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[key]; ok && !s.stopped.Load() {
		s.touch()
		return s
	}

	s := NewSession(key, r.opts)
	r.sessions[key] = s
	r.opts.Logger.Debug("session created", "session", key)
	return s
}

// Lookup returns the live session for key.
func (r *Registry) Lookup(key string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok || s.stopped.Load() {
		return nil, false
	}
	return s, true
}

// Remove stops the session for key and drops it.
func (r *Registry) Remove(key string) error {
	r.mu.Lock()
	s, ok := r.sessions[key]
	if ok {
		delete(r.sessions, key)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, key)
	}
	return s.Stop()
}

// RemoveIfIdle drops the session for key when it is Stopped, or Idle with an
// empty queue and no activity within the grace period before now.
func (r *Registry) RemoveIfIdle(key string, now time.Time) bool {
	r.mu.Lock()
	s, ok := r.sessions[key]
	r.mu.Unlock()

	if !ok || !s.expireIfIdle(now.Add(-r.grace)) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// GetOrCreate may already have replaced the stopped entry.
	if r.sessions[key] == s {
		delete(r.sessions, key)
		r.opts.Logger.Debug("session evicted", "session", key)
	}
	return true
}

// Keys returns the keys of every registered session in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.sessions))
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops every session and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	sessions := slices.Collect(maps.Values(r.sessions))
	clear(r.sessions)
	r.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
