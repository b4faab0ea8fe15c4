package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SessionRegistry tracks live page sessions by page-load id. Sessions are
// created on the first signal for an id and evicted after a quiet period.
type SessionRegistry struct {
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry(logger *slog.Logger) *SessionRegistry {
	return &SessionRegistry{
		logger:   logger.With("component", "session_registry"),
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for id, constructing it with build on
// first sight. The build function runs under the registry lock, so a page
// load is constructed exactly once even under concurrent signals.
func (r *SessionRegistry) GetOrCreate(id string, build func() *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := build()
	r.sessions[id] = s
	return s
}

// Len reports the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// StartEviction runs the background eviction loop until ctx is cancelled.
// Evicted sessions get their pending debounced work flushed before they
// are dropped.
func (r *SessionRegistry) StartEviction(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping session eviction")
			return
		case <-ticker.C:
			r.evictIdle(ttl)
		}
	}
}

func (r *SessionRegistry) evictIdle(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.idleSince(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		r.logger.Debug("evicted idle page sessions", "count", len(expired))
	}
}
