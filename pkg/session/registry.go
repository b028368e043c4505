package session

import (
	"sync"

	"tgranger/pkg/storage"
	"tgranger/pkg/telegram"
)

// Registry maps phone numbers to live account sessions. Sessions are
// created lazily on first reference and torn down explicitly when their
// owning connection goes away. The mutex serializes first-touch races for
// the same key; the sessions themselves run independently.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*AccountSession

	store   storage.Store
	factory telegram.Factory
}

// NewRegistry creates an empty registry backed by the given store and
// provider factory.
func NewRegistry(store storage.Store, factory telegram.Factory) *Registry {
	return &Registry{
		sessions: make(map[string]*AccountSession),
		store:    store,
		factory:  factory,
	}
}

// GetOrCreate returns the session for phone, instantiating a fresh
// unauthenticated one on first reference. Idempotent for existing keys.
func (r *Registry) GetOrCreate(phone string) *AccountSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[phone]; ok {
		return s
	}
	s := NewAccountSession(phone, r.factory(), r.store)
	r.sessions[phone] = s
	return s
}

// Get returns the session for phone if one exists.
func (r *Registry) Get(phone string) (*AccountSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[phone]
	return s, ok
}

// Remove closes and forgets the session for phone. A later GetOrCreate for
// the same phone yields a fresh unauthenticated session.
func (r *Registry) Remove(phone string) {
	r.mu.Lock()
	s, ok := r.sessions[phone]
	delete(r.sessions, phone)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
