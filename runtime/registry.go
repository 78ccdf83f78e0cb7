package runtime

import (
	"chat-stress/domain"
	"chat-stress/errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

// Registry is the only mutable state shared between the connector, the
// listeners and the traffic generator. Every method holds mu for its whole
// body, so a sample never observes a half-applied insert or remove.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session // map session id -> Session
	byEmail  map[string]string          // map email -> session id
	live     []*domain.Session          // dense slice for uniform sampling
	index    map[string]int             // map session id -> position in live
	inserted atomic.Uint64
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*domain.Session),
		byEmail:  make(map[string]string),
		index:    make(map[string]int),
	}
}

// Insert adds a Live session. A Closed session is rejected, and so is a
// second session for an identity that already has one.
func (r *Registry) Insert(session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session.State() != domain.Live {
		return errors.ErrSessionNotLive
	}
	if _, ok := r.sessions[session.ID]; ok {
		return errors.ErrDuplicateSession
	}
	if _, ok := r.byEmail[session.Email]; ok {
		return errors.ErrDuplicateSession
	}

	r.sessions[session.ID] = session
	r.byEmail[session.Email] = session.ID
	r.index[session.ID] = len(r.live)
	r.live = append(r.live, session)
	r.inserted.Add(1)
	return nil
}

// Remove deletes the session and reports whether it was present.
// Removing an absent id is a no-op.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return false
	}

	// Swap with the last element to keep live dense
	pos := r.index[id]
	last := len(r.live) - 1
	if pos != last {
		moved := r.live[last]
		r.live[pos] = moved
		r.index[moved.ID] = pos
	}
	r.live[last] = nil
	r.live = r.live[:last]

	delete(r.index, id)
	delete(r.byEmail, session.Email)
	delete(r.sessions, id)
	return true
}

// SampleDistinctPair picks two different sessions uniformly at random.
// It returns false when fewer than two sessions are Live.
func (r *Registry) SampleDistinctPair() (*domain.Session, *domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.live)
	if n < 2 {
		return nil, nil, false
	}
	i := rand.IntN(n)
	j := rand.IntN(n - 1)
	if j >= i {
		j++
	}
	return r.live[i], r.live[j], true
}

func (r *Registry) Get(id string) (*domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}

// Inserted counts every successful Insert since creation.
func (r *Registry) Inserted() uint64 {
	return r.inserted.Load()
}

// Sessions returns a copy of the Live sessions.
func (r *Registry) Sessions() []*domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Session, len(r.live))
	copy(out, r.live)
	return out
}
