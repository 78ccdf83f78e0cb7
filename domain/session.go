// Package domain contains the core concepts of the load-test harness.
// This file defines Session, an authenticated identity holding a live duplex connection.
package domain

import (
	"chat-stress/errors"
	"sync"
	"sync/atomic"
)

// DuplexConn is the persistent bidirectional channel of one session.
// ReadMessage blocks until a frame arrives or the connection fails.
// Close must be safe to call concurrently with ReadMessage.
type DuplexConn interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Close() error
}

type SessionState int32

const (
	Connecting SessionState = iota
	Live
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Live:
		return "live"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session moves Connecting -> Live -> Closed, never backwards.
// A reconnect always builds a new Session value.
type Session struct {
	Email string
	ID    string
	Token string

	conn      DuplexConn
	state     atomic.Int32
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewSession wraps an established connection. The session starts Connecting
// and becomes Live only through MarkLive.
func NewSession(creds Credentials, conn DuplexConn) *Session {
	return &Session{
		Email: creds.Identity.Email,
		ID:    creds.ID,
		Token: creds.Token,
		conn:  conn,
	}
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// MarkLive reports whether the session moved from Connecting to Live.
func (s *Session) MarkLive() bool {
	return s.state.CompareAndSwap(int32(Connecting), int32(Live))
}

// Receive blocks for the next inbound frame.
func (s *Session) Receive() ([]byte, error) {
	return s.conn.ReadMessage()
}

// Send writes v on the connection. Writers are serialized.
func (s *Session) Send(v any) error {
	if s.State() == Closed {
		return errors.ErrSessionClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// Close releases the connection exactly once and reports whether this call did it.
func (s *Session) Close() bool {
	closed := false
	s.closeOnce.Do(func() {
		s.state.Store(int32(Closed))
		_ = s.conn.Close()
		closed = true
	})
	return closed
}
