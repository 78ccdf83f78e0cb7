package observability

import (
	"sync/atomic"
)

// Stats aggregates coarse progress counters for a run.
// Nothing in the harness takes decisions on them.
type Stats struct {
	Registered     atomic.Uint64
	RegisterFailed atomic.Uint64
	LoggedIn       atomic.Uint64
	LoginFailed    atomic.Uint64
	Connected      atomic.Uint64
	ConnectFailed  atomic.Uint64
	Disconnected   atomic.Uint64
	Received       atomic.Uint64
	Sent           atomic.Uint64
	SendFailed     atomic.Uint64
	Skipped        atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Registered     uint64
	RegisterFailed uint64
	LoggedIn       uint64
	LoginFailed    uint64
	Connected      uint64
	ConnectFailed  uint64
	Disconnected   uint64
	Received       uint64
	Sent           uint64
	SendFailed     uint64
	Skipped        uint64
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Registered:     s.Registered.Load(),
		RegisterFailed: s.RegisterFailed.Load(),
		LoggedIn:       s.LoggedIn.Load(),
		LoginFailed:    s.LoginFailed.Load(),
		Connected:      s.Connected.Load(),
		ConnectFailed:  s.ConnectFailed.Load(),
		Disconnected:   s.Disconnected.Load(),
		Received:       s.Received.Load(),
		Sent:           s.Sent.Load(),
		SendFailed:     s.SendFailed.Load(),
		Skipped:        s.Skipped.Load(),
	}
}
