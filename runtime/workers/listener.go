package workers

import (
	"chat-stress/contract"
	"chat-stress/domain"
	"chat-stress/observability"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

const progressEvery = 100

// ListenerWorker drains the inbound frames of one Live session.
// When the connection ends, for whatever reason, the session leaves the
// registry and the worker returns nil: a dropped peer is a normal event.
type ListenerWorker struct {
	log      *slog.Logger
	session  *domain.Session
	registry contract.IRegistry
	stats    *observability.Stats
	once     sync.Once
}

func NewListenerWorker(log *slog.Logger, session *domain.Session,
	registry contract.IRegistry, stats *observability.Stats) *ListenerWorker {
	return &ListenerWorker{
		log:      log.With("session", session.ID),
		session:  session,
		registry: registry,
		stats:    stats,
	}
}

func (w *ListenerWorker) Run(ctx context.Context) error {
	// ReadMessage ignores ctx, closing the connection unblocks it
	stop := context.AfterFunc(ctx, w.release)
	defer stop()
	defer w.release()

	for {
		frame, err := w.session.Receive()
		if err != nil {
			if ctx.Err() != nil {
				w.log.Debug("Listener canceled")
			} else {
				w.log.Info("Connection closed", "error", err)
			}
			return nil
		}

		total := w.stats.Received.Add(1)
		if total%progressEvery == 0 {
			w.log.Info(fmt.Sprintf("Received %d messages", total))
		}
		w.log.Debug("Frame received", "size", len(frame))
	}
}

// release removes the session before closing it, so the registry never
// holds a Closed session. It runs once per listener.
func (w *ListenerWorker) release() {
	w.once.Do(func() {
		w.registry.Remove(w.session.ID)
		if w.session.Close() {
			w.stats.Disconnected.Add(1)
		}
	})
}
