package runtime

import (
	"chat-stress/domain"
	"chat-stress/observability"
	"chat-stress/runtime/workers"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func isClosed(conn *closableConn) bool {
	select {
	case <-conn.done:
		return true
	default:
		return false
	}
}

func TestListener_Stop_Right_After_Start_Releases_Session(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.DiscardHandler)

	for i := range 200 {
		registry := NewRegistry()
		stats := observability.NewStats()
		sup := workers.NewSupervisor(log, 10*time.Millisecond)

		conn := newClosableConn()
		session := domain.NewSession(domain.Credentials{
			Identity: domain.Identity{Email: fmt.Sprintf("user%d@example.com", i)},
			ID:       fmt.Sprintf("id-%d", i),
		}, conn)
		session.MarkLive()
		req.NoError(registry.Insert(session))

		// Given a listener whose goroutine may not be scheduled yet
		req.True(sup.Start(workers.NewListenerWorker(log, session, registry, stats)))

		// When teardown stops the supervisor immediately
		sup.Stop()
		req.True(sup.Wait(time.Second))

		// Then the connection is closed and the registry is empty
		req.True(isClosed(conn), "iteration %d", i)
		req.Zero(registry.Len(), "iteration %d", i)
		req.Equal(domain.Closed, session.State())
	}
}
