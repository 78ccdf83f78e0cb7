package runtime

import (
	"chat-stress/contract"
	"chat-stress/domain"
	"chat-stress/errors"
	"chat-stress/observability"
	"chat-stress/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Connector opens one duplex connection per logged-in identity.
// The gate bounds concurrent connection attempts, not Live sessions.
type Connector struct {
	log        *slog.Logger
	dialer     contract.IDialer
	registry   contract.IRegistry
	supervisor contract.ISupervisor
	stats      *observability.Stats
	gate       *semaphore.Weighted
	retries    int
	retryDelay time.Duration

	inFlight atomic.Int64
	peak     atomic.Int64
}

func NewConnector(log *slog.Logger, dialer contract.IDialer, registry contract.IRegistry,
	supervisor contract.ISupervisor, stats *observability.Stats,
	maxConcurrent, retries int, retryDelay time.Duration) *Connector {
	return &Connector{
		log:        log,
		dialer:     dialer,
		registry:   registry,
		supervisor: supervisor,
		stats:      stats,
		gate:       semaphore.NewWeighted(int64(maxConcurrent)),
		retries:    retries,
		retryDelay: retryDelay,
	}
}

// ConnectAll runs every identity's pipeline concurrently and returns once all
// of them either joined the registry or were dropped. It returns how many joined.
func (c *Connector) ConnectAll(ctx context.Context, credentials []domain.Credentials) int {
	var wg sync.WaitGroup
	var joined atomic.Int64

	for _, creds := range credentials {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.connect(ctx, creds) {
				joined.Add(1)
			}
		}()
	}
	wg.Wait()
	return int(joined.Load())
}

// PeakInFlight is the highest number of simultaneous connection attempts seen.
func (c *Connector) PeakInFlight() int {
	return int(c.peak.Load())
}

func (c *Connector) connect(ctx context.Context, creds domain.Credentials) bool {
	log := c.log.With("email", creds.Identity.Email, "id", creds.ID)

	if ctx.Err() != nil {
		return false
	}
	if err := c.gate.Acquire(ctx, 1); err != nil {
		return false
	}
	conn, err := c.dialWithRetry(ctx, creds)
	c.gate.Release(1)

	if err != nil {
		if ctx.Err() == nil {
			c.stats.ConnectFailed.Add(1)
			log.Warn("Dropping identity", "error", err)
		}
		return false
	}

	session := domain.NewSession(creds, conn)
	session.MarkLive()
	if err = c.registry.Insert(session); err != nil {
		session.Close()
		log.Warn("Session rejected by registry", "error", err)
		return false
	}

	listener := workers.NewListenerWorker(c.log, session, c.registry, c.stats)
	if !c.supervisor.Start(listener) {
		// Teardown already began
		c.registry.Remove(session.ID)
		session.Close()
		return false
	}
	c.stats.Connected.Add(1)
	return true
}

// dialWithRetry makes one attempt plus up to c.retries retries, spaced by retryDelay.
func (c *Connector) dialWithRetry(ctx context.Context, creds domain.Credentials) (domain.DuplexConn, error) {
	current := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		peak := c.peak.Load()
		if current <= peak || c.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
		conn, err := c.dialer.Dial(ctx, creds)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		c.log.Debug("Connection attempt failed", "id", creds.ID, "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", errors.ErrConnectFailed, c.retries+1, lastErr)
}
