package workers

import (
	"chat-stress/contract"
	"chat-stress/domain"
	"chat-stress/observability"
	"context"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

// Delay returns how long the generator sleeps before the next iteration.
type Delay func() time.Duration

func FixedDelay(d time.Duration) Delay {
	return func() time.Duration { return d }
}

// UniformDelay draws uniformly in [lower, upper]. Equal bounds behave like FixedDelay.
func UniformDelay(lower, upper time.Duration) Delay {
	if upper <= lower {
		return FixedDelay(lower)
	}
	span := int64(upper - lower)
	return func() time.Duration {
		return lower + time.Duration(rand.Int64N(span+1))
	}
}

// TrafficWorker is an infinite traffic source: each iteration sends one
// message between two distinct Live sessions. Only cancellation stops it.
type TrafficWorker struct {
	log        *slog.Logger
	registry   contract.IRegistry
	delivery   contract.IDelivery
	stats      *observability.Stats
	delay      Delay
	iterations atomic.Uint64
}

func NewTrafficWorker(log *slog.Logger, registry contract.IRegistry,
	delivery contract.IDelivery, stats *observability.Stats, delay Delay) *TrafficWorker {
	return &TrafficWorker{
		log:      log,
		registry: registry,
		delivery: delivery,
		stats:    stats,
		delay:    delay,
	}
}

func (w *TrafficWorker) Run(ctx context.Context) error {
	timer := time.NewTimer(w.delay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			w.tick(ctx)
			w.iterations.Add(1)
			timer.Reset(w.delay())
		}
	}
}

// Iterations counts completed loop turns, skipped ones included.
func (w *TrafficWorker) Iterations() uint64 {
	return w.iterations.Load()
}

func (w *TrafficWorker) tick(ctx context.Context) {
	sender, receiver, ok := w.registry.SampleDistinctPair()
	if !ok {
		w.stats.Skipped.Add(1)
		return
	}

	message := domain.NewMessage(receiver.ID)
	if err := w.delivery.Deliver(ctx, sender, message); err != nil {
		// The pair may have been removed since sampling, nothing to retry
		w.stats.SendFailed.Add(1)
		w.log.Warn("Failed to send",
			"from", sender.ID, "to", receiver.ID, "error", err)
		return
	}
	w.stats.Sent.Add(1)
}
