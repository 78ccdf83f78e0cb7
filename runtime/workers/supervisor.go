package workers

import (
	"chat-stress/contract"
	"chat-stress/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Supervisor Own a context and a Cancel function
// Run each worker in a goroutine
// Check panics and errors
// Restart workers automatically
// Refuse new workers once stopped
// Wait (bounded) for the end of all goroutines via WaitGroup
type Supervisor struct {
	ctx             context.Context
	cancel          context.CancelFunc
	mu              sync.Mutex // guards stopped against wg.Add
	stopped         bool
	wg              sync.WaitGroup
	running         atomic.Int64
	log             *slog.Logger
	restartInterval time.Duration
}

// NewSupervisor detaches the supervised context from the caller: workers
// only stop through Stop, never because a request context expired.
func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		ctx:             ctx,
		cancel:          cancel,
		log:             log,
		restartInterval: restartInterval,
	}
}

// Start runs a worker under supervision.
// The worker is executed in a dedicated goroutine. If its Run method panics,
// the supervisor recovers, restarts the worker, and keeps the supervision
// loop alive. A failure in one worker must not stop the supervisor itself.
// It returns false when the supervisor is already stopped.
func (s *Supervisor) Start(worker contract.Worker) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.running.Add(1)
	workerName := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()
		defer s.running.Add(-1)

		// Run at least once even if Stop already happened: a worker owns
		// resources (a listener's connection) that only its Run releases
		for {
			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
					}
				}()
				// Restarted after a crash
				// Not restarting the entire goroutine
				return worker.Run(s.ctx)
			}()

			if err == nil {
				// Terminated properly, never restart !
				s.log.Debug(fmt.Sprintf("Worker finished : %s", workerName))
				return
			}

			if s.ctx.Err() != nil {
				s.log.Debug("Worker stopped (context canceled)", "name", workerName)
				return
			}

			s.log.Warn("Worker crashed, restarting", "name", workerName, "error", err)
			select {
			case <-s.ctx.Done():
				// Context canceled: priority stop.
				return
			case <-time.After(s.restartInterval):
			}
		}
	}()
	return true
}

// Stop cancels every supervised worker and refuses new ones.
// Calling it more than once is harmless.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cancel()
}

// Wait blocks until all workers returned or timeout elapsed.
// It reports whether every worker terminated. Call it after Stop, once no
// Start can race with it.
func (s *Supervisor) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Running is the number of worker goroutines still alive.
func (s *Supervisor) Running() int {
	return int(s.running.Load())
}

var _ contract.ISupervisor = (*Supervisor)(nil)
