// Package runtime wires the load-test pipeline: provisioning, connection,
// listeners and traffic, then teardown. It owns no business rule of the backend.
package runtime

import (
	"chat-stress/contract"
	"chat-stress/domain"
	"chat-stress/observability"
	"chat-stress/runtime/workers"
	"chat-stress/services"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

type HarnessConfig struct {
	NumUsers        int
	EmailDomain     string
	Password        string
	ShutdownTimeout time.Duration
}

// TeardownReport is what the operator sees once the run is over.
type TeardownReport struct {
	Status         int
	Err            error
	WorkersStopped bool
	AlreadyDone    bool
}

type Harness struct {
	log         *slog.Logger
	cfg         HarnessConfig
	provisioner *services.ProvisioningService
	connector   *Connector
	registry    *Registry
	supervisor  contract.ISupervisor
	backend     contract.IBackend
	repository  contract.IIdentityRepository
	stats       *observability.Stats
	out         io.Writer
	background  []contract.Worker
	startedAt   time.Time

	teardownOnce sync.Once
	report       TeardownReport
}

// NewHarness takes the long-running workers (traffic, reporter) started once
// every identity went through the connector. repository may be nil.
func NewHarness(log *slog.Logger, cfg HarnessConfig,
	provisioner *services.ProvisioningService, connector *Connector, registry *Registry,
	supervisor contract.ISupervisor, backend contract.IBackend,
	repository contract.IIdentityRepository, stats *observability.Stats,
	out io.Writer, background ...contract.Worker) *Harness {
	return &Harness{
		log:         log,
		cfg:         cfg,
		provisioner: provisioner,
		connector:   connector,
		registry:    registry,
		supervisor:  supervisor,
		backend:     backend,
		repository:  repository,
		stats:       stats,
		out:         out,
		background:  background,
		startedAt:   time.Now(),
	}
}

// Provision registers fresh identities and records them in the durable list.
func (h *Harness) Provision(ctx context.Context) []domain.Identity {
	identities := domain.NewIdentities(h.cfg.NumUsers, h.cfg.EmailDomain, h.cfg.Password)
	registered := h.provisioner.Register(ctx, identities)
	h.log.Info(fmt.Sprintf("%d/%d users registered", len(registered), len(identities)))

	if h.repository != nil {
		if err := h.repository.Save(registered...); err != nil {
			h.log.Warn("Failed to persist identities", "error", err)
		}
	}
	return registered
}

// Run drives register -> login -> connect for every identity, then starts the
// background workers and blocks until ctx is canceled. Call Teardown afterwards.
func (h *Harness) Run(ctx context.Context) error {
	// 1. Identities
	registered := h.Provision(ctx)

	// 2. Login
	credentials := h.provisioner.Login(ctx, registered)
	h.log.Info(fmt.Sprintf("%d/%d users logged in", len(credentials), len(registered)))

	// 3. Connections, listeners are spawned by the connector
	live := h.connector.ConnectAll(ctx, credentials)
	if ctx.Err() != nil {
		return nil
	}
	h.log.Info(fmt.Sprintf("%d users connected. Sending messages...", live))

	// 4. Traffic and progress
	for _, w := range h.background {
		h.supervisor.Start(w)
	}

	<-ctx.Done()
	h.log.Info("Interrupted, cleaning up...")
	return nil
}

// Teardown stops every worker (bounded wait), calls the bulk delete once and
// reports its status. Later calls return the first report with AlreadyDone set.
func (h *Harness) Teardown(ctx context.Context) TeardownReport {
	first := false
	h.teardownOnce.Do(func() {
		first = true
		h.report = h.teardown(ctx)
	})
	if first {
		return h.report
	}
	h.log.Info("Teardown already done, nothing to clean")
	report := h.report
	report.AlreadyDone = true
	return report
}

func (h *Harness) teardown(ctx context.Context) TeardownReport {
	live := h.registry.Len()

	// 1. Stop traffic and listeners
	h.supervisor.Stop()
	stopped := h.supervisor.Wait(h.cfg.ShutdownTimeout)
	if !stopped {
		h.log.Warn("Workers still running after shutdown timeout",
			"running", h.supervisor.Running(), "timeout", h.cfg.ShutdownTimeout)
	}
	h.closeLeftovers()

	// 2. Bulk delete
	status, err := h.backend.DeleteAllUsers(ctx)

	// 3. Report
	if err != nil {
		h.log.Error("Cleanup failed", "status", status, "error", err)
	} else {
		h.log.Info(fmt.Sprintf("Cleanup status: %d", status))
		if h.repository != nil {
			if clearErr := h.repository.Clear(); clearErr != nil {
				h.log.Warn("Failed to clear identity list", "error", clearErr)
			}
		}
	}
	if h.out != nil {
		workers.RenderSummary(h.out, h.stats.Snapshot(), live, time.Since(h.startedAt))
	}

	return TeardownReport{Status: status, Err: err, WorkersStopped: stopped}
}

// closeLeftovers releases sessions whose listener did not (stuck past the
// shutdown timeout). No connection outlives teardown.
func (h *Harness) closeLeftovers() {
	leftovers := h.registry.Sessions()
	if len(leftovers) == 0 {
		return
	}
	h.log.Warn("Closing sessions left after shutdown", "count", len(leftovers))
	for _, session := range leftovers {
		h.registry.Remove(session.ID)
		if session.Close() {
			h.stats.Disconnected.Add(1)
		}
	}
}
