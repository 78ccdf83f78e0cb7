package e2e

import (
	"chat-stress/client"
	"chat-stress/domain"
	"chat-stress/observability"
	"chat-stress/runtime"
	"chat-stress/runtime/workers"
	"chat-stress/services"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

type HarnessSuite struct {
	suite.Suite
	Config  Config
	backend *Backend
	server  *httptest.Server
}

func TestHarnessSuite(t *testing.T) {
	suite.Run(t, new(HarnessSuite))
}

// SetupSuite loads the environment configuration before running tests
func (s *HarnessSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

func (s *HarnessSuite) SetupTest() {
	if s.Config.External() {
		return
	}
	s.backend = NewBackend(s.Config.AdminToken, 20*time.Millisecond)
	s.server = httptest.NewServer(s.backend.Handler())
}

func (s *HarnessSuite) TearDownTest() {
	if s.server != nil {
		s.server.Close()
		s.server = nil
	}
}

func (s *HarnessSuite) header(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

func (s *HarnessSuite) urls() (string, string) {
	if s.Config.External() {
		return s.Config.BackendURL, s.Config.WebsocketURL
	}
	return s.server.URL, "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
}

type fixture struct {
	harness   *runtime.Harness
	registry  *runtime.Registry
	connector *runtime.Connector
	stats     *observability.Stats
}

func (s *HarnessSuite) newFixture(users, gate int, mode domain.DeliveryMode) fixture {
	log := logs.GetLoggerFromLevel(slog.LevelInfo)
	httpURL, wsURL := s.urls()

	backend := client.NewHTTP(httpURL, 5*time.Second)
	dialer := client.NewWebsocketDialer(wsURL, 5*time.Second)
	delivery, err := services.NewDelivery(mode, backend)
	s.Require().NoError(err)

	stats := observability.NewStats()
	registry := runtime.NewRegistry()
	sup := workers.NewSupervisor(log, 50*time.Millisecond)
	provisioner := services.NewProvisioningService(log, backend, stats, 0, 5)
	connector := runtime.NewConnector(log, dialer, registry, sup, stats, gate, 2, 50*time.Millisecond)
	traffic := workers.NewTrafficWorker(log, registry, delivery, stats, workers.FixedDelay(10*time.Millisecond))

	harness := runtime.NewHarness(log, runtime.HarnessConfig{
		NumUsers:        users,
		EmailDomain:     "example.com",
		Password:        "test123456",
		ShutdownTimeout: 2 * time.Second,
	}, provisioner, connector, registry, sup, backend, nil, stats, io.Discard, traffic)

	return fixture{harness: harness, registry: registry, connector: connector, stats: stats}
}

func (s *HarnessSuite) start(f fixture) (context.CancelFunc, chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.harness.Run(ctx) }()
	return cancel, done
}

func (s *HarnessSuite) stop(f fixture, cancel context.CancelFunc, done chan error) runtime.TeardownReport {
	cancel()
	select {
	case err := <-done:
		s.Require().NoError(err)
	case <-time.After(5 * time.Second):
		s.Fail("harness did not return after cancellation")
	}
	ctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	return f.harness.Teardown(ctx)
}

func (s *HarnessSuite) TestHTTPDelivery_FullRun() {
	s.header("HTTP delivery, 10 users, gate 3")
	req := s.Require()
	f := s.newFixture(10, 3, domain.DeliveryHTTP)

	cancel, done := s.start(f)
	req.Eventually(func() bool {
		return f.registry.Len() == 10 && f.stats.Sent.Load() >= 20 && f.stats.Received.Load() >= 1
	}, 10*time.Second, 20*time.Millisecond)

	req.LessOrEqual(f.connector.PeakInFlight(), 3)
	if s.backend != nil {
		req.LessOrEqual(s.backend.PeakHandshakes(), 3)
		req.Equal(10, s.backend.Connections())
	}

	report := s.stop(f, cancel, done)
	req.NoError(report.Err)
	req.Equal(200, report.Status)
	req.True(report.WorkersStopped)
	req.Equal(0, f.registry.Len())

	// Teardown is idempotent
	again := f.harness.Teardown(context.Background())
	req.True(again.AlreadyDone)
	if s.backend != nil {
		req.Equal(1, s.backend.BulkDeletes())
		req.Zero(s.backend.Users())
	}
}

func (s *HarnessSuite) TestWebsocketDelivery_FullRun() {
	s.header("WebSocket delivery, 6 users")
	req := s.Require()
	f := s.newFixture(6, 2, domain.DeliveryWebsocket)

	cancel, done := s.start(f)
	req.Eventually(func() bool {
		return f.registry.Len() == 6 && f.stats.Received.Load() >= 10
	}, 10*time.Second, 20*time.Millisecond)
	req.Zero(f.stats.SendFailed.Load())

	report := s.stop(f, cancel, done)
	req.NoError(report.Err)
}

func (s *HarnessSuite) TestPeerClose_SessionLeavesRegistry() {
	if s.backend == nil {
		s.T().Skip("needs the in-process backend to drop a peer")
	}
	s.header("Peer closes one connection mid-run")
	req := s.Require()
	f := s.newFixture(4, 4, domain.DeliveryHTTP)

	cancel, done := s.start(f)
	req.Eventually(func() bool { return f.registry.Len() == 4 }, 10*time.Second, 20*time.Millisecond)

	victim := f.registry.Sessions()[0]
	req.True(s.backend.Drop(victim.ID))

	req.Eventually(func() bool {
		_, ok := f.registry.Get(victim.ID)
		return !ok && victim.State() == domain.Closed
	}, 2*time.Second, 10*time.Millisecond)

	// Sampling never returns the dropped session again
	for range 200 {
		a, b, ok := f.registry.SampleDistinctPair()
		req.True(ok)
		req.NotEqual(victim.ID, a.ID)
		req.NotEqual(victim.ID, b.ID)
	}

	report := s.stop(f, cancel, done)
	req.NoError(report.Err)
	// One peer close plus three local closes at teardown
	req.EqualValues(4, f.stats.Disconnected.Load())
}
