package runtime

import (
	"bytes"
	"chat-stress/domain"
	"chat-stress/errors"
	"chat-stress/mocks"
	"chat-stress/observability"
	"chat-stress/runtime/workers"
	"chat-stress/services"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestHarness_Teardown_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockIBackend(ctrl)
	repository := mocks.NewMockIIdentityRepository(ctrl)
	sup := mocks.NewMockISupervisor(ctrl)

	// Then the bulk delete runs once, whatever the number of calls
	sup.EXPECT().Stop().Times(1)
	sup.EXPECT().Wait(time.Second).Return(true).Times(1)
	backend.EXPECT().DeleteAllUsers(gomock.Any()).Return(200, nil).Times(1)
	repository.EXPECT().Clear().Return(nil).Times(1)

	var out bytes.Buffer
	harness := NewHarness(slog.Default(), HarnessConfig{ShutdownTimeout: time.Second},
		nil, nil, NewRegistry(), sup, backend, repository, observability.NewStats(), &out)

	first := harness.Teardown(context.Background())
	req.NoError(first.Err)
	req.Equal(200, first.Status)
	req.True(first.WorkersStopped)
	req.False(first.AlreadyDone)
	req.Contains(out.String(), "Messages sent")

	second := harness.Teardown(context.Background())
	req.True(second.AlreadyDone)
	req.Equal(200, second.Status)
}

func TestHarness_Teardown_Surfaces_Cleanup_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockIBackend(ctrl)
	repository := mocks.NewMockIIdentityRepository(ctrl)
	sup := mocks.NewMockISupervisor(ctrl)

	sup.EXPECT().Stop()
	sup.EXPECT().Wait(gomock.Any()).Return(false)
	sup.EXPECT().Running().Return(1)
	backend.EXPECT().DeleteAllUsers(gomock.Any()).
		Return(503, fmt.Errorf("%w: %w 503", errors.ErrCleanupFailed, errors.ErrUnexpectedStatus))
	// The durable list is kept for a later cleanup
	repository.EXPECT().Clear().Times(0)

	harness := NewHarness(slog.Default(), HarnessConfig{ShutdownTimeout: 10 * time.Millisecond},
		nil, nil, NewRegistry(), sup, backend, repository, observability.NewStats(), nil)

	report := harness.Teardown(context.Background())
	req.ErrorIs(report.Err, errors.ErrCleanupFailed)
	req.Equal(503, report.Status)
	req.False(report.WorkersStopped)
}

func TestHarness_Teardown_Closes_Sessions_Left_By_Stuck_Listeners(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockIBackend(ctrl)
	sup := mocks.NewMockISupervisor(ctrl)

	sup.EXPECT().Stop()
	sup.EXPECT().Wait(gomock.Any()).Return(false)
	sup.EXPECT().Running().Return(2)
	backend.EXPECT().DeleteAllUsers(gomock.Any()).Return(200, nil)

	// Given two live sessions whose listeners never released them
	registry := NewRegistry()
	conns := []*closableConn{newClosableConn(), newClosableConn()}
	for i, creds := range credentials(2) {
		session := domain.NewSession(creds, conns[i])
		session.MarkLive()
		req.NoError(registry.Insert(session))
	}
	stats := observability.NewStats()

	harness := NewHarness(slog.Default(), HarnessConfig{ShutdownTimeout: 10 * time.Millisecond},
		nil, nil, registry, sup, backend, nil, stats, nil)
	report := harness.Teardown(context.Background())

	// Then teardown closes them itself
	req.False(report.WorkersStopped)
	req.Zero(registry.Len())
	for _, conn := range conns {
		req.True(isClosed(conn))
	}
	req.EqualValues(2, stats.Disconnected.Load())
}

func TestHarness_Run_Then_Teardown(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockIBackend(ctrl)
	repository := mocks.NewMockIIdentityRepository(ctrl)
	delivery := mocks.NewMockIDelivery(ctrl)

	backend.EXPECT().Register(gomock.Any(), gomock.Any()).Return(domain.Created, nil).Times(4)
	backend.EXPECT().Login(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, identity domain.Identity) (domain.Credentials, error) {
			return domain.Credentials{Identity: identity, Token: "token", ID: identity.Email}, nil
		}).
		Times(4)
	backend.EXPECT().DeleteAllUsers(gomock.Any()).Return(200, nil).Times(1)
	repository.EXPECT().Save(gomock.Any()).Return(nil).Times(1)
	repository.EXPECT().Clear().Return(nil).Times(1)
	delivery.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	stats := observability.NewStats()
	registry := NewRegistry()
	sup := workers.NewSupervisor(log, 10*time.Millisecond)
	provisioner := services.NewProvisioningService(log, backend, stats, 0, 2)
	connector := NewConnector(log, &slowDialer{}, registry, sup, stats, 2, 0, 0)
	traffic := workers.NewTrafficWorker(log, registry, delivery, stats, workers.FixedDelay(time.Millisecond))

	harness := NewHarness(log, HarnessConfig{
		NumUsers:        4,
		EmailDomain:     "example.com",
		Password:        "test123456",
		ShutdownTimeout: time.Second,
	}, provisioner, connector, registry, sup, backend, repository, stats, nil, traffic)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- harness.Run(ctx) }()

	req.Eventually(func() bool { return registry.Len() == 4 && stats.Sent.Load() >= 10 },
		2*time.Second, 5*time.Millisecond)

	cancel()
	req.NoError(<-done)

	report := harness.Teardown(context.Background())
	req.NoError(report.Err)
	req.True(report.WorkersStopped)
	req.Zero(registry.Len())
	req.Zero(sup.Running())
}
