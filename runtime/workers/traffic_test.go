package workers

import (
	"chat-stress/domain"
	"chat-stress/mocks"
	"chat-stress/observability"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestTraffic_Skips_When_Fewer_Than_Two_Sessions(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	delivery := mocks.NewMockIDelivery(ctrl)
	stats := observability.NewStats()

	// Given an empty registry
	registry.EXPECT().SampleDistinctPair().Return(nil, nil, false).MinTimes(100)
	// Then nothing is ever delivered
	delivery.EXPECT().Deliver(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	worker := NewTrafficWorker(slog.Default(), registry, delivery, stats, FixedDelay(0))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	req.Eventually(func() bool { return worker.Iterations() >= 100 }, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		req.Fail("traffic should stop on cancellation")
	}
	req.GreaterOrEqual(stats.Skipped.Load(), uint64(100))
	req.Zero(stats.Sent.Load())
}

func TestTraffic_Sends_Between_Distinct_Sessions(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	delivery := mocks.NewMockIDelivery(ctrl)
	stats := observability.NewStats()

	alice := newLiveSession(newFakeConn())
	bob := newLiveSession(newFakeConn())

	registry.EXPECT().SampleDistinctPair().Return(alice, bob, true).AnyTimes()
	delivery.EXPECT().
		Deliver(gomock.Any(), alice, gomock.Any()).
		DoAndReturn(func(_ context.Context, from *domain.Session, message domain.Message) error {
			req.Equal(bob.ID, message.Receiver)
			req.NotEmpty(message.Content)
			return nil
		}).
		MinTimes(5)

	worker := NewTrafficWorker(slog.Default(), registry, delivery, stats, FixedDelay(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	req.Eventually(func() bool { return stats.Sent.Load() >= 5 }, 2*time.Second, time.Millisecond)
	cancel()
	<-done
	req.Zero(stats.SendFailed.Load())
}

func TestTraffic_Failed_Send_Does_Not_Stop_The_Loop(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	delivery := mocks.NewMockIDelivery(ctrl)
	stats := observability.NewStats()

	alice := newLiveSession(newFakeConn())
	bob := newLiveSession(newFakeConn())

	registry.EXPECT().SampleDistinctPair().Return(alice, bob, true).AnyTimes()
	delivery.EXPECT().
		Deliver(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("connection reset")).
		MinTimes(3)

	worker := NewTrafficWorker(slog.Default(), registry, delivery, stats, FixedDelay(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	req.Eventually(func() bool { return stats.SendFailed.Load() >= 3 }, 2*time.Second, time.Millisecond)
	cancel()
	<-done
	req.Zero(stats.Sent.Load())
}

func TestUniformDelay_Stays_In_Bounds(t *testing.T) {
	req := require.New(t)
	delay := UniformDelay(10*time.Millisecond, 20*time.Millisecond)
	for range 1000 {
		d := delay()
		req.GreaterOrEqual(d, 10*time.Millisecond)
		req.LessOrEqual(d, 20*time.Millisecond)
	}
	req.Equal(5*time.Millisecond, UniformDelay(5*time.Millisecond, 5*time.Millisecond)())
}
