package main

import (
	"chat-stress/client"
	"chat-stress/internal"
	"chat-stress/observability"
	"chat-stress/repositories"
	"chat-stress/runtime"
	"chat-stress/runtime/workers"
	"chat-stress/services"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Provision users, connect them and send traffic until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarness(cmd.Context(), a)
		},
	}
}

func runHarness(parent context.Context, a *app) error {
	config, log := a.config, a.log

	// 1. Durable identity list
	db, err := openIdentityStore(a)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	repository := repositories.NewIdentityRepository(db)

	// 2. Backend collaborators
	backend := client.NewHTTP(config.BackendURL, config.RequestTimeout)
	dialer := client.NewWebsocketDialer(config.WebsocketURL, config.HandshakeTimeout)
	delivery, err := services.NewDelivery(config.Delivery(), backend)
	if err != nil {
		return err
	}

	// 3. Supervision & orchestration
	stats := observability.NewStats()
	registry := runtime.NewRegistry()
	sup := workers.NewSupervisor(log, config.RestartInterval)

	provisioner := services.NewProvisioningService(log, backend, stats,
		config.ProvisionConcurrency, config.LoginConcurrency)
	connector := runtime.NewConnector(log, dialer, registry, sup, stats,
		config.MaxConcurrent, config.ConnectRetries, config.RetryDelay)
	traffic := workers.NewTrafficWorker(log, registry, delivery, stats,
		workers.UniformDelay(config.TrafficMinDelay, config.TrafficMaxDelay))
	reporter := workers.NewReporterWorker(log, registry, stats, config.ReportInterval, os.Stdout)

	harness := runtime.NewHarness(log, runtime.HarnessConfig{
		NumUsers:        config.NumUsers,
		EmailDomain:     config.EmailDomain,
		Password:        config.UserPassword,
		ShutdownTimeout: config.ShutdownTimeout,
	}, provisioner, connector, registry, sup, backend, repository, stats, os.Stdout,
		traffic, reporter)

	// 4. Optional inspection page
	if config.DebugPort > 0 {
		debug := internal.StartDebugServer(log, config.DebugPort, func() map[string]any {
			snapshot := stats.Snapshot()
			return map[string]any{
				"live":           registry.Len(),
				"connected":      snapshot.Connected,
				"disconnected":   snapshot.Disconnected,
				"sent":           snapshot.Sent,
				"send_failures":  snapshot.SendFailed,
				"received":       snapshot.Received,
				"connect_failed": snapshot.ConnectFailed,
			}
		}, repository.List)
		defer func() { _ = debug.Shutdown(context.Background()) }()
	}

	// 5. Context & signals
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting load test",
		"users", config.NumUsers, "max_concurrent", config.MaxConcurrent,
		"delivery", config.DeliveryMode, "backend", config.BackendURL)
	if err = harness.Run(ctx); err != nil {
		return fmt.Errorf("harness failed: %w", err)
	}

	// 6. Teardown runs on a fresh context, the signal one is already done
	teardownCtx, cancel := context.WithTimeout(context.Background(),
		config.ShutdownTimeout+config.RequestTimeout)
	defer cancel()

	report := harness.Teardown(teardownCtx)
	if report.Err != nil {
		fmt.Fprintf(os.Stderr, "Cleanup failed (status %d): %v\n", report.Status, report.Err)
	}
	log.Info("Program stopped cleanly")
	return nil
}
