package main

import (
	"chat-stress/client"
	"chat-stress/errors"
	"chat-stress/observability"
	"chat-stress/repositories"
	"chat-stress/runtime"
	"chat-stress/services"
	"fmt"

	"github.com/spf13/cobra"
)

func newProvisionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Only register users and record them for a later cleanup",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openIdentityStore(a)
			if err != nil {
				return err
			}
			defer db.Close()

			backend := client.NewHTTP(a.config.BackendURL, a.config.RequestTimeout)
			stats := observability.NewStats()
			provisioner := services.NewProvisioningService(a.log, backend, stats,
				a.config.ProvisionConcurrency, a.config.LoginConcurrency)
			harness := runtime.NewHarness(a.log, runtime.HarnessConfig{
				NumUsers:    a.config.NumUsers,
				EmailDomain: a.config.EmailDomain,
				Password:    a.config.UserPassword,
			}, provisioner, nil, nil, nil, backend, repositories.NewIdentityRepository(db), stats, nil)

			registered := harness.Provision(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%d users provisioned\n", len(registered))
			return nil
		},
	}
}

func newCleanupCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete every recorded user one by one (needs ADMIN_TOKEN)",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Every DELETE would fail with 401 and the list would stay as is
			if a.config.AdminToken == "" {
				return fmt.Errorf("%w for cleanup", errors.ErrMissingAdminToken)
			}
			svc, closeDB, err := newCleanupService(a)
			if err != nil {
				return err
			}
			defer closeDB()

			deleted, failed, err := svc.CleanupListed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d users deleted, %d left for a later pass\n", deleted, failed)
			return nil
		},
	}
}

func newPurgeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Call the bulk delete of test users",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := newCleanupService(a)
			if err != nil {
				return err
			}
			defer closeDB()

			status, err := svc.Purge(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Cleanup status: %d\n", status)
			return err
		},
	}
}

func newCleanupService(a *app) (*services.CleanupService, func(), error) {
	db, err := openIdentityStore(a)
	if err != nil {
		return nil, nil, err
	}
	backend := client.NewHTTP(a.config.BackendURL, a.config.RequestTimeout)
	svc := services.NewCleanupService(a.log, backend, repositories.NewIdentityRepository(db),
		a.config.AdminToken, a.config.CleanupConcurrency)
	return svc, func() { _ = db.Close() }, nil
}
