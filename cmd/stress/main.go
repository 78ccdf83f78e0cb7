package main

import (
	"chat-stress/errors"
	"chat-stress/internal"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"
)

// Exit codes of the stress binary.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// app carries what every sub-command needs once the configuration is loaded.
type app struct {
	config internal.Config
	log    *slog.Logger
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run keeps a single exit point so that every deferred close runs first.
func run(args []string) int {
	a := &app{}
	root := newRootCommand(a)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		if a.log == nil || stderrors.Is(err, errors.ErrMissingAdminToken) {
			return exitConfig
		}
		return exitRuntime
	}
	return exitOK
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "stress",
		Short:         "Load-test a chat backend with many concurrent WebSocket sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is fine, the environment may be set already
			_ = godotenv.Load()

			config, err := internal.LoadConfig()
			if err != nil {
				return err
			}
			a.config = config
			a.log = logs.GetLoggerFromString(config.LogLevel)
			return nil
		},
	}

	root.AddCommand(
		newRunCommand(a),
		newProvisionCommand(a),
		newCleanupCommand(a),
		newPurgeCommand(a),
		newListCommand(a),
	)
	return root
}

// openIdentityStore opens the durable identity list. The caller closes it.
func openIdentityStore(a *app) (*badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions(a.config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}
	return db, nil
}
