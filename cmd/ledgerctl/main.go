// Command ledgerctl administers a ledger database: schema migrations, user
// accounts, exports and a tail of the change events.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"ledger/internal/cli"
	"ledger/internal/config"
	applog "ledger/internal/log"
	"ledger/internal/storage"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	dbPath   string
	logLevel string
}

// config loads the environment, letting --db override SQLITE_DB_PATH.
func (o *rootOptions) config() *config.Config {
	cfg := config.Load()
	if strings.TrimSpace(o.dbPath) != "" {
		cfg.SQLiteDBPath = o.dbPath
	}
	return cfg
}

func (o *rootOptions) openRepo() (*storage.SQLiteRepository, error) {
	path := o.config().SQLiteDBPath
	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return repo, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Administer a ledger database",
		Long: `ledgerctl manages the ledger database behind the HTTP API.
It applies migrations, manages user accounts, exports transactions to CSV or
Google Sheets and follows the change events published on AMQP.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.LoadEnvFile()
			level := opts.logLevel
			if level == "" {
				level = os.Getenv("LOG_LEVEL")
			}
			// Logs go to stderr so exports on stdout stay clean.
			logger := applog.New(applog.Config{
				Component: applog.ComponentCLI,
				Handler: slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
					Level: applog.ParseLevel(level),
				}),
			})
			applog.SetDefault(logger)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default $SQLITE_DB_PATH)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newUserCmd(opts),
		newExportCmd(opts),
		newEventsCmd(opts),
	)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
