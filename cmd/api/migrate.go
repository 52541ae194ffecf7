package main

import (
	"log/slog"
	"os"

	"github.com/BradenHooton/flixapi/internal/config"
	"github.com/BradenHooton/flixapi/internal/database"
	pkglogger "github.com/BradenHooton/flixapi/pkg/logger"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Run database migrations",
		Long:      `Apply, roll back or list the embedded goose migrations. Defaults to "up".`,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{database.MigrateUp, database.MigrateDown, database.MigrateStatus},
		RunE:      runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	command := database.MigrateUp
	if len(args) == 1 {
		command = args[0]
	}

	logger := pkglogger.New(os.Stdout, os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadDatabase()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	if err := database.Migrate(cmd.Context(), cfg.DSN(), command, logger); err != nil {
		return oops.Code("MIGRATION_FAILED").With("command", command).Wrap(err)
	}

	logger.Info("migrations finished", slog.String("command", command))
	return nil
}
