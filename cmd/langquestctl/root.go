package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/langquest/langquest-core/config"
	"github.com/langquest/langquest-core/internal/bootstrap"
	"github.com/langquest/langquest-core/internal/infrastructure/persistence/postgres"
	"github.com/langquest/langquest-core/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "langquestctl",
	Short:         "LangQuest admin CLI",
	Long:          "langquestctl manages the LangQuest database schema, course content and background jobs.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("env-file", "", "Load environment from this file instead of ./.env")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(jobsCmd)
}

// loadConfig honours --env-file, then falls back to the default lookup.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("env-file"); path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// connect opens the database without migrating.
func connect(ctx context.Context, cmd *cobra.Command) (*postgres.Connection, *logger.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	log := bootstrap.Logger(cfg).Named("ctl")
	conn, err := bootstrap.Postgres(ctx, cfg.Database, false, log)
	if err != nil {
		return nil, nil, err
	}
	return conn, log, nil
}
