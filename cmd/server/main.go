package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/meqhh/simpat-api/internal/config"
	"github.com/meqhh/simpat-api/internal/db"
	"github.com/meqhh/simpat-api/internal/logging"
)

const serviceName = "qccheck"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "QC check record service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply, revert or inspect schema migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}

			ctx := cmd.Context()
			cfg, logger, err := bootstrap(ctx)
			if err != nil {
				return err
			}

			database, err := db.Connect(cfg, logger)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer func() {
				if err := db.Close(database); err != nil {
					logger.Error().Err(err).Msg("close database")
				}
			}()

			if err := db.Migrate(ctx, database, direction); err != nil {
				return fmt.Errorf("migrate %s: %w", direction, err)
			}
			logger.Info().Str("direction", direction).Msg("migrations complete")
			return nil
		},
	}
}

// bootstrap loads configuration and installs the process logger.
func bootstrap(ctx context.Context) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return config.Config{}, zerolog.Logger{}, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return config.Config{}, zerolog.Logger{}, fmt.Errorf("init logger: %w", err)
	}
	log.Logger = logger
	return cfg, logger, nil
}
