package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the addon HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

// runServe runs until ctx is cancelled by a shutdown signal
func runServe(ctx context.Context) error {
	application, cleanup, err := initialize()
	if err != nil {
		return err
	}
	defer cleanup()

	logger := application.Logger
	logger.Info().Str("version", application.Config.AddonVersion).Msg("Starting Tamilarr")

	// Step 1: Start the scheduler (initial scrape runs in the background)
	if err := application.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer application.Scheduler.Stop()

	// Step 2: Serve until shutdown
	logger.Info().Msg("Tamilarr is running")
	if err := application.Server.Start(ctx); err != nil {
		return err
	}

	logger.Info().Msg("Tamilarr stopped")
	return nil
}
