package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newWorkerCommand() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Resolve pending magnets in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, cleanup, err := initialize()
			if err != nil {
				return err
			}
			defer cleanup()

			worker := application.Worker
			if !worker.Enabled() {
				return fmt.Errorf("no TorBox credential configured")
			}

			ctx := cmd.Context()
			ticker := time.NewTicker(application.Config.WorkerInterval)
			defer ticker.Stop()
			for {
				processed, _ := worker.RunOnce(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "processed %d magnets\n", processed)
				if once {
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			}
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single tick and exit")
	return cmd
}
