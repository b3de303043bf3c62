package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amaumene/tamilarr/internal/models"
)

func newScrapeCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "scrape [tamilmv|tamilblasters]",
		Short:     "Scrape once and persist the results",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(models.SourceTamilMV), string(models.SourceTamilBlasters)},
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cleanup, err := initialize()
			if err != nil {
				return err
			}
			defer cleanup()

			sources := application.Scrape.Sources()
			if len(args) == 1 {
				source := models.Source(args[0])
				if !source.Valid() {
					return fmt.Errorf("unknown source %q", args[0])
				}
				sources = []models.Source{source}
			}

			for _, source := range sources {
				items, err := application.Scrape.ScrapeOnce(cmd.Context(), source)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d items\n", source, len(items))
			}
			return nil
		},
	}
}
