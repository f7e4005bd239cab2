package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cosmos-backend/application/queries"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the configured store's schema up to date",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the store applies pending migrations.
			container, err := ctx.ensureContainer(cmd.Context())
			if err != nil {
				return err
			}
			if err := container.Store.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("store not reachable: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Store ready (%s)\n", container.Config.Storage.Backend)
			return nil
		},
	}
}

func newStorageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "storage",
		Short: "Show how many worlds and timelines are stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := ctx.ensureContainer(cmd.Context())
			if err != nil {
				return err
			}
			result, err := container.QueryBus.Ask(cmd.Context(), queries.StorageReportQuery{})
			if err != nil {
				return err
			}
			report := result.(*queries.StorageReport)
			if ctx.asJSON() {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend:   %s\n", container.Config.Storage.Backend)
			fmt.Fprintf(out, "Worlds:    %d\n", report.Worlds)
			fmt.Fprintf(out, "Timelines: %d\n", report.Timelines)
			if report.Warning {
				fmt.Fprintf(out, "Warning:   more than %d timelines stored\n", container.Config.Sharing.StorageWarningThreshold)
			}
			return nil
		},
	}
}
