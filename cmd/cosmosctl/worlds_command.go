package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"cosmos-backend/application/queries"
)

func newWorldsCommand(ctx *commandContext) *cobra.Command {
	worldsCmd := &cobra.Command{
		Use:   "worlds",
		Short: "Inspect worlds",
	}

	worldsCmd.AddCommand(newWorldsListCommand(ctx))
	worldsCmd.AddCommand(newWorldsTimelinesCommand(ctx))
	worldsCmd.AddCommand(newWorldsSeedCommand(ctx))

	return worldsCmd
}

func newWorldsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List worlds in creation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := ctx.ensureContainer(cmd.Context())
			if err != nil {
				return err
			}
			result, err := container.QueryBus.Ask(cmd.Context(), queries.ListWorldsQuery{})
			if err != nil {
				return err
			}
			listing := result.(*queries.ListWorldsResult)
			if ctx.asJSON() {
				return writeJSON(cmd, listing)
			}
			if len(listing.Items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No worlds")
				return nil
			}

			rows := make([][]string, 0, len(listing.Items))
			for _, w := range listing.Items {
				rows = append(rows, []string{w.ID, w.Name, strconv.Itoa(w.Warmth), w.CreatedAt.Local().Format(stampLayout)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Warmth", "Created"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newWorldsTimelinesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "timelines <world-id>",
		Short: "List a world's timelines depth first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := ctx.ensureContainer(cmd.Context())
			if err != nil {
				return err
			}
			result, err := container.QueryBus.Ask(cmd.Context(), queries.ListTimelinesQuery{WorldID: args[0]})
			if err != nil {
				return err
			}
			listing := result.(*queries.ListTimelinesResult)
			if ctx.asJSON() {
				return writeJSON(cmd, listing)
			}

			rows := make([][]string, 0, len(listing.Items))
			for _, t := range listing.Items {
				parent := "-"
				if t.ParentTimelineID != nil {
					parent = *t.ParentTimelineID
				}
				rows = append(rows, []string{t.ID, parent, t.Title, t.Status})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Parent", "Title", "Status"}, rows, nil))
			return nil
		},
	}
}

func newWorldsSeedCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "seed <world-id>",
		Short: "Write a world's eternal seed archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := ctx.ensureContainer(cmd.Context())
			if err != nil {
				return err
			}
			result, err := container.QueryBus.Ask(cmd.Context(), queries.EternalSeedQuery{WorldID: args[0]})
			if err != nil {
				return err
			}
			seed := result.(*queries.SeedDownload)
			if output == "" {
				output = seed.FileName
			}
			if err := os.WriteFile(output, seed.Blob, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", output, len(seed.Blob))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default is the archive's own name)")
	return cmd
}
