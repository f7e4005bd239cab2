package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cosmos-backend/application/commands"
	"cosmos-backend/application/queries"
)

func newSharesCommand(ctx *commandContext) *cobra.Command {
	sharesCmd := &cobra.Command{
		Use:   "shares",
		Short: "Inspect and manage the share ledger",
	}

	sharesCmd.AddCommand(newSharesListCommand(ctx))
	sharesCmd.AddCommand(newSharesRevokeCommand(ctx))
	sharesCmd.AddCommand(newSharesDownloadCommand(ctx))
	sharesCmd.AddCommand(newSharesMergesCommand(ctx))

	return sharesCmd
}

func newSharesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List published packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := ctx.ensureContainer(cmd.Context())
			if err != nil {
				return err
			}
			result, err := container.QueryBus.Ask(cmd.Context(), queries.ListSharesQuery{})
			if err != nil {
				return err
			}
			listing := result.(*queries.ListSharesResult)
			if ctx.asJSON() {
				return writeJSON(cmd, listing)
			}
			if len(listing.Items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No packages")
				return nil
			}

			rows := make([][]string, 0, len(listing.Items))
			for _, s := range listing.Items {
				rows = append(rows, []string{
					s.PackageName,
					s.WorldName,
					s.Visibility,
					s.WisdomMode,
					strconv.Itoa(s.Manifest.Timelines),
					yesNo(s.Revoked),
					s.CreatedAt.Local().Format(stampLayout),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Package", "World", "Visibility", "Wisdom", "Timelines", "Revoked", "Shared"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newSharesRevokeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <package>",
		Short: "Stop a package from being imported",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := ctx.ensureContainer(cmd.Context())
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			if err := container.CommandBus.Send(cmd.Context(), commands.RevokePackageCommand{PackageName: name}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked %s\n", name)
			return nil
		},
	}
}

func newSharesDownloadCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download <package>",
		Short: "Write a package archive to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := ctx.ensureContainer(cmd.Context())
			if err != nil {
				return err
			}
			result, err := container.QueryBus.Ask(cmd.Context(), queries.DownloadPackageQuery{PackageName: args[0]})
			if err != nil {
				return err
			}
			download := result.(*queries.PackageDownload)
			if output == "" {
				output = download.FileName
			}
			if err := os.WriteFile(output, download.Blob, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", output, len(download.Blob))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default is the package name)")
	return cmd
}

func newSharesMergesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merges",
		Short: "List import history",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := ctx.ensureContainer(cmd.Context())
			if err != nil {
				return err
			}
			result, err := container.QueryBus.Ask(cmd.Context(), queries.ListMergesQuery{})
			if err != nil {
				return err
			}
			listing := result.(*queries.ListMergesResult)
			if ctx.asJSON() {
				return writeJSON(cmd, listing)
			}

			rows := make([][]string, 0, len(listing.Items))
			for _, m := range listing.Items {
				rows = append(rows, []string{
					m.SourcePackage,
					m.ImportedWorldID,
					strconv.Itoa(m.ImportedTimelines),
					strconv.Itoa(len(m.Conflicts)),
					m.Status,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Package", "World", "Timelines", "Conflicts", "Status"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}
