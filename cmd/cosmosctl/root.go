package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var jsonFlag bool

	ctx := newCommandContext(&configFlag, &jsonFlag)

	rootCmd := &cobra.Command{
		Use:               "cosmosctl",
		Short:             "Inspect and administer a cosmos store",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) { ctx.close() },
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print JSON instead of tables")

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newStorageCommand(ctx))
	rootCmd.AddCommand(newWorldsCommand(ctx))
	rootCmd.AddCommand(newSharesCommand(ctx))
	rootCmd.AddCommand(newNetworkCommand(ctx))

	return rootCmd
}
