package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cosmos-backend/application/queries"
)

func newNetworkCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "network",
		Short: "List packages advertised by this installation and its peers",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := ctx.ensureContainer(cmd.Context())
			if err != nil {
				return err
			}
			result, err := container.QueryBus.Ask(cmd.Context(), queries.ListNetworkQuery{})
			if err != nil {
				return err
			}
			listing := result.(*queries.ListNetworkResult)
			if ctx.asJSON() {
				return writeJSON(cmd, listing)
			}
			if len(listing.Items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing shared yet")
				return nil
			}

			rows := make([][]string, 0, len(listing.Items))
			for _, e := range listing.Items {
				credits := make([]string, 0, len(e.Credits))
				for _, c := range e.Credits {
					if c.Name != "" {
						credits = append(credits, c.Name+" ("+c.Role+")")
					} else {
						credits = append(credits, c.Role)
					}
				}
				rows = append(rows, []string{e.Peer, e.Package, e.Title, e.Visibility, strings.Join(credits, ", ")})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Peer", "Package", "Title", "Visibility", "Credits"}, rows, nil))
			return nil
		},
	}
}
