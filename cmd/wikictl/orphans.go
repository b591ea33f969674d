package main

import (
	"context"
	"fmt"

	"go-wiki-engine/internal/app"

	"github.com/spf13/cobra"
)

func newOrphansCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "orphans",
		Short: "List pages whose parent was deleted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				pages, err := a.Pages.Orphans(ctx)
				if err != nil {
					return err
				}
				if flags.json {
					return printJSON(cmd.OutOrStdout(), pages)
				}
				for _, p := range pages {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tmissing parent %s\n", p.ID, p.Title, p.ParentKey())
				}
				return nil
			})
		},
	}
}
