package main

import (
	"context"
	"fmt"

	"go-wiki-engine/internal/app"

	"github.com/spf13/cobra"
)

func newSuggestCmd(flags *rootFlags) *cobra.Command {
	var exclude string
	cmd := &cobra.Command{
		Use:   "suggest <fragment>",
		Short: "List link targets matching a title fragment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				pages, err := a.Pages.Suggest(ctx, args[0], exclude)
				if err != nil {
					return err
				}
				if flags.json {
					return printJSON(cmd.OutOrStdout(), pages)
				}
				for _, p := range pages {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.ID, p.Title)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&exclude, "exclude", "", "page id to leave out, usually the page being edited")
	return cmd
}
