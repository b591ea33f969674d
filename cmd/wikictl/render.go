package main

import (
	"context"
	"fmt"

	"go-wiki-engine/internal/app"

	"github.com/spf13/cobra"
)

func newRenderCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "render <page-id>",
		Short: "Render a page to HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				_, out, err := a.Pages.RenderPage(ctx, args[0])
				if err != nil {
					return err
				}
				if flags.json {
					return printJSON(cmd.OutOrStdout(), out)
				}
				fmt.Fprintln(cmd.OutOrStdout(), out.HTML)
				for _, l := range out.Links {
					if l.Broken {
						fmt.Fprintf(cmd.ErrOrStderr(), "broken link: %s\n", l.Title)
					}
				}
				return nil
			})
		},
	}
}
