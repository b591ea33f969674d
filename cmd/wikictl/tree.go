package main

import (
	"context"
	"fmt"
	"strings"

	"go-wiki-engine/internal/app"
	"go-wiki-engine/internal/tree"

	"github.com/spf13/cobra"
)

func newTreeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the page hierarchy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app.App) error {
				nodes, err := a.Pages.Tree(ctx)
				if err != nil {
					return err
				}
				if flags.json {
					return printJSON(cmd.OutOrStdout(), nodes)
				}
				printNodes(cmd, nodes, 0)
				return nil
			})
		},
	}
}

func printNodes(cmd *cobra.Command, nodes []*tree.Node, depth int) {
	for _, n := range nodes {
		marker := "-"
		if n.Page.IsFolder {
			marker = "+"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s%s %s [%s]\n", strings.Repeat("  ", depth), marker, n.Page.Title, n.Page.ID)
		printNodes(cmd, n.Children, depth+1)
	}
}
