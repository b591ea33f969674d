package main

import (
	"context"
	"io"

	"go-wiki-engine/internal/app"
	"go-wiki-engine/internal/config"
	"go-wiki-engine/internal/logger"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	config  string
	json    bool
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := new(rootFlags)
	root := &cobra.Command{
		Use:           "wikictl",
		Short:         "Inspect and maintain a wiki database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "config file (default: search ./config.yml, ./configs, /etc/go-wiki-engine)")
	root.PersistentFlags().BoolVar(&flags.json, "json", false, "print JSON instead of text")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log to stderr at debug level")

	root.AddCommand(
		newTreeCmd(flags),
		newRenderCmd(flags),
		newSuggestCmd(flags),
		newOrphansCmd(flags),
		newMigrateCmd(flags),
	)
	return root
}

// loadConfig reads the config file. Logs are discarded unless --verbose
// is set, so command output stays machine readable.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, logger.Logger, error) {
	cfg, err := config.LoadConfigFile(flags.config)
	if err != nil {
		return nil, nil, err
	}
	if !flags.verbose {
		return cfg, logger.Nop(), nil
	}
	cfg.Log.Level = "debug"
	cfg.Log.Format = "console"
	return cfg, logger.Component(logger.New(cfg.Log, cmd.ErrOrStderr()), "wikictl"), nil
}

// withApp builds the wiki for one command and tears it down afterwards.
// Pending media deletions are dropped, as the CLI never edits content.
func withApp(cmd *cobra.Command, flags *rootFlags, fn func(ctx context.Context, a *app.App) error) error {
	cfg, log, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(out, '\n'))
	return err
}
