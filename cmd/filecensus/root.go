package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"filecensus/internal/app"
	"filecensus/internal/config"
)

type cli struct {
	cfg config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{cfg: config.Default()}

	root := &cobra.Command{
		Use:           "filecensus",
		Short:         "Inventory the files under a directory, then search, sort and export them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.cfg.Normalize()
		},
	}
	config.BindFlags(root.PersistentFlags(), &c.cfg)

	root.AddCommand(
		c.scanCmd(),
		c.queryCmd(),
		c.importCmd(),
		c.exportCmd(),
		c.statsCmd(),
		c.plotCmd(),
		c.serveCmd(),
		c.tuiCmd(),
	)
	return root
}

// withApp opens the application with the saved inventory loaded and closes
// it once run returns.
func (c *cli) withApp(cmd *cobra.Command, run func(ctx context.Context, a *app.App) error) (err error) {
	ctx := cmd.Context()
	a, err := app.New(ctx, c.cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close app: %w", closeErr)
		}
	}()
	return run(ctx, a)
}
