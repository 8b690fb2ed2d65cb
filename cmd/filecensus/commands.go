package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"filecensus/internal/app"
	"filecensus/internal/bytesize"
	"filecensus/internal/chart"
	"filecensus/internal/export"
	"filecensus/internal/inventory"
	"filecensus/internal/session"
	"filecensus/internal/sorting"
)

func (c *cli) scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan [dir]",
		Short: "Scan a directory and save its inventory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := c.cfg.Root
			if len(args) == 1 {
				abs, err := filepath.Abs(args[0])
				if err != nil {
					return fmt.Errorf("resolve %q: %w", args[0], err)
				}
				root = abs
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Gather(ctx, root); err != nil {
					return err
				}
				meta := a.Session().Inventory().Metadata()
				fmt.Fprintf(cmd.OutOrStdout(), "%s files (%s) under %s in %s\n",
					humanize.Comma(int64(meta.TotalFiles)), meta.TotalSize(), meta.RootLocation, meta.ScanDuration)
				return nil
			})
		},
	}
}

func (c *cli) queryCmd() *cobra.Command {
	var sorts []string
	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "List the saved files matching a query",
		Long: `List the saved files matching a query.

A query is one clause, or two joined by " && ". A clause is a size comparison
(">=1.5 MB", "<200kb"), "^prefix", "suffix$", "%text%" (case-insensitive),
"!text" (excluded), "basename: name", or plain text matched against the
path and the displayed size.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(sorts)
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				view, err := runQuery(a.Session(), strings.Join(args, " "), fields)
				if err != nil {
					return err
				}
				printView(cmd.OutOrStdout(), view)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&sorts, "sort", nil, "sort by name or size; repeat to toggle the direction")
	return cmd
}

func (c *cli) importCmd() *cobra.Command {
	var sorts []string
	cmd := &cobra.Command{
		Use:   "import <file.csv> [text]",
		Short: "List the files of a path,bytes CSV file matching a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(sorts)
			if err != nil {
				return err
			}
			sess := session.New(nil)
			if err := sess.Import(args[0]); err != nil {
				return err
			}
			view, err := runQuery(sess, strings.Join(args[1:], " "), fields)
			if err != nil {
				return err
			}
			printView(cmd.OutOrStdout(), view)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sorts, "sort", nil, "sort by name or size; repeat to toggle the direction")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	valid := make([]string, len(export.Kinds))
	for i, kind := range export.Kinds {
		valid[i] = string(kind)
	}
	return &cobra.Command{
		Use:       "export <format>",
		Short:     "Write the saved inventory to the export directory",
		Args:      cobra.ExactArgs(1),
		ValidArgs: valid,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := export.ParseKind(args[0])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				path, err := a.Session().Export(kind, c.cfg.ExportDir)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [text]",
		Short: "Summarize the sizes of the saved files matching a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				sess := a.Session()
				if _, err := sess.Search(strings.Join(args, " ")); err != nil {
					return err
				}
				printStats(cmd.OutOrStdout(), sess.Stats())
				return nil
			})
		},
	}
}

func (c *cli) plotCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "plot [text]",
		Short: "Draw the sizes of the saved files matching a query as an SVG scatter plot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				view, err := a.Session().Search(strings.Join(args, " "))
				if err != nil {
					return err
				}
				if out == "" {
					return chart.WriteSVG(cmd.OutOrStdout(), view.Matches)
				}
				return writePlotFile(out, view)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the SVG to this file instead of stdout")
	return cmd
}

func writePlotFile(path string, view session.View) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close plot file: %w", closeErr)
		}
	}()
	return chart.WriteSVG(file, view.Matches)
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the web interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Serve(ctx)
			})
		},
	}
}

func (c *cli) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse the saved inventory in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.RunTUI(ctx)
			})
		},
	}
}

func parseFields(raw []string) ([]sorting.Field, error) {
	fields := make([]sorting.Field, 0, len(raw))
	for _, s := range raw {
		field, err := sorting.ParseField(s)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func runQuery(sess *session.Session, text string, fields []sorting.Field) (session.View, error) {
	view, err := sess.Search(text)
	if err != nil {
		return session.View{}, err
	}
	for _, field := range fields {
		view = sess.SortBy(field)
	}
	return view, nil
}

func printView(w io.Writer, view session.View) {
	for _, record := range view.Matches {
		fmt.Fprintf(w, "%14s  %s\n", record.HumanSize, record.Path)
	}
	fmt.Fprintf(w, "%s files (%s)\n", humanize.Comma(int64(len(view.Matches))), view.MatchesSize)
}

func printStats(w io.Writer, stats inventory.Stats) {
	fmt.Fprintf(w, "files:  %s\n", humanize.Comma(int64(stats.Count)))
	fmt.Fprintf(w, "total:  %s\n", bytesize.Format(stats.Total))
	fmt.Fprintf(w, "mean:   %s\n", stats.MeanSize())
	fmt.Fprintf(w, "median: %s\n", stats.MedianSize())
}
