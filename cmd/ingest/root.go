package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	verbose   bool
	logFormat string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "ingest",
		Short: "Load CSV and Parquet datasets into warehouse tables in batches",
		Long: `ingest reads each dataset of a pipeline file in bounded batches, coerces
configured columns and writes the batches to the destination table. The
first batch replaces the table, later batches are appended, and the first
error stops the run.

Supported destinations: postgres, sqlite, mssql, mysql, bigquery.

Exit codes:
  0  - every dataset loaded
  1  - invalid configuration or a failed load`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logs")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(newRunCmd(g), newValidateCmd(), newProbeCmd(g))
	return root
}

// logger builds the slog logger selected by the global flags.
func (g *globalFlags) logger(w io.Writer) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if g.verbose {
		opts.Level = slog.LevelDebug
	}
	switch g.logFormat {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown --log-format %q (want text or json)", g.logFormat)
}
