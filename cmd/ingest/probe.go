package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ingest/internal/config"
	"ingest/internal/probe"
)

type probeFlags struct {
	config  string
	dataset string
	rows    int
	dialect string
}

func newProbeCmd(g *globalFlags) *cobra.Command {
	f := &probeFlags{}
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Sample a dataset and suggest column types and DDL",
		Long: `probe reads the first rows of each dataset (or only --dataset), infers a
type per column and prints the coerce transform that produces those types,
followed by the CREATE TABLE the first batch would issue.

The dialect defaults to the pipeline's storage.kind.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := g.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			p, err := config.Load(f.config)
			if err != nil {
				return err
			}
			dialect := f.dialect
			if dialect == "" {
				dialect = p.Storage.Kind
			}

			found := false
			for _, ds := range p.Datasets {
				if f.dataset != "" && ds.Name != f.dataset {
					continue
				}
				found = true
				res, err := probe.Sample(cmd.Context(), ds, f.rows, log)
				if err != nil {
					return err
				}
				if err := printProbe(cmd.OutOrStdout(), res, dialect); err != nil {
					return err
				}
			}
			if !found {
				return fmt.Errorf("no dataset named %q in %s", f.dataset, f.config)
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "configs/pipelines/ny_taxi.yaml", "pipeline config path (.json, .yaml)")
	fl.StringVar(&f.dataset, "dataset", "", "probe only this dataset")
	fl.IntVar(&f.rows, "rows", probe.DefaultRows, "rows to sample")
	fl.StringVar(&f.dialect, "dialect", "", "DDL dialect: postgres, sqlite, mssql, mysql")
	return cmd
}

func printProbe(w io.Writer, res probe.Result, dialect string) error {
	fmt.Fprintf(w, "# dataset %s: %d rows sampled\n", res.Dataset, res.Rows)
	for _, c := range res.Columns {
		fmt.Fprintf(w, "#   %-32s %-10s nulls=%d\n", c.Name, c.Type, c.Nulls)
	}

	if t, ok := res.Transform(); ok {
		out, err := yaml.Marshal(map[string]any{"transform": []config.Transform{t}})
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n", out)
	}

	if sql, err := res.CreateTable(dialect); err == nil {
		fmt.Fprintf(w, "%s;\n\n", sql)
	} else {
		fmt.Fprintf(w, "# %v\n\n", err)
	}
	return nil
}
