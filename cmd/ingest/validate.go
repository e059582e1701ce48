package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ingest/internal/config"
)

func newValidateCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a pipeline file without loading anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadPipeline(cfgPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %s (%d datasets, storage=%s)\n",
				cfgPath, len(p.Datasets), p.Storage.Kind)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "configs/pipelines/ny_taxi.yaml", "pipeline config path (.json, .yaml)")
	return cmd
}

// loadPipeline loads and validates the pipeline at path against the process
// environment. Issues are printed to w one per line; any error-severity issue
// fails the load.
func loadPipeline(path string, w io.Writer) (config.Pipeline, error) {
	p, err := config.Load(path)
	if err != nil {
		return config.Pipeline{}, err
	}
	return p, checkPipeline(p, path, w)
}

func checkPipeline(p config.Pipeline, path string, w io.Writer) error {
	issues := config.ValidatePipelineEnv(p, os.Getenv)
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid: %s", path)
	}
	return nil
}
