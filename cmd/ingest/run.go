package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ingest/internal/loader"
	"ingest/internal/metrics"
)

type runFlags struct {
	config         string
	chunkSize      int
	stageDir       string
	metricsBackend string
	pushgatewayURL string
	statsdAddr     string
}

func newRunCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load every dataset of a pipeline file",
		Long: `run loads the datasets of a pipeline file in declared order.

Connection settings may come from the environment; a .env file in the
working directory is loaded first when present. For postgres an empty
storage.db.dsn is built from POSTGRES_USER, POSTGRES_PASSWORD,
POSTGRES_HOST, POSTGRES_PORT and POSTGRES_DB.

Examples:
  ingest run -c configs/pipelines/ny_taxi.yaml
  ingest run -c configs/pipelines/fhv_bigquery.json --chunk-size 50000 \
    --metrics-backend pushgateway --pushgateway-url http://localhost:9091`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), g, f, cmd)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "configs/pipelines/ny_taxi.yaml", "pipeline config path (.json, .yaml)")
	fl.IntVar(&f.chunkSize, "chunk-size", 0, "rows per batch; overrides runtime.chunk_size")
	fl.StringVar(&f.stageDir, "stage-dir", "", "directory for downloaded sources (default: system temp dir)")
	fl.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway, datadog (overrides env METRICS_BACKEND)")
	fl.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	fl.StringVar(&f.statsdAddr, "statsd-addr", "", "DogStatsD address (overrides env STATSD_ADDR)")
	return cmd
}

func runPipeline(ctx context.Context, g *globalFlags, f *runFlags, cmd *cobra.Command) error {
	// A missing .env is fine.
	_ = godotenv.Load()

	log, err := g.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	p, err := loadPipeline(f.config, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if f.chunkSize > 0 {
		p.Runtime.ChunkSize = f.chunkSize
		if err := checkPipeline(p, f.config, cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	rec := metrics.NewRecorder(p.Job, newMetricsBackend(p, f, runID, os.Getenv, log))
	defer func() {
		if err := rec.Flush(); err != nil {
			log.Warn("metrics flush", "err", err)
		}
	}()

	r := &loader.Runner{
		Logger:    log,
		Observers: []loader.Observer{loader.LogObserver{Logger: log}, loader.MetricsObserver{Recorder: rec}},
		StageDir:  f.stageDir,
		RunID:     runID,
	}
	_, err = r.Run(ctx, p)
	return err
}
