// Command ingest loads tabular datasets (CSV or Parquet, local or over HTTP)
// into warehouse tables in bounded batches.
//
//	ingest run -c configs/pipelines/ny_taxi.yaml
//	ingest validate -c configs/pipelines/ny_taxi.yaml
//
// It exits 0 when every dataset loaded and 1 otherwise.
package main

import (
	"fmt"
	"os"

	// Register every storage backend; the pipeline's storage.kind picks one.
	_ "ingest/internal/storage/all"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
		os.Exit(1)
	}
}
