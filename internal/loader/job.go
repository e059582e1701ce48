// Package loader drives datasets through the read, normalize and write
// stages one batch at a time.
//
// A Driver loads one dataset into one table: the first batch replaces the
// table and every later batch is appended. The first error stops the load;
// batches already committed stay in the warehouse. A Runner opens the
// destination once and loads a pipeline's datasets in declared order.
package loader

import (
	"time"

	"ingest/internal/config"
)

// Job pairs a dataset with its destination table.
type Job struct {
	Dataset config.Dataset
	Table   string
}

// JobFor returns the job loading ds into ds.Table.
func JobFor(ds config.Dataset) Job {
	return Job{Dataset: ds, Table: ds.Table}
}

// State is the lifecycle of one Job.
type State int

const (
	NotStarted State = iota
	InProgress
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case InProgress:
		return "IN_PROGRESS"
	case Completed:
		return "COMPLETED"
	case Failed:
		return "FAILED"
	}
	return "NOT_STARTED"
}

// Summary is the outcome of one Job.
type Summary struct {
	RunID   string
	Dataset string
	Table   string
	State   State

	// Batches counts batches committed to the table.
	Batches int
	// Rows counts rows committed to the table.
	Rows    int64
	Elapsed time.Duration

	// Err is the *BatchError that failed the job, or nil.
	Err error
}
