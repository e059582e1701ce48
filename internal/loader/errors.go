package loader

import "fmt"

// BatchError reports the failure that stopped a job. Index is the 0-based
// batch being processed, or -1 when the job failed before its first batch.
type BatchError struct {
	Dataset string
	Table   string
	Index   int
	Err     error
}

func (e *BatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("load %s into %s: %v", e.Dataset, e.Table, e.Err)
	}
	return fmt.Sprintf("load %s into %s: batch #%d: %v", e.Dataset, e.Table, e.Index+1, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
