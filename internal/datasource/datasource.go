// Package datasource defines the byte-level source contract used by the chunk
// readers. Implementations live in the file and httpds subpackages.
package datasource

import (
	"context"
	"io"
)

// Source opens a dataset part for reading. The returned ReadCloser must be
// closed by the caller; closing it releases every resource the source
// acquired, including staged temporary files.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Locator is implemented by sources that can report where they read from.
type Locator interface {
	Location() string
}
