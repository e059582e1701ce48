// Package failure defines the error taxonomy shared by every stage of a load.
//
// Components wrap one of the sentinels below with fmt.Errorf("...: %w", ...)
// so callers can branch with errors.Is, and logs/metrics can label a failure
// with KindOf without parsing messages.
package failure

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable reports a dataset that could not be fetched or opened.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedRow reports content that cannot be parsed or coerced.
	ErrMalformedRow = errors.New("malformed row")

	// ErrSchemaConflict reports a batch whose columns or types do not fit the
	// table it is being appended to.
	ErrSchemaConflict = errors.New("schema conflict")

	// ErrWriteFailure reports connectivity, permission or constraint failures
	// while writing to the destination.
	ErrWriteFailure = errors.New("write failure")
)

// Kind names for KindOf.
const (
	KindSourceUnavailable = "SourceUnavailable"
	KindMalformedRow      = "MalformedRow"
	KindSchemaConflict    = "SchemaConflict"
	KindWriteFailure      = "WriteFailure"
	KindCanceled          = "Canceled"
	KindUnknown           = "Unknown"
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrSourceUnavailable, KindSourceUnavailable},
	{ErrMalformedRow, KindMalformedRow},
	{ErrSchemaConflict, KindSchemaConflict},
	{ErrWriteFailure, KindWriteFailure},
}

// KindOf returns the taxonomy name of err, or "" for a nil error.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	if isCanceled(err) {
		return KindCanceled
	}
	return KindUnknown
}

// Source wraps err as ErrSourceUnavailable unless it already carries a kind.
func Source(err error, format string, args ...any) error {
	return wrap(ErrSourceUnavailable, err, format, args...)
}

// Malformed wraps err as ErrMalformedRow unless it already carries a kind.
func Malformed(err error, format string, args ...any) error {
	return wrap(ErrMalformedRow, err, format, args...)
}

// Schema wraps err as ErrSchemaConflict unless it already carries a kind.
func Schema(err error, format string, args ...any) error {
	return wrap(ErrSchemaConflict, err, format, args...)
}

// Write wraps err as ErrWriteFailure unless it already carries a kind.
func Write(err error, format string, args ...any) error {
	return wrap(ErrWriteFailure, err, format, args...)
}

func wrap(kind, err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if err == nil {
		return fmt.Errorf("%s: %w", msg, kind)
	}
	if KindOf(err) != KindUnknown {
		// Already classified, or canceled.
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, kind, err)
}
