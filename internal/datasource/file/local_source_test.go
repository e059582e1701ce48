package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalOpenReadsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "zones.csv")
	if err := os.WriteFile(path, []byte("LocationID,Borough\n1,EWR\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewLocal(path)
	if src.Location() != path {
		t.Fatalf("Location()=%q", src.Location())
	}
	rc, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(b), "LocationID") {
		t.Fatalf("unexpected content %q", b)
	}
	if _, ok := rc.(io.ReaderAt); !ok {
		t.Fatalf("expected an io.ReaderAt, got %T", rc)
	}
}

func TestLocalOpenMissing(t *testing.T) {
	t.Parallel()

	_, err := NewLocal(filepath.Join(t.TempDir(), "missing.csv")).Open(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestLocalOpenDirectory(t *testing.T) {
	t.Parallel()

	_, err := NewLocal(t.TempDir()).Open(context.Background())
	if err == nil || !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("expected directory error, got %v", err)
	}
}

func TestLocalOpenCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocal("whatever").Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
