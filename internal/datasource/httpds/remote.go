package httpds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Remote is a datasource.Source that stages a URL to a temporary file on
// Open. The returned reader removes the staged file on Close.
type Remote struct {
	client *Client
	url    string
	dir    string
	log    *slog.Logger
}

// NewRemote returns a Remote for url using client. dir selects the staging
// directory; empty means os.TempDir(). log receives download events and may
// be nil.
func NewRemote(client *Client, url, dir string, log *slog.Logger) *Remote {
	return &Remote{client: client, url: url, dir: dir, log: log}
}

// Location returns the URL.
func (r *Remote) Location() string { return r.url }

// Open downloads the URL and opens the staged copy. The returned value also
// implements io.ReaderAt and io.Seeker.
func (r *Remote) Open(ctx context.Context) (io.ReadCloser, error) {
	st, err := Stage(ctx, r.client, r.url, r.dir, r.log)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(st.Path)
	if err != nil {
		_ = st.Release()
		return nil, fmt.Errorf("httpds: open staged %s: %w", st.Path, err)
	}
	return &StagedFile{File: f, staged: st}, nil
}

// StagedFile is an open staged download. Close closes the file and removes
// it from disk.
type StagedFile struct {
	*os.File
	staged *Staged
}

// Close closes the file and releases the staged copy.
func (s *StagedFile) Close() error {
	return errors.Join(s.File.Close(), s.staged.Release())
}

// StagedPath returns the on-disk path of the staged copy.
func (s *StagedFile) StagedPath() string { return s.staged.Path }
