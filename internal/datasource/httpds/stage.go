package httpds

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Staged is a downloaded copy of a remote file. Release removes it; it is
// safe to call more than once.
type Staged struct {
	Path  string
	Bytes int64

	once sync.Once
	err  error
}

// Release deletes the staged file.
func (s *Staged) Release() error {
	s.once.Do(func() {
		if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
			s.err = fmt.Errorf("httpds: remove staged %s: %w", s.Path, err)
		}
	})
	return s.err
}

// Stage downloads rawURL into a new temporary file under dir (os.TempDir
// when empty). On any error nothing is left on disk. log may be nil.
func Stage(ctx context.Context, c *Client, rawURL, dir string, log *slog.Logger) (*Staged, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	resp, err := c.Get(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpds: get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("httpds: get %s: unexpected status %s", rawURL, resp.Status)
	}

	f, err := os.CreateTemp(dir, "ingest-*-"+StageName(rawURL))
	if err != nil {
		return nil, fmt.Errorf("httpds: create staging file: %w", err)
	}
	st := &Staged{Path: f.Name()}

	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = st.Release()
		return nil, fmt.Errorf("httpds: download %s: %w", rawURL, err)
	}
	st.Bytes = n

	log.Debug("staged download", "url", rawURL, "path", st.Path, "bytes", n, "status", resp.StatusCode)
	return st, nil
}
