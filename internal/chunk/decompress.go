package chunk

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"ingest/internal/config"
)

// decompressed closes the decoder and then the underlying source.
type decompressed struct {
	io.Reader
	closeDecoder func() error
	src          io.Closer
}

func (d *decompressed) Close() error {
	var derr error
	if d.closeDecoder != nil {
		derr = d.closeDecoder()
	}
	return errors.Join(derr, d.src.Close())
}

// decompress wraps rc according to mode (already resolved, never "auto").
func decompress(rc io.ReadCloser, mode string) (io.ReadCloser, error) {
	switch mode {
	case config.CompressionNone, "":
		return rc, nil
	case config.CompressionGzip:
		zr, err := gzip.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return &decompressed{Reader: zr, closeDecoder: zr.Close, src: rc}, nil
	case config.CompressionZstd:
		zr, err := zstd.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return &decompressed{Reader: zr, closeDecoder: func() error { zr.Close(); return nil }, src: rc}, nil
	}
	return nil, fmt.Errorf("unknown compression %q", mode)
}
