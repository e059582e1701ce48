package chunk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	pq "github.com/apache/arrow-go/v18/parquet"

	"ingest/internal/config"
	"ingest/internal/datasource"
	"ingest/internal/datasource/file"
	"ingest/internal/datasource/httpds"
	"ingest/internal/ddl"
	"ingest/internal/failure"
	"ingest/internal/parser/csv"
	"ingest/internal/parser/parquet"
)

// Options carries collaborators for Open.
type Options struct {
	// HTTP downloads http sources. When nil a client is built from the
	// dataset's source.http settings.
	HTTP *httpds.Client

	// StageDir holds staged downloads; empty means os.TempDir().
	StageDir string

	// Logger receives part open/close and download events. Nil uses
	// slog.Default().
	Logger *slog.Logger
}

// Open returns a Reader over every part of ds, in declared order, with at
// most chunkSize rows per batch. The first part is opened before Open
// returns so an unreachable dataset fails with ErrSourceUnavailable before
// any batch exists.
func Open(ctx context.Context, ds config.Dataset, chunkSize int, opts Options) (Reader, error) {
	if chunkSize <= 0 {
		chunkSize = config.DefaultChunkSize
	}
	locs := ds.Source.Locations()
	if len(locs) == 0 {
		return nil, failure.Source(nil, "dataset %s: no source locations", ds.Name)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	client := opts.HTTP
	if client == nil && ds.Source.Kind == config.SourceKindHTTP {
		client = httpClientFor(ds.Source.HTTP)
	}

	parts := make([]partOpener, len(locs))
	for i, loc := range locs {
		var src datasource.Source
		if ds.Source.Kind == config.SourceKindHTTP {
			src = httpds.NewRemote(client, loc, opts.StageDir, log)
		} else {
			src = file.NewLocal(loc)
		}
		parts[i] = func(ctx context.Context) (Reader, error) {
			log.Info("opening source", "dataset", ds.Name, "part", i+1, "parts", len(locs), "location", loc)
			return openPart(ctx, ds, loc, src, chunkSize)
		}
	}

	m := newMultiReader(parts)
	if err := m.openFirst(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func httpClientFor(h config.SourceHTTP) *httpds.Client {
	hdr := make(map[string][]string, len(h.Headers))
	for k, v := range h.Headers {
		hdr[k] = []string{v}
	}
	cfg := httpds.Config{MaxRetries: h.MaxRetries, BaseHeaders: hdr, InsecureSkipVerify: h.InsecureSkipVerify}
	if h.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(h.TimeoutSeconds) * time.Second
	}
	return httpds.NewClient(cfg)
}

// openPart opens one location and picks the reader strategy by format.
func openPart(ctx context.Context, ds config.Dataset, loc string, src datasource.Source, size int) (Reader, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, failure.Source(err, "dataset %s: open %s", ds.Name, loc)
	}

	comp := config.CompressionOf(ds.Compression, loc)
	format := ds.Format
	if format == "" {
		format = config.FormatOf(loc)
	}

	dc, err := decompress(rc, comp)
	if err != nil {
		rc.Close()
		return nil, failure.Malformed(err, "dataset %s: %s", ds.Name, loc)
	}

	popt := csv.OptionsFrom(ds.Parser.Options)
	switch format {
	case config.FormatParquet:
		return openParquet(ctx, ds, loc, dc, comp, popt, size)
	case config.FormatCSV:
		r, err := newCSVReader(dc, popt, size)
		if err != nil {
			dc.Close()
			return nil, fmt.Errorf("dataset %s: %s: %w", ds.Name, loc, err)
		}
		return r, nil
	}
	dc.Close()
	return nil, failure.Source(nil, "dataset %s: unsupported format %q", ds.Name, format)
}

// openParquet materializes the file and hands it to a sliceReader. The
// source is closed (and any staged copy removed) once the rows are in memory.
func openParquet(ctx context.Context, ds config.Dataset, loc string, rc io.ReadCloser, comp string, popt csv.Options, size int) (Reader, error) {
	defer rc.Close()

	var ras pq.ReaderAtSeeker
	if f, ok := rc.(pq.ReaderAtSeeker); ok && comp == config.CompressionNone {
		ras = f
	} else {
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, failure.Source(err, "dataset %s: read %s", ds.Name, loc)
		}
		ras = bytes.NewReader(data)
	}

	cols, rows, err := parquet.ReadAll(ctx, ras)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, failure.Malformed(err, "dataset %s: %s", ds.Name, loc)
	}

	names := csv.NormalizeHeaders(ddl.Names(cols), popt.HeaderMap, popt.FoldHeaders)
	for i := range cols {
		cols[i].Name = names[i]
	}
	return NewSliceReader(cols, rows, size, nil), nil
}
