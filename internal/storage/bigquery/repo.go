// Package bigquery implements storage.Repository on Google BigQuery.
//
// Each batch becomes one load job fed with newline-delimited JSON. Replace
// uses WRITE_TRUNCATE with CREATE_IF_NEEDED and Append uses WRITE_APPEND with
// CREATE_NEVER; a load job is atomic, so a failed batch adds nothing.
package bigquery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"ingest/internal/ddl"
	"ingest/internal/failure"
)

// Config holds BigQuery repository configuration.
type Config struct {
	Project  string
	Dataset  string // default dataset for unqualified table names
	Location string

	CredentialsFile string
	Endpoint        string
}

// Repository is a BigQuery-backed storage.Repository.
type Repository struct {
	client  *bigquery.Client
	project string
	dataset string
}

// NewRepository builds a client for cfg and returns a Close function.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.Project) == "" {
		return nil, nil, fmt.Errorf("bigquery: project must not be empty")
	}
	client, err := bigquery.NewClient(ctx, cfg.Project, clientOptions(cfg)...)
	if err != nil {
		return nil, nil, failure.Write(err, "bigquery: new client")
	}
	if cfg.Location != "" {
		client.Location = cfg.Location
	}
	r := &Repository{client: client, project: cfg.Project, dataset: cfg.Dataset}
	return r, func() { _ = client.Close() }, nil
}

func clientOptions(cfg Config) []option.ClientOption {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	} else if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return opts
}

// Replace truncates (or creates) table and loads rows in one job.
func (r *Repository) Replace(ctx context.Context, table string, cols []ddl.Column, rows [][]any) (int64, error) {
	return r.load(ctx, table, cols, rows, bigquery.WriteTruncate, bigquery.CreateIfNeeded)
}

// Append loads rows into an existing table in one job.
func (r *Repository) Append(ctx context.Context, table string, cols []ddl.Column, rows [][]any) (int64, error) {
	return r.load(ctx, table, cols, rows, bigquery.WriteAppend, bigquery.CreateNever)
}

func (r *Repository) load(
	ctx context.Context,
	table string,
	cols []ddl.Column,
	rows [][]any,
	write bigquery.TableWriteDisposition,
	create bigquery.TableCreateDisposition,
) (int64, error) {
	ref, err := r.tableRef(table)
	if err != nil {
		return 0, failure.Schema(err, "bigquery: table %s", table)
	}
	body, err := encodeRows(cols, rows)
	if err != nil {
		return 0, failure.Schema(err, "bigquery: encode %s", table)
	}

	src := bigquery.NewReaderSource(bytes.NewReader(body))
	src.SourceFormat = bigquery.JSON
	src.Schema = schemaFor(cols)

	loader := r.client.DatasetInProject(ref.project, ref.dataset).Table(ref.table).LoaderFrom(src)
	loader.WriteDisposition = write
	loader.CreateDisposition = create

	job, err := loader.Run(ctx)
	if err != nil {
		return 0, classify(err, "bigquery: start load into %s", table)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, classify(err, "bigquery: wait for job %s", job.ID())
	}
	if err := status.Err(); err != nil {
		return 0, classify(err, "bigquery: load job %s", job.ID())
	}
	return int64(len(rows)), nil
}

type tableRef struct {
	project, dataset, table string
}

// tableRef resolves "table", "dataset.table" or "project.dataset.table".
func (r *Repository) tableRef(name string) (tableRef, error) {
	parts := strings.Split(strings.TrimSpace(name), ".")
	switch len(parts) {
	case 1:
		if r.dataset == "" {
			return tableRef{}, fmt.Errorf("unqualified table %q and no default dataset", name)
		}
		return tableRef{r.project, r.dataset, parts[0]}, nil
	case 2:
		return tableRef{r.project, parts[0], parts[1]}, nil
	case 3:
		return tableRef{parts[0], parts[1], parts[2]}, nil
	}
	return tableRef{}, fmt.Errorf("invalid table name %q", name)
}

// schemaFor maps batch columns onto a nullable BigQuery schema.
func schemaFor(cols []ddl.Column) bigquery.Schema {
	s := make(bigquery.Schema, len(cols))
	for i, c := range cols {
		s[i] = &bigquery.FieldSchema{Name: c.Name, Type: fieldType(c.Type)}
	}
	return s
}

func fieldType(t ddl.Type) bigquery.FieldType {
	switch t {
	case ddl.Int:
		return bigquery.IntegerFieldType
	case ddl.Float:
		return bigquery.FloatFieldType
	case ddl.Bool:
		return bigquery.BooleanFieldType
	case ddl.Timestamp:
		return bigquery.TimestampFieldType
	case ddl.Date:
		return bigquery.DateFieldType
	default:
		return bigquery.StringFieldType
	}
}

// bqTimestamp is the TIMESTAMP literal accepted in JSON loads; naive values
// are taken as UTC.
const bqTimestamp = "2006-01-02 15:04:05.999999"

// encodeRows renders rows as newline-delimited JSON objects keyed by column
// name. nil values are omitted, which BigQuery loads as NULL.
func encodeRows(cols []ddl.Column, rows [][]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	obj := make(map[string]any, len(cols))
	for i, row := range rows {
		if len(row) != len(cols) {
			return nil, fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(cols))
		}
		clear(obj)
		for j, v := range row {
			if v == nil {
				continue
			}
			if t, ok := v.(time.Time); ok {
				if cols[j].Type == ddl.Date {
					v = t.Format(time.DateOnly)
				} else {
					v = t.UTC().Format(bqTimestamp)
				}
			}
			obj[cols[j].Name] = v
		}
		if err := enc.Encode(obj); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// schemaReasons are BigQuery error reasons for rows or schemas that do not
// fit the table.
var schemaReasons = map[string]bool{
	"invalid":      true,
	"invalidQuery": true,
}

func classify(err error, format string, args ...any) error {
	var bqErr *bigquery.Error
	if errors.As(err, &bqErr) && schemaReasons[bqErr.Reason] {
		return failure.Schema(err, format, args...)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			// Missing table under CREATE_NEVER, or missing dataset.
			return failure.Schema(err, format, args...)
		case http.StatusBadRequest:
			for _, item := range apiErr.Errors {
				if schemaReasons[item.Reason] {
					return failure.Schema(err, format, args...)
				}
			}
		}
	}
	return failure.Write(err, format, args...)
}
