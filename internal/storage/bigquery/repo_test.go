package bigquery

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"ingest/internal/ddl"
	"ingest/internal/failure"
	"ingest/internal/storage"
)

func TestAdapterRegistration(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var got Config
	closed := false
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		got = cfg
		return &Repository{}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{
		Kind:     "bigquery",
		Project:  "de-zoomcamp",
		Dataset:  "trips_data_all",
		Location: "EU",
		Endpoint: "http://localhost:9050",
	})
	require.NoError(t, err)
	require.Equal(t, Config{Project: "de-zoomcamp", Dataset: "trips_data_all", Location: "EU", Endpoint: "http://localhost:9050"}, got)

	repo.Close()
	require.True(t, closed)
}

func TestTableRef(t *testing.T) {
	r := &Repository{project: "p", dataset: "ds"}

	cases := map[string]tableRef{
		"trips":            {"p", "ds", "trips"},
		"other.trips":      {"p", "other", "trips"},
		"proj.other.trips": {"proj", "other", "trips"},
	}
	for in, want := range cases {
		got, err := r.tableRef(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := (&Repository{project: "p"}).tableRef("trips")
	require.Error(t, err)
	_, err = r.tableRef("a.b.c.d")
	require.Error(t, err)
}

func TestSchemaFor(t *testing.T) {
	s := schemaFor([]ddl.Column{
		{Name: "VendorID", Type: ddl.Int},
		{Name: "fare", Type: ddl.Float},
		{Name: "flag", Type: ddl.Bool},
		{Name: "pickup", Type: ddl.Timestamp},
		{Name: "day", Type: ddl.Date},
		{Name: "zone", Type: ddl.Text},
	})
	want := []bigquery.FieldType{
		bigquery.IntegerFieldType, bigquery.FloatFieldType, bigquery.BooleanFieldType,
		bigquery.TimestampFieldType, bigquery.DateFieldType, bigquery.StringFieldType,
	}
	require.Len(t, s, len(want))
	for i, f := range s {
		require.Equal(t, want[i], f.Type, f.Name)
		require.False(t, f.Required, f.Name)
	}
}

func TestEncodeRows(t *testing.T) {
	cols := []ddl.Column{
		{Name: "id", Type: ddl.Int},
		{Name: "pickup", Type: ddl.Timestamp},
		{Name: "day", Type: ddl.Date},
		{Name: "zone", Type: ddl.Text},
	}
	ts := time.Date(2021, 1, 1, 0, 30, 10, 500000000, time.UTC)
	body, err := encodeRows(cols, [][]any{
		{int64(1), ts, ts, "EWR"},
		{int64(2), nil, nil, nil},
	})
	require.NoError(t, err)

	var lines []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)
	require.Equal(t, "2021-01-01 00:30:10.5", lines[0]["pickup"])
	require.Equal(t, "2021-01-01", lines[0]["day"])
	require.Equal(t, "EWR", lines[0]["zone"])
	require.Equal(t, map[string]any{"id": float64(2)}, lines[1])

	_, err = encodeRows(cols, [][]any{{int64(1)}})
	require.Error(t, err)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"job invalid", &bigquery.Error{Reason: "invalid", Message: "Provided Schema does not match Table"}, failure.ErrSchemaConflict},
		{"not found", fmt.Errorf("wait: %w", &googleapi.Error{Code: 404, Message: "Not found: Table p:ds.trips"}), failure.ErrSchemaConflict},
		{"bad request invalid", &googleapi.Error{Code: 400, Errors: []googleapi.ErrorItem{{Reason: "invalid"}}}, failure.ErrSchemaConflict},
		{"forbidden", &googleapi.Error{Code: 403, Message: "Access Denied"}, failure.ErrWriteFailure},
		{"backend", &bigquery.Error{Reason: "backendError"}, failure.ErrWriteFailure},
		{"network", errors.New("dial tcp: i/o timeout"), failure.ErrWriteFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, classify(tc.err, "load"), tc.want)
		})
	}
}

func TestClientOptions(t *testing.T) {
	require.Empty(t, clientOptions(Config{}))
	require.Len(t, clientOptions(Config{CredentialsFile: "sa.json"}), 1)
	require.Len(t, clientOptions(Config{Endpoint: "http://localhost:9050", CredentialsFile: "sa.json"}), 2)
}
