package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const pipelineJSON = `{
  "job": "ny_taxi",
  "datasets": [
    {
      "name": "green_2019_10",
      "source": { "kind": "http", "http": { "url": "https://example.test/green_tripdata_2019-10.parquet" } },
      "transform": [
        { "kind": "coerce", "options": { "types": { "lpep_pickup_datetime": "timestamp" } } }
      ],
      "table": "green_taxi_trips"
    },
    {
      "source": { "file": { "path": "testdata/taxi_zone_lookup.csv.gz" } },
      "parser": { "options": { "has_header": true, "header_map": { "LocationID": "location_id" } } },
      "table": "zones"
    }
  ],
  "storage": { "kind": "postgres", "db": { "dsn": "" } }
}`

func TestDecodeJSONAppliesDefaults(t *testing.T) {
	t.Parallel()

	p, err := Decode(strings.NewReader(pipelineJSON), "json")
	require.NoError(t, err)

	require.Equal(t, DefaultChunkSize, p.Runtime.ChunkSize)
	require.Len(t, p.Datasets, 2)

	green := p.Datasets[0]
	require.Equal(t, FormatParquet, green.Format)
	require.Equal(t, CompressionAuto, green.Compression)
	require.Equal(t, []string{"https://example.test/green_tripdata_2019-10.parquet"}, green.Source.Locations())
	require.Equal(t, map[string]string{"lpep_pickup_datetime": "timestamp"}, green.Transform[0].Options.StringMap("types"))

	zones := p.Datasets[1]
	require.Equal(t, SourceKindFile, zones.Source.Kind)
	require.Equal(t, FormatCSV, zones.Format)
	require.Equal(t, "zones", zones.Name, "name defaults to table")
	require.True(t, zones.Parser.Options.Bool("has_header", false))
	require.Equal(t, "location_id", zones.Parser.Options.StringMap("header_map")["LocationID"])
}

func TestDecodeRejectsUnknownJSONFields(t *testing.T) {
	t.Parallel()

	_, err := Decode(strings.NewReader(`{"job":"x","chunk_size":5}`), "json")
	require.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	const y = `
job: fhv
datasets:
  - name: fhv_2019
    source:
      kind: http
      http:
        urls:
          - https://example.test/fhv_tripdata_2019-01.csv.gz
          - https://example.test/fhv_tripdata_2019-02.csv.gz
    parser:
      options:
        comma: ","
    transform:
      - kind: coerce
        options:
          types:
            pickup_datetime: timestamp
            dropOff_datetime: timestamp
    table: fhv_tripdata
storage:
  kind: sqlite
  db:
    dsn: file:fhv.db
runtime:
  chunk_size: 50000
`
	path := filepath.Join(t.TempDir(), "fhv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(y), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 50000, p.Runtime.ChunkSize)
	require.Len(t, p.Datasets[0].Source.Locations(), 2)
	require.Equal(t, FormatCSV, p.Datasets[0].Format)
	require.Equal(t, ',', p.Datasets[0].Parser.Options.Rune("comma", ';'))
	require.Len(t, p.Datasets[0].Transform[0].Options.StringMap("types"), 2)
	require.Empty(t, ValidatePipeline(p))
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorContains(t, err, "open config")
}

func TestFormatAndCompressionOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		loc, format, compression string
	}{
		{"data/yellow.csv", FormatCSV, CompressionNone},
		{"data/yellow.csv.gz", FormatCSV, CompressionGzip},
		{"https://x.test/a.parquet?sig=1", FormatParquet, CompressionNone},
		{"a.PARQUET.zst", FormatParquet, CompressionZstd},
		{"zones", FormatCSV, CompressionNone},
	}
	for _, tc := range cases {
		require.Equal(t, tc.format, FormatOf(tc.loc), tc.loc)
		require.Equal(t, tc.compression, CompressionOf(CompressionAuto, tc.loc), tc.loc)
	}
	require.Equal(t, CompressionNone, CompressionOf(CompressionNone, "x.csv.gz"))
}

func TestOptionsHelpers(t *testing.T) {
	t.Parallel()

	var o Options
	require.NoError(t, json.Unmarshal([]byte(`{"n": 3, "s": "x", "b": true, "l": ["a", 1, "b"], "m": {"k": "v", "n": 1}}`), &o))

	require.Equal(t, 3, o.Int("n", 0))
	require.Equal(t, 7, o.Int("missing", 7))
	require.Equal(t, "x", o.String("s", ""))
	require.Equal(t, "d", o.String("n", "d"))
	require.True(t, o.Bool("b", false))
	require.Equal(t, []string{"a", "b"}, o.StringSlice("l"))
	require.Equal(t, map[string]string{"k": "v"}, o.StringMap("m"))
	require.Equal(t, 'x', o.Rune("s", ','))

	var empty Options
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	require.NotNil(t, empty)
	require.Equal(t, 5, Options{"n": 5}.Int("n", 0), "yaml ints")
}

func TestYAMLNestedOptions(t *testing.T) {
	t.Parallel()

	const y = `
job: ny_taxi
datasets:
  - name: zones
    source: { kind: file, file: { path: taxi_zone_lookup.csv } }
    parser:
      options:
        header_map: { LocationID: location_id }
        scrub: { '""N/A""': '' }
    transform:
      - kind: coerce
        options:
          types: { location_id: int }
    table: zones
storage: { kind: sqlite, db: { dsn: zones.db } }
`
	p, err := Decode(strings.NewReader(y), "yaml")
	require.NoError(t, err)

	ds := p.Datasets[0]
	require.Equal(t, map[string]string{"location_id": "int"}, ds.Transform[0].Options.StringMap("types"))
	require.Equal(t, "location_id", ds.Parser.Options.StringMap("header_map")["LocationID"])
	require.Len(t, ds.Parser.Options.StringMap("scrub"), 1)
	require.IsType(t, map[string]any{}, ds.Transform[0].Options["types"])

	// A StringMap over a nested Options value works too.
	o := Options{"types": Options{"fare_amount": "float"}}
	require.Equal(t, map[string]string{"fare_amount": "float"}, o.StringMap("types"))
}
