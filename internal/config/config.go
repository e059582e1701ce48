// Package config defines the configuration model for load runs. Pipelines are
// decoded from JSON or YAML files (configs/pipelines/*) and passed through the
// program as plain values; nothing in this package holds global state.
//
// Example (trimmed):
//
//	{
//	  "job": "ny_taxi",
//	  "datasets": [{
//	    "name": "yellow_2021_01",
//	    "source": { "kind": "http", "http": { "url": "https://.../yellow_tripdata_2021-01.csv.gz" } },
//	    "parser": { "options": { "has_header": true } },
//	    "transform": [
//	      { "kind": "coerce", "options": { "types": { "tpep_pickup_datetime": "timestamp" } } }
//	    ],
//	    "table": "yellow_taxi_data"
//	  }],
//	  "storage": { "kind": "postgres", "db": { "dsn": "" } },
//	  "runtime": { "chunk_size": 100000 }
//	}
package config

import (
	"encoding/json"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultChunkSize is the number of rows per batch when runtime.chunk_size is
// not set.
const DefaultChunkSize = 100000

// Source kinds.
const (
	SourceKindFile = "file"
	SourceKindHTTP = "http"
)

// Dataset formats.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// Dataset compressions.
const (
	CompressionAuto = "auto"
	CompressionNone = "none"
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run in logs and metrics.
	Job string `json:"job" yaml:"job"`

	// Datasets are loaded sequentially in declared order.
	Datasets []Dataset `json:"datasets" yaml:"datasets"`

	Storage Storage       `json:"storage" yaml:"storage"`
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
	Metrics Metrics       `json:"metrics" yaml:"metrics"`
}

// RuntimeConfig controls batching.
type RuntimeConfig struct {
	// ChunkSize is the maximum number of rows per batch.
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`
}

// Metrics selects a metrics backend. CLI flags take precedence.
type Metrics struct {
	Backend        string `json:"backend" yaml:"backend"`
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url"`
	StatsdAddr     string `json:"statsd_addr" yaml:"statsd_addr"`
}

// Dataset is one source loaded into one destination table.
type Dataset struct {
	Name   string `json:"name" yaml:"name"`
	Source Source `json:"source" yaml:"source"`

	// Format is "csv" or "parquet". Empty means derive it from the location.
	Format string `json:"format" yaml:"format"`

	// Compression is "auto", "none", "gzip" or "zstd". Auto derives it from
	// a .gz / .zst suffix.
	Compression string `json:"compression" yaml:"compression"`

	Parser    Parser      `json:"parser" yaml:"parser"`
	Transform []Transform `json:"transform" yaml:"transform"`

	// Table is the destination table, optionally schema qualified.
	Table string `json:"table" yaml:"table"`
}

// Source identifies where a dataset's bytes come from.
type Source struct {
	// Kind selects the source implementation: "file" or "http".
	Kind string `json:"kind" yaml:"kind"`

	File SourceFile `json:"file" yaml:"file"`
	HTTP SourceHTTP `json:"http" yaml:"http"`
}

// SourceFile holds one or more local paths. Paths lets monthly files append
// into a single table.
type SourceFile struct {
	Path  string   `json:"path" yaml:"path"`
	Paths []string `json:"paths" yaml:"paths"`
}

// SourceHTTP holds one or more URLs plus client knobs.
type SourceHTTP struct {
	URL  string   `json:"url" yaml:"url"`
	URLs []string `json:"urls" yaml:"urls"`

	// TimeoutSeconds bounds each download. Zero uses the client default.
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`

	// MaxRetries is zero unless an operator opts in.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	Headers map[string]string `json:"headers" yaml:"headers"`

	InsecureSkipVerify bool `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// Locations returns the source paths or URLs in declared order.
func (s Source) Locations() []string {
	var single string
	var many []string
	switch s.Kind {
	case SourceKindHTTP:
		single, many = s.HTTP.URL, s.HTTP.URLs
	default:
		single, many = s.File.Path, s.File.Paths
	}
	out := make([]string, 0, len(many)+1)
	if strings.TrimSpace(single) != "" {
		out = append(out, single)
	}
	for _, m := range many {
		if strings.TrimSpace(m) != "" {
			out = append(out, m)
		}
	}
	return out
}

// Parser carries reader options.
type Parser struct {
	// Options is a free-form map. For CSV, typical keys include:
	//   has_header (bool), comma (string), trim_space (bool),
	//   lazy_quotes (bool), header_map (object), scrub (object)
	Options Options `json:"options" yaml:"options"`
}

// Transform defines a single normalization step. The only kind is "coerce".
type Transform struct {
	Kind string `json:"kind" yaml:"kind"`

	// Options for "coerce":
	//   types  (object) column -> kind
	//   layout (string) extra time layout
	//   layouts ([]string) extra time layouts
	Options Options `json:"options" yaml:"options"`
}

// Storage selects the destination warehouse.
type Storage struct {
	// Kind is one of postgres, sqlite, mssql, mysql, bigquery.
	Kind string `json:"kind" yaml:"kind"`

	DB       DBConfig       `json:"db" yaml:"db"`
	BigQuery BigQueryConfig `json:"bigquery" yaml:"bigquery"`
}

// DBConfig configures SQL backends.
type DBConfig struct {
	// DSN is the connection string. ${VAR} references are expanded; an empty
	// postgres DSN is built from POSTGRES_* variables.
	DSN string `json:"dsn" yaml:"dsn"`
}

// BigQueryConfig configures the bigquery backend. Empty fields fall back to
// BIGQUERY_PROJECT / BIGQUERY_DATASET / BIGQUERY_LOCATION /
// BIGQUERY_CREDENTIALS_FILE / BIGQUERY_EMULATOR_HOST.
type BigQueryConfig struct {
	Project  string `json:"project" yaml:"project"`
	Dataset  string `json:"dataset" yaml:"dataset"`
	Location string `json:"location" yaml:"location"`

	// CredentialsFile is a service-account key. Empty uses Application
	// Default Credentials.
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`

	// Endpoint points the client at an emulator; authentication is skipped.
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// ApplyDefaults fills unset fields: chunk size, source kind, format and
// compression.
func (p *Pipeline) ApplyDefaults() {
	if p.Runtime.ChunkSize == 0 {
		p.Runtime.ChunkSize = DefaultChunkSize
	}
	for i := range p.Datasets {
		d := &p.Datasets[i]
		if d.Source.Kind == "" {
			d.Source.Kind = SourceKindFile
		}
		if d.Compression == "" {
			d.Compression = CompressionAuto
		}
		if d.Format == "" {
			if locs := d.Source.Locations(); len(locs) > 0 {
				d.Format = FormatOf(locs[0])
			}
		}
		if d.Name == "" {
			d.Name = d.Table
		}
	}
}

// FormatOf derives a dataset format from a path or URL, ignoring a trailing
// compression suffix. Anything not ending in .parquet is treated as CSV.
func FormatOf(loc string) string {
	base := strings.ToLower(path.Base(stripQuery(loc)))
	base = strings.TrimSuffix(strings.TrimSuffix(base, ".gz"), ".zst")
	if strings.HasSuffix(base, ".parquet") {
		return FormatParquet
	}
	return FormatCSV
}

// CompressionOf resolves "auto" against loc's suffix.
func CompressionOf(mode, loc string) string {
	if mode != "" && mode != CompressionAuto {
		return mode
	}
	base := strings.ToLower(stripQuery(loc))
	switch {
	case strings.HasSuffix(base, ".gz"):
		return CompressionGzip
	case strings.HasSuffix(base, ".zst"):
		return CompressionZstd
	}
	return CompressionNone
}

func stripQuery(loc string) string {
	if i := strings.IndexAny(loc, "?#"); i >= 0 {
		return loc[:i]
	}
	return loc
}

// Options is a small helper to fetch typed values from arbitrary JSON/YAML
// maps. It performs only minimal type coercion and returns provided defaults
// when a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64
// and YAML numbers as int; both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. Used for the CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		switch m := v.(type) {
		case map[string]any:
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		case Options:
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		case map[string]string:
			for k, s := range m {
				res[k] = s
			}
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of
// strings. Returns nil when the key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON makes a missing or null "options" object decode to a non-nil,
// empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}

// UnmarshalYAML decodes through a plain map so nested objects come out as
// map[string]any, the same shape encoding/json produces.
func (o *Options) UnmarshalYAML(n *yaml.Node) error {
	var tmp map[string]any
	if err := n.Decode(&tmp); err != nil {
		return err
	}
	if tmp == nil {
		tmp = map[string]any{}
	}
	*o = Options(tmp)
	return nil
}
