package config

import (
	"fmt"
	"strings"

	"ingest/internal/ddl"
)

// IssueSeverity tells whether an Issue blocks a run.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one finding of ValidatePipeline. Path is a dotted path into the
// config, e.g. "datasets[1].transform[0].options.types.pickup".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// lint collects issues in path order.
type lint []Issue

func (l *lint) errorf(path, format string, args ...any) {
	*l = append(*l, Issue{SeverityError, path, fmt.Sprintf(format, args...)})
}

func (l *lint) warnf(path, format string, args ...any) {
	*l = append(*l, Issue{SeverityWarning, path, fmt.Sprintf(format, args...)})
}

// ValidatePipeline checks p without touching the network or the process
// environment. p is not modified.
func ValidatePipeline(p Pipeline) []Issue {
	return ValidatePipelineEnv(p, nil)
}

// ValidatePipelineEnv is ValidatePipeline with settings that may come from
// the environment (BIGQUERY_*) looked up through get. A nil get sees an
// empty environment.
func ValidatePipelineEnv(p Pipeline, get Getenv) []Issue {
	if get == nil {
		get = func(string) string { return "" }
	}
	var l lint

	if strings.TrimSpace(p.Job) == "" {
		l.errorf("job", "job must not be empty; it is used for metrics labeling and identifying runs")
	}
	if len(p.Datasets) == 0 {
		l.errorf("datasets", "at least one dataset is required")
	}

	owner := map[string]int{}
	for i, d := range p.Datasets {
		path := fmt.Sprintf("datasets[%d]", i)
		l.dataset(path, d)

		key := strings.ToLower(strings.TrimSpace(d.Table))
		if key == "" {
			continue
		}
		if prev, dup := owner[key]; dup {
			l.warnf(path+".table", "table %q is also loaded by datasets[%d]; the later dataset replaces it (use source paths/urls to append parts)", d.Table, prev)
			continue
		}
		owner[key] = i
	}

	l.storage(p.Storage, get)
	if p.Runtime.ChunkSize < 0 {
		l.errorf("runtime.chunk_size", "chunk_size must not be negative")
	}
	switch p.Metrics.Backend {
	case "", "none", "pushgateway", "datadog":
	default:
		l.warnf("metrics.backend", "unknown metrics backend %q; metrics will be disabled", p.Metrics.Backend)
	}
	return l
}

func (l *lint) dataset(path string, d Dataset) {
	if strings.TrimSpace(d.Table) == "" {
		l.errorf(path+".table", "table must not be empty")
	}

	switch k := d.Source.Kind; k {
	case SourceKindFile, SourceKindHTTP:
		if len(d.Source.Locations()) == 0 {
			l.errorf(path+".source."+k, "%s source requires at least one location", k)
		}
	case "":
		l.errorf(path+".source.kind", "source.kind must not be empty")
	default:
		l.errorf(path+".source.kind", "unknown source kind %q (want file or http)", k)
	}
	if d.Source.HTTP.MaxRetries < 0 {
		l.errorf(path+".source.http.max_retries", "max_retries must not be negative")
	}

	csv := d.Format == FormatCSV || d.Format == ""
	if !csv && d.Format != FormatParquet {
		l.errorf(path+".format", "unknown format %q (want csv or parquet)", d.Format)
	}

	switch d.Compression {
	case CompressionAuto, CompressionNone, "":
	case CompressionGzip, CompressionZstd:
		if d.Format == FormatParquet {
			l.warnf(path+".compression", "parquet files carry their own compression; outer compression is decoded before reading")
		}
	default:
		l.errorf(path+".compression", "unknown compression %q (want auto, none, gzip or zstd)", d.Compression)
	}

	if csv {
		if c := d.Parser.Options.String("comma", ","); len([]rune(c)) != 1 {
			l.errorf(path+".parser.options.comma", "comma must be a single character, got %q", c)
		}
	}

	for i, t := range d.Transform {
		l.transform(fmt.Sprintf("%s.transform[%d]", path, i), t)
	}
}

func (l *lint) transform(path string, t Transform) {
	switch strings.TrimSpace(t.Kind) {
	case "coerce":
	case "":
		l.errorf(path+".kind", "transform kind must not be empty")
		return
	default:
		l.errorf(path+".kind", "unknown transform kind %q (want coerce)", t.Kind)
		return
	}

	types := t.Options.StringMap("types")
	if len(types) == 0 {
		l.warnf(path+".options.types", "coerce transform has no column types; it will not change anything")
	}
	for col, kind := range types {
		if _, err := ddl.ParseType(kind); err != nil {
			l.errorf(path+".options.types."+col, "%v", err)
		}
	}
}

func (l *lint) storage(s Storage, get Getenv) {
	switch kind := strings.TrimSpace(s.Kind); kind {
	case "":
		l.errorf("storage.kind", "storage.kind must not be empty")
	case "postgres":
		// An empty DSN is built from POSTGRES_* variables.
	case "sqlite", "mssql", "mysql":
		if strings.TrimSpace(s.DB.DSN) == "" {
			l.errorf("storage.db.dsn", "storage.db.dsn must not be empty for %s", kind)
		}
	case "bigquery":
		bq := ResolveBigQuery(s.BigQuery, get)
		if bq.Project == "" {
			l.errorf("storage.bigquery.project", "bigquery project is not set (config or BIGQUERY_PROJECT)")
		}
		if bq.Dataset == "" {
			l.warnf("storage.bigquery.dataset", "bigquery dataset is not set; tables must be written as dataset.table")
		}
	default:
		l.errorf("storage.kind", "unknown storage kind %q", s.Kind)
	}
}
