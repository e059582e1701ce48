package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
)

// Connection defaults used when the environment does not set them.
const (
	DefaultPostgresUser     = "root"
	DefaultPostgresPassword = "root"
	DefaultPostgresHost     = "postgres"
	DefaultPostgresPort     = "5432"
	DefaultPostgresDB       = "ny_taxi"
)

// Getenv looks up an environment variable. Tests substitute a map.
type Getenv func(key string) string

func envOr(get Getenv, key, def string) string {
	if v := strings.TrimSpace(get(key)); v != "" {
		return v
	}
	return def
}

// PostgresDSNFromEnv builds a postgres URL from POSTGRES_USER,
// POSTGRES_PASSWORD, POSTGRES_HOST, POSTGRES_PORT and POSTGRES_DB.
func PostgresDSNFromEnv(get Getenv) string {
	u := url.URL{
		Scheme: "postgres",
		User: url.UserPassword(
			envOr(get, "POSTGRES_USER", DefaultPostgresUser),
			envOr(get, "POSTGRES_PASSWORD", DefaultPostgresPassword),
		),
		Host: net.JoinHostPort(
			envOr(get, "POSTGRES_HOST", DefaultPostgresHost),
			envOr(get, "POSTGRES_PORT", DefaultPostgresPort),
		),
		Path: "/" + envOr(get, "POSTGRES_DB", DefaultPostgresDB),
	}
	return u.String()
}

// ResolveDSN returns the DSN for a SQL storage kind. An explicit DSN has
// ${VAR} references expanded; an empty postgres DSN is built from the
// environment. Other kinds require an explicit DSN.
func ResolveDSN(s Storage, get Getenv) (string, error) {
	if get == nil {
		get = os.Getenv
	}
	if dsn := strings.TrimSpace(s.DB.DSN); dsn != "" {
		return os.Expand(dsn, get), nil
	}
	switch s.Kind {
	case "postgres":
		return PostgresDSNFromEnv(get), nil
	case "bigquery":
		return "", nil
	}
	return "", fmt.Errorf("storage.db.dsn is required for %s", s.Kind)
}

// ResolveBigQuery fills empty BigQuery fields from BIGQUERY_PROJECT (then
// GOOGLE_CLOUD_PROJECT), BIGQUERY_DATASET, BIGQUERY_LOCATION,
// BIGQUERY_CREDENTIALS_FILE and BIGQUERY_EMULATOR_HOST.
func ResolveBigQuery(c BigQueryConfig, get Getenv) BigQueryConfig {
	if get == nil {
		get = os.Getenv
	}
	if c.Project == "" {
		c.Project = envOr(get, "BIGQUERY_PROJECT", strings.TrimSpace(get("GOOGLE_CLOUD_PROJECT")))
	}
	if c.Dataset == "" {
		c.Dataset = strings.TrimSpace(get("BIGQUERY_DATASET"))
	}
	if c.Location == "" {
		c.Location = strings.TrimSpace(get("BIGQUERY_LOCATION"))
	}
	if c.CredentialsFile == "" {
		c.CredentialsFile = strings.TrimSpace(get("BIGQUERY_CREDENTIALS_FILE"))
	}
	if c.Endpoint == "" {
		if host := strings.TrimSpace(get("BIGQUERY_EMULATOR_HOST")); host != "" {
			c.Endpoint = "http://" + host
		}
	}
	return c
}
