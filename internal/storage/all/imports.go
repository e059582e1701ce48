// Package all wires every built-in storage backend into the storage factory.
//
// Importing it for side effects makes these kinds available to storage.New:
//
//   - "postgres" (ingest/internal/storage/postgres)
//   - "sqlite"   (ingest/internal/storage/sqlite)
//   - "mssql"    (ingest/internal/storage/mssql)
//   - "mysql"    (ingest/internal/storage/mysql)
//   - "bigquery" (ingest/internal/storage/bigquery)
//
// A binary that needs only some backends can blank-import those packages
// directly instead.
package all

import (
	_ "ingest/internal/storage/bigquery"
	_ "ingest/internal/storage/mssql"
	_ "ingest/internal/storage/mysql"
	_ "ingest/internal/storage/postgres"
	_ "ingest/internal/storage/sqlite"
)
