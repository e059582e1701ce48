// Package parquet decodes Parquet files into batch rows.
//
// Parquet has no cheap row-range access through the Arrow reader, so the
// whole file is materialized once and callers slice the result. Memory use
// therefore scales with the file size.
package parquet

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	pq "github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"ingest/internal/ddl"
)

// ReadAll decodes every row of the Parquet file behind r. Values are
// int64, float64, bool, string, time.Time or nil; column types follow the
// Arrow schema, except that a uint64 column holding a value above
// math.MaxInt64 is read as text.
func ReadAll(ctx context.Context, r pq.ReaderAtSeeker) ([]ddl.Column, [][]any, error) {
	pf, err := file.NewParquetReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parquet: open: %w", err)
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, nil, fmt.Errorf("parquet: arrow reader: %w", err)
	}

	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("parquet: read table: %w", err)
	}
	defer tbl.Release()

	schema := tbl.Schema()
	cols := make([]ddl.Column, schema.NumFields())
	rows := make([][]any, tbl.NumRows())
	for i := range rows {
		rows[i] = make([]any, len(cols))
	}

	// Fill column-wise; chunk boundaries differ between columns.
	for c := range cols {
		f := schema.Field(c)
		cols[c] = ddl.Column{Name: f.Name, Type: logicalType(f.Type)}

		row := 0
		for _, chunk := range tbl.Column(c).Data().Chunks() {
			for i := 0; i < chunk.Len(); i++ {
				rows[row][c] = value(chunk, i)
				row++
			}
		}
		if row != len(rows) {
			return nil, nil, fmt.Errorf("parquet: column %s has %d values, want %d", f.Name, row, len(rows))
		}
		if f.Type.ID() == arrow.UINT64 && widenUint64(rows, c) {
			cols[c].Type = ddl.Text
		}
	}
	return cols, rows, nil
}

// widenUint64 turns column c to decimal text when any value exceeded
// math.MaxInt64, so the column keeps a single Go type. It reports whether it
// did.
func widenUint64(rows [][]any, c int) bool {
	overflow := false
	for _, r := range rows {
		if _, ok := r[c].(string); ok {
			overflow = true
			break
		}
	}
	if !overflow {
		return false
	}
	for _, r := range rows {
		if v, ok := r[c].(int64); ok {
			r[c] = strconv.FormatInt(v, 10)
		}
	}
	return true
}

func logicalType(dt arrow.DataType) ddl.Type {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return ddl.Int
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return ddl.Float
	case arrow.BOOL:
		return ddl.Bool
	case arrow.TIMESTAMP:
		return ddl.Timestamp
	case arrow.DATE32, arrow.DATE64:
		return ddl.Date
	}
	return ddl.Text
}

func value(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.Int64:
		return a.Value(i)
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Uint64:
		v := a.Value(i)
		if v > math.MaxInt64 {
			return strconv.FormatUint(v, 10)
		}
		return int64(v)
	case *array.Float64:
		return a.Value(i)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float16:
		return float64(a.Value(i).Float32())
	case *array.Boolean:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit)
	case *array.Date32:
		return a.Value(i).ToTime()
	case *array.Date64:
		return a.Value(i).ToTime()
	}
	return arr.ValueStr(i)
}
