package dataset

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

// parquetSchema builds an all-optional-string schema over the dataset's
// columns. The staging files carry text only; typing happens, if ever, on
// the warehouse side.
func (ds *Dataset) parquetSchema() *parquet.Schema {
	nodes := make(map[string]parquet.Node, len(ds.Columns))
	for _, c := range ds.Columns {
		nodes[c] = parquet.Optional(parquet.String())
	}
	return parquet.NewSchema("sihrunner", parquet.Group(nodes))
}

// WriteParquet writes the dataset to a local parquet file. Missing cells
// become nulls rather than empty strings so a later merge can tell the two
// apart.
func (ds *Dataset) WriteParquet(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}

	pw := parquet.NewGenericWriter[map[string]any](f, ds.parquetSchema())
	buf := make([]map[string]any, 0, 1)
	for _, row := range ds.Rows {
		rec := make(map[string]any, len(row))
		for k, v := range row {
			rec[k] = v
		}
		buf = append(buf[:0], rec)
		if _, err := pw.Write(buf); err != nil {
			_ = f.Close()
			return fmt.Errorf("write parquet row: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close parquet file: %w", err)
	}
	return nil
}

// ReadParquet loads a local parquet file written by WriteParquet (or any
// parquet file whose leaves are string-compatible) into a dataset.
func ReadParquet(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}
	defer func() { _ = f.Close() }()

	pr := parquet.NewGenericReader[map[string]any](f)
	defer func() { _ = pr.Close() }()

	var columns []string
	for _, field := range pr.Schema().Fields() {
		columns = append(columns, field.Name())
	}
	ds := New(columns...)

	rows := make([]map[string]any, 64)
	for {
		n, err := pr.Read(rows)
		for i := 0; i < n; i++ {
			rec := make(map[string]string, len(rows[i]))
			for k, v := range rows[i] {
				if v == nil {
					continue
				}
				rec[k] = fmt.Sprintf("%v", v)
			}
			ds.Append(rec)
			rows[i] = nil
		}
		if err != nil {
			break
		}
	}
	return ds, nil
}

// FromSQL drains a sql.Rows result set into a dataset, rendering every
// scanned value as text. NULLs become missing cells.
func FromSQL(rows *sql.Rows) (*Dataset, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("result columns: %w", err)
	}
	ds := New(columns...)

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec := make(map[string]string, len(columns))
		for i, c := range columns {
			switch v := values[i].(type) {
			case nil:
				// missing
			case []byte:
				rec[c] = string(v)
			case string:
				rec[c] = v
			default:
				rec[c] = fmt.Sprintf("%v", v)
			}
		}
		ds.Append(rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return ds, nil
}
