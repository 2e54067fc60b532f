// Package dataset holds the in-memory tabular form that report rows travel
// in between the fetcher, the object-store staging path, and the warehouse
// loader. Every value is text; source typing is erased at decode time on
// purpose, since the destination table is all-string.
package dataset

import (
	"fmt"
	"time"
)

// LoadTimeColumn is stamped onto every dataset immediately before a
// warehouse load.
const LoadTimeColumn = "insert_loading"

// LoadTimeFormat is the wall-clock format written into LoadTimeColumn.
const LoadTimeFormat = "2006-01-02 15:04:05"

// Dataset is an ordered set of string columns with string-valued rows.
// A missing key in a row reads as the empty string.
type Dataset struct {
	Columns []string
	Rows    []map[string]string

	colset map[string]struct{}
}

// New returns an empty dataset with the given column order.
func New(columns ...string) *Dataset {
	ds := &Dataset{}
	for _, c := range columns {
		ds.addColumn(c)
	}
	return ds
}

func (ds *Dataset) addColumn(name string) {
	if ds.colset == nil {
		ds.colset = make(map[string]struct{})
	}
	if _, ok := ds.colset[name]; ok {
		return
	}
	ds.colset[name] = struct{}{}
	ds.Columns = append(ds.Columns, name)
}

// Append adds one row. Columns not seen before are appended to the column
// order in the order of first appearance.
func (ds *Dataset) Append(row map[string]string) {
	for k := range row {
		if _, ok := ds.colset[k]; !ok {
			// Deterministic order matters only for columns declared up
			// front; late arrivals keep map iteration order per row.
			ds.addColumn(k)
		}
	}
	ds.Rows = append(ds.Rows, row)
}

// Len returns the number of rows.
func (ds *Dataset) Len() int {
	if ds == nil {
		return 0
	}
	return len(ds.Rows)
}

// Empty reports whether the dataset has no rows.
func (ds *Dataset) Empty() bool { return ds.Len() == 0 }

// Value returns the cell at (row, column), or "" when the column is absent.
func (ds *Dataset) Value(row int, column string) string {
	return ds.Rows[row][column]
}

// Concat appends all rows of other, merging its column order into ours.
func (ds *Dataset) Concat(other *Dataset) {
	if other == nil {
		return
	}
	for _, c := range other.Columns {
		ds.addColumn(c)
	}
	ds.Rows = append(ds.Rows, other.Rows...)
}

// DistinctValues returns the distinct non-missing values of a column in
// order of first appearance.
func (ds *Dataset) DistinctValues(column string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, row := range ds.Rows {
		v, ok := row[column]
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// StampLoadTime sets column to the formatted timestamp on every row,
// adding the column when absent.
func (ds *Dataset) StampLoadTime(column string, t time.Time) {
	ds.addColumn(column)
	stamp := t.Format(LoadTimeFormat)
	for _, row := range ds.Rows {
		row[column] = stamp
	}
}

// HasColumn reports whether the column is part of the dataset.
func (ds *Dataset) HasColumn(name string) bool {
	_, ok := ds.colset[name]
	return ok
}

// RequireColumns returns an error naming the first listed column that is
// not present. Used by the loader to validate partition columns up front.
func (ds *Dataset) RequireColumns(names []string) error {
	for _, n := range names {
		if !ds.HasColumn(n) {
			return fmt.Errorf("dataset has no column %q", n)
		}
	}
	return nil
}
