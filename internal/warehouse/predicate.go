package warehouse

import (
	"fmt"
	"strings"

	"github.com/medsched/sihrunner/internal/dataset"
)

// BuildDeletePredicate builds the WHERE clause scoping which existing rows
// a load replaces: for each partition column, an IN list of the distinct
// values present in the incoming dataset, AND-ed together.
//
// This is deliberately the cross product of per-column distinct values,
// not the exact set of incoming row tuples. With partition columns (state,
// year) and incoming rows (RJ,24) and (SP,23), the predicate also matches
// a pre-existing (SP,24) row. Kept for compatibility with the established
// load semantics; an exact-tuple predicate would change which rows are
// replaced.
func BuildDeletePredicate(ds *dataset.Dataset, partitionColumns []string) (string, error) {
	if len(partitionColumns) == 0 {
		return "", fmt.Errorf("no partition columns given")
	}
	if err := ds.RequireColumns(partitionColumns); err != nil {
		return "", err
	}

	conditions := make([]string, 0, len(partitionColumns))
	for _, col := range partitionColumns {
		values := ds.DistinctValues(col)
		if len(values) == 0 {
			return "", fmt.Errorf("partition column %q has no values in the incoming dataset", col)
		}
		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = "'" + strings.ReplaceAll(v, "'", "\\'") + "'"
		}
		conditions = append(conditions, fmt.Sprintf("%s IN (%s)", col, strings.Join(quoted, ", ")))
	}
	return strings.Join(conditions, " AND "), nil
}
