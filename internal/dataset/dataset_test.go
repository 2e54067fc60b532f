package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppendAndConcat(t *testing.T) {
	ds := New("UF_ZI", "ANO_CMPT")
	ds.Append(map[string]string{"UF_ZI": "33", "ANO_CMPT": "24"})

	other := New("UF_ZI", "ANO_CMPT", "MES_CMPT")
	other.Append(map[string]string{"UF_ZI": "35", "ANO_CMPT": "24", "MES_CMPT": "10"})

	ds.Concat(other)
	require.Equal(t, 2, ds.Len())
	require.Equal(t, []string{"UF_ZI", "ANO_CMPT", "MES_CMPT"}, ds.Columns)
	require.Equal(t, "", ds.Value(0, "MES_CMPT"))
	require.Equal(t, "10", ds.Value(1, "MES_CMPT"))
}

func TestConcatNil(t *testing.T) {
	ds := New("A")
	ds.Concat(nil)
	require.True(t, ds.Empty())
}

func TestDistinctValues(t *testing.T) {
	ds := New("UF_ZI")
	for _, v := range []string{"33", "35", "33", "31"} {
		ds.Append(map[string]string{"UF_ZI": v})
	}
	require.Equal(t, []string{"33", "35", "31"}, ds.DistinctValues("UF_ZI"))
	require.Nil(t, ds.DistinctValues("NOPE"))
}

func TestStampLoadTime(t *testing.T) {
	ds := New("A")
	ds.Append(map[string]string{"A": "1"})
	ds.Append(map[string]string{"A": "2"})

	at := time.Date(2024, 11, 5, 13, 45, 2, 0, time.UTC)
	ds.StampLoadTime(LoadTimeColumn, at)

	require.Contains(t, ds.Columns, LoadTimeColumn)
	for i := range ds.Rows {
		require.Equal(t, "2024-11-05 13:45:02", ds.Value(i, LoadTimeColumn))
	}
}

func TestRequireColumns(t *testing.T) {
	ds := New("A", "B")
	require.NoError(t, ds.RequireColumns([]string{"A", "B"}))
	require.Error(t, ds.RequireColumns([]string{"A", "C"}))
}

func TestEmptyDatasetIsValid(t *testing.T) {
	var ds *Dataset
	require.True(t, ds.Empty())
	require.Equal(t, 0, ds.Len())
}
