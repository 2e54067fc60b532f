package cloudstorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medsched/sihrunner/internal/dataset"
	"github.com/medsched/sihrunner/internal/duckdbx"
)

func stageParquet(t *testing.T, client Client, bucket, name string, ds *dataset.Dataset) {
	t.Helper()
	local := filepath.Join(t.TempDir(), name)
	require.NoError(t, ds.WriteParquet(local))
	require.NoError(t, client.UploadObject(context.Background(), bucket, name, local))
}

func TestMergeRemoteParquetRoundTrip(t *testing.T) {
	client, _ := newFileBackedClient(t)
	db, err := duckdbx.Open("")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rj := dataset.New("UF_ZI", "ANO_CMPT", "VAL_TOT")
	rj.Append(map[string]string{"UF_ZI": "33", "ANO_CMPT": "24", "VAL_TOT": "10.00"})
	rj.Append(map[string]string{"UF_ZI": "33", "ANO_CMPT": "24", "VAL_TOT": "20.50"})
	sp := dataset.New("UF_ZI", "ANO_CMPT", "VAL_TOT")
	sp.Append(map[string]string{"UF_ZI": "35", "ANO_CMPT": "24", "VAL_TOT": "7.25"})

	stageParquet(t, client, "staging", "RDRJ2410.parquet", rj)
	stageParquet(t, client, "staging", "RDSP2410.parquet", sp)

	scratch := t.TempDir()
	got, err := MergeRemoteParquet(context.Background(), client, db,
		[]string{"RDRJ2410.parquet", "RDSP2410.parquet"}, "staging", scratch)
	require.NoError(t, err)
	require.Equal(t, 3, got.Len())
	require.ElementsMatch(t, []string{"33", "35"}, got.DistinctValues("UF_ZI"))

	var values []string
	for _, row := range got.Rows {
		values = append(values, row["VAL_TOT"])
	}
	require.ElementsMatch(t, []string{"10.00", "20.50", "7.25"}, values)

	// Scratch copies are removed after the merge.
	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestMergeRemoteParquetMissingObject(t *testing.T) {
	client, _ := newFileBackedClient(t)
	db, err := duckdbx.Open("")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	got, err := MergeRemoteParquet(context.Background(), client, db,
		[]string{"RDAC1901.parquet"}, "staging", t.TempDir())
	require.Error(t, err)
	require.True(t, got.Empty(), "error path returns an empty dataset")
}

func TestMergeRemoteParquetNoNames(t *testing.T) {
	client, _ := newFileBackedClient(t)
	got, err := MergeRemoteParquet(context.Background(), client, nil, nil, "staging", t.TempDir())
	require.NoError(t, err)
	require.True(t, got.Empty())
}

func TestReadParquetQueryQuotesPaths(t *testing.T) {
	q := readParquetQuery([]string{"/tmp/a.parquet", "/tmp/it's.parquet"})
	require.Equal(t,
		"SELECT * FROM read_parquet(['/tmp/a.parquet', '/tmp/it''s.parquet'], union_by_name=true)", q)
}
