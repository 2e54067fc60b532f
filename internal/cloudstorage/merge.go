package cloudstorage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/medsched/sihrunner/internal/dataset"
	"github.com/medsched/sihrunner/internal/duckdbx"
	"github.com/medsched/sihrunner/internal/logctx"
)

// MergeRemoteParquet downloads the named parquet objects into scratchDir,
// merges them with a select-all union through DuckDB, removes the local
// copies, and returns the combined dataset. On a mid-flow failure the
// error is returned with an empty dataset; scratch files staged before the
// failure are not guaranteed to be cleaned up.
func MergeRemoteParquet(ctx context.Context, client Client, db *duckdbx.DB, names []string, bucket, scratchDir string) (*dataset.Dataset, error) {
	ll := logctx.FromContext(ctx)
	empty := dataset.New()

	if len(names) == 0 {
		return empty, nil
	}
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return empty, fmt.Errorf("create scratch dir: %w", err)
	}

	var localFiles []string
	for _, name := range names {
		local, _, notFound, err := client.DownloadObject(ctx, scratchDir, bucket, name)
		if err != nil {
			return empty, fmt.Errorf("download %s/%s: %w", bucket, name, err)
		}
		if notFound {
			return empty, fmt.Errorf("object %s/%s not found", bucket, name)
		}
		localFiles = append(localFiles, local)
		ll.Info("downloaded staging file",
			slog.String("object", name),
			slog.String("path", local))
	}

	query := readParquetQuery(localFiles)
	ll.Debug("running merge query", slog.String("query", query))

	conn, err := db.Conn(ctx)
	if err != nil {
		return empty, fmt.Errorf("duckdb connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return empty, fmt.Errorf("merge staged parquet: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ds, err := dataset.FromSQL(rows)
	if err != nil {
		return empty, fmt.Errorf("read merged rows: %w", err)
	}

	for _, f := range localFiles {
		if err := os.Remove(f); err != nil {
			ll.Error("failed to remove scratch file",
				slog.String("path", f),
				slog.Any("error", err))
			continue
		}
		ll.Info("removed scratch file", slog.String("path", f))
	}

	ll.Info("merged staging files into dataset",
		slog.Int("files", len(localFiles)),
		slog.Int("rows", ds.Len()))
	return ds, nil
}

// readParquetQuery builds the select-all union over the staged files.
// union_by_name tolerates staging files whose column sets drifted (a late
// report layout revision adds columns).
func readParquetQuery(paths []string) string {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = "'" + strings.ReplaceAll(p, "'", "''") + "'"
	}
	return fmt.Sprintf("SELECT * FROM read_parquet([%s], union_by_name=true)",
		strings.Join(quoted, ", "))
}
