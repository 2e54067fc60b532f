package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/medsched/sihrunner/internal/cloudstorage"
	"github.com/medsched/sihrunner/internal/dataset"
	"github.com/medsched/sihrunner/internal/duckdbx"
	"github.com/medsched/sihrunner/internal/logctx"
	"github.com/medsched/sihrunner/internal/sihfetch"
	"github.com/medsched/sihrunner/internal/warehouse"
)

type datasetFetcher interface {
	FetchDataset(ctx context.Context, ufs, years, months []string) (*dataset.Dataset, int, error)
}

type datasetLoader interface {
	LoadDataset(ctx context.Context, ds *dataset.Dataset, tableID string, partitionColumns []string, ifExists warehouse.IfExists) error
}

// Runner executes load requests. Fetcher and Loader are required; Storage,
// DB, and EnsureBucket are only needed for the staged path.
type Runner struct {
	Fetcher datasetFetcher
	Loader  datasetLoader

	Storage      cloudstorage.Client
	DB           *duckdbx.DB
	EnsureBucket func(ctx context.Context, bucket string) error
	ScratchDir   string

	// Now is the clock used for selection defaults and the load timestamp.
	// Nil means time.Now.
	Now func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run fetches the selected reports straight into memory and loads them.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	ll := logctx.FromContext(ctx)

	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	p := sihfetch.Params{UF: req.UF, Year: req.Year, Month: req.Month}.Normalize(r.now())
	ll.Info("starting report load",
		slog.Any("uf", p.UF), slog.Any("year", p.Year), slog.Any("month", p.Month),
		slog.String("tableID", req.TableID))

	ds, failed, err := r.Fetcher.FetchDataset(ctx, p.UF, p.Year, p.Month)
	if err != nil {
		return Result{FailedFiles: failed}, fmt.Errorf("fetch reports: %w", err)
	}
	if ds.Empty() {
		ll.Warn("nothing to load", slog.Int("failed_files", failed))
		return Result{FailedFiles: failed}, nil
	}

	return r.load(ctx, ds, req, Result{FailedFiles: failed})
}

// RunStaged fetches each selection tuple, stages it as a parquet object in
// the bucket, merges the staged objects back through duckdb, and loads the
// merged dataset. Tuples that fail to fetch are skipped; staging or merge
// failures abort the load.
func (r *Runner) RunStaged(ctx context.Context, req Request) (Result, error) {
	ll := logctx.FromContext(ctx)

	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	if req.Bucket == "" {
		return Result{}, fmt.Errorf("bucket_name_parquet is required for a staged load")
	}
	if r.Storage == nil || r.DB == nil {
		return Result{}, fmt.Errorf("staged load needs a storage client and a duckdb handle")
	}

	p := sihfetch.Params{UF: req.UF, Year: req.Year, Month: req.Month}.Normalize(r.now())

	if r.EnsureBucket != nil {
		if err := r.EnsureBucket(ctx, req.Bucket); err != nil {
			return Result{}, fmt.Errorf("ensure bucket %s: %w", req.Bucket, err)
		}
	}

	scratch := r.scratchDir()
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return Result{}, fmt.Errorf("create scratch dir %s: %w", scratch, err)
	}

	var (
		staged   []string
		failed   int
		stageErr *multierror.Error
	)
	for _, t := range p.Tuples() {
		ds, tupleFailed, err := r.Fetcher.FetchDataset(ctx, []string{t.UF}, []string{t.Year}, []string{t.Month})
		failed += tupleFailed
		if err != nil {
			ll.Error("tuple fetch failed", slog.String("file", t.FileName()), slog.Any("error", err))
			failed++
			continue
		}
		if ds.Empty() {
			continue
		}

		name := strings.TrimSuffix(t.FileName(), ".dbc") + ".parquet"
		if err := ds.WriteParquet(filepath.Join(scratch, name)); err != nil {
			stageErr = multierror.Append(stageErr, fmt.Errorf("stage %s: %w", name, err))
			continue
		}
		staged = append(staged, name)
	}
	if err := stageErr.ErrorOrNil(); err != nil {
		return Result{FailedFiles: failed, StagedFiles: len(staged)}, err
	}
	if len(staged) == 0 {
		ll.Warn("no staged files, nothing to load", slog.Int("failed_files", failed))
		return Result{FailedFiles: failed}, nil
	}

	if err := cloudstorage.UploadLocalFiles(ctx, r.Storage, staged, scratch, req.Bucket); err != nil {
		return Result{FailedFiles: failed, StagedFiles: len(staged)},
			fmt.Errorf("upload staged parquet: %w", err)
	}

	merged, err := cloudstorage.MergeRemoteParquet(ctx, r.Storage, r.DB, staged, req.Bucket, scratch)
	if err != nil {
		return Result{FailedFiles: failed, StagedFiles: len(staged)},
			fmt.Errorf("merge staged parquet: %w", err)
	}

	res, err := r.load(ctx, merged, req, Result{FailedFiles: failed, StagedFiles: len(staged)})
	return res, err
}

func (r *Runner) load(ctx context.Context, ds *dataset.Dataset, req Request, res Result) (Result, error) {
	ifExists, err := warehouse.ParseIfExists(req.IfExists)
	if err != nil {
		return res, err
	}

	ds.StampLoadTime(dataset.LoadTimeColumn, r.now())

	if err := r.Loader.LoadDataset(ctx, ds, req.TableID, req.PartitionColumns, ifExists); err != nil {
		return res, err
	}
	res.Rows = ds.Len()
	res.Columns = len(ds.Columns)
	return res, nil
}

func (r *Runner) scratchDir() string {
	if r.ScratchDir != "" {
		return r.ScratchDir
	}
	return "/tmp/parquet_files"
}
