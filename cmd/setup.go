package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medsched/sihrunner/config"
	"github.com/medsched/sihrunner/internal/cloudstorage"
	"github.com/medsched/sihrunner/internal/credentials"
	"github.com/medsched/sihrunner/internal/duckdbx"
	"github.com/medsched/sihrunner/internal/gcpclient"
	"github.com/medsched/sihrunner/internal/logctx"
	"github.com/medsched/sihrunner/internal/orchestrate"
	"github.com/medsched/sihrunner/internal/sihfetch"
	"github.com/medsched/sihrunner/internal/warehouse"
)

// pipeline holds the long-lived pieces shared by every load run in one
// process. GCP clients for the warehouse are built per request, since the
// destination project arrives with the request.
type pipeline struct {
	cfg     *config.Config
	mgr     *gcpclient.Manager
	fetcher *sihfetch.Fetcher
	db      *duckdbx.DB
}

func newPipeline(ctx context.Context, cfg *config.Config) (*pipeline, error) {
	mgr, err := gcpclient.NewManager(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCP client manager: %w", err)
	}

	fetcher := sihfetch.New(
		&sihfetch.FTPDialer{Host: cfg.FTP.Host},
		sihfetch.WithRemoteDir(cfg.FTP.RemoteDir),
		sihfetch.WithDataDir(cfg.FTP.DataDir),
		sihfetch.WithWorkers(cfg.FTP.Workers),
	)

	db, err := duckdbx.Open("", duckdbx.WithMemoryLimitMB(cfg.Storage.DuckDBMemoryLimitMB))
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	return &pipeline{cfg: cfg, mgr: mgr, fetcher: fetcher, db: db}, nil
}

func (p *pipeline) Close() error {
	return p.db.Close()
}

// runnerFor builds an orchestrate.Runner bound to the request's project.
// Credential resolution happens here, once per run; a failure aborts the
// run before anything is fetched.
func (p *pipeline) runnerFor(ctx context.Context, req orchestrate.Request) (*orchestrate.Runner, error) {
	ll := logctx.FromContext(ctx)

	if req.GCPProject == "" {
		return nil, fmt.Errorf("gcp_project is required")
	}

	cred, err := credentials.Resolve(ctx, credentials.ServiceAccountProvider{},
		p.cfg.Credentials.SAJSON, p.cfg.Credentials.SecretProject, p.cfg.Credentials.SecretName)
	if err != nil {
		ll.Error("credential resolution failed", slog.Any("error", err))
		return nil, err
	}

	loader, err := warehouse.NewLoader(ctx, p.mgr, req.GCPProject, cred)
	if err != nil {
		return nil, err
	}

	storage, err := (&cloudstorage.GCSProvider{Manager: p.mgr}).NewClient(ctx, cred)
	if err != nil {
		return nil, err
	}

	return &orchestrate.Runner{
		Fetcher:    p.fetcher,
		Loader:     loader,
		Storage:    storage,
		DB:         p.db,
		ScratchDir: p.cfg.Storage.ScratchDir,
		EnsureBucket: func(ctx context.Context, bucket string) error {
			sc, err := p.mgr.GetStorage(ctx, cred)
			if err != nil {
				return err
			}
			err = cloudstorage.CreateBucket(ctx, sc, bucket, req.GCPProject,
				p.cfg.Storage.BucketLocation, p.cfg.Storage.BucketStorageClass)
			if err != nil {
				// The bucket usually exists already; creation is retried on
				// every staged run.
				logctx.FromContext(ctx).Warn("bucket creation failed, continuing",
					slog.String("bucket", bucket), slog.Any("error", err))
			}
			return nil
		},
	}, nil
}

// Run executes one load request end to end, choosing the staged path when
// a staging bucket is named.
func (p *pipeline) Run(ctx context.Context, req orchestrate.Request) (orchestrate.Result, error) {
	runner, err := p.runnerFor(ctx, req)
	if err != nil {
		return orchestrate.Result{}, err
	}
	if req.Bucket != "" {
		return runner.RunStaged(ctx, req)
	}
	return runner.Run(ctx, req)
}

// RunStaged forces the staged path regardless of how the runner would
// route the request.
func (p *pipeline) RunStaged(ctx context.Context, req orchestrate.Request) (orchestrate.Result, error) {
	runner, err := p.runnerFor(ctx, req)
	if err != nil {
		return orchestrate.Result{}, err
	}
	return runner.RunStaged(ctx, req)
}
