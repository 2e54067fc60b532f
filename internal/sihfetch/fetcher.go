// Package sihfetch retrieves SIH-RD report files from the DATASUS archive
// and decodes them into datasets.
package sihfetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/medsched/sihrunner/internal/dataset"
	"github.com/medsched/sihrunner/internal/dbc"
	"github.com/medsched/sihrunner/internal/logctx"
)

const (
	// DefaultRemoteDir is the SIH-RD data directory on the DATASUS FTP host.
	DefaultRemoteDir = "/dissemin/publicos/SIHSUS/200801_/Dados"
	// DefaultHost is the DATASUS public archive.
	DefaultHost = "ftp.datasus.gov.br:21"

	defaultWorkers = 8
)

// DecodeFunc turns one raw report file into rows. The production decoder is
// dbc.DecodeDBC; tests substitute their own.
type DecodeFunc func(io.Reader) (*dataset.Dataset, error)

type Option func(*Fetcher)

// WithRemoteDir overrides the archive directory listed and fetched from.
func WithRemoteDir(dir string) Option {
	return func(f *Fetcher) { f.remoteDir = dir }
}

// WithDataDir overrides where FetchOne materializes raw files.
func WithDataDir(dir string) Option {
	return func(f *Fetcher) { f.dataDir = dir }
}

// WithWorkers bounds the download pool used by FetchMany.
func WithWorkers(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithDecoder substitutes the report decoder.
func WithDecoder(decode DecodeFunc) Option {
	return func(f *Fetcher) { f.decode = decode }
}

// Fetcher downloads report files over one FTP connection per operation.
type Fetcher struct {
	dialer    Dialer
	remoteDir string
	dataDir   string
	workers   int
	decode    DecodeFunc
}

func New(dialer Dialer, opts ...Option) *Fetcher {
	f := &Fetcher{
		dialer:    dialer,
		remoteDir: DefaultRemoteDir,
		dataDir:   "./data",
		workers:   defaultWorkers,
		decode:    dbc.DecodeDBC,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchOne downloads a single report file into <dataDir>/dbc/ and returns
// the local path.
func (f *Fetcher) FetchOne(ctx context.Context, uf, year, month string) (string, error) {
	t := Tuple{UF: uf, Year: year, Month: month}

	conn, err := f.dialer.Dial(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = conn.Quit() }()

	return f.retrToFile(ctx, conn, t)
}

func (f *Fetcher) retrToFile(ctx context.Context, conn Conn, t Tuple) (string, error) {
	dir := filepath.Join(f.dataDir, "dbc")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	local := filepath.Join(dir, t.FileName())

	out, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", local, err)
	}

	remote := f.remoteDir + "/" + t.FileName()
	if err := conn.Retr(remote, out); err != nil {
		_ = out.Close()
		_ = os.Remove(local)
		fetchErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("uf", t.UF)))
		return "", fmt.Errorf("retrieve %s: %w", remote, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", local, err)
	}

	if fi, err := os.Stat(local); err == nil {
		fetchBytes.Add(ctx, fi.Size(), metric.WithAttributes(attribute.String("uf", t.UF)))
	}
	fetchCount.Add(ctx, 1, metric.WithAttributes(attribute.String("uf", t.UF)))
	return local, nil
}

// FetchResult is the outcome of one tuple in a bulk fetch.
type FetchResult struct {
	Tuple Tuple
	Path  string
	Err   error
}

// FetchMany downloads every tuple through a bounded pool and reports each
// outcome. A failed tuple never aborts the batch.
func (f *Fetcher) FetchMany(ctx context.Context, tuples []Tuple) []FetchResult {
	results := make([]FetchResult, len(tuples))

	var g errgroup.Group
	g.SetLimit(f.workers)
	for i, t := range tuples {
		g.Go(func() error {
			path, err := f.FetchOne(ctx, t.UF, t.Year, t.Month)
			results[i] = FetchResult{Tuple: t, Path: path, Err: err}
			if err != nil {
				logctx.FromContext(ctx).Error("report download failed",
					slog.String("file", t.FileName()),
					slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// FetchDataset lists the archive, downloads every file matching the
// selection, decodes each, and concatenates the rows. Per-file failures are
// logged, counted in the second return value, and skipped. A selection that
// matches nothing (or fails entirely) yields an empty dataset, not an
// error.
func (f *Fetcher) FetchDataset(ctx context.Context, ufs, years, months []string) (*dataset.Dataset, int, error) {
	ll := logctx.FromContext(ctx)
	combined := dataset.New()

	conn, err := f.dialer.Dial(ctx)
	if err != nil {
		return combined, 0, fmt.Errorf("connect to archive: %w", err)
	}
	defer func() { _ = conn.Quit() }()

	listing, err := conn.List(f.remoteDir)
	if err != nil {
		return combined, 0, fmt.Errorf("list %s: %w", f.remoteDir, err)
	}

	p := Params{UF: ufs, Year: years, Month: months}
	matches := matchListing(listing, p.Tuples())
	if len(matches) == 0 {
		ll.Warn("no report files match the selection",
			slog.Any("uf", ufs), slog.Any("year", years), slog.Any("month", months))
		return combined, 0, nil
	}

	failed := 0
	for _, name := range matches {
		ll.Info("processing report file", slog.String("file", name))

		var buf bytes.Buffer
		if err := conn.Retr(f.remoteDir+"/"+name, &buf); err != nil {
			ll.Error("report download failed", slog.String("file", name), slog.Any("error", err))
			fetchErrors.Add(ctx, 1)
			failed++
			continue
		}
		ds, err := f.decode(&buf)
		if err != nil {
			ll.Error("report decode failed", slog.String("file", name), slog.Any("error", err))
			fetchErrors.Add(ctx, 1)
			failed++
			continue
		}

		fetchCount.Add(ctx, 1)
		fetchBytes.Add(ctx, int64(buf.Len()))
		combined.Concat(ds)
	}

	if combined.Empty() {
		ll.Warn("no report rows decoded", slog.Int("failed_files", failed))
	}
	return combined, failed, nil
}

// matchListing returns archive names matching any tuple, preserving listing
// order. Archive names are matched case-insensitively.
func matchListing(listing []string, tuples []Tuple) []string {
	wanted := make(map[string]struct{}, len(tuples))
	for _, t := range tuples {
		wanted[strings.ToUpper(t.FileName())] = struct{}{}
	}
	var out []string
	for _, name := range listing {
		if _, ok := wanted[strings.ToUpper(name)]; ok {
			out = append(out, name)
		}
	}
	return out
}
