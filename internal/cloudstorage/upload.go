package cloudstorage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/medsched/sihrunner/internal/logctx"
)

// UploadLocalFiles uploads files from sourceDir into the bucket, object
// name equal to the file name. A file missing locally is logged and
// skipped; after a successful upload the local copy is removed best-effort
// (a failed removal never rolls back the upload). Upload failures are
// logged, skipped, and aggregated into the returned error.
func UploadLocalFiles(ctx context.Context, client Client, filenames []string, sourceDir, bucket string) error {
	ll := logctx.FromContext(ctx)

	var errs *multierror.Error
	for _, filename := range filenames {
		local := filepath.Join(sourceDir, filename)

		if _, err := os.Stat(local); err != nil {
			ll.Error("file does not exist, skipping", slog.String("path", local))
			continue
		}

		if err := client.UploadObject(ctx, bucket, filename, local); err != nil {
			ll.Error("upload failed",
				slog.String("file", filename),
				slog.String("bucket", bucket),
				slog.Any("error", err))
			errs = multierror.Append(errs, err)
			continue
		}
		ll.Info("uploaded file", slog.String("file", filename), slog.String("bucket", bucket))

		if err := os.Remove(local); err != nil {
			ll.Error("failed to remove local file",
				slog.String("path", local),
				slog.Any("error", err))
		} else {
			ll.Info("removed local file", slog.String("path", local))
		}
	}
	return errs.ErrorOrNil()
}

// UploadFiles uploads files given by absolute path, object name equal to
// the basename. Local copies are kept.
func UploadFiles(ctx context.Context, client Client, paths []string, bucket string) error {
	ll := logctx.FromContext(ctx)

	var errs *multierror.Error
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			ll.Error("file does not exist, skipping", slog.String("path", path))
			continue
		}

		name := filepath.Base(path)
		if err := client.UploadObject(ctx, bucket, name, path); err != nil {
			ll.Error("upload failed",
				slog.String("file", name),
				slog.String("bucket", bucket),
				slog.Any("error", err))
			errs = multierror.Append(errs, err)
			continue
		}
		ll.Info("uploaded file", slog.String("file", name), slog.String("bucket", bucket))
	}
	return errs.ErrorOrNil()
}
