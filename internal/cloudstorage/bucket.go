package cloudstorage

import (
	"context"
	"log/slog"

	"cloud.google.com/go/storage"

	"github.com/medsched/sihrunner/internal/gcpclient"
	"github.com/medsched/sihrunner/internal/logctx"
)

// CreateBucket creates a bucket in the project. It is not idempotent:
// creating a bucket that already exists surfaces the store's error
// unmodified so the caller can decide whether that matters.
func CreateBucket(ctx context.Context, sc *gcpclient.StorageClient, bucket, project, location, storageClass string) error {
	if location == "" {
		location = "US"
	}
	if storageClass == "" {
		storageClass = "STANDARD"
	}

	attrs := &storage.BucketAttrs{
		Location:     location,
		StorageClass: storageClass,
	}
	if err := sc.Client.Bucket(bucket).Create(ctx, project, attrs); err != nil {
		return err
	}

	logctx.FromContext(ctx).Info("bucket created",
		slog.String("bucket", bucket),
		slog.String("location", location),
		slog.String("storage_class", storageClass))
	return nil
}
