// Package cloudstorage is the object-store gateway: staging parquet files
// move through here on their way between the fetcher and the warehouse.
package cloudstorage

import (
	"context"
	"fmt"

	"github.com/medsched/sihrunner/internal/credentials"
	"github.com/medsched/sihrunner/internal/gcpclient"
)

// Client provides the object operations the staging path needs.
type Client interface {
	// DownloadObject downloads an object to a local file under tmpdir.
	// Returns the temp filename, size, whether the object was not found,
	// and error.
	DownloadObject(ctx context.Context, tmpdir, bucket, key string) (filename string, size int64, notFound bool, err error)

	// UploadObject uploads a local file to the bucket under key.
	UploadObject(ctx context.Context, bucket, key, sourceFilename string) error

	// DeleteObject deletes an object from the bucket.
	DeleteObject(ctx context.Context, bucket, key string) error
}

// ClientProvider creates storage clients. The file-backed provider used in
// tests implements it alongside the GCS one.
type ClientProvider interface {
	NewClient(ctx context.Context, cred *credentials.Credential) (Client, error)
}

// GCSProvider creates clients backed by Google Cloud Storage.
type GCSProvider struct {
	Manager *gcpclient.Manager
}

var _ ClientProvider = (*GCSProvider)(nil)

func (p *GCSProvider) NewClient(ctx context.Context, cred *credentials.Credential) (Client, error) {
	storageClient, err := p.Manager.GetStorage(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &gcsClient{storageClient: storageClient}, nil
}
