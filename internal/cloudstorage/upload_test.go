package cloudstorage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newFileBackedClient(t *testing.T) (Client, string) {
	t.Helper()
	base := t.TempDir()
	client, err := NewFileClientProvider(base).NewClient(context.Background(), nil)
	require.NoError(t, err)
	return client, base
}

func TestUploadLocalFilesRemovesLocalCopies(t *testing.T) {
	client, base := newFileBackedClient(t)

	srcDir := t.TempDir()
	for _, name := range []string{"RDRJ2410.parquet", "RDSP2410.parquet"} {
		require.NoError(t, os.WriteFile(filepath.Join(srcDir, name), []byte(name), 0o644))
	}

	err := UploadLocalFiles(context.Background(), client,
		[]string{"RDRJ2410.parquet", "RDSP2410.parquet"}, srcDir, "staging")
	require.NoError(t, err)

	// Uploaded under bucket, removed from the source dir.
	for _, name := range []string{"RDRJ2410.parquet", "RDSP2410.parquet"} {
		_, err := os.Stat(filepath.Join(base, "staging", name))
		require.NoError(t, err)
		_, err = os.Stat(filepath.Join(srcDir, name))
		require.True(t, os.IsNotExist(err))
	}
}

func TestUploadLocalFilesSkipsMissingFile(t *testing.T) {
	client, base := newFileBackedClient(t)

	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "present.parquet"), []byte("x"), 0o644))

	err := UploadLocalFiles(context.Background(), client,
		[]string{"missing.parquet", "present.parquet"}, srcDir, "staging")
	require.NoError(t, err, "a missing local file is skipped, not an error")

	_, err = os.Stat(filepath.Join(base, "staging", "present.parquet"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "staging", "missing.parquet"))
	require.True(t, os.IsNotExist(err))
}

type failingClient struct {
	Client
	failKey string
}

func (c *failingClient) UploadObject(ctx context.Context, bucket, key, src string) error {
	if key == c.failKey {
		return errors.New("backend unavailable")
	}
	return c.Client.UploadObject(ctx, bucket, key, src)
}

func TestUploadLocalFilesContinuesPastUploadFailure(t *testing.T) {
	inner, base := newFileBackedClient(t)
	client := &failingClient{Client: inner, failKey: "RDRJ2410.parquet"}

	srcDir := t.TempDir()
	for _, name := range []string{"RDRJ2410.parquet", "RDSP2410.parquet"} {
		require.NoError(t, os.WriteFile(filepath.Join(srcDir, name), []byte(name), 0o644))
	}

	err := UploadLocalFiles(context.Background(), client,
		[]string{"RDRJ2410.parquet", "RDSP2410.parquet"}, srcDir, "staging")
	require.Error(t, err, "failures are aggregated")

	// The failed file stays local; the successful one was uploaded and removed.
	_, err = os.Stat(filepath.Join(srcDir, "RDRJ2410.parquet"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "staging", "RDSP2410.parquet"))
	require.NoError(t, err)
}

func TestUploadFilesKeepsLocalCopies(t *testing.T) {
	client, base := newFileBackedClient(t)

	src := filepath.Join(t.TempDir(), "RDMG2410.parquet")
	require.NoError(t, os.WriteFile(src, []byte("mg"), 0o644))

	require.NoError(t, UploadFiles(context.Background(), client, []string{src}, "staging"))

	_, err := os.Stat(filepath.Join(base, "staging", "RDMG2410.parquet"))
	require.NoError(t, err)
	_, err = os.Stat(src)
	require.NoError(t, err, "absolute-path uploads keep the local file")
}
