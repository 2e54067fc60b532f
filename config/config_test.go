package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "ftp.datasus.gov.br:21", cfg.FTP.Host)
	require.Equal(t, "/dissemin/publicos/SIHSUS/200801_/Dados", cfg.FTP.RemoteDir)
	require.Equal(t, 8, cfg.FTP.Workers)
	require.Equal(t, "/tmp/parquet_files", cfg.Storage.ScratchDir)
	require.Equal(t, "US", cfg.Storage.BucketLocation)
	require.Equal(t, "STANDARD", cfg.Storage.BucketStorageClass)
	require.Equal(t, "append", cfg.Warehouse.IfExists)
	require.Equal(t, ":8080", cfg.Serve.Addr)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SIHRUNNER_FTP_HOST", "ftp.example.test:2121")
	t.Setenv("SIHRUNNER_FTP_WORKERS", "2")
	t.Setenv("SIHRUNNER_WAREHOUSE_IF_EXISTS", "replace")
	t.Setenv("SIHRUNNER_CREDENTIALS_SECRET_PROJECT", "proj")
	t.Setenv("SIHRUNNER_CREDENTIALS_SECRET_NAME", "sa-key")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "ftp.example.test:2121", cfg.FTP.Host)
	require.Equal(t, 2, cfg.FTP.Workers)
	require.Equal(t, "replace", cfg.Warehouse.IfExists)
	require.Equal(t, "proj", cfg.Credentials.SecretProject)
	require.Equal(t, "sa-key", cfg.Credentials.SecretName)
}

func TestLoadShortCredentialAliases(t *testing.T) {
	t.Setenv("SIHRUNNER_SA_JSON", "/etc/sihrunner/sa.json")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/etc/sihrunner/sa.json", cfg.Credentials.SAJSON)
}
