package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const saDoc = `{"type":"service_account","project_id":"datasus-prod","client_email":"etl@datasus-prod.iam.gserviceaccount.com"}`

func TestAuthenticateFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service_account.json")
	require.NoError(t, os.WriteFile(path, []byte(saDoc), 0o600))

	cred, err := ServiceAccountProvider{}.Authenticate(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "file:"+path, cred.Source)
	require.NotEmpty(t, cred.ClientOptions())
}

func TestAuthenticateFromInlineJSON(t *testing.T) {
	cred, err := ServiceAccountProvider{}.Authenticate(context.Background(), saDoc)
	require.NoError(t, err)
	require.Equal(t, "inline", cred.Source)
	require.NotEmpty(t, cred.ClientOptions())
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	_, err := ServiceAccountProvider{}.Authenticate(context.Background(), "/no/such/file and not json")
	require.Error(t, err)
}

func TestAuthenticateRejectsEmptyMaterial(t *testing.T) {
	_, err := ServiceAccountProvider{}.Authenticate(context.Background(), "")
	require.Error(t, err)
}

func TestAuthenticateRejectsNonJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0o600))

	_, err := ServiceAccountProvider{}.Authenticate(context.Background(), path)
	require.Error(t, err)
}

func TestNilCredentialHasNoOptions(t *testing.T) {
	var cred *Credential
	require.Nil(t, cred.ClientOptions())
}
