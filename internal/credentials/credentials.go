// Package credentials resolves the service-account credential used by all
// GCP-facing components. Resolution happens per operation; nothing here
// caches a credential across calls.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"google.golang.org/api/option"
)

// Credential is an opaque, resolved credential handle. Components hand its
// ClientOptions to the SDK client they construct.
type Credential struct {
	// Source identifies where the credential came from, for logs and for
	// client caching. Never contains secret material.
	Source string

	opts []option.ClientOption
}

// ClientOptions returns the SDK options carrying the credential.
func (c *Credential) ClientOptions() []option.ClientOption {
	if c == nil {
		return nil
	}
	return c.opts
}

// Provider resolves credential material into a usable handle. Callers that
// get an error log it and abort the dependent operation.
type Provider interface {
	Authenticate(ctx context.Context, material string) (*Credential, error)
}

// ServiceAccountProvider accepts either a filesystem path to a service
// account JSON document or the document content itself.
type ServiceAccountProvider struct{}

func (ServiceAccountProvider) Authenticate(ctx context.Context, material string) (*Credential, error) {
	if material == "" {
		return nil, fmt.Errorf("no credential material provided")
	}

	if _, err := os.Stat(material); err == nil {
		raw, err := os.ReadFile(material)
		if err != nil {
			return nil, fmt.Errorf("read service account file %s: %w", material, err)
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("service account file %s is not valid JSON", material)
		}
		return &Credential{
			Source: "file:" + material,
			opts:   []option.ClientOption{option.WithCredentialsFile(material)},
		}, nil
	}

	if !json.Valid([]byte(material)) {
		return nil, fmt.Errorf("credential material is neither an existing file nor valid JSON")
	}
	return &Credential{
		Source: "inline",
		opts:   []option.ClientOption{option.WithCredentialsJSON([]byte(material))},
	}, nil
}

// Resolve picks the configured credential path: explicit material when set,
// otherwise the secret-manager pair. Used by the orchestrator at the start
// of each dependent operation.
func Resolve(ctx context.Context, p Provider, material, secretProject, secretName string) (*Credential, error) {
	if material == "" && secretProject != "" && secretName != "" {
		fetched, err := FetchSecret(ctx, secretProject, secretName, "latest")
		if err != nil {
			return nil, err
		}
		material = fetched
	}
	return p.Authenticate(ctx, material)
}
