package gcpclient

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel/trace"

	"github.com/medsched/sihrunner/internal/credentials"
)

// StorageClient wraps a GCP storage client with OpenTelemetry tracing.
type StorageClient struct {
	Client *storage.Client
	Tracer trace.Tracer
}

// GetStorage returns a storage client for the credential, creating and
// caching it on first use. A nil credential uses Application Default
// Credentials.
func (m *Manager) GetStorage(ctx context.Context, cred *credentials.Credential) (*StorageClient, error) {
	key := credentialKey(cred)

	m.RLock()
	client, ok := m.storageClients[key]
	m.RUnlock()
	if ok {
		return client, nil
	}

	m.Lock()
	defer m.Unlock()

	// Double-check after acquiring write lock
	if client, ok = m.storageClients[key]; ok {
		return client, nil
	}

	storageClient, err := storage.NewClient(ctx, cred.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("creating GCP storage client: %w", err)
	}

	client = &StorageClient{
		Client: storageClient,
		Tracer: m.tracer,
	}
	m.storageClients[key] = client

	return client, nil
}

func credentialKey(cred *credentials.Credential) string {
	if cred == nil {
		return "adc"
	}
	return cred.Source
}
