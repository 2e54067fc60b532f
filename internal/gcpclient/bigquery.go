package gcpclient

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"go.opentelemetry.io/otel/trace"

	"github.com/medsched/sihrunner/internal/credentials"
)

// BigQueryClient wraps a BigQuery client with OpenTelemetry tracing.
type BigQueryClient struct {
	Client *bigquery.Client
	Tracer trace.Tracer
}

type bigqueryClientKey struct {
	project    string
	credential string
}

// GetBigQuery returns a BigQuery client for (project, credential), creating
// and caching it on first use.
func (m *Manager) GetBigQuery(ctx context.Context, project string, cred *credentials.Credential) (*BigQueryClient, error) {
	key := bigqueryClientKey{project: project, credential: credentialKey(cred)}

	m.RLock()
	client, ok := m.bigqueryClients[key]
	m.RUnlock()
	if ok {
		return client, nil
	}

	m.Lock()
	defer m.Unlock()

	if client, ok = m.bigqueryClients[key]; ok {
		return client, nil
	}

	bqClient, err := bigquery.NewClient(ctx, project, cred.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("creating BigQuery client: %w", err)
	}

	client = &BigQueryClient{
		Client: bqClient,
		Tracer: m.tracer,
	}
	m.bigqueryClients[key] = client

	return client, nil
}
