// Package gcpclient creates and caches GCP SDK clients. Clients are keyed
// by the credential they were built with, so repeated operations against
// the same credential reuse one client while distinct credentials stay
// isolated.
package gcpclient

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Manager handles GCP client creation and caching.
type Manager struct {
	sync.RWMutex
	storageClients  map[string]*StorageClient
	bigqueryClients map[bigqueryClientKey]*BigQueryClient
	tracer          trace.Tracer
}

// NewManager creates a new GCP client manager.
func NewManager(ctx context.Context) (*Manager, error) {
	tracer := otel.Tracer("github.com/medsched/sihrunner/internal/gcpclient")
	return &Manager{
		storageClients:  make(map[string]*StorageClient),
		bigqueryClients: make(map[bigqueryClientKey]*BigQueryClient),
		tracer:          tracer,
	}, nil
}
