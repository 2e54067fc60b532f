package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/medsched/sihrunner/internal/credentials"
	"github.com/medsched/sihrunner/internal/dataset"
	"github.com/medsched/sihrunner/internal/gcpclient"
	"github.com/medsched/sihrunner/internal/logctx"
)

// warehouseAPI is the narrow surface the loader needs from BigQuery.
// Tests substitute a fake; production uses bigqueryAPI.
type warehouseAPI interface {
	TableExists(ctx context.Context, datasetID, table string) (bool, error)
	CreateTable(ctx context.Context, datasetID, table string, columns []string) error
	DeleteTable(ctx context.Context, datasetID, table string) error
	ExecDML(ctx context.Context, query string) error
	Insert(ctx context.Context, datasetID, table string, ds *dataset.Dataset) error
}

// Loader writes datasets into BigQuery tables with partition-scoped
// delete-then-append semantics.
type Loader struct {
	api     warehouseAPI
	project string
}

// NewLoader builds a Loader for the given project, reusing clients from
// the manager.
func NewLoader(ctx context.Context, mgr *gcpclient.Manager, project string, cred *credentials.Credential) (*Loader, error) {
	bq, err := mgr.GetBigQuery(ctx, project, cred)
	if err != nil {
		return nil, fmt.Errorf("get bigquery client: %w", err)
	}
	return &Loader{
		api:     &bigqueryAPI{client: bq.Client, tracer: bq.Tracer},
		project: project,
	}, nil
}

func newLoaderWithAPI(api warehouseAPI, project string) *Loader {
	return &Loader{api: api, project: project}
}

// LoadDataset loads ds into tableID ("dataset.table"). When the table
// already exists and partitionColumns is non-empty, rows matching the
// incoming partition values are deleted first so re-running a load for
// the same period replaces rather than duplicates. An empty dataset is
// a no-op.
func (l *Loader) LoadDataset(ctx context.Context, ds *dataset.Dataset, tableID string, partitionColumns []string, ifExists IfExists) error {
	ll := logctx.FromContext(ctx)

	if ds.Empty() {
		ll.Info("Nothing to load, skipping warehouse write", slog.String("tableID", tableID))
		return nil
	}

	datasetID, table, err := splitTableID(tableID)
	if err != nil {
		return err
	}

	exists, err := l.api.TableExists(ctx, datasetID, table)
	if err != nil {
		return fmt.Errorf("check table %s: %w", tableID, err)
	}

	switch ifExists {
	case IfExistsFail:
		if exists {
			return fmt.Errorf("table %s already exists", tableID)
		}
	case IfExistsReplace:
		if exists {
			if err := l.api.DeleteTable(ctx, datasetID, table); err != nil {
				return fmt.Errorf("drop table %s: %w", tableID, err)
			}
			exists = false
		}
	case IfExistsAppend, "":
		if exists && len(partitionColumns) > 0 {
			predicate, err := BuildDeletePredicate(ds, partitionColumns)
			if err != nil {
				return fmt.Errorf("build delete predicate for %s: %w", tableID, err)
			}
			query := fmt.Sprintf("DELETE FROM `%s.%s.%s` WHERE %s", l.project, datasetID, table, predicate)
			ll.Info("Deleting rows for incoming partitions",
				slog.String("tableID", tableID),
				slog.String("predicate", predicate))
			if err := l.api.ExecDML(ctx, query); err != nil {
				return fmt.Errorf("delete partitions from %s: %w", tableID, err)
			}
		}
	default:
		return fmt.Errorf("invalid if_exists policy %q", ifExists)
	}

	if !exists {
		if err := l.api.CreateTable(ctx, datasetID, table, ds.Columns); err != nil {
			return fmt.Errorf("create table %s: %w", tableID, err)
		}
	}

	if err := l.api.Insert(ctx, datasetID, table, ds); err != nil {
		return fmt.Errorf("insert into %s: %w", tableID, err)
	}

	ll.Info("Loaded dataset into warehouse",
		slog.String("tableID", tableID),
		slog.Int("rows", ds.Len()),
		slog.Int("columns", len(ds.Columns)))
	return nil
}

func splitTableID(tableID string) (datasetID, table string, err error) {
	parts := strings.Split(tableID, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid table id %q (want dataset.table)", tableID)
	}
	return parts[0], parts[1], nil
}
