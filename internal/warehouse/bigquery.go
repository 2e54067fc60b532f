package warehouse

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"

	"github.com/medsched/sihrunner/internal/dataset"
)

// insertBatchSize bounds how many rows go into one streaming-insert call.
const insertBatchSize = 500

// bigqueryAPI implements warehouseAPI against a real BigQuery client.
type bigqueryAPI struct {
	client *bigquery.Client
	tracer trace.Tracer
}

func (b *bigqueryAPI) TableExists(ctx context.Context, datasetID, table string) (bool, error) {
	_, err := b.client.Dataset(datasetID).Table(table).Metadata(ctx)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateTable creates the table with every column typed STRING, matching
// the all-text datasets this loader handles.
func (b *bigqueryAPI) CreateTable(ctx context.Context, datasetID, table string, columns []string) error {
	schema := make(bigquery.Schema, 0, len(columns))
	for _, col := range columns {
		schema = append(schema, &bigquery.FieldSchema{
			Name: col,
			Type: bigquery.StringFieldType,
		})
	}
	return b.client.Dataset(datasetID).Table(table).Create(ctx, &bigquery.TableMetadata{
		Schema: schema,
	})
}

func (b *bigqueryAPI) DeleteTable(ctx context.Context, datasetID, table string) error {
	return b.client.Dataset(datasetID).Table(table).Delete(ctx)
}

func (b *bigqueryAPI) ExecDML(ctx context.Context, query string) error {
	ctx, span := b.tracer.Start(ctx, "warehouse.ExecDML")
	defer span.End()

	q := b.client.Query(query)
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for query: %w", err)
	}
	return status.Err()
}

func (b *bigqueryAPI) Insert(ctx context.Context, datasetID, table string, ds *dataset.Dataset) error {
	ctx, span := b.tracer.Start(ctx, "warehouse.Insert",
		trace.WithAttributes(
			attribute.String("table", datasetID+"."+table),
			attribute.Int("rows", ds.Len()),
		))
	defer span.End()

	schema := make(bigquery.Schema, 0, len(ds.Columns))
	for _, col := range ds.Columns {
		schema = append(schema, &bigquery.FieldSchema{
			Name: col,
			Type: bigquery.StringFieldType,
		})
	}

	inserter := b.client.Dataset(datasetID).Table(table).Inserter()
	savers := make([]*bigquery.ValuesSaver, 0, insertBatchSize)
	for _, row := range ds.Rows {
		values := make([]bigquery.Value, len(ds.Columns))
		for i, col := range ds.Columns {
			values[i] = row[col]
		}
		savers = append(savers, &bigquery.ValuesSaver{Schema: schema, Row: values})
		if len(savers) == insertBatchSize {
			if err := inserter.Put(ctx, savers); err != nil {
				return err
			}
			savers = savers[:0]
		}
	}
	if len(savers) > 0 {
		return inserter.Put(ctx, savers)
	}
	return nil
}
