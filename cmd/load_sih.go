package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/medsched/sihrunner/config"
	"github.com/medsched/sihrunner/internal/logctx"
	"github.com/medsched/sihrunner/internal/orchestrate"
)

func init() {
	cmd := &cobra.Command{
		Use:   "load-sih",
		Short: "Fetch SIH-RD reports and load them into BigQuery",
		RunE: func(c *cobra.Command, _ []string) error {
			servicename := "sihrunner-load-sih"
			doneCtx, _, shutdown, err := setupTelemetry(servicename)
			if err != nil {
				return fmt.Errorf("failed to setup telemetry: %w", err)
			}
			defer func() {
				if err := shutdown(); err != nil {
					slog.Error("Error shutting down telemetry", slog.Any("error", err))
				}
			}()

			req := orchestrate.Request{
				GCPProject:       c.Flag("project").Value.String(),
				TableID:          c.Flag("table-id").Value.String(),
				Bucket:           c.Flag("bucket").Value.String(),
				IfExists:         c.Flag("if-exists").Value.String(),
				PartitionColumns: mustStringSlice(c, "partition-column"),
				UF:               mustStringSlice(c, "uf"),
				Year:             mustStringSlice(c, "year"),
				Month:            mustStringSlice(c, "month"),
			}
			return runLoad(doneCtx, req)
		},
	}

	cmd.Flags().String("project", "", "GCP project of the destination table")
	cmd.Flags().String("table-id", "", "destination table as dataset.table")
	cmd.Flags().String("bucket", "", "staging bucket; when set, reports are staged as parquet before loading")
	cmd.Flags().String("if-exists", "", "behavior when the table exists: fail, replace, or append (default)")
	cmd.Flags().StringSlice("partition-column", nil, "columns whose incoming values scope the pre-load delete")
	cmd.Flags().StringSlice("uf", nil, "two-letter state codes to fetch")
	cmd.Flags().StringSlice("year", nil, "two-digit years (default: current year)")
	cmd.Flags().StringSlice("month", nil, "two-digit months (default: previous month)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("table-id")
	_ = cmd.MarkFlagRequired("uf")

	rootCmd.AddCommand(cmd)
}

func mustStringSlice(c *cobra.Command, name string) []string {
	v, err := c.Flags().GetStringSlice(name)
	if err != nil {
		panic(fmt.Errorf("flag %s: %w", name, err))
	}
	return v
}

func runLoad(ctx context.Context, req orchestrate.Request) error {
	ctx = logctx.WithLogger(ctx, slog.Default())
	ll := logctx.FromContext(ctx)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			ll.Warn("pipeline close failed", slog.Any("error", err))
		}
	}()

	res, err := p.Run(ctx, req)
	if err != nil {
		ll.Error("load failed", slog.Any("error", err))
		return err
	}

	ll.Info("load finished",
		slog.Int("rows", res.Rows),
		slog.Int("columns", res.Columns),
		slog.Int("failedFiles", res.FailedFiles),
		slog.Int("stagedFiles", res.StagedFiles))
	return nil
}
