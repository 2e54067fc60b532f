package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/medsched/sihrunner/config"
	"github.com/medsched/sihrunner/internal/loadapi"
	"github.com/medsched/sihrunner/internal/logctx"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the load API over HTTP",
		RunE: func(_ *cobra.Command, _ []string) error {
			servicename := "sihrunner-serve"
			doneCtx, _, shutdown, err := setupTelemetry(servicename)
			if err != nil {
				return fmt.Errorf("failed to setup telemetry: %w", err)
			}
			defer func() {
				if err := shutdown(); err != nil {
					slog.Error("Error shutting down telemetry", slog.Any("error", err))
				}
			}()

			ctx := logctx.WithLogger(doneCtx, slog.Default())

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			p, err := newPipeline(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			return loadapi.NewServer(cfg.Serve.Addr, p).Start(ctx)
		},
	}
	rootCmd.AddCommand(cmd)
}
