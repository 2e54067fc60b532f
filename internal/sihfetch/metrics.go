package sihfetch

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	fetchCount  metric.Int64Counter
	fetchErrors metric.Int64Counter
	fetchBytes  metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/medsched/sihrunner/internal/sihfetch")

	var err error
	fetchCount, err = meter.Int64Counter(
		"sihrunner.fetch.count",
		metric.WithDescription("Number of report files fetched from the archive"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create fetch.count counter: %w", err))
	}

	fetchErrors, err = meter.Int64Counter(
		"sihrunner.fetch.errors",
		metric.WithDescription("Number of report fetch or decode failures"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create fetch.errors counter: %w", err))
	}

	fetchBytes, err = meter.Int64Counter(
		"sihrunner.fetch.bytes",
		metric.WithDescription("Bytes fetched from the archive"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create fetch.bytes counter: %w", err))
	}
}
