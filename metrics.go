// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"slices"
	"strings"

	"github.com/peterbourgon/ff/v3/ffcli"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"go.opentelemetry.io/jvmstat/metrics"
)

type metricsCmd struct {
	*globals

	// User-specified command line arguments.
	pattern string
}

func newMetricsCmd(g *globals) *ffcli.Command {
	cmd := metricsCmd{globals: g}
	set := flag.NewFlagSet("metrics", flag.ContinueOnError)
	set.StringVar(&cmd.pattern, "pattern", ".*", "Only export instruments whose names match")
	return &ffcli.Command{
		Name:       "metrics",
		ShortUsage: "metrics [flags] <target>",
		ShortHelp:  "Collect the numeric instruments of a target as OpenTelemetry metrics",
		FlagSet:    set,
		Exec:       cmd.exec,
	}
}

func (cmd *metricsCmd) exec(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("please pass exactly one target")
	}

	s, err := cmd.open(args[0])
	if err != nil {
		return err
	}
	defer s.Detach()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	reg, err := metrics.Register(provider.Meter("go.opentelemetry.io/jvmstat"), s, cmd.pattern)
	if err != nil {
		return err
	}
	defer func() { _ = reg.Unregister() }()

	var rm metricdata.ResourceMetrics
	if err = reader.Collect(ctx, &rm); err != nil {
		return err
	}

	var lines []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					lines = append(lines, fmt.Sprintf("%s counter %d %s", m.Name, dp.Value, m.Unit))
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					lines = append(lines, fmt.Sprintf("%s gauge %d %s", m.Name, dp.Value, m.Unit))
				}
			}
		}
	}
	slices.Sort(lines)
	for _, l := range lines {
		fmt.Fprintln(cmd.out, strings.TrimSpace(l))
	}
	return nil
}
