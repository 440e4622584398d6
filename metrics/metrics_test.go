// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"go.opentelemetry.io/jvmstat/monitor"
	"go.opentelemetry.io/jvmstat/perfdatabuffer"
	"go.opentelemetry.io/jvmstat/testsupport"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	result := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			result[m.Name] = m
		}
	}
	return result
}

func TestRegister(t *testing.T) {
	b := testsupport.NewBuilder(binary.LittleEndian, 2, 0).
		Long("sun.gc.collector.0.invocations", monitor.UnitsEvents, monitor.VariabilityMonotonic, 7).
		Long("sun.gc.generation.0.capacity", monitor.UnitsBytes, monitor.VariabilityVariable, 4096).
		Int("sun.gc.policy.tenuringThreshold", monitor.UnitsNone, monitor.VariabilityVariable, 15).
		String("sun.gc.collector.0.name", monitor.VariabilityConstant, "G1 Young", 32).
		Long("java.threads.live", monitor.UnitsNone, monitor.VariabilityVariable, 12).
		Capacity(8 * 1024)
	buf := perfdatabuffer.NewByteBuffer(b.Build())
	ix, err := perfdatabuffer.New(buf)
	require.NoError(t, err)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	reg, err := Register(provider.Meter("test"), ix, `sun\.gc\.`)
	require.NoError(t, err)

	got := collect(t, reader)
	require.Len(t, got, 3)

	invocations := got["sun.gc.collector.0.invocations"]
	assert.Equal(t, "{event}", invocations.Unit)
	sum, ok := invocations.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.True(t, sum.IsMonotonic)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(7), sum.DataPoints[0].Value)

	capacity := got["sun.gc.generation.0.capacity"]
	assert.Equal(t, "By", capacity.Unit)
	gauge, ok := capacity.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(4096), gauge.DataPoints[0].Value)

	threshold, ok := got["sun.gc.policy.tenuringThreshold"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Equal(t, int64(15), threshold.DataPoints[0].Value)

	// Values are read at collection time.
	data := b.Build()
	off := b.Layout("sun.gc.collector.0.invocations").Data
	binary.LittleEndian.PutUint64(data[off:], 9)
	buf.Update(data)
	sum = collect(t, reader)["sun.gc.collector.0.invocations"].Data.(metricdata.Sum[int64])
	assert.Equal(t, int64(9), sum.DataPoints[0].Value)

	require.NoError(t, reg.Unregister())
}

type failingSource struct{}

func (failingSource) FindByPattern(string) ([]monitor.Monitor, error) {
	return nil, errors.New("target exited")
}

func TestRegisterErrors(t *testing.T) {
	meter := sdkmetric.NewMeterProvider().Meter("test")

	_, err := Register(meter, failingSource{}, ".*")
	require.EqualError(t, err, "target exited")

	data := testsupport.NewBuilder(binary.BigEndian, 1, 0).
		String("java.property.java.vm.name", monitor.VariabilityConstant, "OpenJDK", 32).
		Build()
	ix, err := perfdatabuffer.New(perfdatabuffer.NewByteBuffer(data))
	require.NoError(t, err)
	_, err = Register(meter, ix, "java")
	require.ErrorContains(t, err, "no numeric instruments")
}

func TestInstrumentName(t *testing.T) {
	tests := map[string]string{
		"sun.gc.collector.0.invocations": "sun.gc.collector.0.invocations",
		"hotspot.gc.name:young":          "hotspot.gc.name_young",
		"0day":                           "x0day",
		"":                               "x",
		strings.Repeat("a", 300):         strings.Repeat("a", 255),
	}
	for in, want := range tests {
		assert.Equal(t, want, instrumentName(in), in)
	}
}

func TestMeter(t *testing.T) {
	assert.NotNil(t, Meter())
}
