// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package metrics // import "go.opentelemetry.io/jvmstat/metrics"

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"go.opentelemetry.io/jvmstat/monitor"
	"go.opentelemetry.io/jvmstat/vc"
)

// maxNameLen is the longest instrument name OTel accepts.
const maxNameLen = 255

// Source is implemented by monitoredvm.Session and perfdatabuffer.Index.
type Source interface {
	FindByPattern(expr string) ([]monitor.Monitor, error)
}

// Meter returns the meter of the global MeterProvider for this module.
func Meter() metric.Meter {
	return otel.Meter("go.opentelemetry.io/jvmstat",
		metric.WithInstrumentationVersion(vc.Version()))
}

// unit returns the UCUM unit of u.
func unit(u monitor.Units) string {
	switch u {
	case monitor.UnitsBytes:
		return "By"
	case monitor.UnitsHertz:
		return "Hz"
	case monitor.UnitsTicks:
		return "{tick}"
	case monitor.UnitsEvents:
		return "{event}"
	}
	return ""
}

// instrumentName turns a PerfData name into a valid OTel instrument name.
func instrumentName(name string) string {
	isLetter := func(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }

	var sb strings.Builder
	sb.Grow(len(name) + 1)
	// Names have to start with a letter.
	if name == "" || !isLetter(name[0]) {
		sb.WriteByte('x')
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case isLetter(c), c >= '0' && c <= '9':
		case c == '_', c == '.', c == '-', c == '/':
		default:
			c = '_'
		}
		sb.WriteByte(c)
	}
	s := sb.String()
	if len(s) > maxNameLen {
		s = s[:maxNameLen]
	}
	return s
}

// int64Value returns the value of an integer or long instrument.
func int64Value(m monitor.Monitor) (int64, bool) {
	switch v := m.Value().(type) {
	case int32:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

type observed struct {
	source     monitor.Monitor
	instrument metric.Int64Observable
}

// Register creates an observable instrument on meter for every integer and
// long instrument of src whose name matches pattern, as FindByPattern does.
// Instruments that cannot be created are logged and skipped. The values are
// read from the buffer at collection time.
func Register(meter metric.Meter, src Source, pattern string) (metric.Registration, error) {
	monitors, err := src.FindByPattern(pattern)
	if err != nil {
		return nil, err
	}

	var obs []observed
	var instruments []metric.Observable
	for _, m := range monitors {
		if m.IsVector() {
			continue
		}
		if _, ok := int64Value(m); !ok {
			continue
		}

		name := instrumentName(m.Name())
		desc := fmt.Sprintf("PerfData %s (%s)", m.Name(), m.Variability())
		var inst metric.Int64Observable
		if m.Variability() == monitor.VariabilityMonotonic {
			inst, err = meter.Int64ObservableCounter(name,
				metric.WithDescription(desc),
				metric.WithUnit(unit(m.Units())))
		} else {
			inst, err = meter.Int64ObservableGauge(name,
				metric.WithDescription(desc),
				metric.WithUnit(unit(m.Units())))
		}
		if err != nil {
			log.Errorf("Creating instrument %s: %v", name, err)
			continue
		}
		obs = append(obs, observed{source: m, instrument: inst})
		instruments = append(instruments, inst)
	}
	if len(instruments) == 0 {
		return nil, fmt.Errorf("no numeric instruments match %q", pattern)
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for _, ob := range obs {
			if v, ok := int64Value(ob.source); ok {
				o.ObserveInt64(ob.instrument, v)
			}
		}
		return nil
	}, instruments...)
	if err != nil {
		return nil, errors.Join(errors.New("failed to register metrics callback"), err)
	}
	log.Debugf("Exporting %d PerfData instruments matching %q", len(obs), pattern)
	return reg, nil
}
