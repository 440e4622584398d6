// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

/*
Package metrics exports the numeric instruments of a PerfData buffer as
OpenTelemetry metrics.

Example code to export the garbage collector counters of a session:

	reg, err := metrics.Register(metrics.Meter(), session, `sun\.gc\.`)
	if err != nil {
		return err
	}
	defer reg.Unregister()

# Mapping

Integer and long instruments are exported, byte arrays and strings are not.

	Variability  OTel instrument
	Monotonic    Int64ObservableCounter
	Constant     Int64ObservableGauge
	Variable     Int64ObservableGauge

Units map to UCUM units: Bytes to "By", Hertz to "Hz", Ticks to "{tick}" and
Events to "{event}". The instrument name is the PerfData name with every
character OTel does not accept in names replaced by '_'.

All instruments of one Register call share a single callback, so one
collection reads the buffer once per instrument.
*/
package metrics
