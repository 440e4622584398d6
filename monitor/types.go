// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package monitor defines the typed, read-only instruments published in a
// PerfData buffer. Instruments are lightweight views: apart from constant
// strings they hold no value of their own and re-read the live buffer on each
// access.
package monitor // import "go.opentelemetry.io/jvmstat/monitor"

import "fmt"

// Units is the unit of measure attribute of an instrument.
type Units uint8

const (
	UnitsInvalid Units = iota
	// UnitsNone is a plain number without a unit.
	UnitsNone
	UnitsBytes
	UnitsTicks
	UnitsEvents
	UnitsString
	UnitsHertz
)

var unitsNames = [...]string{
	UnitsInvalid: "Invalid",
	UnitsNone:    "None",
	UnitsBytes:   "Bytes",
	UnitsTicks:   "Ticks",
	UnitsEvents:  "Events",
	UnitsString:  "String",
	UnitsHertz:   "Hertz",
}

func (u Units) String() string {
	if int(u) < len(unitsNames) {
		return unitsNames[u]
	}
	return fmt.Sprintf("Units(%d)", uint8(u))
}

// Variability describes how the value of an instrument may change over time.
type Variability uint8

const (
	VariabilityInvalid Variability = iota
	// VariabilityConstant values never change after creation.
	VariabilityConstant
	// VariabilityMonotonic values only increase.
	VariabilityMonotonic
	// VariabilityVariable values may change arbitrarily.
	VariabilityVariable
)

var variabilityNames = [...]string{
	VariabilityInvalid:   "Invalid",
	VariabilityConstant:  "Constant",
	VariabilityMonotonic: "Monotonic",
	VariabilityVariable:  "Variable",
}

func (v Variability) String() string {
	if int(v) < len(variabilityNames) {
		return variabilityNames[v]
	}
	return fmt.Sprintf("Variability(%d)", uint8(v))
}

// Descriptor holds the attributes shared by all instrument types.
type Descriptor struct {
	Name        string
	Units       Units
	Variability Variability
	// Supported is set when the writer flagged the instrument as a stable,
	// supported interface rather than an implementation detail.
	Supported bool
	// VectorLength is 0 for scalar instruments.
	VectorLength int
}

// Monitor is the capability common to all instruments.
type Monitor interface {
	Name() string
	Units() Units
	Variability() Variability
	IsSupported() bool
	IsVector() bool
	VectorLength() int
	// Value returns the current value: int32, int64, []byte or string.
	Value() any
}

// base implements the descriptor accessors of Monitor.
type base struct {
	desc Descriptor
}

func (b *base) Name() string             { return b.desc.Name }
func (b *base) Units() Units             { return b.desc.Units }
func (b *base) Variability() Variability { return b.desc.Variability }
func (b *base) IsSupported() bool        { return b.desc.Supported }
func (b *base) IsVector() bool           { return b.desc.VectorLength > 0 }
func (b *base) VectorLength() int        { return b.desc.VectorLength }

// Descriptor returns a copy of the instrument's attributes.
func (b *base) Descriptor() Descriptor { return b.desc }
