// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package prologue reads the fixed, self describing header found at the start
// of every PerfData buffer.
//
// The header layout is independent of the buffer's byte order:
//
//	offset 0  uint32  magic, always big endian (0xcafec0c0)
//	offset 4  uint8   byte order of all following fields (0 = big endian)
//	offset 5  uint8   major version
//	offset 6  uint8   minor version
//	offset 7  uint8   reserved, not interpreted here
//
// All accessors operate on absolute offsets of the passed slice and never keep
// any cursor state, so several readers can inspect the same shared buffer
// concurrently.
package prologue // import "go.opentelemetry.io/jvmstat/prologue"

import (
	"encoding/binary"
	"errors"
	"fmt"

	npsr "go.opentelemetry.io/jvmstat/nopanicslicereader"
)

const (
	// MagicValue identifies a PerfData buffer.
	MagicValue uint32 = 0xcafec0c0

	// Size is the number of bytes of the version independent header.
	Size = 8

	MagicOffset     = 0
	ByteOrderOffset = 4
	MajorOffset     = 5
	MinorOffset     = 6
	ReservedOffset  = 7

	// BigEndianFlag is the byte order field value for big endian buffers.
	// Every other value is treated as little endian.
	BigEndianFlag = 0
	// LittleEndianFlag is the value a little endian writer stores.
	LittleEndianFlag = 1
)

var (
	// ErrBadMagic is returned when the buffer does not start with MagicValue.
	// The buffer belongs to the wrong target or is no PerfData buffer at all,
	// retrying will not help.
	ErrBadMagic = errors.New("not a valid perfdata buffer")

	// ErrTruncated is returned when the buffer holds a valid magic but is too
	// short to contain the whole header. The writer may still be publishing it.
	ErrTruncated = errors.New("perfdata buffer too short for prologue")
)

// Version is a major.minor buffer format version.
type Version struct {
	Major uint8
	Minor uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Prologue is the decoded version independent header.
type Prologue struct {
	Magic uint32
	Order binary.ByteOrder
	Major uint8
	Minor uint8
}

// Version returns the format version of the buffer.
func (p Prologue) Version() Version {
	return Version{Major: p.Major, Minor: p.Minor}
}

// IsBigEndian reports whether body fields are stored big endian.
func (p Prologue) IsBigEndian() bool {
	return p.Order == binary.BigEndian
}

func (p Prologue) String() string {
	return fmt.Sprintf("perfdata %s (%s)", p.Version(), p.Order)
}

// Parse decodes the header at the start of b.
func Parse(b []byte) (Prologue, error) {
	magic := Magic(b)
	if len(b) < 4 || magic != MagicValue {
		return Prologue{}, fmt.Errorf("%w: magic 0x%08x", ErrBadMagic, magic)
	}
	if len(b) < Size {
		return Prologue{}, fmt.Errorf("%w: %d bytes", ErrTruncated, len(b))
	}
	return Prologue{
		Magic: magic,
		Order: ByteOrder(b),
		Major: Major(b),
		Minor: Minor(b),
	}, nil
}

// Magic returns the magic field of b, or 0 if b is too short.
func Magic(b []byte) uint32 {
	return npsr.Uint32(b, MagicOffset, binary.BigEndian)
}

// ByteOrder returns the byte order announced by b. The field is not validated:
// any value other than BigEndianFlag selects little endian.
func ByteOrder(b []byte) binary.ByteOrder {
	if len(b) > ByteOrderOffset && b[ByteOrderOffset] == BigEndianFlag {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Major returns the major version field of b.
func Major(b []byte) uint8 {
	return npsr.Uint8(b, MajorOffset)
}

// Minor returns the minor version field of b.
func Minor(b []byte) uint8 {
	return npsr.Uint8(b, MinorOffset)
}
