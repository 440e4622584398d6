// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package monitor // import "go.opentelemetry.io/jvmstat/monitor"

import (
	"bytes"

	"go.opentelemetry.io/jvmstat/remotememory"
)

// The writer updates values without any cross process synchronization. A
// multi-byte read of a variable instrument may observe a torn value; reads
// are always bounded by the region and never fail.

// IntegerMonitor is a 32-bit scalar instrument.
type IntegerMonitor struct {
	base
	mem    remotememory.RemoteMemory
	offset int64
}

var _ Monitor = &IntegerMonitor{}

// NewInteger returns an instrument reading 4 bytes at offset of mem.
func NewInteger(desc Descriptor, mem remotememory.RemoteMemory, offset int64) *IntegerMonitor {
	desc.VectorLength = 0
	return &IntegerMonitor{base: base{desc: desc}, mem: mem, offset: offset}
}

// IntValue reads the current value from the buffer.
func (m *IntegerMonitor) IntValue() int32 {
	return m.mem.Int32(m.offset)
}

func (m *IntegerMonitor) Value() any {
	return m.IntValue()
}

// LongMonitor is a 64-bit scalar instrument.
type LongMonitor struct {
	base
	mem    remotememory.RemoteMemory
	offset int64
}

var _ Monitor = &LongMonitor{}

// NewLong returns an instrument reading 8 bytes at offset of mem.
func NewLong(desc Descriptor, mem remotememory.RemoteMemory, offset int64) *LongMonitor {
	desc.VectorLength = 0
	return &LongMonitor{base: base{desc: desc}, mem: mem, offset: offset}
}

// LongValue reads the current value from the buffer.
func (m *LongMonitor) LongValue() int64 {
	return m.mem.Int64(m.offset)
}

func (m *LongMonitor) Value() any {
	return m.LongValue()
}

// ByteArrayMonitor is a raw byte vector instrument.
type ByteArrayMonitor struct {
	base
	mem    remotememory.RemoteMemory
	offset int64
}

var _ Monitor = &ByteArrayMonitor{}

// NewByteArray returns an instrument covering desc.VectorLength bytes at
// offset of mem.
func NewByteArray(desc Descriptor, mem remotememory.RemoteMemory, offset int64) *ByteArrayMonitor {
	if desc.VectorLength < 0 {
		desc.VectorLength = 0
	}
	return &ByteArrayMonitor{base: base{desc: desc}, mem: mem, offset: offset}
}

// ByteArrayValue returns a copy of the current contents. The caller owns the
// returned slice; it never aliases the live buffer.
func (m *ByteArrayMonitor) ByteArrayValue() []byte {
	return m.mem.Bytes(m.offset, m.desc.VectorLength)
}

// ByteAt returns the current value of element i, or 0 if i is out of range.
func (m *ByteArrayMonitor) ByteAt(i int) byte {
	if i < 0 || i >= m.desc.VectorLength {
		return 0
	}
	return m.mem.Uint8(m.offset + int64(i))
}

func (m *ByteArrayMonitor) Value() any {
	return m.ByteArrayValue()
}

// StringMonitor is a NUL terminated string stored in a byte vector.
type StringMonitor struct {
	*ByteArrayMonitor
	// cached holds the decoded value of constant strings.
	cached *string
}

var _ Monitor = &StringMonitor{}

// NewString returns a string instrument. Constant strings are decoded once
// here and never read from the buffer again.
func NewString(desc Descriptor, mem remotememory.RemoteMemory, offset int64) *StringMonitor {
	m := &StringMonitor{ByteArrayMonitor: NewByteArray(desc, mem, offset)}
	if desc.Variability == VariabilityConstant {
		s := decodeString(m.ByteArrayMonitor.ByteArrayValue())
		m.cached = &s
	}
	return m
}

// StringValue returns the current string value.
func (m *StringMonitor) StringValue() string {
	if m.cached != nil {
		return *m.cached
	}
	return decodeString(m.ByteArrayMonitor.ByteArrayValue())
}

func (m *StringMonitor) Value() any {
	return m.StringValue()
}

// decodeString returns the bytes up to the first NUL. A region without a
// terminating NUL is treated as not (yet) valid and decodes to "".
func decodeString(b []byte) string {
	zeroIdx := bytes.IndexByte(b, 0)
	if zeroIdx <= 0 {
		return ""
	}
	return string(b[:zeroIdx])
}
