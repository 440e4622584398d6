// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package testsupport // import "go.opentelemetry.io/jvmstat/testsupport"

import (
	"encoding/binary"
	"fmt"

	"go.opentelemetry.io/jvmstat/monitor"
	"go.opentelemetry.io/jvmstat/prologue"
)

// Record describes one instrument written by a Builder.
type Record struct {
	Name         string
	Type         byte
	Units        monitor.Units
	Variability  monitor.Variability
	Flags        uint8
	VectorLength int32
	// Data is the encoded value. It is zero padded to the record size.
	Data []byte
}

// Layout gives the offsets a Builder used for one record.
type Layout struct {
	Entry int
	Data  int
}

// Builder writes PerfData buffers of version 1.0 or 2.0.
type Builder struct {
	order        binary.ByteOrder
	major, minor uint8
	records      []Record
	capacity     int
	inaccessible bool
	layouts      map[string]Layout
}

// NewBuilder returns a Builder for buffers of version major.minor.
func NewBuilder(order binary.ByteOrder, major, minor uint8) *Builder {
	return &Builder{order: order, major: major, minor: minor}
}

// Order returns the byte order of the built buffers.
func (b *Builder) Order() binary.ByteOrder {
	return b.order
}

// Add appends a record.
func (b *Builder) Add(r Record) *Builder {
	b.records = append(b.records, r)
	return b
}

// Int appends a supported 32-bit scalar.
func (b *Builder) Int(name string, units monitor.Units, v monitor.Variability, val int32) *Builder {
	data := make([]byte, 4)
	b.order.PutUint32(data, uint32(val))
	return b.Add(Record{Name: name, Type: 'I', Units: units, Variability: v, Flags: 1, Data: data})
}

// Long appends a supported 64-bit scalar.
func (b *Builder) Long(name string, units monitor.Units, v monitor.Variability, val int64) *Builder {
	data := make([]byte, 8)
	b.order.PutUint64(data, uint64(val))
	return b.Add(Record{Name: name, Type: 'J', Units: units, Variability: v, Flags: 1, Data: data})
}

// String appends a string vector of maxLen bytes holding s and a NUL.
func (b *Builder) String(name string, v monitor.Variability, s string, maxLen int) *Builder {
	data := make([]byte, maxLen)
	copy(data, s)
	return b.Add(Record{Name: name, Type: 'B', Units: monitor.UnitsString, Variability: v,
		Flags: 1, VectorLength: int32(maxLen), Data: data})
}

// ByteArray appends a byte vector.
func (b *Builder) ByteArray(name string, units monitor.Units, v monitor.Variability,
	data []byte) *Builder {
	return b.Add(Record{Name: name, Type: 'B', Units: units, Variability: v, Flags: 1,
		VectorLength: int32(len(data)), Data: data})
}

// Capacity pads built buffers with zeros up to n bytes.
func (b *Builder) Capacity(n int) *Builder {
	b.capacity = n
	return b
}

// Inaccessible clears the accessible flag of version 2.0 buffers.
func (b *Builder) Inaccessible() *Builder {
	b.inaccessible = true
	return b
}

// Layout returns the offsets of the record called name in the last built
// buffer.
func (b *Builder) Layout(name string) Layout {
	l, ok := b.layouts[name]
	if !ok {
		panic(fmt.Sprintf("no record %q", name))
	}
	return l
}

func align(n, to int) int {
	return (n + to - 1) / to * to
}

// Build returns the encoded buffer.
func (b *Builder) Build() []byte {
	b.layouts = make(map[string]Layout, len(b.records))

	var buf []byte
	switch b.major {
	case 1:
		buf = b.buildV1()
	case 2:
		buf = b.buildV2()
	default:
		buf = make([]byte, prologue.Size)
	}

	binary.BigEndian.PutUint32(buf[prologue.MagicOffset:], prologue.MagicValue)
	if b.order == binary.BigEndian {
		buf[prologue.ByteOrderOffset] = prologue.BigEndianFlag
	} else {
		buf[prologue.ByteOrderOffset] = prologue.LittleEndianFlag
	}
	buf[prologue.MajorOffset] = b.major
	buf[prologue.MinorOffset] = b.minor

	if len(buf) < b.capacity {
		buf = append(buf, make([]byte, b.capacity-len(buf))...)
	}
	return buf
}

func (b *Builder) buildV1() []byte {
	const prologueSize, headerSize = 24, 16
	buf := make([]byte, prologueSize)
	for _, r := range b.records {
		nameLen := len(r.Name) + 1
		entryLen := align(headerSize+nameLen+len(r.Data), 4)
		entry := make([]byte, entryLen)
		b.order.PutUint32(entry[0:], uint32(entryLen))
		b.order.PutUint32(entry[4:], uint32(nameLen))
		b.order.PutUint32(entry[8:], uint32(r.VectorLength))
		entry[12] = r.Type
		entry[13] = r.Flags
		entry[14] = uint8(r.Units)
		entry[15] = uint8(r.Variability)
		copy(entry[headerSize:], r.Name)
		copy(entry[headerSize+nameLen:], r.Data)

		b.layouts[r.Name] = Layout{Entry: len(buf), Data: len(buf) + headerSize + nameLen}
		buf = append(buf, entry...)
	}
	b.order.PutUint32(buf[8:], uint32(len(buf)))
	return buf
}

func (b *Builder) buildV2() []byte {
	const prologueSize, headerSize = 32, 20
	buf := make([]byte, prologueSize)
	for _, r := range b.records {
		dataOff := align(headerSize+len(r.Name)+1, 8)
		entryLen := align(dataOff+len(r.Data), 8)
		entry := make([]byte, entryLen)
		b.order.PutUint32(entry[0:], uint32(entryLen))
		b.order.PutUint32(entry[4:], headerSize)
		b.order.PutUint32(entry[8:], uint32(r.VectorLength))
		entry[12] = r.Type
		entry[13] = r.Flags
		entry[14] = uint8(r.Units)
		entry[15] = uint8(r.Variability)
		b.order.PutUint32(entry[16:], uint32(dataOff))
		copy(entry[headerSize:], r.Name)
		copy(entry[dataOff:], r.Data)

		b.layouts[r.Name] = Layout{Entry: len(buf), Data: len(buf) + dataOff}
		buf = append(buf, entry...)
	}
	if !b.inaccessible {
		buf[7] = 1
	}
	b.order.PutUint32(buf[8:], uint32(len(buf)))
	b.order.PutUint32(buf[24:], prologueSize)
	b.order.PutUint32(buf[28:], uint32(len(b.records)))
	return buf
}
