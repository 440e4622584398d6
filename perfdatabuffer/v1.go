// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package perfdatabuffer // import "go.opentelemetry.io/jvmstat/perfdatabuffer"

import (
	"encoding/binary"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/jvmstat/monitor"
	npsr "go.opentelemetry.io/jvmstat/nopanicslicereader"
	"go.opentelemetry.io/jvmstat/remotememory"
)

// Layout of a version 1.0 buffer. The extended prologue is followed by
// packed records, each carrying its name inline in front of the data.
const (
	V1PrologueSize       = 24
	V1UsedOffset         = 8
	V1OverflowOffset     = 12
	V1ModTimeStampOffset = 16

	V1EntryLengthOffset  = 0
	V1NameLengthOffset   = 4
	V1VectorLengthOffset = 8
	V1DataTypeOffset     = 12
	V1FlagsOffset        = 13
	V1UnitsOffset        = 14
	V1VariabilityOffset  = 15
	V1NameOffset         = 16
)

func init() {
	Register(1, 0, newScannerV1)
}

type scannerV1 struct {
	mem   remotememory.RemoteMemory
	order binary.ByteOrder
	next  int
}

var _ Scanner = &scannerV1{}

func newScannerV1(mem remotememory.RemoteMemory) Scanner {
	return &scannerV1{mem: mem, order: mem.Order, next: V1PrologueSize}
}

func (s *scannerV1) Cursor() int {
	return s.next
}

// Scan walks records while the cursor is below the used byte count the
// writer published, capped at the buffer size.
func (s *scannerV1) Scan(snap []byte, add func(monitor.Monitor)) {
	limit := len(snap)
	if used := int(npsr.Int32(snap, V1UsedOffset, s.order)); used < limit {
		limit = used
	}

	for s.next < limit {
		entryLen := int(npsr.Int32(snap, uint(s.next)+V1EntryLengthOffset, s.order))
		if entryLen < V1NameOffset || entryLen > limit-s.next {
			log.Debugf("Deferring incomplete v1.0 record at offset %d (length %d, limit %d)",
				s.next, entryLen, limit)
			return
		}
		entry := snap[s.next : s.next+entryLen]
		if rec, ok := s.decode(entry, int64(s.next)); ok {
			if m, err := newMonitor(rec, s.mem); err != nil {
				log.Debugf("Skipping record %q at offset %d: %v", rec.name, s.next, err)
			} else {
				add(m)
			}
		}
		s.next += entryLen
	}
}

func (s *scannerV1) decode(entry []byte, start int64) (record, bool) {
	nameLen := int(npsr.Int32(entry, V1NameLengthOffset, s.order))
	if nameLen <= 0 || nameLen > len(entry)-V1NameOffset {
		log.Debugf("Skipping v1.0 record at offset %d: bad name length %d", start, nameLen)
		return record{}, false
	}
	name, ok := npsr.CString(entry, V1NameOffset, uint(nameLen))
	if !ok || name == "" {
		log.Debugf("Skipping v1.0 record at offset %d: unterminated name", start)
		return record{}, false
	}

	dataStart := int64(V1NameOffset + nameLen)
	return record{
		name:        name,
		typeCode:    npsr.Uint8(entry, V1DataTypeOffset),
		flags:       npsr.Uint8(entry, V1FlagsOffset),
		units:       npsr.Uint8(entry, V1UnitsOffset),
		variability: npsr.Uint8(entry, V1VariabilityOffset),
		vectorLen:   npsr.Int32(entry, V1VectorLengthOffset, s.order),
		dataOffset:  start + dataStart,
		dataSize:    int64(len(entry)) - dataStart,
	}, true
}
