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

// Layout of a version 2.0 buffer. Records hold relative offsets to their name
// and data, and the prologue counts the records published so far.
const (
	V2PrologueSize       = 32
	V2AccessibleOffset   = 7
	V2UsedOffset         = 8
	V2OverflowOffset     = 12
	V2ModTimeStampOffset = 16
	V2EntryOffsetOffset  = 24
	V2NumEntriesOffset   = 28

	V2EntryLengthOffset  = 0
	V2NameOffsetOffset   = 4
	V2VectorLengthOffset = 8
	V2DataTypeOffset     = 12
	V2FlagsOffset        = 13
	V2UnitsOffset        = 14
	V2VariabilityOffset  = 15
	V2DataOffsetOffset   = 16
	V2EntryHeaderSize    = 20
)

func init() {
	Register(2, 0, newScannerV2)
}

type scannerV2 struct {
	mem   remotememory.RemoteMemory
	order binary.ByteOrder
	// next is the offset of the next record, 0 until the first record offset
	// has been read from the prologue.
	next    int
	scanned int
}

var _ Scanner = &scannerV2{}

func newScannerV2(mem remotememory.RemoteMemory) Scanner {
	return &scannerV2{mem: mem, order: mem.Order}
}

func (s *scannerV2) Cursor() int {
	return s.next
}

// Scan decodes records until the published entry count is reached. Nothing
// is read while the writer has not yet flagged the buffer accessible.
func (s *scannerV2) Scan(snap []byte, add func(monitor.Monitor)) {
	if npsr.Uint8(snap, V2AccessibleOffset) == 0 {
		log.Debug("v2.0 buffer not accessible yet")
		return
	}
	if s.next == 0 {
		first := int(npsr.Int32(snap, V2EntryOffsetOffset, s.order))
		if first < V2PrologueSize {
			log.Debugf("Invalid v2.0 entry offset %d", first)
			return
		}
		s.next = first
	}

	limit := len(snap)
	if used := int(npsr.Int32(snap, V2UsedOffset, s.order)); used > 0 && used < limit {
		limit = used
	}
	numEntries := int(npsr.Int32(snap, V2NumEntriesOffset, s.order))

	for s.scanned < numEntries {
		entryLen := int(npsr.Int32(snap, uint(s.next)+V2EntryLengthOffset, s.order))
		if entryLen < V2EntryHeaderSize || s.next >= limit || entryLen > limit-s.next {
			log.Debugf("Deferring incomplete v2.0 record %d at offset %d (length %d, limit %d)",
				s.scanned, s.next, entryLen, limit)
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
		s.scanned++
	}
}

func (s *scannerV2) decode(entry []byte, start int64) (record, bool) {
	nameOff := int(npsr.Int32(entry, V2NameOffsetOffset, s.order))
	dataOff := int(npsr.Int32(entry, V2DataOffsetOffset, s.order))
	if nameOff < V2EntryHeaderSize || nameOff >= len(entry) ||
		dataOff < V2EntryHeaderSize || dataOff > len(entry) {
		log.Debugf("Skipping v2.0 record at offset %d: bad offsets name=%d data=%d",
			start, nameOff, dataOff)
		return record{}, false
	}

	maxNameLen := len(entry) - nameOff
	if dataOff > nameOff {
		maxNameLen = dataOff - nameOff
	}
	name, ok := npsr.CString(entry, uint(nameOff), uint(maxNameLen))
	if !ok || name == "" {
		log.Debugf("Skipping v2.0 record at offset %d: unterminated name", start)
		return record{}, false
	}

	return record{
		name:        name,
		typeCode:    npsr.Uint8(entry, V2DataTypeOffset),
		flags:       npsr.Uint8(entry, V2FlagsOffset),
		units:       npsr.Uint8(entry, V2UnitsOffset),
		variability: npsr.Uint8(entry, V2VariabilityOffset),
		vectorLen:   npsr.Int32(entry, V2VectorLengthOffset, s.order),
		dataOffset:  start + int64(dataOff),
		dataSize:    int64(len(entry) - dataOff),
	}, true
}
