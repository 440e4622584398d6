// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package perfdatabuffer // import "go.opentelemetry.io/jvmstat/perfdatabuffer"

import (
	"fmt"

	"go.opentelemetry.io/jvmstat/monitor"
	"go.opentelemetry.io/jvmstat/remotememory"
)

// Record type codes shared by all buffer versions.
const (
	TypeInt  = 'I'
	TypeLong = 'J'
	TypeByte = 'B'
)

// FlagSupported marks an instrument as supported by the writer.
const FlagSupported = 0x01

// record holds the version independent fields of one decoded entry.
type record struct {
	name        string
	typeCode    byte
	flags       uint8
	units       uint8
	variability uint8
	vectorLen   int32
	// dataOffset is the absolute buffer offset of the value.
	dataOffset int64
	// dataSize is the number of bytes between dataOffset and the entry end.
	dataSize int64
}

// newMonitor creates the instrument for rec, reading through mem. It returns
// an error for records no instrument kind covers; those are skipped.
func newMonitor(rec record, mem remotememory.RemoteMemory) (monitor.Monitor, error) {
	if rec.vectorLen < 0 {
		return nil, fmt.Errorf("negative vector length %d", rec.vectorLen)
	}
	desc := monitor.Descriptor{
		Name:         rec.name,
		Units:        monitor.Units(rec.units),
		Variability:  monitor.Variability(rec.variability),
		Supported:    rec.flags&FlagSupported != 0,
		VectorLength: int(rec.vectorLen),
	}

	switch {
	case rec.typeCode == TypeInt && rec.vectorLen == 0:
		if rec.dataSize < 4 {
			return nil, fmt.Errorf("int record too short (%d bytes)", rec.dataSize)
		}
		return monitor.NewInteger(desc, mem, rec.dataOffset), nil
	case rec.typeCode == TypeLong && rec.vectorLen == 0:
		if rec.dataSize < 8 {
			return nil, fmt.Errorf("long record too short (%d bytes)", rec.dataSize)
		}
		return monitor.NewLong(desc, mem, rec.dataOffset), nil
	case rec.typeCode == TypeByte && rec.vectorLen > 0:
		if int64(rec.vectorLen) > rec.dataSize {
			return nil, fmt.Errorf("vector of %d bytes exceeds record data (%d bytes)",
				rec.vectorLen, rec.dataSize)
		}
		if desc.Units == monitor.UnitsString {
			return monitor.NewString(desc, mem, rec.dataOffset), nil
		}
		return monitor.NewByteArray(desc, mem, rec.dataOffset), nil
	}
	return nil, fmt.Errorf("unsupported type %q with vector length %d",
		rec.typeCode, rec.vectorLen)
}
