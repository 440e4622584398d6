// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"go.opentelemetry.io/jvmstat/remotememory"
)

// liveBytes is a ReaderAt over a slice the test keeps mutating.
type liveBytes []byte

func (b liveBytes) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func TestScalarMonitorsReReadBuffer(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		t.Run(order.String(), func(t *testing.T) {
			buf := make(liveBytes, 16)
			mem := remotememory.New(buf, order)

			i := NewInteger(Descriptor{Name: "app.requests", Units: UnitsEvents,
				Variability: VariabilityMonotonic, Supported: true}, mem, 0)
			l := NewLong(Descriptor{Name: "app.bytes", Units: UnitsBytes,
				Variability: VariabilityVariable}, mem, 8)

			order.PutUint32(buf[0:], 42)
			order.PutUint64(buf[8:], 1<<40)
			assert.Equal(t, int32(42), i.IntValue())
			assert.Equal(t, int64(1<<40), l.LongValue())

			order.PutUint32(buf[0:], 43)
			order.PutUint64(buf[8:], 7)
			assert.Equal(t, int32(43), i.Value())
			assert.Equal(t, int64(7), l.Value())

			assert.Equal(t, "app.requests", i.Name())
			assert.Equal(t, UnitsEvents, i.Units())
			assert.Equal(t, VariabilityMonotonic, i.Variability())
			assert.True(t, i.IsSupported())
			assert.False(t, l.IsSupported())
			assert.False(t, i.IsVector())
			assert.Equal(t, 0, l.VectorLength())
		})
	}
}

func TestScalarOutOfRange(t *testing.T) {
	mem := remotememory.New(make(liveBytes, 4), binary.LittleEndian)
	l := NewLong(Descriptor{Name: "x"}, mem, 2)
	assert.Equal(t, int64(0), l.LongValue())
}

func TestByteArrayMonitorCopies(t *testing.T) {
	buf := liveBytes{1, 2, 3, 4, 5}
	m := NewByteArray(Descriptor{Name: "raw", Units: UnitsNone,
		Variability: VariabilityVariable, VectorLength: 4}, remotememory.New(buf, binary.BigEndian), 1)

	got := m.ByteArrayValue()
	assert.Equal(t, []byte{2, 3, 4, 5}, got)
	got[0] = 0xff
	assert.Equal(t, byte(2), buf[1])

	buf[1] = 9
	assert.Equal(t, byte(9), m.ByteAt(0))
	assert.Equal(t, byte(0), m.ByteAt(4))
	assert.Equal(t, byte(0), m.ByteAt(-1))
	assert.True(t, m.IsVector())
	assert.Equal(t, 4, m.VectorLength())
}

func TestStringMonitor(t *testing.T) {
	tests := map[string]struct {
		region []byte
		want   string
	}{
		"terminated":       {region: []byte("hello\x00\x00\x00"), want: "hello"},
		"all zero":         {region: make([]byte, 8)},
		"leading zero":     {region: []byte("\x00bcdefgh")},
		"no terminator":    {region: []byte("abcdefgh")},
		"empty region":     {region: []byte{}},
		"stops at first":   {region: []byte("ab\x00cd\x00\x00\x00"), want: "ab"},
		"full but for one": {region: []byte("abcdefg\x00"), want: "abcdefg"},
	}

	for name, tc := range tests {
		for _, v := range []Variability{VariabilityConstant, VariabilityVariable} {
			t.Run(name+"/"+v.String(), func(t *testing.T) {
				buf := append(liveBytes{0xaa}, tc.region...)
				m := NewString(Descriptor{Name: "s", Units: UnitsString, Variability: v,
					VectorLength: len(tc.region)}, remotememory.New(buf, binary.LittleEndian), 1)
				assert.Equal(t, tc.want, m.StringValue())
				assert.Equal(t, tc.want, m.Value())
			})
		}
	}
}

func TestConstantStringIsCached(t *testing.T) {
	buf := liveBytes("old\x00")
	mem := remotememory.New(buf, binary.LittleEndian)
	constant := NewString(Descriptor{Name: "c", Units: UnitsString,
		Variability: VariabilityConstant, VectorLength: 4}, mem, 0)
	variable := NewString(Descriptor{Name: "v", Units: UnitsString,
		Variability: VariabilityVariable, VectorLength: 4}, mem, 0)

	copy(buf, "new\x00")
	assert.Equal(t, "old", constant.StringValue())
	assert.Equal(t, "new", variable.StringValue())
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "Ticks", UnitsTicks.String())
	assert.Equal(t, "Units(42)", Units(42).String())
	assert.Equal(t, "Monotonic", VariabilityMonotonic.String())
	assert.Equal(t, "Variability(9)", Variability(9).String())
}
