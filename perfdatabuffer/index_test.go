// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package perfdatabuffer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/jvmstat/aliasmap"
	"go.opentelemetry.io/jvmstat/monitor"
	"go.opentelemetry.io/jvmstat/prologue"
	"go.opentelemetry.io/jvmstat/testsupport"
)

var layouts = map[string]struct {
	order        binary.ByteOrder
	major, minor uint8
}{
	"v1.0 little endian": {binary.LittleEndian, 1, 0},
	"v1.0 big endian":    {binary.BigEndian, 1, 0},
	"v2.0 little endian": {binary.LittleEndian, 2, 0},
	"v2.0 big endian":    {binary.BigEndian, 2, 0},
}

func names(monitors []monitor.Monitor) []string {
	out := make([]string, 0, len(monitors))
	for _, m := range monitors {
		out = append(out, m.Name())
	}
	return out
}

func newIndex(t *testing.T, data []byte, opts ...Option) (*Index, *ByteBuffer) {
	t.Helper()
	buf := NewByteBuffer(data)
	ix, err := New(buf, opts...)
	require.NoError(t, err)
	return ix, buf
}

func TestEndToEnd(t *testing.T) {
	data := testsupport.NewBuilder(binary.LittleEndian, 1, 0).
		Int("app.requests", monitor.UnitsEvents, monitor.VariabilityMonotonic, 42).
		Build()
	ix, _ := newIndex(t, data)

	m, err := ix.FindByName("app.requests")
	require.NoError(t, err)
	require.IsType(t, &monitor.IntegerMonitor{}, m)
	assert.Equal(t, int32(42), m.(*monitor.IntegerMonitor).IntValue())

	status, err := ix.MonitorStatus()
	require.NoError(t, err)
	assert.Equal(t, []string{"app.requests"}, names(status.Inserted()))
	assert.Empty(t, status.Removed())
}

func TestInstrumentKinds(t *testing.T) {
	for name, l := range layouts {
		t.Run(name, func(t *testing.T) {
			b := testsupport.NewBuilder(l.order, l.major, l.minor).
				Int("i", monitor.UnitsNone, monitor.VariabilityVariable, -7).
				Long("j", monitor.UnitsTicks, monitor.VariabilityMonotonic, 1<<40).
				String("s", monitor.VariabilityConstant, "hello", 16).
				ByteArray("b", monitor.UnitsBytes, monitor.VariabilityVariable,
					[]byte{1, 2, 3})
			ix, _ := newIndex(t, b.Build())

			all, err := ix.FindByPattern("")
			require.NoError(t, err)
			assert.Equal(t, []string{"b", "i", "j", "s"}, names(all))

			i, _ := ix.FindByName("i")
			assert.Equal(t, int32(-7), i.Value())
			assert.False(t, i.IsVector())
			assert.True(t, i.IsSupported())

			j, _ := ix.FindByName("j")
			assert.Equal(t, int64(1<<40), j.Value())
			assert.Equal(t, monitor.UnitsTicks, j.Units())
			assert.Equal(t, monitor.VariabilityMonotonic, j.Variability())

			s, _ := ix.FindByName("s")
			require.IsType(t, &monitor.StringMonitor{}, s)
			assert.Equal(t, "hello", s.Value())
			assert.Equal(t, 16, s.VectorLength())

			ba, _ := ix.FindByName("b")
			require.IsType(t, &monitor.ByteArrayMonitor{}, ba)
			assert.Equal(t, []byte{1, 2, 3}, ba.Value())
		})
	}
}

func TestValuesFollowTheBuffer(t *testing.T) {
	for name, l := range layouts {
		t.Run(name, func(t *testing.T) {
			b := testsupport.NewBuilder(l.order, l.major, l.minor).
				Long("counter", monitor.UnitsEvents, monitor.VariabilityMonotonic, 1)
			data := b.Build()
			ix, buf := newIndex(t, data)

			m, err := ix.FindByName("counter")
			require.NoError(t, err)
			assert.Equal(t, int64(1), m.Value())

			l.order.PutUint64(data[b.Layout("counter").Data:], 99)
			buf.Update(data)
			assert.Equal(t, int64(99), m.Value())
		})
	}
}

func TestRefreshIdempotent(t *testing.T) {
	for name, l := range layouts {
		t.Run(name, func(t *testing.T) {
			data := testsupport.NewBuilder(l.order, l.major, l.minor).
				Int("a", monitor.UnitsNone, monitor.VariabilityVariable, 1).
				Int("b", monitor.UnitsNone, monitor.VariabilityVariable, 2).
				Build()
			ix, _ := newIndex(t, data)

			require.NoError(t, ix.Refresh())
			first, err := ix.FindByName("a")
			require.NoError(t, err)
			require.Equal(t, 2, ix.Len())

			require.NoError(t, ix.Refresh())
			require.NoError(t, ix.Refresh())
			again, err := ix.FindByName("a")
			require.NoError(t, err)
			assert.Equal(t, 2, ix.Len())
			assert.Same(t, first, again)
			assert.Equal(t, StatePopulated, ix.State())
		})
	}
}

func TestGrowthAndStatus(t *testing.T) {
	for name, l := range layouts {
		t.Run(name, func(t *testing.T) {
			b := testsupport.NewBuilder(l.order, l.major, l.minor).
				Int("first", monitor.UnitsNone, monitor.VariabilityVariable, 1)
			ix, buf := newIndex(t, b.Build())

			seen := map[string]int{}
			record := func() {
				t.Helper()
				status, err := ix.MonitorStatus()
				require.NoError(t, err)
				for _, n := range names(status.Inserted()) {
					seen[n]++
				}
			}

			record()
			lastLen := ix.Len()
			for i := range 5 {
				b.Int(fmt.Sprintf("grown.%d", i), monitor.UnitsNone,
					monitor.VariabilityVariable, int32(i))
				buf.Update(b.Build())
				if i%2 == 0 {
					record()
				} else {
					require.NoError(t, ix.Refresh())
				}
				require.GreaterOrEqual(t, ix.Len(), lastLen)
				lastLen = ix.Len()
			}
			record()

			status, err := ix.MonitorStatus()
			require.NoError(t, err)
			assert.True(t, status.Empty())

			all, err := ix.FindByPattern("")
			require.NoError(t, err)
			require.Len(t, all, 6)
			for _, n := range names(all) {
				assert.Equal(t, 1, seen[n], n)
			}
			assert.Len(t, seen, 6)
		})
	}
}

func TestIncompleteRecordDeferred(t *testing.T) {
	for name, l := range layouts {
		t.Run(name, func(t *testing.T) {
			b := testsupport.NewBuilder(l.order, l.major, l.minor).
				Int("done", monitor.UnitsNone, monitor.VariabilityVariable, 1).
				Int("pending", monitor.UnitsNone, monitor.VariabilityVariable, 2)
			full := b.Build()

			partial := make([]byte, len(full))
			copy(partial, full)
			clear(partial[b.Layout("pending").Entry:])
			ix, buf := newIndex(t, partial)

			m, err := ix.FindByName("pending")
			require.NoError(t, err)
			assert.Nil(t, m)
			assert.Equal(t, 1, ix.Len())

			buf.Update(full)
			m, err = ix.FindByName("pending")
			require.NoError(t, err)
			require.NotNil(t, m)
			assert.Equal(t, int32(2), m.Value())
		})
	}
}

func TestV2NotAccessible(t *testing.T) {
	b := testsupport.NewBuilder(binary.LittleEndian, 2, 0).
		Int("x", monitor.UnitsNone, monitor.VariabilityVariable, 1)
	ix, buf := newIndex(t, b.Inaccessible().Build())

	m, err := ix.FindByName("x")
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Equal(t, StateEmpty, ix.State())

	b = testsupport.NewBuilder(binary.LittleEndian, 2, 0).
		Int("x", monitor.UnitsNone, monitor.VariabilityVariable, 1)
	buf.Update(b.Build())
	m, err = ix.FindByName("x")
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Equal(t, StatePopulated, ix.State())
}

// countingBuffer counts reads of the whole buffer.
type countingBuffer struct {
	*ByteBuffer
	full atomic.Int32
}

func (c *countingBuffer) ReadAt(p []byte, off int64) (int, error) {
	if off == 0 && len(p) == c.Len() {
		c.full.Add(1)
	}
	return c.ByteBuffer.ReadAt(p, off)
}

func TestOneScanPerQuery(t *testing.T) {
	data := testsupport.NewBuilder(binary.LittleEndian, 2, 0).
		Int("sun.gc.count", monitor.UnitsEvents, monitor.VariabilityMonotonic, 1).
		Build()

	queries := map[string]func(ix *Index) error{
		"pattern": func(ix *Index) error {
			_, err := ix.FindByPattern("sun")
			return err
		},
		"status": func(ix *Index) error {
			_, err := ix.MonitorStatus()
			return err
		},
		"name miss": func(ix *Index) error {
			_, err := ix.FindByName("no.such.counter")
			return err
		},
		"refresh": func(ix *Index) error {
			return ix.Refresh()
		},
	}

	for name, query := range queries {
		t.Run(name, func(t *testing.T) {
			buf := &countingBuffer{ByteBuffer: NewByteBuffer(data)}
			ix, err := New(buf)
			require.NoError(t, err)
			buf.full.Store(0)

			require.NoError(t, query(ix))
			assert.Equal(t, int32(1), buf.full.Load(), "first query")
			require.NoError(t, query(ix))
			assert.Equal(t, int32(2), buf.full.Load(), "second query")
		})
	}
}

func TestDuplicateNamesKeepFirst(t *testing.T) {
	data := testsupport.NewBuilder(binary.BigEndian, 1, 0).
		Int("dup", monitor.UnitsNone, monitor.VariabilityVariable, 1).
		Int("dup", monitor.UnitsNone, monitor.VariabilityVariable, 2).
		Build()
	ix, _ := newIndex(t, data)

	m, err := ix.FindByName("dup")
	require.NoError(t, err)
	assert.Equal(t, int32(1), m.Value())
	assert.Equal(t, 1, ix.Len())
}

func TestUnknownRecordsSkipped(t *testing.T) {
	for name, l := range layouts {
		t.Run(name, func(t *testing.T) {
			b := testsupport.NewBuilder(l.order, l.major, l.minor).
				Add(testsupport.Record{Name: "double", Type: 'D', Flags: 1,
					Data: make([]byte, 8)}).
				Add(testsupport.Record{Name: "int.vector", Type: 'I', VectorLength: 2,
					Data: make([]byte, 8)}).
				Int("after", monitor.UnitsNone, monitor.VariabilityVariable, 5)
			ix, _ := newIndex(t, b.Build())

			all, err := ix.FindByPattern(".*")
			require.NoError(t, err)
			assert.Equal(t, []string{"after"}, names(all))
		})
	}
}

func TestFindByNameMiss(t *testing.T) {
	data := testsupport.NewBuilder(binary.LittleEndian, 1, 0).
		Int("present", monitor.UnitsNone, monitor.VariabilityVariable, 1).
		Build()
	ix, _ := newIndex(t, data)

	m, err := ix.FindByName("absent")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestAliasFallback(t *testing.T) {
	loader := func() (*aliasmap.Table, error) {
		return aliasmap.Parse(strings.NewReader("alias oldName canonicalA canonicalB"))
	}
	data := testsupport.NewBuilder(binary.LittleEndian, 2, 0).
		Int("canonicalB", monitor.UnitsNone, monitor.VariabilityVariable, 7).
		Build()
	ix, _ := newIndex(t, data, WithAliasLoader(loader))

	m, err := ix.FindByName("oldName")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "canonicalB", m.Name())
	assert.Equal(t, int32(7), m.Value())
}

func TestBundledAliases(t *testing.T) {
	data := testsupport.NewBuilder(binary.LittleEndian, 2, 0).
		Long("hotspot.ci.total.time", monitor.UnitsTicks, monitor.VariabilityMonotonic, 3).
		Build()
	ix, _ := newIndex(t, data)

	m, err := ix.FindByName("java.ci.totalTime")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "hotspot.ci.total.time", m.Name())
}

func TestAliasLoaderFailure(t *testing.T) {
	loads := 0
	loader := func() (*aliasmap.Table, error) {
		loads++
		return nil, errors.New("broken")
	}
	data := testsupport.NewBuilder(binary.LittleEndian, 1, 0).
		Int("x", monitor.UnitsNone, monitor.VariabilityVariable, 1).
		Build()
	ix, _ := newIndex(t, data, WithAliasLoader(loader))

	for range 3 {
		m, err := ix.FindByName("java.ci.totalTime")
		require.NoError(t, err)
		assert.Nil(t, m)
	}
	assert.Equal(t, 1, loads)
}

func TestPatternAnchoring(t *testing.T) {
	data := testsupport.NewBuilder(binary.LittleEndian, 1, 0).
		Int("sun.gc.count", monitor.UnitsEvents, monitor.VariabilityMonotonic, 1).
		Int("other.sun.gc.count", monitor.UnitsEvents, monitor.VariabilityMonotonic, 2).
		Build()
	ix, _ := newIndex(t, data)

	got, err := ix.FindByPattern(`sun\.`)
	require.NoError(t, err)
	assert.Equal(t, []string{"sun.gc.count"}, names(got))

	got, err = ix.FindByPattern(`sun|other`)
	require.NoError(t, err)
	assert.Equal(t, []string{"other.sun.gc.count", "sun.gc.count"}, names(got))

	_, err = ix.FindByPattern(`(`)
	require.Error(t, err)

	// Unbalanced parentheses cannot close an anchor group.
	_, err = ix.FindByPattern(`zzz)|(sun\.`)
	require.Error(t, err)

	got, err = ix.FindByPattern(`zzz|sun\.`)
	require.NoError(t, err)
	assert.Equal(t, []string{"sun.gc.count"}, names(got))
}

func TestNewErrors(t *testing.T) {
	_, err := New(NewByteBuffer([]byte{0xde, 0xad, 0xbe, 0xef, 0, 1, 0, 0}))
	require.ErrorIs(t, err, prologue.ErrBadMagic)

	data := testsupport.NewBuilder(binary.LittleEndian, 3, 1).Build()
	_, err = New(NewByteBuffer(data))
	require.ErrorIs(t, err, ErrUnsupportedVersion)
	assert.Contains(t, err.Error(), "3.1")

	_, err = New(NewByteBuffer(data[:6]))
	require.ErrorIs(t, err, prologue.ErrTruncated)
}

func TestInvalidate(t *testing.T) {
	data := testsupport.NewBuilder(binary.LittleEndian, 1, 0).
		Int("x", monitor.UnitsNone, monitor.VariabilityVariable, 1).
		Build()
	ix, _ := newIndex(t, data)

	reason := errors.New("process exited")
	ix.Invalidate(reason)
	assert.Equal(t, StateInvalid, ix.State())

	_, err := ix.FindByName("x")
	require.ErrorIs(t, err, ErrTargetUnavailable)
	require.ErrorIs(t, err, reason)
	_, err = ix.FindByPattern("x")
	require.ErrorIs(t, err, ErrTargetUnavailable)
	_, err = ix.MonitorStatus()
	require.ErrorIs(t, err, ErrTargetUnavailable)
	require.ErrorIs(t, ix.Refresh(), ErrTargetUnavailable)
	_, err = ix.Bytes()
	require.ErrorIs(t, err, ErrTargetUnavailable)
}

func TestMagicLostInvalidates(t *testing.T) {
	data := testsupport.NewBuilder(binary.LittleEndian, 1, 0).
		Int("x", monitor.UnitsNone, monitor.VariabilityVariable, 1).
		Build()
	ix, buf := newIndex(t, data)
	require.NoError(t, ix.Refresh())

	buf.Update(make([]byte, len(data)))
	err := ix.Refresh()
	require.ErrorIs(t, err, ErrTargetUnavailable)
	require.ErrorIs(t, err, prologue.ErrBadMagic)
	assert.Equal(t, StateInvalid, ix.State())

	// Terminal, even once the magic is back.
	buf.Update(data)
	require.ErrorIs(t, ix.Refresh(), ErrTargetUnavailable)
}

func TestBytesAndCapacity(t *testing.T) {
	data := testsupport.NewBuilder(binary.BigEndian, 2, 0).
		Int("x", monitor.UnitsNone, monitor.VariabilityVariable, 1).
		Capacity(4096).
		Build()
	ix, _ := newIndex(t, data)

	assert.Equal(t, 4096, ix.Capacity())
	assert.Equal(t, StateEmpty, ix.State())

	got, err := ix.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, StatePopulated, ix.State())

	got[0] = 0
	again, err := ix.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data[0], again[0])

	assert.Equal(t, prologue.Version{Major: 2}, ix.Prologue().Version())
	assert.True(t, ix.Prologue().IsBigEndian())
}

func TestSupportedVersions(t *testing.T) {
	versions := SupportedVersions()
	assert.Contains(t, versions, prologue.Version{Major: 1, Minor: 0})
	assert.Contains(t, versions, prologue.Version{Major: 2, Minor: 0})
}

func TestConcurrentQueries(t *testing.T) {
	b := testsupport.NewBuilder(binary.LittleEndian, 2, 0).
		Int("base", monitor.UnitsNone, monitor.VariabilityVariable, 1)
	ix, buf := newIndex(t, b.Build())

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				m, err := ix.FindByName("base")
				assert.NoError(t, err)
				assert.NotNil(t, m)
				_, err = ix.FindByPattern("grown")
				assert.NoError(t, err)
			}
		}()
	}
	for i := range 20 {
		b.Int(fmt.Sprintf("grown.%d", i), monitor.UnitsNone, monitor.VariabilityVariable, 0)
		buf.Update(b.Build())
	}
	wg.Wait()

	all, err := ix.FindByPattern("grown")
	require.NoError(t, err)
	assert.Len(t, all, 20)
}
