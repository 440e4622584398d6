// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package perfdatabuffer // import "go.opentelemetry.io/jvmstat/perfdatabuffer"

import (
	"fmt"
	"io"
	"sync/atomic"
)

// RawBuffer is the byte region published by a target. Its contents may be
// modified by the target at any time, and its capacity may grow.
type RawBuffer interface {
	io.ReaderAt
	// Len returns the current capacity in bytes.
	Len() int
}

// ByteBuffer is an in-memory RawBuffer, e.g. for a copy of a remote buffer
// received over the network. Each Update atomically replaces the contents;
// readers always see one complete version.
type ByteBuffer struct {
	data atomic.Pointer[[]byte]
}

var _ RawBuffer = &ByteBuffer{}

// NewByteBuffer returns a ByteBuffer holding a copy of data.
func NewByteBuffer(data []byte) *ByteBuffer {
	b := &ByteBuffer{}
	b.Update(data)
	return b
}

// Update replaces the contents with a copy of data.
func (b *ByteBuffer) Update(data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	b.data.Store(&cp)
}

// Append grows the buffer by data.
func (b *ByteBuffer) Append(data []byte) {
	cur := b.load()
	grown := make([]byte, len(cur)+len(data))
	copy(grown, cur)
	copy(grown[len(cur):], data)
	b.data.Store(&grown)
}

func (b *ByteBuffer) load() []byte {
	if p := b.data.Load(); p != nil {
		return *p
	}
	return nil
}

// ReadAt implements the io.ReaderAt interface.
func (b *ByteBuffer) ReadAt(p []byte, off int64) (int, error) {
	data := b.load()
	if off < 0 {
		return 0, fmt.Errorf("perfdatabuffer: invalid ReadAt offset %d", off)
	}
	if off >= int64(len(data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Len returns the current capacity.
func (b *ByteBuffer) Len() int {
	return len(b.load())
}

// readAll copies the whole current contents of raw.
func readAll(raw RawBuffer) ([]byte, error) {
	snap := make([]byte, raw.Len())
	n, err := raw.ReadAt(snap, 0)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return snap[:n], nil
}
