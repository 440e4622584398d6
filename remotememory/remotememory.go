// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// remotememory provides typed access to a byte region that is owned and
// concurrently modified by another process. The ReaderAt interface is used for
// the basic access, and various convenience functions are provided to help
// reading specific data types in the byte order of the region.
package remotememory // import "go.opentelemetry.io/jvmstat/remotememory"

import (
	"encoding/binary"
	"io"
)

// RemoteMemory implements a set of convenience functions to access the remote memory
type RemoteMemory struct {
	io.ReaderAt
	// Order is the byte order of multi-byte values in the region.
	Order binary.ByteOrder
}

// New returns a RemoteMemory reading from r with the given byte order.
func New(r io.ReaderAt, order binary.ByteOrder) RemoteMemory {
	return RemoteMemory{ReaderAt: r, Order: order}
}

// Valid determines if this RemoteMemory instance contains a valid reference to a region
func (rm RemoteMemory) Valid() bool {
	return rm.ReaderAt != nil && rm.Order != nil
}

// Read fills slice p[] with data from remote memory at offset off
func (rm RemoteMemory) Read(off int64, p []byte) error {
	n, err := rm.ReadAt(p, off)
	if err == io.EOF && n == len(p) {
		return nil
	}
	return err
}

// Uint8 reads an 8-bit unsigned integer from remote memory
func (rm RemoteMemory) Uint8(off int64) uint8 {
	var buf [1]byte
	if rm.Read(off, buf[:]) != nil {
		return 0
	}
	return buf[0]
}

// Uint32 reads a 32-bit unsigned integer from remote memory
func (rm RemoteMemory) Uint32(off int64) uint32 {
	var buf [4]byte
	if rm.Read(off, buf[:]) != nil {
		return 0
	}
	return rm.Order.Uint32(buf[:])
}

// Int32 reads a 32-bit signed integer from remote memory
func (rm RemoteMemory) Int32(off int64) int32 {
	return int32(rm.Uint32(off))
}

// Uint64 reads a 64-bit unsigned integer from remote memory
func (rm RemoteMemory) Uint64(off int64) uint64 {
	var buf [8]byte
	if rm.Read(off, buf[:]) != nil {
		return 0
	}
	return rm.Order.Uint64(buf[:])
}

// Int64 reads a 64-bit signed integer from remote memory
func (rm RemoteMemory) Int64(off int64) int64 {
	return int64(rm.Uint64(off))
}

// Bytes returns a freshly allocated copy of n bytes at offset off. If the
// region can not be read, the returned slice is zero filled.
func (rm RemoteMemory) Bytes(off int64, n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	buf := make([]byte, n)
	if rm.Read(off, buf) != nil {
		clear(buf)
	}
	return buf
}

// ProcessVirtualMemory implements io.ReaderAt by using process_vm_readv syscalls
// to read the memory of another process. Offsets are relative to Base.
type ProcessVirtualMemory struct {
	pid  int
	base uint64
}

// NewProcessVirtualMemory returns a ProcessVirtualMemory reading the memory of
// pid starting at address base.
func NewProcessVirtualMemory(pid int, base uint64) ProcessVirtualMemory {
	return ProcessVirtualMemory{pid: pid, base: base}
}
