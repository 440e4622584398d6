// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// nopanicslicereader provides little convenience utilities to read values of a
// given byte order from a slice at given offset. Zeroes are returned on out of
// bounds access instead of panic.
package nopanicslicereader // import "go.opentelemetry.io/jvmstat/nopanicslicereader"

import (
	"bytes"
	"encoding/binary"
)

// inBounds reports whether size bytes starting at offs are available in b.
func inBounds(b []byte, offs, size uint) bool {
	end := offs + size
	return end >= offs && end <= uint(len(b))
}

// Uint8 reads one 8-bit unsigned integer from given byte slice offset
func Uint8(b []byte, offs uint) uint8 {
	if !inBounds(b, offs, 1) {
		return 0
	}
	return b[offs]
}

// Uint32 reads one 32-bit unsigned integer from given byte slice offset
func Uint32(b []byte, offs uint, order binary.ByteOrder) uint32 {
	if !inBounds(b, offs, 4) {
		return 0
	}
	return order.Uint32(b[offs:])
}

// Int32 reads one 32-bit signed integer from given byte slice offset
func Int32(b []byte, offs uint, order binary.ByteOrder) int32 {
	return int32(Uint32(b, offs, order))
}

// Uint64 reads one 64-bit unsigned integer from given byte slice offset
func Uint64(b []byte, offs uint, order binary.ByteOrder) uint64 {
	if !inBounds(b, offs, 8) {
		return 0
	}
	return order.Uint64(b[offs:])
}

// Int64 reads one 64-bit signed integer from given byte slice offset
func Int64(b []byte, offs uint, order binary.ByteOrder) int64 {
	return int64(Uint64(b, offs, order))
}

// CString reads a zero terminated string of at most maxLen bytes starting at offs.
// The second return value is false if no terminating zero was found within the
// limit or the available data.
func CString(b []byte, offs, maxLen uint) (string, bool) {
	if offs >= uint(len(b)) {
		return "", false
	}
	end := offs + maxLen
	if end < offs || end > uint(len(b)) {
		end = uint(len(b))
	}
	region := b[offs:end]
	zeroIdx := bytes.IndexByte(region, 0)
	if zeroIdx < 0 {
		return "", false
	}
	return string(region[:zeroIdx]), true
}
