// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package testsupport holds helpers shared by the tests of several packages.
package testsupport // import "go.opentelemetry.io/jvmstat/testsupport"

import (
	"io"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// ValidateReadAtTransparency validates that a RawBuffer implementation gives
// a transparent view into the given reference buffer, including reads that
// run past its end.
func ValidateReadAtTransparency(t *testing.T, iterations uint, reference []byte,
	testee io.ReaderAt) {
	t.Helper()
	size := uint64(len(reference))
	require.NotZero(t, size)

	r := rand.New(rand.NewPCG(0, 0)) //nolint:gosec
	for range iterations {
		length := r.Uint64() % size
		start := r.Uint64() % size

		readBuf := make([]byte, length)
		n, err := testee.ReadAt(readBuf, int64(start))

		want := min(size-start, length)
		if want != length {
			require.ErrorIs(t, err, io.EOF, "read of %d at %d", length, start)
		} else {
			require.NoError(t, err, "read of %d at %d", length, start)
		}
		require.Equal(t, int(want), n)
		require.Equal(t, reference[start:][:want], readBuf[:want])
	}
}

// SequenceBytes returns size bytes repeating the sequence 0, 1, ..., seqLen-1.
func SequenceBytes(seqLen uint8, size uint) []byte {
	out := make([]byte, 0, size)
	for i := range size {
		out = append(out, byte(i%uint(seqLen)))
	}
	return out
}
