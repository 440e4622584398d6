// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package perfdatabuffer

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/jvmstat/testsupport"
)

func TestByteBufferReadAt(t *testing.T) {
	reference := testsupport.SequenceBytes(251, 4096)
	buf := NewByteBuffer(reference)
	testsupport.ValidateReadAtTransparency(t, 1000, reference, buf)

	_, err := buf.ReadAt(make([]byte, 1), -1)
	require.Error(t, err)
	_, err = buf.ReadAt(make([]byte, 1), 4096)
	require.ErrorIs(t, err, io.EOF)
}

func TestByteBufferCopies(t *testing.T) {
	data := []byte{1, 2, 3}
	buf := NewByteBuffer(data)
	data[0] = 9

	got := make([]byte, 3)
	_, err := buf.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestByteBufferAppend(t *testing.T) {
	buf := NewByteBuffer([]byte{1, 2})
	buf.Append([]byte{3, 4})
	assert.Equal(t, 4, buf.Len())

	snap, err := readAll(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, snap)

	var empty ByteBuffer
	assert.Equal(t, 0, empty.Len())
	snap, err = readAll(&empty)
	require.NoError(t, err)
	assert.Empty(t, snap)
}
