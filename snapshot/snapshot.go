// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot stores point in time copies of PerfData buffers.
//
// # File format
//
// >>> magic: [4]char "PDSN"
// >>> version: u32 LE
// >>> uncompressed_size: u64 LE
// >>> <zstd compressed buffer contents>
package snapshot // import "go.opentelemetry.io/jvmstat/snapshot"

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const (
	magic      = "PDSN"
	version    = 1
	headerSize = 16

	// MaxSize is the largest buffer accepted when reading a snapshot.
	MaxSize = 64 << 20
)

var (
	// ErrBadFormat is returned for input that is not a snapshot.
	ErrBadFormat = errors.New("not a perfdata snapshot")

	// ErrUnsupportedVersion is returned for snapshots of a newer format.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)

// Write writes a compressed copy of data to w.
func Write(w io.Writer, data []byte) error {
	var header [headerSize]byte
	copy(header[:], magic)
	binary.LittleEndian.PutUint32(header[4:], version)
	binary.LittleEndian.PutUint64(header[8:], uint64(len(data)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write snapshot header: %w", err)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return err
	}
	if _, err = enc.Write(data); err != nil {
		enc.Close()
		return fmt.Errorf("failed to compress snapshot: %w", err)
	}
	return enc.Close()
}

// Read reads a snapshot written by Write and returns the buffer contents.
func Read(r io.Reader) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrBadFormat
		}
		return nil, err
	}
	if !bytes.Equal(header[:4], []byte(magic)) {
		return nil, ErrBadFormat
	}
	if v := binary.LittleEndian.Uint32(header[4:]); v != version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	size := binary.LittleEndian.Uint64(header[8:])
	if size > MaxSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit", ErrBadFormat, size)
	}

	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	data := make([]byte, size)
	if _, err = io.ReadFull(dec, data); err != nil {
		return nil, fmt.Errorf("%w: failed to decompress: %w", ErrBadFormat, err)
	}
	var extra [1]byte
	if n, _ := dec.Read(extra[:]); n != 0 {
		return nil, fmt.Errorf("%w: more data than announced", ErrBadFormat)
	}
	return data, nil
}

// WriteFile atomically replaces the file at path with a snapshot of data.
func WriteFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err = Write(tmp, data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadFile reads the snapshot stored at path.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	return data, nil
}
