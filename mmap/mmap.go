// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package mmap maps a PerfData file shared with the writing process. Reads
// always observe the current contents written by the target.
package mmap // import "go.opentelemetry.io/jvmstat/mmap"

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
)

// ErrTooLarge is returned for files that cannot be mapped on this platform.
var ErrTooLarge = errors.New("mmap: file too large")

// ReaderAt reads a memory-mapped PerfData file.
//
// Reads and Close may run concurrently. Close copies the final contents to
// the heap before unmapping, so readers that outlive Close keep seeing the
// last published values instead of faulting.
type ReaderAt struct {
	mu     sync.RWMutex
	data   []byte
	mapped bool
	path   string
}

// Path returns the name of the mapped file.
func (r *ReaderAt) Path() string {
	return r.path
}

// Close unmaps the file. It is safe to call Close more than once.
func (r *ReaderAt) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.mapped {
		return nil
	}
	frozen := make([]byte, len(r.data))
	copy(frozen, r.data)
	mapped := r.data
	r.data = frozen
	r.mapped = false
	runtime.SetFinalizer(r, nil)
	return munmap(mapped)
}

// Closed reports whether Close has been called.
func (r *ReaderAt) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.mapped
}

// Len returns the length of the mapped file.
func (r *ReaderAt) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// ReadAt implements the io.ReaderAt interface.
func (r *ReaderAt) ReadAt(p []byte, off int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if off < 0 {
		return 0, fmt.Errorf("mmap: invalid ReadAt offset %d", off)
	}
	if off >= int64(len(r.data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Open memory-maps the named file for reading. Changes the writer makes
// after Open are visible through the returned ReaderAt.
func Open(filename string) (*ReaderAt, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		// mmap rejects zero lengths. There is nothing to unmap later either.
		return &ReaderAt{data: make([]byte, 0), path: filename}, nil
	}
	if size < 0 {
		return nil, fmt.Errorf("mmap: file %q has negative size", filename)
	}
	if size != int64(int(size)) {
		return nil, fmt.Errorf("%w: %q", ErrTooLarge, filename)
	}

	data, err := mmapShared(f, int(size))
	if err != nil {
		return nil, fmt.Errorf("mmap: failed to map %q: %w", filename, err)
	}
	r := &ReaderAt{data: data, mapped: true, path: filename}

	runtime.SetFinalizer(r, (*ReaderAt).Close)
	return r, nil
}
