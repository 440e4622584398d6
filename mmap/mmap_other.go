// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package mmap // import "go.opentelemetry.io/jvmstat/mmap"

import (
	"io"
	"os"
)

// Without shared mappings the file is read once. Later writes by the target
// are not observed.
func mmapShared(f *os.File, size int) ([]byte, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, err
	}
	return data, nil
}

func munmap([]byte) error {
	return nil
}
