// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package process // import "go.opentelemetry.io/jvmstat/process"

import (
	"debug/elf"
	"path"
	"regexp"
	"strings"
)

// perfDataPathPattern matches the file a JVM publishes its PerfData buffer
// in: <tmpdir>/hsperfdata_<user>/<pid>.
var perfDataPathPattern = regexp.MustCompile(`/hsperfdata_[^/]+/[0-9]+$`)

// Mapping contains information about a memory mapping
type Mapping struct {
	// Vaddr is the virtual memory start for this mapping
	Vaddr uint64
	// Length is the length of the mapping
	Length uint64
	// Flags contains the mapping flags and permissions
	Flags elf.ProgFlag
	// Shared is set for MAP_SHARED mappings
	Shared bool
	// FileOffset contains for file backed mappings the offset from the file start
	FileOffset uint64
	// Device holds the device ID where the file is located
	Device uint64
	// Inode holds the mapped file's inode number
	Inode uint64
	// Path contains the file name for file backed mappings
	Path string
}

func (m *Mapping) IsReadable() bool {
	return m.Flags&elf.PF_R == elf.PF_R
}

func (m *Mapping) IsAnonymous() bool {
	return m.Path == ""
}

// IsPerfData reports whether m maps a PerfData file.
func (m *Mapping) IsPerfData() bool {
	return m.IsReadable() && m.Shared && perfDataPathPattern.MatchString(m.Path)
}

// PerfDataUser returns the user part of the hsperfdata directory of a
// PerfData mapping.
func (m *Mapping) PerfDataUser() string {
	dir := path.Base(path.Dir(m.Path))
	return strings.TrimPrefix(dir, "hsperfdata_")
}
