// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package perfdatabuffer // import "go.opentelemetry.io/jvmstat/perfdatabuffer"

import (
	"cmp"
	"slices"
	"sync"

	"go.opentelemetry.io/jvmstat/monitor"
	"go.opentelemetry.io/jvmstat/prologue"
	"go.opentelemetry.io/jvmstat/remotememory"
)

// Scanner walks the version specific instrument records of a buffer. It keeps
// a cursor to the first record not yet discovered and only ever moves it
// forward.
type Scanner interface {
	// Scan decodes the complete records following the cursor in snap, a copy
	// of the whole buffer, and passes each new instrument to add. A record the
	// writer has not finished yet stops the scan without error; it is
	// picked up by a later call.
	Scan(snap []byte, add func(monitor.Monitor))
	// Cursor returns the buffer offset of the next record to decode.
	Cursor() int
}

// ScannerFactory creates a Scanner for a buffer whose prologue announced the
// version the factory was registered for. Instruments created by the
// Scanner read their values through mem.
type ScannerFactory func(mem remotememory.RemoteMemory) Scanner

var registry = struct {
	sync.RWMutex
	factories map[prologue.Version]ScannerFactory
}{factories: make(map[prologue.Version]ScannerFactory)}

// Register makes a Scanner available for buffers of version major.minor,
// replacing any earlier registration.
func Register(major, minor uint8, factory ScannerFactory) {
	registry.Lock()
	defer registry.Unlock()
	registry.factories[prologue.Version{Major: major, Minor: minor}] = factory
}

func lookupScanner(v prologue.Version) (ScannerFactory, bool) {
	registry.RLock()
	defer registry.RUnlock()
	f, ok := registry.factories[v]
	return f, ok
}

// SupportedVersions returns the registered buffer versions in ascending order.
func SupportedVersions() []prologue.Version {
	registry.RLock()
	versions := make([]prologue.Version, 0, len(registry.factories))
	for v := range registry.factories {
		versions = append(versions, v)
	}
	registry.RUnlock()

	slices.SortFunc(versions, func(a, b prologue.Version) int {
		if c := cmp.Compare(a.Major, b.Major); c != 0 {
			return c
		}
		return cmp.Compare(a.Minor, b.Minor)
	})
	return versions
}
