// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package perfdatabuffer discovers the instruments published in a PerfData
// buffer and resolves them by name or pattern.
//
// The writer appends records at any time. An Index therefore never treats a
// lookup miss as final before it has rescanned the buffer for records added
// since the previous scan.
package perfdatabuffer // import "go.opentelemetry.io/jvmstat/perfdatabuffer"

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/jvmstat/aliasmap"
	"go.opentelemetry.io/jvmstat/monitor"
	"go.opentelemetry.io/jvmstat/prologue"
	"go.opentelemetry.io/jvmstat/remotememory"
)

var (
	// ErrUnsupportedVersion is returned for buffers whose version has no
	// registered Scanner.
	ErrUnsupportedVersion = errors.New("unsupported perfdata buffer version")

	// ErrTargetUnavailable is returned once the buffer can no longer be read.
	ErrTargetUnavailable = errors.New("perfdata target unavailable")
)

// State is the scan state of an Index.
type State uint8

const (
	// StateEmpty means no instrument has been discovered yet.
	StateEmpty State = iota
	// StatePopulated means at least one instrument has been discovered.
	StatePopulated
	// StateInvalid means the buffer became unreadable. It is terminal.
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "Empty"
	case StatePopulated:
		return "Populated"
	case StateInvalid:
		return "Invalid"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Status lists the instruments that appeared (or disappeared) between two
// MonitorStatus calls.
type Status struct {
	inserted []monitor.Monitor
	removed  []monitor.Monitor
}

// Inserted returns the instruments discovered since the previous status.
func (s *Status) Inserted() []monitor.Monitor { return slices.Clone(s.inserted) }

// Removed returns the instruments gone since the previous status. Records are
// never removed from a buffer, so this is always empty today.
func (s *Status) Removed() []monitor.Monitor { return slices.Clone(s.removed) }

// Empty reports whether nothing changed.
func (s *Status) Empty() bool { return len(s.inserted) == 0 && len(s.removed) == 0 }

// AliasLoader provides the alias table used for lookup misses.
type AliasLoader func() (*aliasmap.Table, error)

type options struct {
	aliasLoader    AliasLoader
	aliasCacheSize uint32
}

// Option configures an Index.
type Option func(*options)

// WithAliasLoader replaces the bundled alias table. A nil loader disables
// alias resolution.
func WithAliasLoader(loader AliasLoader) Option {
	return func(o *options) { o.aliasLoader = loader }
}

// WithAliasCacheSize sets the number of resolved aliases kept in memory.
func WithAliasCacheSize(size uint32) Option {
	return func(o *options) { o.aliasCacheSize = size }
}

// Index is the catalogue of instruments found in one buffer. All methods are
// safe for concurrent use.
type Index struct {
	raw      RawBuffer
	prologue prologue.Prologue
	opts     options

	mu         sync.Mutex
	state      State
	invalidErr error
	scanner    Scanner
	monitors   map[string]monitor.Monitor
	// discovered holds all instruments in discovery order. statusMark is the
	// number of them already reported through MonitorStatus.
	discovered []monitor.Monitor
	statusMark int
	// resolver is created on the first lookup miss.
	resolver       *aliasmap.Resolver
	resolverLoaded bool
}

// New validates the prologue of raw and returns an Index for it. Records are
// not scanned until the first query.
func New(raw RawBuffer, opts ...Option) (*Index, error) {
	o := options{
		aliasLoader:    aliasmap.Default,
		aliasCacheSize: aliasmap.DefaultResolverCacheSize,
	}
	for _, opt := range opts {
		opt(&o)
	}

	head := make([]byte, prologue.Size)
	n, err := raw.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read prologue: %w", err)
	}
	p, err := prologue.Parse(head[:n])
	if err != nil {
		return nil, err
	}

	factory, ok := lookupScanner(p.Version())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, p.Version())
	}

	return &Index{
		raw:      raw,
		prologue: p,
		opts:     o,
		scanner:  factory(remotememory.New(raw, p.Order)),
		monitors: make(map[string]monitor.Monitor),
	}, nil
}

// Prologue returns the header read at construction.
func (ix *Index) Prologue() prologue.Prologue {
	return ix.prologue
}

// State returns the current scan state.
func (ix *Index) State() State {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.state
}

// Len returns the number of instruments discovered so far.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.monitors)
}

// Capacity returns the current size of the underlying buffer.
func (ix *Index) Capacity() int {
	return ix.raw.Len()
}

// FindByName returns the instrument called name. A miss triggers a rescan
// and then a lookup of the alias candidates for name. If the instrument is
// still unknown, FindByName returns nil and no error.
func (ix *Index) FindByName(name string) (monitor.Monitor, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	scanned, err := ix.ensurePopulatedLocked()
	if err != nil {
		return nil, err
	}
	if m, ok := ix.monitors[name]; ok {
		return m, nil
	}

	if !scanned {
		if err = ix.scanLocked(); err != nil {
			return nil, err
		}
		if m, ok := ix.monitors[name]; ok {
			return m, nil
		}
	}

	if r := ix.resolverLocked(); r != nil {
		if alias, ok := r.Resolve(name, ix.existsLocked); ok {
			log.Debugf("Resolved %s through alias %s", name, alias)
			return ix.monitors[alias], nil
		}
	}
	return nil, nil
}

// FindByPattern returns all instruments whose name matches expr, sorted by
// name. The expression must match at the start of a name but need not
// consume all of it. The buffer is always rescanned first.
func (ix *Index) FindByPattern(expr string) ([]monitor.Monitor, error) {
	pattern, err := CompilePattern(expr)
	if err != nil {
		return nil, err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.rescanLocked(); err != nil {
		return nil, err
	}

	var matches []monitor.Monitor
	for name, m := range ix.monitors {
		if pattern.MatchString(name) {
			matches = append(matches, m)
		}
	}
	slices.SortFunc(matches, func(a, b monitor.Monitor) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return matches, nil
}

// MonitorStatus rescans the buffer and returns the instruments discovered
// since the previous call.
func (ix *Index) MonitorStatus() (*Status, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.rescanLocked(); err != nil {
		return nil, err
	}

	status := &Status{inserted: slices.Clone(ix.discovered[ix.statusMark:])}
	ix.statusMark = len(ix.discovered)
	return status, nil
}

// Refresh scans for records added since the previous scan.
func (ix *Index) Refresh() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	return ix.rescanLocked()
}

// Invalidate moves the Index to StateInvalid. Every later query fails with an
// error matching ErrTargetUnavailable and, if non-nil, reason.
func (ix *Index) Invalidate(reason error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.invalidateLocked(reason)
}

func (ix *Index) invalidateLocked(reason error) {
	if ix.state == StateInvalid {
		return
	}
	switch {
	case reason == nil:
		ix.invalidErr = ErrTargetUnavailable
	case errors.Is(reason, ErrTargetUnavailable):
		ix.invalidErr = reason
	default:
		ix.invalidErr = fmt.Errorf("%w: %w", ErrTargetUnavailable, reason)
	}
	ix.state = StateInvalid
	log.Debugf("PerfData index invalidated: %v", ix.invalidErr)
}

// Bytes returns a copy of the whole buffer. An Index that has not been
// scanned yet is scanned first.
func (ix *Index) Bytes() ([]byte, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, err := ix.ensurePopulatedLocked(); err != nil {
		return nil, err
	}
	return readAll(ix.raw)
}

// ensurePopulatedLocked scans an Empty Index and reports whether it did.
func (ix *Index) ensurePopulatedLocked() (bool, error) {
	switch ix.state {
	case StateInvalid:
		return false, ix.invalidErr
	case StateEmpty:
		return true, ix.scanLocked()
	}
	return false, nil
}

// rescanLocked scans once unless the Index is invalid.
func (ix *Index) rescanLocked() error {
	if ix.state == StateInvalid {
		return ix.invalidErr
	}
	return ix.scanLocked()
}

// scanLocked runs the Scanner over a fresh copy of the buffer.
func (ix *Index) scanLocked() error {
	snap, err := readAll(ix.raw)
	if err != nil {
		ix.invalidateLocked(err)
		return ix.invalidErr
	}
	if prologue.Magic(snap) != prologue.MagicValue {
		ix.invalidateLocked(prologue.ErrBadMagic)
		return ix.invalidErr
	}

	before := len(ix.discovered)
	ix.scanner.Scan(snap, ix.insertLocked)
	if added := len(ix.discovered) - before; added > 0 {
		log.Debugf("Discovered %d new instruments, cursor at %d",
			added, ix.scanner.Cursor())
	}
	if ix.state == StateEmpty && len(ix.monitors) > 0 {
		ix.state = StatePopulated
	}
	return nil
}

func (ix *Index) insertLocked(m monitor.Monitor) {
	if _, ok := ix.monitors[m.Name()]; ok {
		log.Warnf("Ignoring duplicate instrument %s", m.Name())
		return
	}
	ix.monitors[m.Name()] = m
	ix.discovered = append(ix.discovered, m)
}

func (ix *Index) existsLocked(name string) bool {
	_, ok := ix.monitors[name]
	return ok
}

func (ix *Index) resolverLocked() *aliasmap.Resolver {
	if ix.resolverLoaded {
		return ix.resolver
	}
	ix.resolverLoaded = true
	if ix.opts.aliasLoader == nil {
		return nil
	}

	table, err := ix.opts.aliasLoader()
	if err != nil {
		log.Warnf("Failed to load alias map, continuing without aliases: %v", err)
		return nil
	}
	r, err := aliasmap.NewResolver(table, ix.opts.aliasCacheSize)
	if err != nil {
		log.Warnf("Failed to create alias resolver: %v", err)
		return nil
	}
	ix.resolver = r
	return r
}
