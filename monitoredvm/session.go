// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package monitoredvm attaches to a target's PerfData buffer and exposes its
// instruments, optionally polling for new instruments and target exit.
package monitoredvm // import "go.opentelemetry.io/jvmstat/monitoredvm"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/jvmstat/mmap"
	"go.opentelemetry.io/jvmstat/monitor"
	"go.opentelemetry.io/jvmstat/perfdatabuffer"
	"go.opentelemetry.io/jvmstat/periodiccaller"
	"go.opentelemetry.io/jvmstat/process"
	"go.opentelemetry.io/jvmstat/prologue"
	"go.opentelemetry.io/jvmstat/snapshot"
	"go.opentelemetry.io/jvmstat/vmid"
)

var (
	// ErrDetached is returned by queries on a detached Session.
	ErrDetached = errors.New("session detached")

	// ErrTargetExited is the reason reported when the target process is gone.
	ErrTargetExited = errors.New("target process exited")
)

// Listener receives the events of a polling Session. Callbacks run on the
// poller goroutine, one at a time.
type Listener interface {
	// MonitorsUpdated is called when instruments were discovered.
	MonitorsUpdated(s *Session, status *perfdatabuffer.Status)
	// Disconnected is called once when the target became unavailable. No
	// callback follows.
	Disconnected(s *Session, err error)
}

type options struct {
	tmpDir       string
	indexOptions []perfdatabuffer.Option
	alive        func() bool
	closer       io.Closer
}

// Option configures a Session.
type Option func(*options)

// WithTmpDir sets the directory searched for PerfData files of local targets.
func WithTmpDir(dir string) Option {
	return func(o *options) { o.tmpDir = dir }
}

// WithIndexOptions passes options to the buffer index.
func WithIndexOptions(opts ...perfdatabuffer.Option) Option {
	return func(o *options) { o.indexOptions = append(o.indexOptions, opts...) }
}

// WithLiveness sets the check run before every query of a session created by
// OpenBuffer. Once it returns false the session reports the target as gone.
func WithLiveness(alive func() bool) Option {
	return func(o *options) { o.alive = alive }
}

// WithCloser sets a resource OpenBuffer releases on Detach.
func WithCloser(c io.Closer) Option {
	return func(o *options) { o.closer = c }
}

// Session is an attachment to the PerfData buffer of one target. All methods
// are safe for concurrent use.
type Session struct {
	id       vmid.VMID
	index    *perfdatabuffer.Index
	alive    func() bool
	interval atomic.Int64

	mu           sync.Mutex
	detached     bool
	closer       io.Closer
	listeners    []Listener
	disconnected bool
	stopPoll     func()
	cancelPoll   context.CancelFunc
	trigger      chan bool
	// dispatcher is the goroutine running listener callbacks, 0 if none.
	dispatcher atomic.Uint64
}

// Open attaches to target, a string accepted by vmid.Parse. The buffer is
// validated but not scanned.
func Open(target string, interval time.Duration, opts ...Option) (*Session, error) {
	id, err := vmid.Parse(target)
	if err != nil {
		return nil, err
	}
	o := options{tmpDir: vmid.DefaultTmpDir}
	for _, opt := range opts {
		opt(&o)
	}

	var buf perfdatabuffer.RawBuffer
	var closer io.Closer
	var alive func() bool

	switch id.Kind {
	case vmid.KindLocal:
		path, err := vmid.PerfDataPath(o.tmpDir, id.PID)
		if err != nil {
			return nil, err
		}
		mf, err := mmap.Open(path)
		if err != nil {
			return nil, err
		}
		buf, closer, alive = mf, mf, process.New(id.PID).Alive
	case vmid.KindProcess:
		pr := process.New(id.PID)
		m, err := pr.PerfDataMapping()
		if err != nil {
			return nil, err
		}
		buf, alive = pr.Memory(m), pr.Alive
	case vmid.KindFile:
		mf, err := mmap.Open(id.Path)
		if err != nil {
			return nil, err
		}
		buf, closer = mf, mf
	case vmid.KindSnapshot:
		data, err := snapshot.ReadFile(id.Path)
		if err != nil {
			return nil, err
		}
		buf = perfdatabuffer.NewByteBuffer(data)
	default:
		return nil, fmt.Errorf("%w: %s", vmid.ErrInvalid, id)
	}

	s, err := newSession(id, buf, interval, o.indexOptions, alive, closer)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("failed to attach to %s: %w", id, err)
	}
	log.Debugf("Attached to %s (%s, %d bytes)", id, s.index.Prologue(), s.index.Capacity())
	return s, nil
}

// OpenBuffer attaches to a buffer supplied by the caller.
func OpenBuffer(id vmid.VMID, buf perfdatabuffer.RawBuffer, interval time.Duration,
	opts ...Option) (*Session, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return newSession(id, buf, interval, o.indexOptions, o.alive, o.closer)
}

func newSession(id vmid.VMID, buf perfdatabuffer.RawBuffer, interval time.Duration,
	indexOptions []perfdatabuffer.Option, alive func() bool, closer io.Closer) (*Session, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid interval %v", interval)
	}
	ix, err := perfdatabuffer.New(buf, indexOptions...)
	if err != nil {
		return nil, err
	}
	s := &Session{id: id, index: ix, alive: alive, closer: closer}
	s.interval.Store(int64(interval))
	return s, nil
}

// ID returns the target identifier.
func (s *Session) ID() vmid.VMID {
	return s.id
}

// Prologue returns the buffer header.
func (s *Session) Prologue() prologue.Prologue {
	return s.index.Prologue()
}

// Interval returns the poll interval.
func (s *Session) Interval() time.Duration {
	return time.Duration(s.interval.Load())
}

// SetInterval changes the poll interval. A running poller applies it at once.
func (s *Session) SetInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("invalid interval %v", d)
	}
	s.interval.Store(int64(d))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trigger != nil {
		select {
		case s.trigger <- true:
		default:
		}
	}
	return nil
}

// check fails for detached sessions and invalidates the index once the
// target is gone.
func (s *Session) check() error {
	s.mu.Lock()
	detached := s.detached
	s.mu.Unlock()
	if detached {
		return ErrDetached
	}
	if s.alive != nil && !s.alive() {
		s.index.Invalidate(fmt.Errorf("%s: %w", s.id, ErrTargetExited))
	}
	return nil
}

// FindByName returns the instrument called name or one of its aliases, or
// nil if the target does not publish it.
func (s *Session) FindByName(name string) (monitor.Monitor, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.index.FindByName(name)
}

// FindByPattern returns the instruments whose names start with a match of the
// regular expression expr, sorted by name.
func (s *Session) FindByPattern(expr string) ([]monitor.Monitor, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.index.FindByPattern(expr)
}

// MonitorStatus returns the instruments discovered since the previous call.
// A polling Session shares this state with its listeners.
func (s *Session) MonitorStatus() (*perfdatabuffer.Status, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.index.MonitorStatus()
}

// Refresh scans the buffer for new instruments.
func (s *Session) Refresh() error {
	if err := s.check(); err != nil {
		return err
	}
	return s.index.Refresh()
}

// Bytes returns a copy of the whole buffer.
func (s *Session) Bytes() ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.index.Bytes()
}

// Capacity returns the buffer size.
func (s *Session) Capacity() int {
	return s.index.Capacity()
}

// AddListener registers l and starts polling if it is the first listener.
func (s *Session) AddListener(l Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.detached {
		return ErrDetached
	}
	s.listeners = append(s.listeners, l)
	if s.stopPoll == nil && !s.disconnected {
		s.startPollingLocked()
	}
	return nil
}

// RemoveListener unregisters l. Polling stops with the last listener.
func (s *Session) RemoveListener(l Listener) {
	s.mu.Lock()
	for i, cur := range s.listeners {
		if cur == l {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			break
		}
	}
	var stop func()
	if len(s.listeners) == 0 {
		stop = s.takePollerLocked()
	}
	s.mu.Unlock()

	s.waitPoller(stop)
}

// Detach stops polling and releases the buffer. Instruments handed out
// earlier stay readable but no longer change. Detach may be called more than
// once, also from a Listener. Called from any other goroutine, it returns only
// after a running listener callback has returned.
func (s *Session) Detach() error {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return nil
	}
	s.detached = true
	s.listeners = nil
	stop := s.takePollerLocked()
	closer := s.closer
	s.closer = nil
	s.mu.Unlock()

	s.waitPoller(stop)
	s.index.Invalidate(ErrDetached)
	if closer != nil {
		return closer.Close()
	}
	return nil
}

func (s *Session) startPollingLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	s.trigger = make(chan bool, 1)
	s.cancelPoll = cancel
	s.stopPoll = periodiccaller.StartWithManualTrigger(ctx, s.Interval, s.trigger,
		func(bool) { s.poll(cancel) })
}

// takePollerLocked detaches the poller from the session and cancels it. The
// returned function waits for it to exit.
func (s *Session) takePollerLocked() func() {
	stop := s.stopPoll
	if s.cancelPoll != nil {
		s.cancelPoll()
	}
	s.stopPoll, s.cancelPoll, s.trigger = nil, nil, nil
	return stop
}

func (s *Session) waitPoller(stop func()) {
	if stop == nil {
		return
	}
	// The poller cannot wait for itself.
	if id := s.dispatcher.Load(); id != 0 && id == goroutineID() {
		return
	}
	stop()
}

func (s *Session) poll(cancel context.CancelFunc) {
	if s.alive != nil && !s.alive() {
		s.disconnect(cancel, fmt.Errorf("%w: %s: %w",
			perfdatabuffer.ErrTargetUnavailable, s.id, ErrTargetExited))
		return
	}
	status, err := s.index.MonitorStatus()
	if err != nil {
		s.disconnect(cancel, err)
		return
	}
	if status.Empty() {
		return
	}

	for _, l := range s.currentListeners() {
		if !s.registered(l) {
			continue
		}
		s.dispatch(func() { l.MonitorsUpdated(s, status) })
	}
}

func (s *Session) currentListeners() []Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return nil
	}
	return append([]Listener(nil), s.listeners...)
}

// registered reports whether l is still attached. A listener removed by an
// earlier callback of the same poll is skipped.
func (s *Session) registered(l Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.detached && slices.Contains(s.listeners, l)
}

func (s *Session) dispatch(f func()) {
	s.dispatcher.Store(goroutineID())
	defer s.dispatcher.Store(0)
	f()
}

// disconnect stops polling for good and tells every listener once.
func (s *Session) disconnect(cancel context.CancelFunc, err error) {
	cancel()
	s.index.Invalidate(err)

	s.mu.Lock()
	if s.disconnected || s.detached {
		s.mu.Unlock()
		return
	}
	s.disconnected = true
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	log.Infof("Lost target %s: %v", s.id, err)
	for _, l := range listeners {
		s.dispatch(func() { l.Disconnected(s, err) })
	}
}
