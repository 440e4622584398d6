// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package vmid parses target identifiers and finds the PerfData files of
// local JVMs.
//
// Supported identifiers:
//
//	<pid>            PerfData file of a local process, mapped shared
//	local://<pid>    same as <pid>
//	proc:<pid>       PerfData mapping read from the process memory
//	file:<path>      PerfData file at path, mapped shared
//	file:<path>.zst  snapshot written by the snapshot package
package vmid // import "go.opentelemetry.io/jvmstat/vmid"

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/jvmstat/process"
)

// DefaultTmpDir is the directory JVMs create their hsperfdata directories in.
const DefaultTmpDir = "/tmp"

// SnapshotSuffix marks file targets holding a snapshot.
const SnapshotSuffix = ".zst"

var (
	// ErrInvalid is returned for identifiers that cannot be parsed.
	ErrInvalid = errors.New("invalid target identifier")

	// ErrNotFound is returned when no PerfData file exists for a process.
	ErrNotFound = errors.New("no perfdata file found")
)

// Kind selects how the buffer of a target is acquired.
type Kind uint8

const (
	// KindLocal maps the PerfData file of a local process.
	KindLocal Kind = iota
	// KindProcess reads the PerfData mapping from process memory.
	KindProcess
	// KindFile maps a PerfData file given by path.
	KindFile
	// KindSnapshot reads a compressed snapshot.
	KindSnapshot
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindProcess:
		return "proc"
	case KindFile:
		return "file"
	case KindSnapshot:
		return "snapshot"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// VMID identifies a target.
type VMID struct {
	Kind Kind
	// PID is set for KindLocal and KindProcess.
	PID int
	// Path is set for KindFile and KindSnapshot.
	Path string
}

func (v VMID) String() string {
	switch v.Kind {
	case KindLocal:
		return strconv.Itoa(v.PID)
	case KindProcess:
		return "proc:" + strconv.Itoa(v.PID)
	}
	return "file:" + v.Path
}

// HasPID reports whether the target is a live local process.
func (v VMID) HasPID() bool {
	return v.Kind == KindLocal || v.Kind == KindProcess
}

func parsePID(s, target string) (int, error) {
	pid, err := strconv.Atoi(s)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("%w %q: bad process id", ErrInvalid, target)
	}
	return pid, nil
}

// Parse parses a target identifier.
func Parse(s string) (VMID, error) {
	switch {
	case strings.HasPrefix(s, "local://"):
		pid, err := parsePID(strings.TrimPrefix(s, "local://"), s)
		return VMID{Kind: KindLocal, PID: pid}, err
	case strings.HasPrefix(s, "proc:"):
		pid, err := parsePID(strings.TrimPrefix(s, "proc:"), s)
		return VMID{Kind: KindProcess, PID: pid}, err
	case strings.HasPrefix(s, "file:"):
		path := strings.TrimPrefix(strings.TrimPrefix(s, "file:"), "//")
		if path == "" {
			return VMID{}, fmt.Errorf("%w %q: empty path", ErrInvalid, s)
		}
		if strings.HasSuffix(path, SnapshotSuffix) {
			return VMID{Kind: KindSnapshot, Path: path}, nil
		}
		return VMID{Kind: KindFile, Path: path}, nil
	}
	pid, err := parsePID(s, s)
	return VMID{Kind: KindLocal, PID: pid}, err
}

// PerfDataPath returns the PerfData file of pid below tmpDir. A process in
// another mount namespace is looked up below its root, under its namespaced
// pid.
func PerfDataPath(tmpDir string, pid int) (string, error) {
	path, err := findUnique(filepath.Join(tmpDir, "hsperfdata_*", strconv.Itoa(pid)))
	if err == nil || !errors.Is(err, ErrNotFound) {
		return path, err
	}

	pr := process.New(pid)
	nspid, nsErr := pr.NSPid()
	if nsErr != nil {
		log.Debugf("Failed to read namespaced pid of %d: %v", pid, nsErr)
		return "", fmt.Errorf("PID %d: %w", pid, ErrNotFound)
	}
	path, err = findUnique(filepath.Join(pr.Root(), tmpDir, "hsperfdata_*", strconv.Itoa(nspid)))
	if err != nil {
		return "", fmt.Errorf("PID %d: %w", pid, err)
	}
	return path, nil
}

func findUnique(pattern string) (string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", ErrNotFound
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("ambiguous perfdata files: %s", strings.Join(matches, ", "))
}

// Target is a PerfData file found below a temp directory.
type Target struct {
	PID  int
	User string
	Path string
}

// LocalTargets returns the PerfData files below tmpDir, keyed by pid.
func LocalTargets(tmpDir string) (map[int]Target, error) {
	dirs, err := filepath.Glob(filepath.Join(tmpDir, "hsperfdata_*"))
	if err != nil {
		return nil, err
	}

	targets := make(map[int]Target)
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Debugf("Skipping %s: %v", dir, err)
			continue
		}
		user := strings.TrimPrefix(filepath.Base(dir), "hsperfdata_")
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			pid, err := strconv.Atoi(e.Name())
			if err != nil || pid <= 0 {
				continue
			}
			targets[pid] = Target{PID: pid, User: user, Path: filepath.Join(dir, e.Name())}
		}
	}
	return targets, nil
}
