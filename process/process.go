// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package process inspects a local process through /proc: its liveness, its
// memory mappings and the PerfData buffer it maps.
package process // import "go.opentelemetry.io/jvmstat/process"

import (
	"bufio"
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/jvmstat/remotememory"
)

var (
	// ErrNoMappings is returned when no mappings can be extracted.
	ErrNoMappings = errors.New("no mappings")

	// ErrNoPerfData is returned when the process maps no PerfData file.
	ErrNoPerfData = errors.New("process has no perfdata mapping")
)

//nolint:lll
var (
	cgroupv2ContainerIDPattern = regexp.MustCompile(`0:.*?:.*?([0-9a-fA-F]{64})(?:\.scope)?(?:/[a-z]+)?$`)
)

// Process is a process running on this machine.
type Process struct {
	pid      int
	procRoot string
}

// New returns a Process for pid.
func New(pid int) *Process {
	return &Process{pid: pid, procRoot: "/proc"}
}

func (p *Process) PID() int {
	return p.pid
}

func (p *Process) procPath(elem ...string) string {
	return filepath.Join(append([]string{p.procRoot, strconv.Itoa(p.pid)}, elem...)...)
}

// Root returns the directory the process sees as file system root.
func (p *Process) Root() string {
	return p.procPath("root")
}

// Comm returns the command name of the process.
func (p *Process) Comm() (string, error) {
	comm, err := os.ReadFile(p.procPath("comm"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(comm)), nil
}

// NSPid returns the pid of the process in its innermost pid namespace. It is
// the name of the PerfData file of a containerized JVM.
func (p *Process) NSPid() (int, error) {
	f, err := os.Open(p.procPath("status"))
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return parseNSPid(f, p.pid)
}

func parseNSPid(status io.Reader, pid int) (int, error) {
	scanner := bufio.NewScanner(status)
	for scanner.Scan() {
		value, ok := strings.CutPrefix(scanner.Text(), "NSpid:")
		if !ok {
			continue
		}
		fields := strings.Fields(value)
		if len(fields) == 0 {
			break
		}
		return strconv.Atoi(fields[len(fields)-1])
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	// Kernels before 4.1 do not report NSpid.
	return pid, nil
}

// ContainerID returns the ID of the container the process runs in, if any.
func (p *Process) ContainerID() (string, error) {
	f, err := os.Open(p.procPath("cgroup"))
	if err != nil {
		return "", err
	}
	defer f.Close()
	return parseContainerID(f), nil
}

// parseContainerID parses cgroup v2 container IDs
func parseContainerID(cgroupFile io.Reader) string {
	scanner := bufio.NewScanner(cgroupFile)
	buf := make([]byte, 512)
	// With a maximum of 4096 characters path in the kernel, 8192 should be fine here.
	scanner.Buffer(buf, 8192)
	for scanner.Scan() {
		b := scanner.Bytes()
		if bytes.Equal(b, []byte("0::/")) {
			continue
		}
		line := scanner.Text()
		pathParts := cgroupv2ContainerIDPattern.FindStringSubmatch(line)
		if pathParts == nil {
			log.Debugf("Could not extract cgroupv2 path from line: %s", line)
			continue
		}
		return pathParts[1]
	}
	return ""
}

func trimMappingPath(path string) string {
	// Trim the deleted indication from the path.
	// See path_with_deleted in linux/fs/d_path.c
	return strings.TrimSuffix(path, " (deleted)")
}

func parseMappings(mapsFile io.Reader) ([]Mapping, uint32, error) {
	numParseErrors := uint32(0)
	mappings := make([]Mapping, 0, 32)
	scanner := bufio.NewScanner(mapsFile)
	scanner.Buffer(make([]byte, 256), 8192)

	for scanner.Scan() {
		fields := strings.SplitN(strings.TrimSpace(scanner.Text()), " ", 6)
		// Paths are padded to a column, the remainder keeps the leading spaces.
		if len(fields) < 5 {
			numParseErrors++
			continue
		}
		path := ""
		if len(fields) == 6 {
			path = trimMappingPath(strings.TrimSpace(fields[5]))
		}

		start, end, ok := strings.Cut(fields[0], "-")
		if !ok {
			numParseErrors++
			continue
		}
		mapsFlags := fields[1]
		if len(mapsFlags) < 4 {
			numParseErrors++
			continue
		}
		flags := elf.ProgFlag(0)
		if mapsFlags[0] == 'r' {
			flags |= elf.PF_R
		}
		if mapsFlags[1] == 'w' {
			flags |= elf.PF_W
		}
		if mapsFlags[2] == 'x' {
			flags |= elf.PF_X
		}
		// Nothing can be read from inaccessible mappings.
		if flags&elf.PF_R == 0 {
			continue
		}

		devMajor, devMinor, ok := strings.Cut(fields[3], ":")
		if !ok {
			numParseErrors++
			continue
		}

		var values [6]uint64
		var err error
		for i, f := range []struct {
			s    string
			base int
		}{{start, 16}, {end, 16}, {fields[2], 16}, {devMajor, 16}, {devMinor, 16}, {fields[4], 10}} {
			if values[i], err = strconv.ParseUint(f.s, f.base, 64); err != nil {
				break
			}
		}
		if err != nil {
			log.Debugf("Failed to parse mapping %q: %v", scanner.Text(), err)
			numParseErrors++
			continue
		}

		mappings = append(mappings, Mapping{
			Vaddr:      values[0],
			Length:     values[1] - values[0],
			Flags:      flags,
			Shared:     mapsFlags[3] == 's',
			FileOffset: values[2],
			Device:     values[3]<<8 + values[4],
			Inode:      values[5],
			Path:       path,
		})
	}
	return mappings, numParseErrors, scanner.Err()
}

// Mappings reads and parses the readable memory mappings of the process.
func (p *Process) Mappings() ([]Mapping, error) {
	mapsFile, err := os.Open(p.procPath("maps"))
	if err != nil {
		return nil, err
	}
	defer mapsFile.Close()

	mappings, numParseErrors, err := parseMappings(mapsFile)
	if err != nil {
		return nil, err
	}
	if numParseErrors > 0 {
		log.Debugf("PID %d: %d unparsable mapping lines", p.pid, numParseErrors)
	}
	if len(mappings) == 0 {
		return nil, ErrNoMappings
	}
	return mappings, nil
}

// PerfDataMapping returns the mapping of the PerfData file of the process.
func (p *Process) PerfDataMapping() (Mapping, error) {
	mappings, err := p.Mappings()
	if err != nil {
		return Mapping{}, err
	}
	for _, m := range mappings {
		if m.IsPerfData() {
			return m, nil
		}
	}
	return Mapping{}, fmt.Errorf("PID %d: %w", p.pid, ErrNoPerfData)
}

// Memory reads a mapping of a process through process_vm_readv. It lets a
// PerfData buffer be read even when its backing file has been deleted.
type Memory struct {
	remotememory.ProcessVirtualMemory
	length int
}

// Memory returns a reader for the contents of m.
func (p *Process) Memory(m Mapping) *Memory {
	return &Memory{
		ProcessVirtualMemory: remotememory.NewProcessVirtualMemory(p.pid, m.Vaddr),
		length:               int(m.Length),
	}
}

// Len returns the size of the mapping.
func (m *Memory) Len() int {
	return m.length
}

// ReadAt reads from the mapping, never past its end.
func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(m.length) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	if remaining := int64(m.length) - off; int64(len(p)) > remaining {
		n, err := m.ProcessVirtualMemory.ReadAt(p[:remaining], off)
		if err != nil {
			return n, err
		}
		return n, io.EOF
	}
	return m.ProcessVirtualMemory.ReadAt(p, off)
}
