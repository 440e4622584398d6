// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package process // import "go.opentelemetry.io/jvmstat/process"

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Alive reports whether the process still exists. A process owned by another
// user counts as alive.
func (p *Process) Alive() bool {
	err := unix.Kill(p.pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
