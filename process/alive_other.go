// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package process // import "go.opentelemetry.io/jvmstat/process"

import "os"

// Alive reports whether the process still exists.
func (p *Process) Alive() bool {
	_, err := os.Stat(p.procPath())
	return err == nil
}
