// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package vc provides buildtime information.
package vc // import "go.opentelemetry.io/jvmstat/vc"

import (
	"runtime/debug"
	"sync"
)

var (
	// The following variables are going to be set at link time using ldflags
	// and can be referenced later in the program. Unset values are taken from
	// the build information the go command embeds.

	// revision of the service
	revision = ""
	// buildTimestamp, timestamp of the build
	buildTimestamp = ""
	// version in vX.Y.Z{-N-abbrev} format (via git-describe --tags)
	version = ""
)

// devel is reported when no version is known.
const devel = "(devel)"

var fillFromBuildInfo = sync.OnceFunc(func() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if version == "" && info.Main.Version != "" {
		version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if revision == "" {
				revision = s.Value
			}
		case "vcs.time":
			if buildTimestamp == "" {
				buildTimestamp = s.Value
			}
		}
	}
})

// Revision of the service.
func Revision() string {
	fillFromBuildInfo()
	return revision
}

// BuildTimestamp returns the timestamp of the build.
func BuildTimestamp() string {
	fillFromBuildInfo()
	return buildTimestamp
}

// Version in vX.Y.Z{-N-abbrev} format, or "(devel)" if unknown.
func Version() string {
	fillFromBuildInfo()
	if version == "" {
		return devel
	}
	return version
}
