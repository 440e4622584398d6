// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package periodiccaller allows periodic calls of functions.
package periodiccaller // import "go.opentelemetry.io/jvmstat/periodiccaller"

import (
	"context"
	"time"
)

// Start starts a timer that calls <callback> every <interval> until the <ctx> is canceled
// or the returned stop function is called.
func Start(ctx context.Context, interval time.Duration, callback func()) func() {
	return StartWithManualTrigger(ctx, func() time.Duration { return interval }, nil,
		func(bool) { callback() })
}

// StartWithManualTrigger starts a timer that calls <callback> every <interval()>
// until the <ctx> is canceled. <interval> is evaluated again after every call, so
// a changed interval applies from the next period on. A send on <trigger> calls
// <callback> immediately and restarts the period.
//
// The returned function stops the timer and waits until a running callback has
// returned. It must not be called from within <callback>.
func StartWithManualTrigger(ctx context.Context, interval func() time.Duration,
	trigger <-chan bool, callback func(manualTrigger bool)) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	timer := time.NewTimer(interval())

	go func() {
		defer close(done)
		defer timer.Stop()

		for {
			select {
			case <-timer.C:
				callback(false)
			case <-trigger:
				callback(true)
			case <-ctx.Done():
				return
			}
			timer.Reset(interval())
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
