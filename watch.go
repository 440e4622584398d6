// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/jvmstat/monitoredvm"
	"go.opentelemetry.io/jvmstat/perfdatabuffer"
)

type watchCmd struct {
	*globals

	// User-specified command line arguments.
	interval time.Duration
	pattern  string
}

func newWatchCmd(g *globals) *ffcli.Command {
	cmd := watchCmd{globals: g}
	set := flag.NewFlagSet("watch", flag.ContinueOnError)
	set.DurationVar(&cmd.interval, "interval", 0, "Poll interval overriding the global one")
	set.StringVar(&cmd.pattern, "pattern", "", "Only report instruments whose names match")
	return &ffcli.Command{
		Name:       "watch",
		ShortUsage: "watch [flags] <target>",
		ShortHelp:  "Report instruments as the target creates them until it exits",
		FlagSet:    set,
		Exec:       cmd.exec,
	}
}

// printer reports the events of a session. Callbacks run on the poller only.
type printer struct {
	out    io.Writer
	filter *perfdatabuffer.Pattern
	done   chan error
}

func (p *printer) MonitorsUpdated(_ *monitoredvm.Session, status *perfdatabuffer.Status) {
	for _, m := range status.Inserted() {
		if p.filter != nil && !p.filter.MatchString(m.Name()) {
			continue
		}
		fmt.Fprintf(p.out, "+ %s=%s\n", m.Name(), formatValue(m))
	}
	for _, m := range status.Removed() {
		fmt.Fprintf(p.out, "- %s\n", m.Name())
	}
}

func (p *printer) Disconnected(_ *monitoredvm.Session, err error) {
	p.done <- err
}

func (cmd *watchCmd) exec(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("please pass exactly one target")
	}

	p := &printer{out: cmd.out, done: make(chan error, 1)}
	if cmd.pattern != "" {
		filter, err := perfdatabuffer.CompilePattern(cmd.pattern)
		if err != nil {
			return err
		}
		p.filter = filter
	}

	s, err := cmd.open(args[0])
	if err != nil {
		return err
	}
	defer s.Detach()

	if cmd.interval != 0 {
		if err = s.SetInterval(cmd.interval); err != nil {
			return err
		}
	}
	if err = s.AddListener(p); err != nil {
		return err
	}
	log.Infof("Watching %s every %v", s.ID(), s.Interval())

	select {
	case <-ctx.Done():
		s.RemoveListener(p)
		return nil
	case err = <-p.done:
		return err
	}
}
