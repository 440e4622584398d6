// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"maps"
	"slices"

	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/jvmstat/process"
	"go.opentelemetry.io/jvmstat/vmid"
)

// commandName is the instrument holding the main class and arguments.
const commandName = "sun.rt.javaCommand"

type listCmd struct {
	*globals

	// User-specified command line arguments.
	all bool
}

func newListCmd(g *globals) *ffcli.Command {
	cmd := listCmd{globals: g}
	set := flag.NewFlagSet("list", flag.ContinueOnError)
	set.BoolVar(&cmd.all, "a", false, "Include files of processes that exited")
	return &ffcli.Command{
		Name:       "list",
		ShortUsage: "list [flags]",
		ShortHelp:  "List the local JVMs publishing PerfData",
		FlagSet:    set,
		Exec:       cmd.exec,
	}
}

func (cmd *listCmd) exec(context.Context, []string) error {
	targets, err := vmid.LocalTargets(cmd.cfg.TmpDir)
	if err != nil {
		return err
	}

	for _, pid := range slices.Sorted(maps.Keys(targets)) {
		t := targets[pid]
		if !process.New(pid).Alive() {
			if cmd.all {
				fmt.Fprintf(cmd.out, "%d\t%s\t(exited)\n", pid, t.User)
			}
			continue
		}
		fmt.Fprintf(cmd.out, "%d\t%s\t%s\n", pid, t.User, cmd.javaCommand(t))
	}
	return nil
}

func (cmd *listCmd) javaCommand(t vmid.Target) string {
	s, err := cmd.open("file:" + t.Path)
	if err != nil {
		log.Debugf("Failed to attach to %d: %v", t.PID, err)
		return "-"
	}
	defer s.Detach()

	m, err := s.FindByName(commandName)
	if err != nil || m == nil {
		return "-"
	}
	if v, ok := m.Value().(string); ok && v != "" {
		return v
	}
	return "-"
}
