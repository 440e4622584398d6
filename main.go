// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// perfdata lists, dumps and watches the PerfData instrumentation buffers of
// running JVMs and of saved buffer copies.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"go.opentelemetry.io/jvmstat/config"
	"go.opentelemetry.io/jvmstat/monitoredvm"
	"go.opentelemetry.io/jvmstat/perfdatabuffer"
	"go.opentelemetry.io/jvmstat/prologue"
	"go.opentelemetry.io/jvmstat/vc"
)

type exitCode int

const (
	exitSuccess exitCode = 0
	exitFailure exitCode = 1

	// Go 'flag' package calls os.Exit(2) on flag parse errors, if ExitOnError is set
	exitParseError exitCode = 2
)

// globals is the state shared by all subcommands.
type globals struct {
	cfg     *config.Config
	version bool
	out     io.Writer
}

// open attaches to target with the configured settings.
func (g *globals) open(target string) (*monitoredvm.Session, error) {
	return monitoredvm.Open(target, g.cfg.Interval,
		monitoredvm.WithTmpDir(g.cfg.TmpDir),
		monitoredvm.WithIndexOptions(perfdatabuffer.WithAliasLoader(g.cfg.AliasTable)))
}

func main() {
	log.SetReportCaller(false)
	log.SetFormatter(&log.TextFormatter{})

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(int(code))
}

func newRootCmd(g *globals) *ffcli.Command {
	return &ffcli.Command{
		Name:       "perfdata",
		ShortUsage: "perfdata [flags] <subcommand> [flags] [args]",
		ShortHelp:  "Inspect the PerfData instrumentation buffers of JVMs",
		FlagSet:    newRootFlagSet(g),
		Options:    flagOptions(),
		Subcommands: []*ffcli.Command{
			newListCmd(g),
			newDumpCmd(g),
			newGetCmd(g),
			newWatchCmd(g),
			newSnapshotCmd(g),
			newMetricsCmd(g),
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}
}

func run(ctx context.Context, args []string, out io.Writer) exitCode {
	g := &globals{cfg: config.Default(), out: out}
	root := newRootCmd(g)

	if err := root.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitSuccess
		}
		return parseError("Failure to parse arguments: %v", err)
	}

	if g.version {
		fmt.Fprintf(out, "%s\n", vc.Version())
		return exitSuccess
	}

	if g.cfg.Verbose {
		log.SetLevel(log.DebugLevel)
		// Dump the arguments in debug mode.
		g.cfg.Dump()
	}

	if err := g.cfg.Validate(); err != nil {
		return parseError("Invalid configuration: %v", err)
	}

	if err := root.Run(ctx); err != nil {
		return failure(root, err)
	}
	return exitSuccess
}

func failure(root *ffcli.Command, err error) exitCode {
	switch {
	case errors.Is(err, flag.ErrHelp):
		fmt.Fprintln(os.Stderr, ffcli.DefaultUsageFunc(root))
		return exitParseError
	case errors.Is(err, prologue.ErrBadMagic),
		errors.Is(err, prologue.ErrTruncated),
		errors.Is(err, perfdatabuffer.ErrUnsupportedVersion):
		log.Errorf("Cannot monitor target: %v", err)
	case errors.Is(err, perfdatabuffer.ErrTargetUnavailable):
		log.Errorf("Target exited: %v", err)
	default:
		log.Errorf("%v", err)
	}
	return exitFailure
}

func parseError(msg string, args ...any) exitCode {
	log.Errorf(msg, args...)
	return exitParseError
}
