// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/sync/errgroup"

	"go.opentelemetry.io/jvmstat/monitor"
)

// maxConcurrentDumps bounds the targets attached to at once.
const maxConcurrentDumps = 8

type dumpCmd struct {
	*globals

	// User-specified command line arguments.
	pattern   string
	supported bool
	verbose   bool
}

func newDumpCmd(g *globals) *ffcli.Command {
	cmd := dumpCmd{globals: g}
	set := flag.NewFlagSet("dump", flag.ContinueOnError)
	set.StringVar(&cmd.pattern, "pattern", ".*", "Only dump instruments whose names match")
	set.BoolVar(&cmd.supported, "supported", false, "Only dump supported instruments")
	set.BoolVar(&cmd.verbose, "l", false, "Also print units and variability")
	return &ffcli.Command{
		Name:       "dump",
		ShortUsage: "dump [flags] <target>...",
		ShortHelp:  "Print the instruments of one or more targets",
		LongHelp: "A target is a pid, local://<pid>, proc:<pid> for reading the memory of " +
			"a process, or file:<path> for a PerfData file or a snapshot ending in .zst.",
		FlagSet: set,
		Exec:    cmd.exec,
	}
}

func (cmd *dumpCmd) exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("please pass at least one target")
	}

	outputs := make([]bytes.Buffer, len(args))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDumps)
	for i, target := range args {
		g.Go(func() error {
			if err := cmd.dump(ctx, &outputs[i], target); err != nil {
				return fmt.Errorf("%s: %w", target, err)
			}
			return nil
		})
	}
	err := g.Wait()

	for i := range outputs {
		if len(args) > 1 && outputs[i].Len() > 0 {
			fmt.Fprintf(cmd.out, "==> %s <==\n", args[i])
		}
		if _, werr := outputs[i].WriteTo(cmd.out); werr != nil {
			return werr
		}
	}
	return err
}

// dump writes the instruments of target to w. Targets still waiting for a
// slot are skipped once ctx is canceled.
func (cmd *dumpCmd) dump(ctx context.Context, w io.Writer, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := cmd.open(target)
	if err != nil {
		return err
	}
	defer s.Detach()

	monitors, err := s.FindByPattern(cmd.pattern)
	if err != nil {
		return err
	}
	for _, m := range monitors {
		if cmd.supported && !m.IsSupported() {
			continue
		}
		if cmd.verbose {
			fmt.Fprintf(w, "%s=%s [%s %s]\n", m.Name(), formatValue(m),
				m.Units(), m.Variability())
			continue
		}
		fmt.Fprintf(w, "%s=%s\n", m.Name(), formatValue(m))
	}
	return nil
}

// formatValue renders the current value of m. Strings are quoted, byte
// arrays are printed in hex.
func formatValue(m monitor.Monitor) string {
	switch v := m.Value().(type) {
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return strconv.Quote(v)
	case []byte:
		return hex.EncodeToString(v)
	}
	return fmt.Sprintf("%v", m.Value())
}
