// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/peterbourgon/ff/v3/ffcli"
)

type getCmd struct {
	*globals
}

func newGetCmd(g *globals) *ffcli.Command {
	cmd := getCmd{globals: g}
	return &ffcli.Command{
		Name:       "get",
		ShortUsage: "get <target> <name>...",
		ShortHelp:  "Print single instruments, also under their old names",
		FlagSet:    flag.NewFlagSet("get", flag.ContinueOnError),
		Exec:       cmd.exec,
	}
}

func (cmd *getCmd) exec(_ context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("please pass a target and at least one instrument name")
	}

	s, err := cmd.open(args[0])
	if err != nil {
		return err
	}
	defer s.Detach()

	missing := 0
	for _, name := range args[1:] {
		m, err := s.FindByName(name)
		if err != nil {
			return err
		}
		if m == nil {
			fmt.Fprintf(cmd.out, "%s: not found\n", name)
			missing++
			continue
		}
		// The instrument may have been found under an alias.
		fmt.Fprintf(cmd.out, "%s=%s\n", m.Name(), formatValue(m))
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d instruments not found", missing, len(args)-1)
	}
	return nil
}
