// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"path/filepath"
	"strconv"
	"time"

	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/jvmstat/snapshot"
	"go.opentelemetry.io/jvmstat/vmid"
)

type snapshotCmd struct {
	*globals

	// User-specified command line arguments.
	output string
	key    string

	// now is replaced in tests.
	now func() time.Time
	// client is replaced in tests.
	client func(ctx context.Context) (snapshot.PutObjectAPI, error)
}

func newSnapshotCmd(g *globals) *ffcli.Command {
	cmd := snapshotCmd{globals: g, now: time.Now}
	cmd.client = func(ctx context.Context) (snapshot.PutObjectAPI, error) {
		client, err := snapshot.Client(ctx, g.cfg.S3Region, g.cfg.S3Endpoint)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	set := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	set.StringVar(&cmd.output, "o", "", "Write the snapshot to this file")
	set.StringVar(&cmd.key, "s3-key", "",
		"Object key of the upload, derived from the target and time if unset")
	return &ffcli.Command{
		Name:       "snapshot",
		ShortUsage: "snapshot [-o file] [-s3-key key] <target>",
		ShortHelp:  "Save a compressed copy of a target's buffer",
		LongHelp: "The copy is written to a file, uploaded to the bucket set by " +
			"-s3-bucket, or both. Snapshots can be read back as file:<path>.zst.",
		FlagSet: set,
		Exec:    cmd.exec,
	}
}

// objectName names the target in derived object keys.
func objectName(id vmid.VMID) string {
	if id.HasPID() {
		return strconv.Itoa(id.PID)
	}
	return filepath.Base(id.Path)
}

func (cmd *snapshotCmd) exec(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("please pass exactly one target")
	}
	if cmd.output == "" && cmd.cfg.S3Bucket == "" {
		return errors.New("please pass `-o` or `-s3-bucket` (or both)")
	}

	s, err := cmd.open(args[0])
	if err != nil {
		return err
	}
	data, err := s.Bytes()
	if derr := s.Detach(); derr != nil {
		log.Warnf("Failed to detach from %s: %v", s.ID(), derr)
	}
	if err != nil {
		return err
	}

	if cmd.output != "" {
		if err = snapshot.WriteFile(cmd.output, data); err != nil {
			return err
		}
		log.Infof("Wrote %d bytes of %s to %s", len(data), s.ID(), cmd.output)
	}

	if cmd.cfg.S3Bucket == "" {
		return nil
	}
	key := cmd.key
	if key == "" {
		key = snapshot.Key(cmd.cfg.S3Prefix, objectName(s.ID()), cmd.now())
	}
	client, err := cmd.client(ctx)
	if err != nil {
		return err
	}
	return snapshot.Upload(ctx, client, cmd.cfg.S3Bucket, key, data)
}
