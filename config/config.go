// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package config holds the validated runtime settings of the perfdata tool.
package config // import "go.opentelemetry.io/jvmstat/config"

import (
	"errors"
	"flag"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/jvmstat/aliasmap"
	"go.opentelemetry.io/jvmstat/vmid"
)

const (
	// DefaultInterval is the default poll interval of sessions.
	DefaultInterval = 1 * time.Second

	// MinInterval is the shortest accepted poll interval.
	MinInterval = 10 * time.Millisecond
)

// Config is the configuration shared by all subcommands.
type Config struct {
	// Interval is the poll interval for watching targets.
	Interval time.Duration
	// AliasFile replaces the bundled alias table if set.
	AliasFile string
	// TmpDir is the directory holding the hsperfdata_<user> directories.
	TmpDir string

	S3Bucket   string
	S3Region   string
	S3Endpoint string
	S3Prefix   string

	Verbose bool

	Fs *flag.FlagSet
}

// Default returns a Config holding the default values.
func Default() *Config {
	return &Config{
		Interval: DefaultInterval,
		TmpDir:   vmid.DefaultTmpDir,
	}
}

// Validate runs validations on the provided configuration, and returns errors
// if invalid values were provided.
func (cfg *Config) Validate() error {
	if cfg.Interval < MinInterval {
		return fmt.Errorf("the interval has to be set to at least %v", MinInterval)
	}
	if cfg.TmpDir == "" {
		return errors.New("the temp directory must be set")
	}
	if cfg.S3Bucket == "" && (cfg.S3Prefix != "" || cfg.S3Endpoint != "") {
		return errors.New("s3 prefix and endpoint require an s3 bucket")
	}
	return nil
}

// AliasTable loads the configured alias table.
func (cfg *Config) AliasTable() (*aliasmap.Table, error) {
	if cfg.AliasFile == "" {
		return aliasmap.Default()
	}
	return aliasmap.LoadFile(cfg.AliasFile)
}

// Dump visits all flag sets, and dumps them all to debug
// Used for verbose mode logging.
func (cfg *Config) Dump() {
	if cfg.Fs == nil {
		return
	}
	log.Debug("Config:")
	cfg.Fs.VisitAll(func(f *flag.Flag) {
		log.Debugf("%s: %v", f.Name, f.Value)
	})
}
