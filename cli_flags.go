// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"

	"github.com/peterbourgon/ff/v3"

	"go.opentelemetry.io/jvmstat/config"
)

// Help strings for command line arguments
var (
	aliasesHelp = "Alias table replacing the bundled one. " +
		"Lines have the form 'alias <name> <old name>...'."
	intervalHelp = fmt.Sprintf("Poll interval for watching targets, at least %v.",
		config.MinInterval)
	tmpDirHelp     = "Directory holding the hsperfdata_<user> directories of local JVMs."
	s3BucketHelp   = "S3 bucket snapshots are uploaded to."
	s3RegionHelp   = "Region of the S3 bucket. Defaults to the AWS SDK configuration."
	s3EndpointHelp = "Base endpoint of an S3 compatible object store."
	s3PrefixHelp   = "Key prefix of uploaded snapshots."
	verboseHelp    = "Enable verbose logging."
	versionHelp    = "Show version."
)

func newRootFlagSet(g *globals) *flag.FlagSet {
	cfg := g.cfg
	fs := flag.NewFlagSet("perfdata", flag.ContinueOnError)

	// Please keep the parameters ordered alphabetically in the source-code.
	fs.StringVar(&cfg.AliasFile, "aliases", "", aliasesHelp)

	fs.DurationVar(&cfg.Interval, "interval", config.DefaultInterval, intervalHelp)

	fs.StringVar(&cfg.S3Bucket, "s3-bucket", "", s3BucketHelp)
	fs.StringVar(&cfg.S3Endpoint, "s3-endpoint", "", s3EndpointHelp)
	fs.StringVar(&cfg.S3Prefix, "s3-prefix", "", s3PrefixHelp)
	fs.StringVar(&cfg.S3Region, "s3-region", "", s3RegionHelp)

	fs.StringVar(&cfg.TmpDir, "tmpdir", cfg.TmpDir, tmpDirHelp)

	fs.BoolVar(&cfg.Verbose, "v", false, "Shorthand for -verbose.")
	fs.BoolVar(&cfg.Verbose, "verbose", false, verboseHelp)
	fs.BoolVar(&g.version, "version", false, versionHelp)

	// Read by ff, see flagOptions.
	fs.String("config", "", "Configuration file with one 'flag value' pair per line.")

	cfg.Fs = fs
	return fs
}

func flagOptions() []ff.Option {
	return []ff.Option{
		ff.WithEnvVarPrefix("PERFDATA"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		// This will ignore configuration file (only) options that the current
		// version does not recognize.
		ff.WithIgnoreUndefined(true),
		ff.WithAllowMissingConfigFile(true),
	}
}
