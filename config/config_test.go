// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		mutate func(*Config)
		err    string
	}{
		"default": {mutate: func(*Config) {}},
		"zero interval": {
			mutate: func(c *Config) { c.Interval = 0 },
			err:    "the interval has to be set to at least 10ms",
		},
		"negative interval": {
			mutate: func(c *Config) { c.Interval = -time.Second },
			err:    "the interval has to be set to at least 10ms",
		},
		"no tmpdir": {
			mutate: func(c *Config) { c.TmpDir = "" },
			err:    "the temp directory must be set",
		},
		"prefix without bucket": {
			mutate: func(c *Config) { c.S3Prefix = "snapshots" },
			err:    "s3 prefix and endpoint require an s3 bucket",
		},
		"bucket and prefix": {
			mutate: func(c *Config) { c.S3Bucket, c.S3Prefix = "b", "snapshots" },
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.err == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tc.err)
		})
	}
}

func TestAliasTable(t *testing.T) {
	cfg := Default()
	table, err := cfg.AliasTable()
	require.NoError(t, err)
	assert.Positive(t, table.Len())

	cfg.AliasFile = filepath.Join(t.TempDir(), "aliases")
	require.NoError(t, os.WriteFile(cfg.AliasFile, []byte("alias a b\n"), 0o600))
	table, err = cfg.AliasTable()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, table.Candidates("a"))

	cfg.AliasFile = filepath.Join(t.TempDir(), "missing")
	_, err = cfg.AliasTable()
	require.ErrorIs(t, err, os.ErrNotExist)
}
