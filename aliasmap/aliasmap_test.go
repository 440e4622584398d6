// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package aliasmap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := `
// leading comment
alias oldName canonicalA /* inline */ canonicalB
alias sun.gc.cause
	hotspot.gc.cause // trailing comment
/* block
   spanning lines */
alias oldName canonicalC canonicalA
`
	table, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"canonicalA", "canonicalB", "canonicalC"}, table.Candidates("oldName"))
	assert.Equal(t, []string{"hotspot.gc.cause"}, table.Candidates("sun.gc.cause"))
	assert.Empty(t, table.Candidates("missing"))
}

func TestParseEmpty(t *testing.T) {
	table, err := Parse(strings.NewReader("  // nothing here\n/* at all */\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := map[string]struct {
		input string
		line  int
	}{
		"missing keyword":        {input: "\nfoo bar baz\n", line: 2},
		"missing name":           {input: "alias", line: 1},
		"name without aliases":   {input: "alias a b\nalias c\n", line: 2},
		"keyword as name":        {input: "alias alias x", line: 1},
		"unterminated comment":   {input: "alias a b\n\n/* never closed\n", line: 3},
		"unexpected character":   {input: "alias a b\nalias c d # e\n", line: 2},
		"aliases cut by keyword": {input: "alias a\nalias b c", line: 1},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.input))
			var syntaxErr *SyntaxError
			require.ErrorAs(t, err, &syntaxErr)
			assert.Equal(t, tc.line, syntaxErr.Line)
			assert.Contains(t, err.Error(), "line")
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliasmap")
	require.NoError(t, os.WriteFile(path, []byte("alias a b c\n"), 0o600))

	table, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, table.Candidates("a"))

	require.NoError(t, os.WriteFile(path, []byte("bogus\n"), 0o600))
	_, err = LoadFile(path)
	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefault(t *testing.T) {
	table, err := Default()
	require.NoError(t, err)
	assert.Positive(t, table.Len())
	assert.Equal(t, []string{"hotspot.ci.total.time"}, table.Candidates("java.ci.totalTime"))

	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, table, again)
}

func TestResolverFallbackOrder(t *testing.T) {
	table, err := Parse(strings.NewReader("alias oldName canonicalA canonicalB"))
	require.NoError(t, err)
	r, err := NewResolver(table, 0)
	require.NoError(t, err)

	known := map[string]bool{"canonicalB": true}
	exists := func(name string) bool { return known[name] }

	got, ok := r.Resolve("oldName", exists)
	require.True(t, ok)
	assert.Equal(t, "canonicalB", got)

	// canonicalA showing up later does not change a cached resolution.
	known["canonicalA"] = true
	got, ok = r.Resolve("oldName", exists)
	require.True(t, ok)
	assert.Equal(t, "canonicalB", got)

	_, ok = r.Resolve("unknown", exists)
	assert.False(t, ok)
}

func TestResolverDoesNotCacheMisses(t *testing.T) {
	table, err := Parse(strings.NewReader("alias oldName canonicalA"))
	require.NoError(t, err)
	r, err := NewResolver(table, 4)
	require.NoError(t, err)

	known := map[string]bool{}
	exists := func(name string) bool { return known[name] }

	_, ok := r.Resolve("oldName", exists)
	assert.False(t, ok)

	known["canonicalA"] = true
	got, ok := r.Resolve("oldName", exists)
	require.True(t, ok)
	assert.Equal(t, "canonicalA", got)
}

func TestResolverNilTable(t *testing.T) {
	r, err := NewResolver(nil, 1)
	require.NoError(t, err)
	_, ok := r.Resolve("x", func(string) bool { return true })
	assert.False(t, ok)
	assert.Equal(t, 0, r.Table().Len())
}
