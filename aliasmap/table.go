// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package aliasmap // import "go.opentelemetry.io/jvmstat/aliasmap"

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sync"
)

// defaultAliases is the bundled table of renamed HotSpot instruments.
//
//go:embed aliasmap
var defaultAliases []byte

// Table maps a name to the ordered candidate names to try instead. A Table is
// read-only once loaded and safe for concurrent use.
type Table struct {
	aliases map[string][]string
}

// Empty returns a table without any alias.
func Empty() *Table {
	return &Table{aliases: map[string][]string{}}
}

func (t *Table) add(name string, candidates []string) {
	existing := t.aliases[name]
	for _, c := range candidates {
		if c != name && !slices.Contains(existing, c) {
			existing = append(existing, c)
		}
	}
	t.aliases[name] = existing
}

// Candidates returns the names to try for name, in declared order.
func (t *Table) Candidates(name string) []string {
	return slices.Clone(t.aliases[name])
}

// Len returns the number of names with aliases.
func (t *Table) Len() int {
	return len(t.aliases)
}

// LoadFile parses the alias file at path.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

var loadDefault = sync.OnceValues(func() (*Table, error) {
	return Parse(bytes.NewReader(defaultAliases))
})

// Default returns the bundled alias table. It is parsed once on first use.
func Default() (*Table, error) {
	return loadDefault()
}
