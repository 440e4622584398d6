// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package aliasmap // import "go.opentelemetry.io/jvmstat/aliasmap"

import (
	lru "github.com/elastic/go-freelru"
	"github.com/zeebo/xxh3"
)

// DefaultResolverCacheSize is the number of resolved names kept per Resolver.
const DefaultResolverCacheSize = 256

// hashString is the hash callback for the resolution cache.
func hashString(s string) uint32 {
	return uint32(xxh3.HashString(s))
}

// Resolver resolves names through a Table and remembers successful
// resolutions. Only hits are cached: the set of existing instruments only ever
// grows, so a hit never goes stale while a miss may turn into a hit later.
//
// Resolver is not safe for concurrent use; callers serialize access.
type Resolver struct {
	table *Table
	cache *lru.LRU[string, string]
}

// NewResolver returns a Resolver over table caching up to size resolutions.
func NewResolver(table *Table, size uint32) (*Resolver, error) {
	if table == nil {
		table = Empty()
	}
	if size == 0 {
		size = DefaultResolverCacheSize
	}
	cache, err := lru.New[string, string](size, hashString)
	if err != nil {
		return nil, err
	}
	return &Resolver{table: table, cache: cache}, nil
}

// Resolve returns the first candidate of name for which exists returns true.
func (r *Resolver) Resolve(name string, exists func(string) bool) (string, bool) {
	if resolved, ok := r.cache.Get(name); ok {
		return resolved, true
	}
	for _, candidate := range r.table.aliases[name] {
		if exists(candidate) {
			r.cache.Add(name, candidate)
			return candidate, true
		}
	}
	return "", false
}

// Table returns the table the Resolver consults.
func (r *Resolver) Table() *Table {
	return r.table
}
