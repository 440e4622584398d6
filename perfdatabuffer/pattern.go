// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package perfdatabuffer // import "go.opentelemetry.io/jvmstat/perfdatabuffer"

import (
	"fmt"
	"regexp"
)

// Pattern matches instrument names by a regular expression that must match
// at the start of a name but need not consume all of it.
type Pattern struct {
	re *regexp.Regexp
}

// CompilePattern parses expr as a Pattern.
func CompilePattern(expr string) (*Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return &Pattern{re: re}, nil
}

// MatchString reports whether p matches a prefix of name.
func (p *Pattern) MatchString(name string) bool {
	// The leftmost match starts at 0 whenever any match does.
	loc := p.re.FindStringIndex(name)
	return loc != nil && loc[0] == 0
}

func (p *Pattern) String() string {
	return p.re.String()
}
