// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package aliasmap loads the table mapping legacy instrument names to the
// names a newer or older writer may publish instead.
//
// The text format is a sequence of declarations
//
//	alias <name> <candidate> [<candidate> ...]
//
// where lookups of <name> that miss fall back to the candidates in declared
// order. `//` line comments and `/* */` block comments may appear anywhere.
package aliasmap // import "go.opentelemetry.io/jvmstat/aliasmap"

import (
	"fmt"
	"io"
)

const keyword = "alias"

// SyntaxError describes malformed alias input.
type SyntaxError struct {
	// Line is the 1-based line number of the offending token.
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("alias map syntax error at line %d: %s", e.Line, e.Msg)
}

type token struct {
	text string
	line int
}

// lexer splits alias input into word tokens, skipping white space and comments.
type lexer struct {
	data []byte
	pos  int
	line int
}

func isWordChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '.', '_', '$', ':', '-':
		return true
	}
	return false
}

// next returns the next token. At end of input it returns ok == false.
func (l *lexer) next() (tok token, ok bool, err error) {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			l.pos++
		case c == '/' && l.peek(1) == '/':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' {
				l.pos++
			}
		case c == '/' && l.peek(1) == '*':
			if err := l.skipBlockComment(); err != nil {
				return token{}, false, err
			}
		case isWordChar(c):
			start := l.pos
			for l.pos < len(l.data) && isWordChar(l.data[l.pos]) {
				l.pos++
			}
			return token{text: string(l.data[start:l.pos]), line: l.line}, true, nil
		default:
			return token{}, false, &SyntaxError{Line: l.line,
				Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	return token{}, false, nil
}

func (l *lexer) peek(n int) byte {
	if l.pos+n < len(l.data) {
		return l.data[l.pos+n]
	}
	return 0
}

func (l *lexer) skipBlockComment() error {
	startLine := l.line
	l.pos += 2
	for l.pos < len(l.data) {
		if l.data[l.pos] == '*' && l.peek(1) == '/' {
			l.pos += 2
			return nil
		}
		if l.data[l.pos] == '\n' {
			l.line++
		}
		l.pos++
	}
	return &SyntaxError{Line: startLine, Msg: "unterminated comment"}
}

// Parse reads alias declarations from r.
func Parse(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias map: %w", err)
	}

	lex := &lexer{data: data, line: 1}
	table := &Table{aliases: make(map[string][]string)}

	tok, ok, err := lex.next()
	for ok && err == nil {
		if tok.text != keyword {
			return nil, &SyntaxError{Line: tok.line,
				Msg: fmt.Sprintf("expected %q, got %q", keyword, tok.text)}
		}
		kwLine := tok.line

		var name token
		name, ok, err = lex.next()
		if err != nil {
			return nil, err
		}
		if !ok || name.text == keyword {
			return nil, &SyntaxError{Line: kwLine, Msg: "missing name after alias"}
		}

		var candidates []string
		for {
			tok, ok, err = lex.next()
			if err != nil || !ok || tok.text == keyword {
				break
			}
			candidates = append(candidates, tok.text)
		}
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return nil, &SyntaxError{Line: name.line,
				Msg: fmt.Sprintf("no aliases declared for %q", name.text)}
		}
		table.add(name.text, candidates)
	}
	if err != nil {
		return nil, err
	}
	return table, nil
}
