// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// Glob is a compiled Matrix wildcard pattern. `*` matches any run of
// characters including none, `?` matches exactly one character, and
// everything else matches literally.
type Glob struct {
	pattern string
	re      *regexp.Regexp
	literal bool
}

// CompileGlob compiles a wildcard pattern. Patterns without wildcards
// compare by string equality and skip the regexp entirely.
func CompileGlob(pattern string) (*Glob, error) {
	if !strings.ContainsAny(pattern, "*?") {
		return &Glob{pattern: pattern, literal: true}, nil
	}
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("schema: compiling glob %q: %w", pattern, err)
	}
	return &Glob{pattern: pattern, re: re}, nil
}

// Match reports whether the subject matches the pattern.
func (g *Glob) Match(subject string) bool {
	if g.literal {
		return g.pattern == subject
	}
	return g.re.MatchString(subject)
}

// Pattern returns the source pattern.
func (g *Glob) Pattern() string { return g.pattern }

// IsLiteral reports whether the pattern contains no wildcards.
func (g *Glob) IsLiteral() bool { return g.literal }
