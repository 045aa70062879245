// Package filter decides which paths take part in the event stream.
package filter

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

type Mode string

const (
	ModeOptIn  Mode = "optin"
	ModeOptOut Mode = "optout"
)

// CompileError reports a pattern that could not be compiled.
type CompileError struct {
	Pattern string
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile glob %q: %v", e.Pattern, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Filter matches paths against a glob set. Under ModeOptIn a path is included
// when it matches any pattern, under ModeOptOut when it matches none.
type Filter struct {
	mode     Mode
	patterns []string
	globs    []glob.Glob
}

// New compiles patterns into a Filter. An unknown mode or a malformed pattern
// is an error.
func New(mode Mode, patterns []string) (*Filter, error) {
	if mode != ModeOptIn && mode != ModeOptOut {
		return nil, fmt.Errorf("unknown filter mode %q", mode)
	}
	compiled := make([]glob.Glob, 0, len(patterns))
	kept := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if strings.TrimSpace(pattern) == "" {
			continue
		}
		normalized, err := normalizePattern(pattern)
		if err != nil {
			return nil, &CompileError{Pattern: pattern, Err: err}
		}
		matcher, err := glob.Compile(normalized)
		if err != nil {
			return nil, &CompileError{Pattern: pattern, Err: err}
		}
		compiled = append(compiled, matcher)
		kept = append(kept, pattern)
	}
	return &Filter{mode: mode, patterns: kept, globs: compiled}, nil
}

// Default returns the filter used when none is configured: it includes every path.
func Default() *Filter {
	return &Filter{mode: ModeOptOut}
}

func (f *Filter) Match(path string) bool {
	if f == nil {
		return true
	}
	matched := f.matchAny(filepath.ToSlash(path))
	if f.mode == ModeOptIn {
		return matched
	}
	return !matched
}

func (f *Filter) Mode() Mode {
	if f == nil {
		return ModeOptOut
	}
	return f.mode
}

func (f *Filter) Patterns() []string {
	if f == nil {
		return nil
	}
	patterns := make([]string, len(f.patterns))
	copy(patterns, f.patterns)
	return patterns
}

func (f *Filter) matchAny(path string) bool {
	for _, matcher := range f.globs {
		if matcher.Match(path) {
			return true
		}
	}
	return false
}

// normalizePattern rejects alternation groups gobwas/glob would silently
// accept unbalanced, and rewrites the [^...] class negation to [!...].
func normalizePattern(pattern string) (string, error) {
	var builder strings.Builder
	builder.Grow(len(pattern))
	depth := 0
	inClass := false
	for index := 0; index < len(pattern); index++ {
		char := pattern[index]
		switch {
		case char == '\\':
			if index+1 >= len(pattern) {
				return "", errors.New("dangling escape")
			}
			builder.WriteByte(char)
			index++
			builder.WriteByte(pattern[index])
			continue
		case inClass:
			if char == ']' {
				inClass = false
			}
		case char == '[':
			inClass = true
			builder.WriteByte(char)
			if index+1 < len(pattern) && pattern[index+1] == '^' {
				builder.WriteByte('!')
				index++
			}
			continue
		case char == '{':
			depth++
		case char == '}':
			if depth == 0 {
				return "", errors.New("unopened alternation group")
			}
			depth--
		}
		builder.WriteByte(char)
	}
	if depth > 0 {
		return "", errors.New("unclosed alternation group")
	}
	return builder.String(), nil
}

// ParseMode accepts the spellings used on the command line and in config files.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "optin", "opt-in", "opt_in":
		return ModeOptIn, nil
	case "optout", "opt-out", "opt_out", "":
		return ModeOptOut, nil
	default:
		return "", fmt.Errorf("unknown filter mode %q", value)
	}
}
