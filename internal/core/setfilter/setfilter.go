// Package setfilter matches record set names against a comma-separated filter expression
package setfilter

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// Option configures a Filter
type Option func(*Filter)

// WithFold makes matching case-insensitive using Unicode case folding
func WithFold() Option {
	return func(f *Filter) { f.fold = true }
}

type entry struct {
	literal string
	re      *regexp.Regexp
}

// Filter is an immutable, compiled set filter; safe for concurrent use
type Filter struct {
	raw     string
	entries []entry
	invalid []string
	fold    bool
}

// Compile parses expr. Each non-empty comma-separated entry matches a set name by literal
// equality or by unanchored regular expression match. Entries that are not valid expressions
// match by equality only and are reported by Invalid
func Compile(expr string, opts ...Option) *Filter {
	f := &Filter{raw: expr}
	for _, o := range opts {
		o(f)
	}
	for _, part := range strings.Split(expr, ",") {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		pat := p
		if f.fold {
			pat = "(?i)" + p
			p = foldString(p)
		}
		e := entry{literal: p}
		if re, err := regexp.Compile(pat); err == nil {
			e.re = re
		} else {
			f.invalid = append(f.invalid, p)
		}
		f.entries = append(f.entries, e)
	}
	return f
}

// Empty reports whether the filter has no entries and so accepts every set
func (f *Filter) Empty() bool { return f == nil || len(f.entries) == 0 }

// Match reports whether set passes the filter; an empty filter passes everything
func (f *Filter) Match(set string) bool {
	if f.Empty() {
		return true
	}
	key := set
	if f.fold {
		key = foldString(set)
	}
	for _, e := range f.entries {
		if key == e.literal {
			return true
		}
		if e.re != nil && e.re.MatchString(set) {
			return true
		}
	}
	return false
}

// Invalid returns the entries that did not compile as regular expressions
func (f *Filter) Invalid() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.invalid...)
}

// Patterns returns the trimmed entries in order
func (f *Filter) Patterns() []string {
	if f == nil {
		return nil
	}
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.literal)
	}
	return out
}

// String returns the expression the filter was compiled from
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.raw
}

// foldString folds s with a fresh Caser; Casers keep state and must not be shared
func foldString(s string) string { return cases.Fold().String(s) }
