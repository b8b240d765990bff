// Package screen holds the document descriptors, the parse outcome and the
// input document shared by all screen parsers.
package screen

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"

	"iw_parser/internal/patterns"
)

// DescriptorConfig declares how a layout is recognised.
type DescriptorConfig struct {
	ID string

	// CanParse is the quick-match pattern. Any match anywhere qualifies.
	CanParse        string
	CanParseOptions regexp2.RegexOptions

	// Begin and End delimit the relevant region. Either may be empty.
	Begin string
	End   string

	// Priority orders descriptors, lower first.
	Priority int
}

// Descriptor is a compiled DescriptorConfig.
type Descriptor struct {
	ID       string
	Priority int

	canParse *regexp2.Regexp
	begin    *regexp2.Regexp
	end      *regexp2.Regexp
}

// NewDescriptor compiles cfg. Every pattern gets the same match budget.
func NewDescriptor(cfg DescriptorConfig, timeout time.Duration) (*Descriptor, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("descriptor without id")
	}
	d := &Descriptor{ID: cfg.ID, Priority: cfg.Priority}

	var err error
	if d.canParse, err = patterns.Compile(cfg.CanParse, cfg.CanParseOptions|regexp2.Multiline, timeout); err != nil {
		return nil, fmt.Errorf("descriptor %s: quick-match: %w", cfg.ID, err)
	}
	if cfg.Begin != "" {
		if d.begin, err = patterns.Compile(cfg.Begin, regexp2.Multiline, timeout); err != nil {
			return nil, fmt.Errorf("descriptor %s: begin marker: %w", cfg.ID, err)
		}
	}
	if cfg.End != "" {
		if d.end, err = patterns.Compile(cfg.End, regexp2.Multiline, timeout); err != nil {
			return nil, fmt.Errorf("descriptor %s: end marker: %w", cfg.ID, err)
		}
	}
	return d, nil
}

// Matches reports whether the quick-match pattern occurs in text.
func (d *Descriptor) Matches(text string) (bool, error) {
	ok, err := d.canParse.MatchString(text)
	if err != nil {
		return false, fmt.Errorf("%w: %v", patterns.ErrMatchBudget, err)
	}
	return ok, nil
}

// Strip cuts text down to the region between the begin marker (inclusive)
// and the first end marker after it (exclusive). A missing marker leaves
// that side of the text untouched.
func (d *Descriptor) Strip(text string) (string, error) {
	start := 0
	if d.begin != nil {
		m, err := d.begin.FindStringMatch(text)
		if err != nil {
			return "", fmt.Errorf("%w: %v", patterns.ErrMatchBudget, err)
		}
		if m != nil {
			start = runeOffset(text, m.Index)
		}
	}
	rest := text[start:]

	if d.end != nil {
		m, err := d.end.FindStringMatch(rest)
		if err != nil {
			return "", fmt.Errorf("%w: %v", patterns.ErrMatchBudget, err)
		}
		if m != nil {
			rest = rest[:runeOffset(rest, m.Index)]
		}
	}
	return rest, nil
}

// runeOffset converts a regexp2 rune index into a byte offset of s.
func runeOffset(s string, runeIdx int) int {
	n := 0
	for i := range s {
		if n == runeIdx {
			return i
		}
		n++
	}
	return len(s)
}
