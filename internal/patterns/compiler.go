// This file contains the grok-style pattern compiler.

package patterns

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/dlclark/regexp2"
)

// ErrMatchBudget is returned when a regex evaluation exceeds its time
// budget. Callers treat it as a failed parse.
var ErrMatchBudget = errors.New("regex match budget exceeded")

// Format represents a screen layout with named capture groups.
type Format struct {
	Name     string               // Format name for identification
	Pattern  string               // Pattern with {PLACEHOLDER} syntax
	Options  regexp2.RegexOptions // regexp2 options, e.g. Multiline
	Compiled *regexp2.Regexp      // Compiled regex (populated by Compile)
	Fields   []string             // Field names in capture order (for documentation)
}

// Compiler manages pattern compilation and parsing for a set of formats.
type Compiler struct {
	basePatterns map[string]string
	formats      []Format
	timeout      time.Duration
}

// NewCompiler creates a new pattern compiler with the given formats.
// It merges the library's fragments with localPatterns, allowing local
// patterns to override library ones.
func NewCompiler(lib *Library, formats []Format, localPatterns map[string]string) *Compiler {
	c := &Compiler{
		basePatterns: lib.Base(),
		formats:      make([]Format, len(formats)),
		timeout:      lib.MatchTimeout(),
	}

	for k, v := range localPatterns {
		c.basePatterns[k] = v
	}

	copy(c.formats, formats)

	return c
}

// Compile expands all {PLACEHOLDER} references and compiles regexes.
func (c *Compiler) Compile() error {
	for i := range c.formats {
		expanded, err := c.Expand(c.formats[i].Pattern)
		if err != nil {
			return fmt.Errorf("format %s: %w", c.formats[i].Name, err)
		}
		re, err := Compile(expanded, c.formats[i].Options, c.timeout)
		if err != nil {
			return fmt.Errorf("format %s: %w", c.formats[i].Name, err)
		}
		c.formats[i].Compiled = re
	}
	return nil
}

// Compile compiles one regexp2 pattern with explicit capture and the
// given time budget.
func Compile(pattern string, opts regexp2.RegexOptions, timeout time.Duration) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(pattern, opts|regexp2.ExplicitCapture)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}
	return re, nil
}

var placeholderRe = regexp.MustCompile(`\{([A-Z][A-Z0-9_]*)\}`)

// Expand replaces {PLACEHOLDER} with the fragment it names. Fragments are
// inserted verbatim and not expanded again.
func (c *Compiler) Expand(pattern string) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(pattern, func(ph string) string {
		name := ph[1 : len(ph)-1]
		v, ok := c.basePatterns[name]
		if !ok {
			missing = append(missing, name)
			return ph
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unknown placeholder %v", missing)
	}
	return out, nil
}

// Format returns the compiled format with the given name.
func (c *Compiler) Format(name string) *Format {
	for i := range c.formats {
		if c.formats[i].Name == name {
			return &c.formats[i]
		}
	}
	return nil
}

// Captures holds the named groups that took part in one match. A group
// that did not participate is absent, which is different from present
// and empty.
type Captures map[string]string

// Has reports whether the group participated in the match.
func (c Captures) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// Get returns the captured value, or "" when absent.
func (c Captures) Get(name string) string {
	return c[name]
}

// Present reports whether the group participated and captured something.
func (c Captures) Present(name string) bool {
	return c[name] != ""
}

// Match represents a successful pattern match with extracted fields.
type Match struct {
	FormatName string   // Name of the matched format
	Captures   Captures // Named capture group values
}

// capturesOf collects the named groups of m.
func capturesOf(m *regexp2.Match) Captures {
	caps := make(Captures)
	for _, g := range m.Groups() {
		if g.Name == "" {
			continue
		}
		if _, err := strconv.Atoi(g.Name); err == nil {
			continue
		}
		if len(g.Captures) == 0 {
			continue
		}
		caps[g.Name] = g.String()
	}
	return caps
}

func budgetErr(err error) error {
	return fmt.Errorf("%w: %v", ErrMatchBudget, err)
}

// FindFirst runs re once over text. A nil result without error means no
// match.
func FindFirst(re *regexp2.Regexp, text string) (Captures, error) {
	m, err := re.FindStringMatch(text)
	if err != nil {
		return nil, budgetErr(err)
	}
	if m == nil {
		return nil, nil
	}
	return capturesOf(m), nil
}

// FindAll returns the captures of every non-overlapping match of re.
func FindAll(re *regexp2.Regexp, text string) ([]Captures, error) {
	var results []Captures
	m, err := re.FindStringMatch(text)
	for {
		if err != nil {
			return nil, budgetErr(err)
		}
		if m == nil {
			return results, nil
		}
		results = append(results, capturesOf(m))
		m, err = re.FindNextMatch(m)
	}
}

// Parse attempts to parse text using all compiled formats.
// Returns the first successful match, or nil if no format matches.
func (c *Compiler) Parse(text string) (*Match, error) {
	for _, format := range c.formats {
		if format.Compiled == nil {
			continue
		}

		caps, err := FindFirst(format.Compiled, text)
		if err != nil {
			return nil, fmt.Errorf("format %s: %w", format.Name, err)
		}
		if caps == nil {
			continue
		}

		return &Match{FormatName: format.Name, Captures: caps}, nil
	}

	return nil, nil
}

// ParseFormat matches text against one named format only.
func (c *Compiler) ParseFormat(formatName, text string) (*Match, error) {
	f := c.Format(formatName)
	if f == nil || f.Compiled == nil {
		return nil, fmt.Errorf("unknown format %q", formatName)
	}
	caps, err := FindFirst(f.Compiled, text)
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", formatName, err)
	}
	if caps == nil {
		return nil, nil
	}
	return &Match{FormatName: formatName, Captures: caps}, nil
}

// FindAllMatches finds all occurrences of one format in text.
// Useful for layouts that repeat a record per line or block.
func (c *Compiler) FindAllMatches(text string, formatName string) ([]Captures, error) {
	f := c.Format(formatName)
	if f == nil || f.Compiled == nil {
		return nil, fmt.Errorf("unknown format %q", formatName)
	}
	results, err := FindAll(f.Compiled, text)
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", formatName, err)
	}
	return results, nil
}

// FormatTrace contains debug information about a format match attempt.
type FormatTrace struct {
	Name     string   `json:"name"`               // Format name
	Matched  bool     `json:"matched"`            // Whether the pattern matched
	Pattern  string   `json:"pattern"`            // The expanded regex pattern
	Captures Captures `json:"captures,omitempty"` // Captured groups (if matched)
	Err      string   `json:"error,omitempty"`    // Match error, e.g. an exceeded budget
}

// ParseTrace contains complete trace information for a parse attempt.
type ParseTrace struct {
	Formats []FormatTrace // All format match attempts
	Match   *Match        // The first successful match (if any)
}

// ParseWithTrace tries every format against text and records the outcome
// of each. This is useful for debugging why patterns don't match.
func (c *Compiler) ParseWithTrace(text string) *ParseTrace {
	trace := &ParseTrace{
		Formats: make([]FormatTrace, 0, len(c.formats)),
	}

	for _, format := range c.formats {
		ft := FormatTrace{Name: format.Name}
		ft.Pattern, _ = c.Expand(format.Pattern)

		if format.Compiled == nil {
			trace.Formats = append(trace.Formats, ft)
			continue
		}

		caps, err := FindFirst(format.Compiled, text)
		if err != nil {
			ft.Err = err.Error()
			trace.Formats = append(trace.Formats, ft)
			continue
		}
		if caps == nil {
			trace.Formats = append(trace.Formats, ft)
			continue
		}

		ft.Matched = true
		ft.Captures = caps
		trace.Formats = append(trace.Formats, ft)

		if trace.Match == nil {
			trace.Match = &Match{FormatName: format.Name, Captures: caps}
		}
	}

	return trace
}
