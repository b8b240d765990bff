// Package registry provides tracing interfaces for parser debugging.
package registry

import (
	"iw_parser/internal/patterns"
	"iw_parser/internal/screen"
)

// TraceResult contains trace information from a parser's attempt to parse
// a screen.
type TraceResult struct {
	ParserID string                 `json:"parser_id"`         // Descriptor id.
	Matches  bool                   `json:"matches"`           // Whether the quick-match applied.
	Stripped string                 `json:"stripped"`          // Region left after the begin and end markers.
	Formats  []patterns.FormatTrace `json:"formats,omitempty"` // Format match attempts.
	Matched  bool                   `json:"matched"`           // Whether the structural pattern matched.
	Err      string                 `json:"error,omitempty"`   // Error raised while tracing, if any.
}

// Traceable is implemented by parsers that support debug tracing.
// This allows the trace command to show detailed information about
// why a parser did or didn't match a screen.
type Traceable interface {
	ParseWithTrace(text string) *TraceResult
}

// Trace runs the parser's trace when it supports one, and a quick-match
// plus strip otherwise.
func Trace(p Parser, text string) *TraceResult {
	if t, ok := p.(Traceable); ok {
		return t.ParseWithTrace(text)
	}
	return TraceFormats(p.Descriptor(), nil, text)
}

// TraceFormats traces a grok-style parser: quick-match, strip, then every
// format of c against the stripped region. A nil c stops after the strip.
func TraceFormats(d *screen.Descriptor, c *patterns.Compiler, text string) *TraceResult {
	tr := &TraceResult{ParserID: d.ID}
	var err error
	if tr.Matches, err = d.Matches(text); err != nil {
		tr.Err = err.Error()
		return tr
	}
	if tr.Stripped, err = d.Strip(text); err != nil {
		tr.Err = err.Error()
		return tr
	}
	if c == nil {
		return tr
	}
	pt := c.ParseWithTrace(tr.Stripped)
	tr.Formats = pt.Formats
	tr.Matched = pt.Match != nil
	return tr
}
