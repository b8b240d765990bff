package patterns

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilerExpandsPlaceholders(t *testing.T) {
	c := NewCompiler(NewLibrary(nil), []Format{{
		Name:    "coords",
		Pattern: `\((?<c>{COORDS})\)\s(?<n>{DECIMAL})`,
	}}, nil)
	require.NoError(t, c.Compile())

	m, err := c.Parse("Erde (1:23:4) 1.500")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "coords", m.FormatName)
	assert.Equal(t, "1:23:4", m.Captures.Get("c"))
	assert.Equal(t, "1.500", m.Captures.Get("n"))
	assert.False(t, m.Captures.Has("missing"))
}

func TestCompilerLocalOverrides(t *testing.T) {
	c := NewCompiler(NewLibrary(nil), []Format{{Name: "x", Pattern: `^{WORD}$`}},
		map[string]string{"WORD": `(?<w>[a-z]+)`})
	require.NoError(t, c.Compile())

	m, err := c.Parse("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", m.Captures.Get("w"))
}

func TestCompilerUnknownPlaceholder(t *testing.T) {
	c := NewCompiler(NewLibrary(nil), []Format{{Name: "bad", Pattern: `{NOPE}`}}, nil)
	err := c.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOPE")
}

func TestExpandIsSinglePass(t *testing.T) {
	c := NewCompiler(NewLibrary(nil), nil, map[string]string{"A": `{B}`, "B": `b`})
	got, err := c.Expand(`{A}`)
	require.NoError(t, err)
	assert.Equal(t, `{B}`, got)
}

func TestCapturesDistinguishAbsentFromEmpty(t *testing.T) {
	re, err := Compile(`(?<a>x)?(?<b>y*)z`, regexp2.None, time.Second)
	require.NoError(t, err)

	caps, err := FindFirst(re, "z")
	require.NoError(t, err)
	require.NotNil(t, caps)

	assert.False(t, caps.Has("a"))
	assert.True(t, caps.Has("b"))
	assert.Equal(t, "", caps.Get("b"))
	assert.False(t, caps.Present("b"))
}

func TestExplicitCaptureDropsUnnamedGroups(t *testing.T) {
	re, err := Compile(`(a)(?<n>b)`, regexp2.None, time.Second)
	require.NoError(t, err)
	caps, err := FindFirst(re, "ab")
	require.NoError(t, err)
	assert.Equal(t, Captures{"n": "b"}, caps)
}

func TestFindAllMatches(t *testing.T) {
	c := NewCompiler(NewLibrary(nil), []Format{{
		Name:    "line",
		Pattern: `^(?<k>\w+)\s(?<v>{DECIMAL})$`,
		Options: regexp2.Multiline,
	}}, nil)
	require.NoError(t, c.Compile())

	got, err := c.FindAllMatches("a 1\nb 2.000\nbroken\nc 3", "line")
	require.NoError(t, err)
	assert.Equal(t, []Captures{
		{"k": "a", "v": "1"},
		{"k": "b", "v": "2.000"},
		{"k": "c", "v": "3"},
	}, got)

	_, err = c.FindAllMatches("a 1", "nope")
	assert.Error(t, err)
}

func TestMatchBudget(t *testing.T) {
	re, err := Compile(`^(a+)+$`, regexp2.None, time.Millisecond)
	require.NoError(t, err)

	_, err = FindFirst(re, strings.Repeat("a", 40)+"b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMatchBudget))
}

func TestParseWithTrace(t *testing.T) {
	c := NewCompiler(NewLibrary(nil), []Format{
		{Name: "first", Pattern: `^nope$`},
		{Name: "second", Pattern: `(?<n>{DECIMAL})`},
	}, nil)
	require.NoError(t, c.Compile())

	trace := c.ParseWithTrace("value 42")
	require.Len(t, trace.Formats, 2)
	assert.False(t, trace.Formats[0].Matched)
	assert.True(t, trace.Formats[1].Matched)
	assert.Equal(t, "42", trace.Formats[1].Captures.Get("n"))
	require.NotNil(t, trace.Match)
	assert.Equal(t, "second", trace.Match.FormatName)
	assert.NotContains(t, trace.Formats[1].Pattern, "{DECIMAL}")
}
