// Package locale converts raw captured tokens into typed values according
// to the separator and time zone conventions of one deployment.
package locale

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // game servers run on Europe/Berlin; do not depend on the host zoneinfo.
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Config lists the accepted separators and the zone screen times are in.
type Config struct {
	ThousandSeparators []string `koanf:"thousand_separators"`
	Timezone           string   `koanf:"timezone"`
}

// DefaultConfig returns the separators IceWars accepts in number input.
func DefaultConfig() Config {
	return Config{
		ThousandSeparators: []string{".", "'", "k", `"`, "`", "´", " "},
		Timezone:           "Europe/Berlin",
	}
}

// decimalSeparators may introduce the two digit fraction of a float.
var decimalSeparators = []rune{'.', ',', '´', '`'}

// Locale is immutable after New and safe for concurrent use.
type Locale struct {
	thousand []rune
	location *time.Location
}

// New validates cfg and builds a Locale.
func New(cfg Config) (*Locale, error) {
	l := &Locale{location: time.UTC}

	for _, sep := range cfg.ThousandSeparators {
		if utf8.RuneCountInString(sep) != 1 {
			return nil, fmt.Errorf("thousand separator %q: must be a single character", sep)
		}
		r, _ := utf8.DecodeRuneInString(sep)
		if r >= '0' && r <= '9' {
			return nil, fmt.Errorf("thousand separator %q: digits are not allowed", sep)
		}
		l.thousand = append(l.thousand, r)
	}

	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
		l.location = loc
	}

	return l, nil
}

// MustNew is New for package level defaults and tests.
func MustNew(cfg Config) *Locale {
	l, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return l
}

var defaultLocale = MustNew(DefaultConfig())

// Default returns the locale built from DefaultConfig.
func Default() *Locale {
	return defaultLocale
}

// ThousandSeparators returns a copy of the accepted thousand separators.
func (l *Locale) ThousandSeparators() []rune {
	out := make([]rune, len(l.thousand))
	copy(out, l.thousand)
	return out
}

// DecimalSeparators returns the characters that may start a fraction.
func (l *Locale) DecimalSeparators() []rune {
	out := make([]rune, len(decimalSeparators))
	copy(out, decimalSeparators)
	return out
}

// Location returns the zone wall clock times are interpreted in.
func (l *Locale) Location() *time.Location {
	return l.location
}

// Normalize prepares a raw screen for matching: NFC composition so
// decomposed umlauts match the vocabulary, and LF line endings.
func (l *Locale) Normalize(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

func (l *Locale) isThousand(r rune) bool {
	for _, t := range l.thousand {
		if r == t {
			return true
		}
		if t == ' ' && r == '\u00a0' {
			return true
		}
	}
	return false
}

func isDecimal(r rune) bool {
	for _, d := range decimalSeparators {
		if r == d {
			return true
		}
	}
	return false
}
