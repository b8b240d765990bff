package locale

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"iw_parser/internal/vocab"
)

var (
	errEmpty    = errors.New("empty value")
	errNotDigit = errors.New("not a number after removing separators")
)

// ToInteger strips thousand separators and converts raw to an integer.
// A leading sign is kept.
func (l *Locale) ToInteger(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, normErr("integer", raw, errEmpty)
	}

	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case (r == '-' || r == '+') && i == 0:
			b.WriteRune(r)
		case l.isThousand(r):
		default:
			return 0, normErr("integer", raw, errNotDigit)
		}
	}

	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0, normErr("integer", raw, err)
	}
	return v, nil
}

// ToDecimal converts raw to an exact decimal. The fraction is only
// recognised as a decimal separator followed by exactly two digits at the
// end, so "1.234" is one thousand two hundred thirty four.
func (l *Locale) ToDecimal(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, normErr("float", raw, errEmpty)
	}

	runes := []rune(s)
	intPart, frac := runes, []rune(nil)
	if n := len(runes); n >= 3 && isDecimal(runes[n-3]) &&
		unicode.IsDigit(runes[n-2]) && unicode.IsDigit(runes[n-1]) {
		intPart, frac = runes[:n-3], runes[n-2:]
	}

	var b strings.Builder
	for i, r := range intPart {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case (r == '-' || r == '+') && i == 0:
			if r == '-' {
				b.WriteRune(r)
			}
		case l.isThousand(r):
		default:
			return decimal.Zero, normErr("float", raw, errNotDigit)
		}
	}
	num := b.String()
	if num == "" || num == "-" {
		num += "0"
		if len(frac) == 0 {
			return decimal.Zero, normErr("float", raw, errNotDigit)
		}
	}
	if len(frac) > 0 {
		num += "." + string(frac)
	}

	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero, normErr("float", raw, err)
	}
	return d, nil
}

// ToFloat is ToDecimal converted to float64.
func (l *Locale) ToFloat(raw string) (float64, error) {
	d, err := l.ToDecimal(raw)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}

// ToString trims raw and composes it to NFC.
func (l *Locale) ToString(raw string) string {
	return strings.TrimSpace(norm.NFC.String(raw))
}

// ToEnum folds raw onto the canonical label of table.
func (l *Locale) ToEnum(raw string, table vocab.Table) (string, error) {
	v, ok := table.Lookup(l.ToString(raw))
	if !ok {
		return "", normErr("enum", raw, errors.New("not a known "+table.Name))
	}
	return v, nil
}

var durationRe = regexp.MustCompile(`^(?:(\d+)\s*(?:Tage|Tag|days|day)\s+)?(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?(?:\s*(?:am|pm))?$`)

// ToDurationSeconds converts "[N Tag(e)] H:MM[:SS]" to seconds.
func (l *Locale) ToDurationSeconds(raw string) (int64, error) {
	m := durationRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, normErr("duration", raw, errors.New("unrecognised duration"))
	}

	var total int64
	if m[1] != "" {
		days, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, normErr("duration", raw, err)
		}
		total += days * 86400
	}
	h, _ := strconv.ParseInt(m[2], 10, 64)
	mins, _ := strconv.ParseInt(m[3], 10, 64)
	if mins > 59 {
		return 0, normErr("duration", raw, errors.New("minutes out of range"))
	}
	total += h*3600 + mins*60
	if m[4] != "" {
		secs, _ := strconv.ParseInt(m[4], 10, 64)
		if secs > 59 {
			return 0, normErr("duration", raw, errors.New("seconds out of range"))
		}
		total += secs
	}
	return total, nil
}

// ToBracketList returns the inner text of each top level parenthesised
// group of raw. "(A (x)) (B)" gives ["A (x)", "B"].
func (l *Locale) ToBracketList(raw string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i, r := range raw {
		switch r {
		case '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case ')':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				if s := strings.TrimSpace(raw[start:i]); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
