package locale

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Family selects one of the date-time renderings found on screens.
type Family int

const (
	// FamilyDayMonthYear is "24.12.2010 13:45[:00]" or "24th December 2010 13:45".
	FamilyDayMonthYear Family = iota
	// FamilyISO is "2010-12-24 13:45[:00]".
	FamilyISO
	// FamilyVerbose is "December 24th, 2010, 1:45 pm".
	FamilyVerbose
)

func (f Family) String() string {
	switch f {
	case FamilyDayMonthYear:
		return "day-month-year"
	case FamilyISO:
		return "iso"
	case FamilyVerbose:
		return "verbose"
	}
	return "unknown"
}

var (
	dmyRe     = regexp.MustCompile(`^(\d{1,2})[^\d\s.]{0,2}[\s.]+(\d{1,2}|[^\d\s.]+\.?)[\s.]+(\d{4})\s+(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?(?:\s*(am|pm))?$`)
	isoRe     = regexp.MustCompile(`^(\d{4})[-.](\d{1,2})[-.](\d{1,2})\s+(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?$`)
	verboseRe = regexp.MustCompile(`^([^\d,]+?)\s+(\d{1,2})[^\d\s,]{0,2},?\s+(\d{4}),?\s+(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?(?:\s*(am|pm))?$`)
	dateRe    = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4})$`)
)

var months = map[string]time.Month{
	"januar": time.January, "january": time.January, "jan": time.January, "jänner": time.January,
	"februar": time.February, "february": time.February, "feb": time.February,
	"märz": time.March, "maerz": time.March, "march": time.March, "mär": time.March, "mar": time.March, "mrz": time.March,
	"april": time.April, "apr": time.April,
	"mai": time.May, "may": time.May,
	"juni": time.June, "june": time.June, "jun": time.June,
	"juli": time.July, "july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"oktober": time.October, "october": time.October, "okt": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"dezember": time.December, "december": time.December, "dez": time.December, "dec": time.December,
}

func parseMonth(s string) (time.Month, error) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("month %d out of range", n)
		}
		return time.Month(n), nil
	}
	if m, ok := months[s]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("unknown month %q", s)
}

// ToTimestamp parses raw with the first date-time family that accepts it
// and returns Unix seconds.
func (l *Locale) ToTimestamp(raw string) (int64, error) {
	for _, f := range []Family{FamilyDayMonthYear, FamilyISO, FamilyVerbose} {
		if ts, err := l.ToTimestampFamily(raw, f); err == nil {
			return ts, nil
		}
	}
	return 0, normErr("timestamp", raw, errors.New("no date-time format matched"))
}

// ToTimestampFamily parses raw as one date-time family.
func (l *Locale) ToTimestampFamily(raw string, family Family) (int64, error) {
	s := strings.Join(strings.Fields(raw), " ")

	var (
		day, year, hour, minute, sec string
		month                        string
		ampm                         string
	)
	switch family {
	case FamilyDayMonthYear:
		m := dmyRe.FindStringSubmatch(s)
		if m == nil {
			return 0, normErr("timestamp", raw, fmt.Errorf("not a %s date-time", family))
		}
		day, month, year, hour, minute, sec, ampm = m[1], m[2], m[3], m[4], m[5], m[6], m[7]
	case FamilyISO:
		m := isoRe.FindStringSubmatch(s)
		if m == nil {
			return 0, normErr("timestamp", raw, fmt.Errorf("not a %s date-time", family))
		}
		year, month, day, hour, minute, sec = m[1], m[2], m[3], m[4], m[5], m[6]
	case FamilyVerbose:
		m := verboseRe.FindStringSubmatch(s)
		if m == nil {
			return 0, normErr("timestamp", raw, fmt.Errorf("not a %s date-time", family))
		}
		month, day, year, hour, minute, sec, ampm = m[1], m[2], m[3], m[4], m[5], m[6], m[7]
	default:
		return 0, normErr("timestamp", raw, fmt.Errorf("unknown family %d", family))
	}

	mon, err := parseMonth(month)
	if err != nil {
		return 0, normErr("timestamp", raw, err)
	}
	t, err := l.wallClock(year, mon, day, hour, minute, sec, ampm)
	if err != nil {
		return 0, normErr("timestamp", raw, err)
	}
	return t.Unix(), nil
}

// ToDate parses "DD.MM.YYYY" as midnight in the locale's zone.
func (l *Locale) ToDate(raw string) (int64, error) {
	m := dateRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, normErr("date", raw, errors.New("not DD.MM.YYYY"))
	}
	mon, err := parseMonth(m[2])
	if err != nil {
		return 0, normErr("date", raw, err)
	}
	t, err := l.wallClock(m[3], mon, m[1], "0", "0", "", "")
	if err != nil {
		return 0, normErr("date", raw, err)
	}
	return t.Unix(), nil
}

func (l *Locale) wallClock(year string, mon time.Month, day, hour, minute, sec, ampm string) (time.Time, error) {
	y, _ := strconv.Atoi(year)
	d, _ := strconv.Atoi(day)
	h, _ := strconv.Atoi(hour)
	mi, _ := strconv.Atoi(minute)
	s := 0
	if sec != "" {
		s, _ = strconv.Atoi(sec)
	}

	switch ampm {
	case "am":
		if h == 12 {
			h = 0
		}
	case "pm":
		if h < 12 {
			h += 12
		}
	}

	if h > 23 || mi > 59 || s > 59 {
		return time.Time{}, fmt.Errorf("time %02d:%02d:%02d out of range", h, mi, s)
	}
	t := time.Date(y, mon, d, h, mi, s, 0, l.location)
	if t.Day() != d || t.Month() != mon {
		return time.Time{}, fmt.Errorf("day %d out of range for %s %d", d, mon, y)
	}
	return t, nil
}
