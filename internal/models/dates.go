package models

import (
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02T15:04:05"

	// epochMillisThreshold separates epoch milliseconds from epoch seconds.
	epochMillisThreshold = 10_000_000_000
)

// ParseDate extracts a YYYY-MM-DD date from a stored timestamp.
// Numbers are epoch seconds, or milliseconds above 10 billion. Strings contribute
// their first 10 characters. Anything else, or an invalid date, yields "".
func ParseDate(v any, loc *time.Location) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if len(s) < len(DateLayout) {
			return ""
		}
		d := s[:len(DateLayout)]
		if _, err := time.Parse(DateLayout, d); err != nil {
			return ""
		}
		return d
	}
	t, ok := epochTime(v, loc)
	if !ok {
		return ""
	}
	return t.Format(DateLayout)
}

// FormatTimestamp renders a stored timestamp as YYYY-MM-DDTHH:MM:SS.
// Strings pass through untouched.
func FormatTimestamp(v any, loc *time.Location) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	t, ok := epochTime(v, loc)
	if !ok {
		return ""
	}
	return t.Format(TimestampLayout)
}

func epochTime(v any, loc *time.Location) (time.Time, bool) {
	if _, isBool := v.(bool); isBool {
		return time.Time{}, false
	}
	ts, ok := toFloat(v)
	if !ok {
		return time.Time{}, false
	}
	if ts > epochMillisThreshold {
		ts = ts / 1000
	}
	if loc == nil {
		loc = time.UTC
	}
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).In(loc), true
}

// NormalizePhone reduces a phone number to its bare 10-digit national form.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		return digits[2:]
	case len(digits) == 13 && strings.HasPrefix(digits, "91"):
		return digits[3:]
	case len(digits) > 10:
		return digits[len(digits)-10:]
	default:
		return digits
	}
}

// DateRange returns every date from start to end inclusive, formatted YYYY-MM-DD.
func DateRange(start, end time.Time) []string {
	start = truncateDay(start)
	end = truncateDay(end)
	var out []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(DateLayout))
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// LoadLocation resolves a timezone name, falling back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
