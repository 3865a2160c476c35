package utils

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// dateTimeLayouts are tried in order. Layouts without an offset are read as UTC.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDateTime parses a request timestamp and returns it in UTC.
func ParseDateTime(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, NewFieldError(field, "cannot parse %q as a date", value)
}

var weekdays = func() map[string]time.Weekday {
	m := make(map[string]time.Weekday, 14)
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := d.String()
		m[name] = d
		m[name[:3]] = d
	}
	return m
}()

// ParseWeekday accepts full or three-letter English day names in any case.
func ParseWeekday(value string) (time.Weekday, error) {
	name := cases.Title(language.English).String(strings.TrimSpace(value))
	if d, ok := weekdays[name]; ok {
		return d, nil
	}
	return 0, NewFieldError("day", "unknown day %q", value)
}
