package aggregation

import (
	"fmt"
	"time"
)

// ClockWindow is a daily [Start, End) window expressed as offsets from local
// midnight. A window with End <= Start is inactive.
type ClockWindow struct {
	Start time.Duration
	End   time.Duration
}

// NewClockWindow parses two "HH:MM" strings into a window.
func NewClockWindow(start, end string) (ClockWindow, error) {
	s, err := ParseClock(start)
	if err != nil {
		return ClockWindow{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return ClockWindow{}, err
	}
	if e < s {
		return ClockWindow{}, fmt.Errorf("window %s-%s wraps past midnight", start, end)
	}
	return ClockWindow{Start: s, End: e}, nil
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(value string) (time.Duration, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", value, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Active reports whether the window covers any time.
func (w ClockWindow) Active() bool {
	return w.End > w.Start
}

// Contains reports whether a time-of-day offset falls inside the window.
func (w ClockWindow) Contains(offset time.Duration) bool {
	return w.Active() && offset >= w.Start && offset < w.End
}

// Calendar carries the business-day rules of the metered area: the local zone,
// the nightly window with no metered activity, and the post-midnight window whose
// activity belongs to the previous parking day.
type Calendar struct {
	Location  *time.Location
	Excluded  ClockWindow
	CarryOver ClockWindow
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// TimeOfDay returns the local wall-clock offset of t from midnight.
func (c Calendar) TimeOfDay(t time.Time) time.Duration {
	lt := t.In(c.location())
	return time.Duration(lt.Hour())*time.Hour +
		time.Duration(lt.Minute())*time.Minute +
		time.Duration(lt.Second())*time.Second +
		time.Duration(lt.Nanosecond())
}

// InExcluded reports whether t falls inside the excluded window.
func (c Calendar) InExcluded(t time.Time) bool {
	return c.Excluded.Contains(c.TimeOfDay(t))
}

// ParkingDay returns the weekday t is attributed to. Instants inside the
// carry-over window belong to the previous weekday.
func (c Calendar) ParkingDay(t time.Time) time.Weekday {
	day := t.In(c.location()).Weekday()
	if c.CarryOver.Contains(c.TimeOfDay(t)) {
		day = (day + 6) % 7
	}
	return day
}

// ActiveDuration returns the part of [a, b) that lies outside every excluded
// window. It is exact for partial overlaps and follows local wall-clock time
// across DST transitions.
func (c Calendar) ActiveDuration(a, b time.Time) time.Duration {
	if !a.Before(b) {
		return 0
	}
	total := b.Sub(a)
	if !c.Excluded.Active() {
		return total
	}

	loc := c.location()
	la := a.In(loc)
	for day := time.Date(la.Year(), la.Month(), la.Day(), 0, 0, 0, 0, loc); day.Before(b); day = day.AddDate(0, 0, 1) {
		ws := atClock(day, c.Excluded.Start, loc)
		we := atClock(day, c.Excluded.End, loc)
		total -= overlap(a, b, ws, we)
	}
	return total
}

func atClock(day time.Time, offset time.Duration, loc *time.Location) time.Time {
	h := int(offset / time.Hour)
	m := int((offset % time.Hour) / time.Minute)
	s := int((offset % time.Minute) / time.Second)
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, loc)
}

// overlap returns the length of [a1, b1) ∩ [a2, b2), or zero.
func overlap(a1, b1, a2, b2 time.Time) time.Duration {
	start := maxTime(a1, a2)
	end := minTime(b1, b2)
	if !start.Before(end) {
		return 0
	}
	return end.Sub(start)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
