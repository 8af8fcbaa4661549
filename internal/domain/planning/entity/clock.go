package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// LocalDate is a calendar date without a zone
type LocalDate struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseLocalDate parses a YYYY-MM-DD date
func ParseLocalDate(s string) (LocalDate, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return LocalDate{}, fmt.Errorf("%w: date %q, expected YYYY-MM-DD", ErrInvalidLocalTime, s)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's own location
func DateOf(t time.Time) LocalDate {
	y, m, d := t.Date()
	return LocalDate{Year: y, Month: m, Day: d}
}

func (d LocalDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// AddDays returns the date n days later, normalizing month and year overflow
func (d LocalDate) AddDays(n int) LocalDate {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// Weekday returns the day of the week of d
func (d LocalDate) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// Before reports whether d is strictly earlier than o
func (d LocalDate) Before(o LocalDate) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// LocalTime is a wall-clock time of day at minute precision
type LocalTime struct {
	Hour   int
	Minute int
}

// ParseLocalTime parses a strict HH:MM (24h) time of day
func ParseLocalTime(s string) (LocalTime, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return LocalTime{}, fmt.Errorf("%w: time %q, expected HH:MM", ErrInvalidLocalTime, s)
	}
	h, ok := parseClockField(parts[0], 23)
	if !ok {
		return LocalTime{}, fmt.Errorf("%w: invalid hour in %q", ErrInvalidLocalTime, s)
	}
	m, ok := parseClockField(parts[1], 59)
	if !ok {
		return LocalTime{}, fmt.Errorf("%w: invalid minute in %q", ErrInvalidLocalTime, s)
	}
	return LocalTime{Hour: h, Minute: m}, nil
}

// parseClockField accepts one or two ASCII digits in [0, max]
func parseClockField(s string, max int) (int, bool) {
	if len(s) == 0 || len(s) > 2 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil || v > max {
		return 0, false
	}
	return v, true
}

func (t LocalTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// TimeOf returns the time of day of t in t's own location, truncated to the minute
func TimeOf(t time.Time) LocalTime {
	return LocalTime{Hour: t.Hour(), Minute: t.Minute()}
}
