// Package tz converts between wall-clock times in IANA zones and UTC instants.
//
// Wall-clock times that fall inside a DST transition are resolved with the
// UTC offset in effect just before the transition. A time skipped by a forward
// transition therefore lands after the gap (02:30 becomes 03:30), and a time
// repeated by a backward transition resolves to the earlier of its two instants.
package tz

import (
	"fmt"
	"time"

	"github.com/vadim/neo-planner/internal/domain/planning/entity"
)

// Conversion is the result of interpreting a wall-clock time in a zone
type Conversion struct {
	Instant time.Time
	Kind    entity.WallClockKind
}

// LoadLocation loads an IANA zone. The empty name and "Local" are rejected:
// both are host dependent and not zone identifiers.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("%w: %q", entity.ErrInvalidTimezone, name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", entity.ErrInvalidTimezone, name)
	}
	return loc, nil
}

// IsValidTimezone reports whether name is an IANA zone known to the host database
func IsValidTimezone(name string) bool {
	_, err := LoadLocation(name)
	return err == nil
}

// Convert interprets date and t as wall-clock time in zone
func Convert(date entity.LocalDate, t entity.LocalTime, zone string) (Conversion, error) {
	loc, err := LoadLocation(zone)
	if err != nil {
		return Conversion{}, err
	}
	return ConvertIn(date, t, loc), nil
}

// ConvertIn is Convert with an already loaded location
func ConvertIn(date entity.LocalDate, t entity.LocalTime, loc *time.Location) Conversion {
	naive := time.Date(date.Year, date.Month, date.Day, t.Hour, t.Minute, 0, 0, time.UTC)

	// Offsets a day either side bracket any single transition.
	before := offsetAt(naive.Add(-24*time.Hour), loc)
	after := offsetAt(naive.Add(24*time.Hour), loc)

	early := naive.Add(-time.Duration(before) * time.Second)
	late := naive.Add(-time.Duration(after) * time.Second)
	earlyOK := offsetAt(early, loc) == before
	lateOK := offsetAt(late, loc) == after

	switch {
	case earlyOK && lateOK && !early.Equal(late):
		first := early
		if late.Before(first) {
			first = late
		}
		return Conversion{Instant: first, Kind: entity.WallClockOverlap}
	case earlyOK:
		return Conversion{Instant: early, Kind: entity.WallClockNormal}
	case lateOK:
		return Conversion{Instant: late, Kind: entity.WallClockNormal}
	default:
		return Conversion{Instant: early, Kind: entity.WallClockGap}
	}
}

// ToUTC returns the UTC instant of a wall-clock time in zone
func ToUTC(date entity.LocalDate, t entity.LocalTime, zone string) (time.Time, error) {
	c, err := Convert(date, t, zone)
	if err != nil {
		return time.Time{}, err
	}
	return c.Instant, nil
}

// ToZoned returns the wall-clock date and time of instant in zone
func ToZoned(instant time.Time, zone string) (entity.LocalDate, entity.LocalTime, error) {
	loc, err := LoadLocation(zone)
	if err != nil {
		return entity.LocalDate{}, entity.LocalTime{}, err
	}
	local := instant.In(loc)
	return entity.DateOf(local), entity.TimeOf(local), nil
}

func offsetAt(t time.Time, loc *time.Location) int {
	_, off := t.In(loc).Zone()
	return off
}
