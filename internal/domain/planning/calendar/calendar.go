// Package calendar buckets posts into the day cells of a week-aligned month grid.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"github.com/vadim/neo-planner/internal/domain/planning/entity"
	"github.com/vadim/neo-planner/internal/domain/planning/tz"
)

// Month identifies the reference month of a grid in a display zone
type Month struct {
	Year      int
	Month     time.Month
	Timezone  string
	WeekStart time.Weekday
}

// Validate validates the month parameters
func (m Month) Validate() error {
	if m.Year < 1 || m.Year > 9999 {
		return fmt.Errorf("%w: year %d", entity.ErrInvalidLocalTime, m.Year)
	}
	if m.Month < time.January || m.Month > time.December {
		return fmt.Errorf("%w: month %d", entity.ErrInvalidLocalTime, m.Month)
	}
	if m.WeekStart < time.Sunday || m.WeekStart > time.Saturday {
		return fmt.Errorf("%w: week start %d", entity.ErrInvalidLocalTime, m.WeekStart)
	}
	return nil
}

// Span is the displayed range of a month grid
type Span struct {
	First entity.LocalDate // first displayed day
	Last  entity.LocalDate // last displayed day
	Days  int
	Start time.Time // UTC instant the first day begins
	End   time.Time // UTC instant after the last day ends
}

// SpanOf computes the week-aligned grid span of m. Day boundaries are taken
// in the display zone.
func SpanOf(m Month) (Span, error) {
	if err := m.Validate(); err != nil {
		return Span{}, err
	}
	loc, err := tz.LoadLocation(m.Timezone)
	if err != nil {
		return Span{}, err
	}
	return spanIn(m, loc), nil
}

func spanIn(m Month, loc *time.Location) Span {
	first := entity.LocalDate{Year: m.Year, Month: m.Month, Day: 1}
	last := entity.DateOf(time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC))

	lead := (int(first.Weekday()) - int(m.WeekStart) + 7) % 7
	weekEnd := (int(m.WeekStart) + 6) % 7
	trail := (weekEnd - int(last.Weekday()) + 7) % 7

	gridFirst := first.AddDays(-lead)
	gridLast := last.AddDays(trail)
	days := lead + last.Day + trail

	midnight := entity.LocalTime{}
	return Span{
		First: gridFirst,
		Last:  gridLast,
		Days:  days,
		Start: tz.ConvertIn(gridFirst, midnight, loc).Instant.UTC(),
		End:   tz.ConvertIn(gridLast.AddDays(1), midnight, loc).Instant.UTC(),
	}
}

// Grid is a display-ready month grid
type Grid struct {
	Year      int                   `json:"year"`
	Month     time.Month            `json:"month"`
	Timezone  string                `json:"timezone"`
	WeekStart time.Weekday          `json:"week_start"`
	Start     time.Time             `json:"start"`
	End       time.Time             `json:"end"`
	Cells     []entity.CalendarCell `json:"cells"`
	Stats     entity.MonthStats     `json:"stats"`
}

// Bucketize places every post with a scheduled instant into the cell of its
// zoned date. Posts outside the grid or without a schedule are left out.
// now only drives IsToday.
func Bucketize(m Month, posts []entity.Post, now time.Time) (*Grid, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	loc, err := tz.LoadLocation(m.Timezone)
	if err != nil {
		return nil, err
	}
	span := spanIn(m, loc)

	// Group first, then build cells from the finished groups.
	groups := make(map[entity.LocalDate][]entity.Post)
	var stats entity.MonthStats
	for _, p := range posts {
		if p.ScheduledFor == nil {
			continue
		}
		day := entity.DateOf(p.ScheduledFor.In(loc))
		groups[day] = append(groups[day], p)

		if day.Year == m.Year && day.Month == m.Month {
			switch p.Status {
			case entity.PostStatusScheduled, entity.PostStatusPublishing:
				stats.ScheduledCount++
			case entity.PostStatusPublished:
				stats.PublishedCount++
			case entity.PostStatusFailed:
				stats.FailedCount++
			}
		}
	}

	today := entity.DateOf(now.In(loc))
	cells := make([]entity.CalendarCell, 0, span.Days)
	for i := 0; i < span.Days; i++ {
		day := span.First.AddDays(i)
		dayPosts := append([]entity.Post(nil), groups[day]...)
		sortPosts(dayPosts)
		if dayPosts == nil {
			dayPosts = []entity.Post{}
		}
		cells = append(cells, entity.CalendarCell{
			DateKey:        day.String(),
			IsCurrentMonth: day.Year == m.Year && day.Month == m.Month,
			IsToday:        day == today,
			Posts:          dayPosts,
		})
	}

	return &Grid{
		Year:      m.Year,
		Month:     m.Month,
		Timezone:  m.Timezone,
		WeekStart: m.WeekStart,
		Start:     span.Start,
		End:       span.End,
		Cells:     cells,
		Stats:     stats,
	}, nil
}

// Cell returns the cell for a YYYY-MM-DD key
func (g *Grid) Cell(dateKey string) (entity.CalendarCell, bool) {
	for _, c := range g.Cells {
		if c.DateKey == dateKey {
			return c, true
		}
	}
	return entity.CalendarCell{}, false
}

func sortPosts(posts []entity.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i].ScheduledFor, posts[j].ScheduledFor
		if !a.Equal(*b) {
			return a.Before(*b)
		}
		return posts[i].ID < posts[j].ID
	})
}
