// Package queue plans the next free slot of a recurring weekly publishing queue.
package queue

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vadim/neo-planner/internal/domain/planning/entity"
	"github.com/vadim/neo-planner/internal/domain/planning/tz"
)

// DefaultHorizonWeeks bounds the slot search
const DefaultHorizonWeeks = 8

// Planner computes queue slots. It holds no state besides its options.
type Planner struct {
	horizonWeeks int
}

// Option configures a Planner
type Option func(*Planner)

// WithHorizonWeeks sets how many weeks ahead the planner searches
func WithHorizonWeeks(weeks int) Option {
	return func(p *Planner) {
		if weeks > 0 {
			p.horizonWeeks = weeks
		}
	}
}

// NewPlanner creates a new planner
func NewPlanner(opts ...Option) *Planner {
	p := &Planner{horizonWeeks: DefaultHorizonWeeks}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HorizonWeeks returns the configured search horizon
func (p *Planner) HorizonWeeks() int {
	return p.horizonWeeks
}

// NextSlot returns the earliest slot instant strictly after now that is not
// in occupied. Occupied instants are compared at minute precision.
func (p *Planner) NextSlot(tmpl entity.QueueTemplate, occupied []time.Time, now time.Time) (time.Time, error) {
	if len(tmpl.Slots) == 0 {
		return time.Time{}, entity.ErrEmptyQueueTemplate
	}
	if err := tmpl.Validate(); err != nil {
		return time.Time{}, err
	}
	loc, err := tz.LoadLocation(tmpl.Timezone)
	if err != nil {
		return time.Time{}, err
	}

	taken := make(map[int64]struct{}, len(occupied))
	for _, t := range occupied {
		taken[minuteKey(t)] = struct{}{}
	}

	byDay := make(map[time.Weekday][]entity.QueueSlot, 7)
	for _, s := range tmpl.SortedSlots() {
		byDay[s.Weekday] = append(byDay[s.Weekday], s)
	}

	start := entity.DateOf(now.In(loc))
	days := p.horizonWeeks * 7
	for i := 0; i < days; i++ {
		date := start.AddDays(i)
		slots := byDay[date.Weekday()]
		if len(slots) == 0 {
			continue
		}

		// A DST gap can push an early slot past a later one, so order by instant.
		instants := make([]time.Time, 0, len(slots))
		for _, s := range slots {
			instants = append(instants, tz.ConvertIn(date, s.Time(), loc).Instant)
		}
		sort.Slice(instants, func(a, b int) bool { return instants[a].Before(instants[b]) })

		for _, inst := range instants {
			if !inst.After(now) {
				continue
			}
			if _, ok := taken[minuteKey(inst)]; ok {
				continue
			}
			return inst.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %d weeks searched", entity.ErrNoAvailableSlot, p.horizonWeeks)
}

// Upcoming lists up to n free slot instants after now, in order
func (p *Planner) Upcoming(tmpl entity.QueueTemplate, occupied []time.Time, now time.Time, n int) ([]time.Time, error) {
	out := make([]time.Time, 0, n)
	busy := append([]time.Time(nil), occupied...)
	for len(out) < n {
		next, err := p.NextSlot(tmpl, busy, now)
		if err != nil {
			if len(out) > 0 && errors.Is(err, entity.ErrNoAvailableSlot) {
				break
			}
			return nil, err
		}
		out = append(out, next)
		busy = append(busy, next)
	}
	return out, nil
}

func minuteKey(t time.Time) int64 {
	return t.Truncate(time.Minute).Unix()
}
