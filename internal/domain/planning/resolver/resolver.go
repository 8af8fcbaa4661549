// Package resolver turns schedule intents into concrete UTC publish instants.
package resolver

import (
	"fmt"
	"time"

	"github.com/vadim/neo-planner/internal/domain/planning/entity"
	"github.com/vadim/neo-planner/internal/domain/planning/queue"
	"github.com/vadim/neo-planner/internal/domain/planning/tz"
)

// QueueState is what the queue-state store knows about a profile at call time
type QueueState struct {
	Template entity.QueueTemplate
	Occupied []time.Time
}

// Resolver resolves schedule intents. The clock is read once per call.
type Resolver struct {
	planner *queue.Planner
	now     func() time.Time
}

// Option configures a Resolver
type Option func(*Resolver)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// New creates a new resolver
func New(planner *queue.Planner, opts ...Option) *Resolver {
	r := &Resolver{
		planner: planner,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now returns the resolver's current time
func (r *Resolver) Now() time.Time {
	return r.now()
}

// Resolve resolves intent into a UTC instant. state is required for queue
// intents and ignored otherwise.
//
// A scheduled intent in the past returns ErrScheduleInPast together with the
// computed schedule, so callers can report it next to other problems.
func (r *Resolver) Resolve(intent entity.ScheduleIntent, state *QueueState) (entity.ResolvedSchedule, error) {
	now := r.now()

	switch in := intent.(type) {
	case entity.NowIntent:
		return entity.ResolvedSchedule{
			UTCInstant:   now.UTC(),
			SourceIntent: in,
			WallClock:    entity.WallClockNormal,
		}, nil

	case entity.ScheduledIntent:
		return r.resolveScheduled(in, now)

	case entity.QueueIntent:
		if state == nil {
			return entity.ResolvedSchedule{}, fmt.Errorf("%w: queue intent without queue state", entity.ErrInvalidIntent)
		}
		if state.Template.ProfileID != "" && state.Template.ProfileID != in.ProfileID {
			return entity.ResolvedSchedule{}, fmt.Errorf("%w: state for %s, intent for %s",
				entity.ErrQueueStateMismatch, state.Template.ProfileID, in.ProfileID)
		}
		slot, err := r.planner.NextSlot(state.Template, state.Occupied, now)
		if err != nil {
			return entity.ResolvedSchedule{}, err
		}
		return entity.ResolvedSchedule{
			UTCInstant:   slot,
			SourceIntent: in,
			WallClock:    entity.WallClockNormal,
		}, nil

	case nil:
		return entity.ResolvedSchedule{}, fmt.Errorf("%w: missing intent", entity.ErrInvalidIntent)

	default:
		return entity.ResolvedSchedule{}, fmt.Errorf("%w: %T", entity.ErrInvalidIntent, intent)
	}
}

func (r *Resolver) resolveScheduled(in entity.ScheduledIntent, now time.Time) (entity.ResolvedSchedule, error) {
	loc, err := tz.LoadLocation(in.Timezone)
	if err != nil {
		return entity.ResolvedSchedule{}, err
	}
	date, err := entity.ParseLocalDate(in.Date)
	if err != nil {
		return entity.ResolvedSchedule{}, err
	}
	clock, err := entity.ParseLocalTime(in.Time)
	if err != nil {
		return entity.ResolvedSchedule{}, err
	}

	conv := tz.ConvertIn(date, clock, loc)
	resolved := entity.ResolvedSchedule{
		UTCInstant:   conv.Instant.UTC(),
		SourceIntent: in,
		WallClock:    conv.Kind,
	}
	if !conv.Instant.After(now) {
		return resolved, fmt.Errorf("%w: %s %s %s", entity.ErrScheduleInPast, in.Date, in.Time, in.Timezone)
	}
	return resolved, nil
}
