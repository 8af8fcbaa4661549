package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vadim/neo-planner/internal/domain/planning/calendar"
	"github.com/vadim/neo-planner/internal/domain/planning/constraint"
	"github.com/vadim/neo-planner/internal/domain/planning/entity"
	"github.com/vadim/neo-planner/internal/domain/planning/queue"
	"github.com/vadim/neo-planner/internal/domain/planning/resolver"
	"github.com/vadim/neo-planner/internal/domain/planning/service"
	"github.com/vadim/neo-planner/internal/domain/planning/tz"
)

// Dispatcher hands a resolved post to the external publisher.
// This interface is defined here (consumer) not in the dispatch package (provider).
type Dispatcher interface {
	Dispatch(ctx context.Context, payload entity.PublishPayload) error
}

// DefaultReserveAttempts bounds re-resolution after a queue slot conflict
const DefaultReserveAttempts = 3

// Policy orchestrates planning use-cases
type Policy struct {
	svc             *service.Service
	validator       *constraint.Validator
	resolver        *resolver.Resolver
	planner         *queue.Planner
	dispatcher      Dispatcher
	logger          *slog.Logger
	reserveAttempts int
	weekStart       time.Weekday
}

// Option configures a Policy
type Option func(*Policy)

// WithReserveAttempts sets how many times a queue submission re-resolves on conflict
func WithReserveAttempts(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.reserveAttempts = n
		}
	}
}

// WithWeekStart sets the default first day of calendar weeks
func WithWeekStart(d time.Weekday) Option {
	return func(p *Policy) {
		p.weekStart = d
	}
}

// New creates a new planning policy
func New(
	svc *service.Service,
	validator *constraint.Validator,
	planner *queue.Planner,
	res *resolver.Resolver,
	dispatcher Dispatcher,
	logger *slog.Logger,
	opts ...Option,
) *Policy {
	p := &Policy{
		svc:             svc,
		validator:       validator,
		resolver:        res,
		planner:         planner,
		dispatcher:      dispatcher,
		logger:          logger,
		reserveAttempts: DefaultReserveAttempts,
		weekStart:       time.Sunday,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ValidateDraft checks structure, then evaluates platform constraints as a report
func (p *Policy) ValidateDraft(draft *entity.DraftPost) (constraint.Report, error) {
	if err := draft.Validate(); err != nil {
		return constraint.Report{}, err
	}
	return p.validator.Validate(draft), nil
}

// ResolveScheduleInput represents input for resolving a schedule.
// Preset, when set, replaces Intent with a scheduled intent in PresetTimezone.
type ResolveScheduleInput struct {
	Intent         entity.ScheduleIntent
	Preset         resolver.Preset
	PresetTimezone string
}

// ResolveSchedule resolves an intent, loading queue state when needed
func (p *Policy) ResolveSchedule(ctx context.Context, in ResolveScheduleInput) (*entity.ResolvedSchedule, error) {
	intent := in.Intent
	if in.Preset != "" {
		scheduled, err := p.resolver.PresetIntent(in.Preset, in.PresetTimezone)
		if err != nil {
			return nil, err
		}
		intent = scheduled
	}

	resolved, err := p.resolve(ctx, intent)
	if err != nil {
		return nil, err
	}
	return &resolved, nil
}

func (p *Policy) resolve(ctx context.Context, intent entity.ScheduleIntent) (entity.ResolvedSchedule, error) {
	var state *resolver.QueueState
	if q, ok := intent.(entity.QueueIntent); ok {
		var err error
		state, err = p.svc.QueueState(ctx, q.ProfileID, p.resolver.Now())
		if err != nil {
			return entity.ResolvedSchedule{}, err
		}
	}
	return p.resolver.Resolve(intent, state)
}

// NextQueueSlotOutput represents the next free slots of a profile
type NextQueueSlotOutput struct {
	ProfileID string
	Timezone  string
	Next      time.Time
	Upcoming  []time.Time
}

// NextQueueSlot plans the next free slot, plus up to count-1 following ones
func (p *Policy) NextQueueSlot(ctx context.Context, profileID string, count int) (*NextQueueSlotOutput, error) {
	if count < 1 {
		count = 1
	}
	now := p.resolver.Now()
	state, err := p.svc.QueueState(ctx, profileID, now)
	if err != nil {
		return nil, err
	}

	slots, err := p.planner.Upcoming(state.Template, state.Occupied, now, count)
	if err != nil {
		return nil, err
	}

	return &NextQueueSlotOutput{
		ProfileID: profileID,
		Timezone:  state.Template.Timezone,
		Next:      slots[0],
		Upcoming:  slots,
	}, nil
}

// ConfigureQueue creates or updates a profile's queue
func (p *Policy) ConfigureQueue(ctx context.Context, in service.ConfigureQueueInput) (*entity.QueueTemplate, error) {
	tmpl, err := p.svc.ConfigureQueue(ctx, in)
	if err != nil {
		return nil, err
	}
	p.logger.Info("queue configured", "profile_id", tmpl.ProfileID, "timezone", tmpl.Timezone, "slots", len(tmpl.Slots))
	return tmpl, nil
}

// GetQueueTemplate returns a profile's queue template
func (p *Policy) GetQueueTemplate(ctx context.Context, profileID string) (*entity.QueueTemplate, error) {
	return p.svc.GetQueueTemplate(ctx, profileID)
}

// SubmitPostInput represents input for submitting a post
type SubmitPostInput struct {
	Draft        *entity.DraftPost
	Intent       entity.ScheduleIntent
	ProfileID    string // owner for calendar queries; defaults to the queue intent's profile
	AllowPartial bool   // submit the valid targets when some targets violate constraints
}

// SubmitPostOutput represents output from submitting a post.
// Report and Schedule are filled even when submission fails, when available.
type SubmitPostOutput struct {
	Post     *entity.Post
	Schedule *entity.ResolvedSchedule
	Report   constraint.Report
	Skipped  []constraint.TargetReport
}

// SubmitPost validates the draft and resolves its schedule (both always run),
// persists the post, claims its queue slot and hands it to the publisher.
func (p *Policy) SubmitPost(ctx context.Context, in SubmitPostInput) (*SubmitPostOutput, error) {
	if in.Draft == nil {
		return nil, entity.ErrNoTargets
	}
	if err := in.Draft.Validate(); err != nil {
		return nil, err
	}

	out := &SubmitPostOutput{Report: p.validator.Validate(in.Draft)}

	resolved, schedErr := p.resolve(ctx, in.Intent)
	if schedErr == nil || errors.Is(schedErr, entity.ErrScheduleInPast) {
		out.Schedule = &resolved
	}

	targets := in.Draft.Targets
	var constraintErr error
	if !out.Report.Valid() {
		targets = out.Report.ValidTargets(in.Draft)
		if !in.AllowPartial || len(targets) == 0 {
			constraintErr = fmt.Errorf("%w: %d of %d targets", entity.ErrConstraintViolations,
				len(out.Report.Invalid()), len(out.Report.Targets))
		}
	}
	if err := errors.Join(constraintErr, schedErr); err != nil {
		return out, err
	}
	out.Skipped = out.Report.Invalid()

	profileID := in.ProfileID
	queueIntent, isQueue := in.Intent.(entity.QueueIntent)
	if isQueue {
		profileID = queueIntent.ProfileID
	}

	post, err := p.persist(ctx, in, profileID, targets, isQueue, &resolved)
	if err != nil {
		return out, err
	}
	out.Post = post
	out.Schedule = &resolved

	payload := entity.NewPublishPayload(post.ID, post.ProfileID, in.Draft, targets, resolved.UTCInstant)
	if err := p.dispatcher.Dispatch(ctx, payload); err != nil {
		p.logger.Error("failed to dispatch post", "post_id", post.ID, "error", err)
		if _, uerr := p.svc.UpdateStatus(ctx, post.ID, entity.PostStatusFailed); uerr != nil {
			p.logger.Error("failed to mark post as failed", "post_id", post.ID, "error", uerr)
		} else {
			post.Status = entity.PostStatusFailed
		}
		return out, fmt.Errorf("dispatching post: %w", err)
	}

	p.logger.Info("post submitted",
		"post_id", post.ID,
		"profile_id", post.ProfileID,
		"intent", in.Intent.Kind(),
		"scheduled_for", resolved.UTCInstant,
		"targets", len(targets),
		"skipped", len(out.Skipped),
	)
	return out, nil
}

// persist stores the post. Queue posts claim their slot; on conflict the
// queue state is reloaded and the slot re-resolved, a bounded number of times.
func (p *Policy) persist(
	ctx context.Context,
	in SubmitPostInput,
	profileID string,
	targets []entity.PlatformTarget,
	isQueue bool,
	resolved *entity.ResolvedSchedule,
) (*entity.Post, error) {
	create := service.CreatePostInput{
		ProfileID:    profileID,
		Draft:        in.Draft,
		Targets:      targets,
		Intent:       in.Intent,
		ScheduledFor: resolved.UTCInstant,
		Reserve:      isQueue,
	}
	if !isQueue {
		return p.svc.CreatePost(ctx, create)
	}

	for attempt := 1; ; attempt++ {
		post, err := p.svc.CreatePost(ctx, create)
		if err == nil {
			return post, nil
		}
		if !errors.Is(err, entity.ErrSlotTaken) {
			return nil, err
		}
		if attempt >= p.reserveAttempts {
			return nil, fmt.Errorf("%w after %d attempts", err, attempt)
		}

		p.logger.Warn("queue slot taken, re-resolving",
			"profile_id", profileID,
			"slot", create.ScheduledFor,
			"attempt", attempt,
		)
		next, err := p.resolve(ctx, in.Intent)
		if err != nil {
			return nil, err
		}
		*resolved = next
		create.ScheduledFor = next.UTCInstant
	}
}

// PruneReservations releases queue reservations for slots before `before`
// and those whose post is no longer active. Implements scheduler.ReservationPruner.
func (p *Policy) PruneReservations(ctx context.Context, before time.Time) (int64, error) {
	return p.svc.PruneReservations(ctx, before)
}

// GetPost retrieves a post by ID
func (p *Policy) GetPost(ctx context.Context, id string) (*entity.Post, error) {
	return p.svc.GetPost(ctx, id)
}

// UpdatePostStatus records a lifecycle transition reported by the publisher
func (p *Policy) UpdatePostStatus(ctx context.Context, id string, status entity.PostStatus) (*entity.Post, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", entity.ErrInvalidStatus, status)
	}
	post, err := p.svc.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	p.logger.Info("post status updated", "post_id", id, "status", status)
	return post, nil
}

// CalendarInput represents input for building a month grid.
// A nil WeekStart uses the policy default.
type CalendarInput struct {
	ProfileID string
	Year      int
	Month     time.Month
	Timezone  string
	WeekStart *time.Weekday
}

// Calendar range-queries the grid span and buckets the posts
func (p *Policy) Calendar(ctx context.Context, in CalendarInput) (*calendar.Grid, error) {
	m := calendar.Month{
		Year:      in.Year,
		Month:     in.Month,
		Timezone:  in.Timezone,
		WeekStart: p.weekStart,
	}
	if in.WeekStart != nil {
		m.WeekStart = *in.WeekStart
	}

	span, err := calendar.SpanOf(m)
	if err != nil {
		return nil, err
	}
	posts, err := p.svc.ListInRange(ctx, in.ProfileID, span.Start, span.End)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return calendar.Bucketize(m, posts, p.resolver.Now())
}

// PlatformInfo describes a supported platform
type PlatformInfo struct {
	Platform                entity.Platform           `json:"platform"`
	DisplayName             string                    `json:"display_name"`
	RequiresEntitySelection bool                      `json:"requires_entity_selection"`
	Constraint              entity.PlatformConstraint `json:"constraint"`
}

// Platforms lists the supported platforms with their rules
func (p *Policy) Platforms() []PlatformInfo {
	out := make([]PlatformInfo, 0, len(entity.Platforms))
	for _, pl := range entity.Platforms {
		rule, _ := p.validator.Rule(pl)
		out = append(out, PlatformInfo{
			Platform:                pl,
			DisplayName:             pl.DisplayName(),
			RequiresEntitySelection: pl.RequiresEntitySelection(),
			Constraint:              rule,
		})
	}
	return out
}

// TimezoneOption is one selectable zone
type TimezoneOption struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Timezones lists the common zones plus valid extras, labelled at the current time
func (p *Policy) Timezones(extra ...string) []TimezoneOption {
	now := p.resolver.Now()
	zones := tz.Options(extra...)
	out := make([]TimezoneOption, 0, len(zones))
	for _, z := range zones {
		out = append(out, TimezoneOption{ID: z, DisplayName: tz.DisplayName(z, now)})
	}
	return out
}
