package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vadim/neo-planner/internal/domain/planning/dao"
	"github.com/vadim/neo-planner/internal/domain/planning/entity"
	"github.com/vadim/neo-planner/internal/domain/planning/queue"
	"github.com/vadim/neo-planner/internal/domain/planning/resolver"
	"github.com/vadim/neo-planner/internal/domain/planning/tz"
)

// Service handles persistence-facing logic for planning
type Service struct {
	profiles dao.ProfileRepository
	posts    dao.PostRepository
}

// New creates a new planning service
func New(profiles dao.ProfileRepository, posts dao.PostRepository) *Service {
	return &Service{
		profiles: profiles,
		posts:    posts,
	}
}

// QueueState loads the template and occupied instants of a profile as of now
func (s *Service) QueueState(ctx context.Context, profileID string, now time.Time) (*resolver.QueueState, error) {
	tmpl, err := s.profiles.GetQueueTemplate(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("loading queue template: %w", err)
	}
	if tmpl == nil {
		return nil, fmt.Errorf("%w: %s", entity.ErrProfileNotFound, profileID)
	}

	occupied, err := s.posts.OccupiedInstants(ctx, profileID, now)
	if err != nil {
		return nil, fmt.Errorf("loading occupied slots: %w", err)
	}

	return &resolver.QueueState{Template: *tmpl, Occupied: occupied}, nil
}

// ConfigureQueueInput represents input for configuring a profile's queue
type ConfigureQueueInput struct {
	ProfileID string
	Name      string
	Timezone  string
	Slots     []entity.QueueSlot
	Specs     []string // cron expressions, merged with Slots
}

// ConfigureQueue creates or updates a profile and replaces its queue slots
func (s *Service) ConfigureQueue(ctx context.Context, in ConfigureQueueInput) (*entity.QueueTemplate, error) {
	if in.ProfileID == "" {
		return nil, fmt.Errorf("%w: profile id is required", entity.ErrInvalidQueueTemplate)
	}
	if !tz.IsValidTimezone(in.Timezone) {
		return nil, fmt.Errorf("%w: %q", entity.ErrInvalidTimezone, in.Timezone)
	}

	slots := append([]entity.QueueSlot(nil), in.Slots...)
	if len(in.Specs) > 0 {
		fromSpecs, err := queue.ParseSlotSpecs(in.Specs)
		if err != nil {
			return nil, err
		}
		seen := make(map[entity.QueueSlot]struct{}, len(slots))
		for _, sl := range slots {
			seen[sl] = struct{}{}
		}
		for _, sl := range fromSpecs {
			if _, ok := seen[sl]; !ok {
				slots = append(slots, sl)
			}
		}
	}

	tmpl := &entity.QueueTemplate{ProfileID: in.ProfileID, Timezone: in.Timezone, Slots: slots}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	tmpl.Slots = tmpl.SortedSlots()

	profile := &entity.Profile{ID: in.ProfileID, Name: in.Name, Timezone: in.Timezone}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, err
	}
	if err := s.profiles.ReplaceQueueSlots(ctx, in.ProfileID, tmpl.Slots); err != nil {
		return nil, err
	}

	return tmpl, nil
}

// GetQueueTemplate returns a profile's queue template
func (s *Service) GetQueueTemplate(ctx context.Context, profileID string) (*entity.QueueTemplate, error) {
	tmpl, err := s.profiles.GetQueueTemplate(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, fmt.Errorf("%w: %s", entity.ErrProfileNotFound, profileID)
	}
	return tmpl, nil
}

// CreatePostInput represents input for persisting a resolved post
type CreatePostInput struct {
	ProfileID    string
	Draft        *entity.DraftPost
	Targets      []entity.PlatformTarget
	Intent       entity.ScheduleIntent
	ScheduledFor time.Time
	Reserve      bool // claim the queue slot at ScheduledFor
}

// CreatePost persists a scheduled post. A non-empty ProfileID must name an
// existing profile.
func (s *Service) CreatePost(ctx context.Context, in CreatePostInput) (*entity.Post, error) {
	if in.ProfileID != "" {
		profile, err := s.profiles.GetByID(ctx, in.ProfileID)
		if err != nil {
			return nil, fmt.Errorf("loading profile: %w", err)
		}
		if profile == nil {
			return nil, fmt.Errorf("%w: %s", entity.ErrProfileNotFound, in.ProfileID)
		}
	}

	at := in.ScheduledFor.UTC()
	post := &entity.Post{
		ID:           uuid.New().String(),
		ProfileID:    in.ProfileID,
		Status:       entity.PostStatusScheduled,
		Content:      in.Draft.Content,
		MediaItems:   in.Draft.MediaItems,
		Targets:      in.Targets,
		ScheduledFor: &at,
		CreatedAt:    time.Now().UTC(),
	}

	var err error
	if in.Reserve {
		err = s.posts.CreateReserved(ctx, post, in.Intent)
	} else {
		err = s.posts.Create(ctx, post, in.Intent)
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

// GetPost retrieves a post by ID
func (s *Service) GetPost(ctx context.Context, id string) (*entity.Post, error) {
	// post ids are UUIDs; anything else cannot exist
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", entity.ErrPostNotFound, id)
	}

	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, entity.ErrPostNotFound
	}
	return post, nil
}

// UpdateStatus moves a post to next if the lifecycle allows it
func (s *Service) UpdateStatus(ctx context.Context, id string, next entity.PostStatus) (*entity.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", entity.ErrInvalidStatus, post.Status, next)
	}
	if err := s.posts.UpdateStatus(ctx, id, next); err != nil {
		return nil, err
	}
	post.Status = next
	return post, nil
}

// ListInRange returns posts scheduled in [start, end)
func (s *Service) ListInRange(ctx context.Context, profileID string, start, end time.Time) ([]entity.Post, error) {
	return s.posts.ListInRange(ctx, dao.PostFilter{ProfileID: profileID}, start, end)
}

// PruneReservations drops queue reservations that no longer hold a slot
func (s *Service) PruneReservations(ctx context.Context, now time.Time) (int64, error) {
	return s.posts.PruneReservations(ctx, now)
}
