package dao

import (
	"context"
	"time"

	"github.com/vadim/neo-planner/internal/domain/planning/entity"
)

// PostFilter narrows range queries over posts
type PostFilter struct {
	ProfileID string
	Statuses  []entity.PostStatus
}

// ProfileRepository defines data access for profiles and their queue templates
type ProfileRepository interface {
	// GetByID retrieves a profile, nil if it does not exist
	GetByID(ctx context.Context, id string) (*entity.Profile, error)

	// Upsert creates or updates a profile
	Upsert(ctx context.Context, p *entity.Profile) error

	// GetQueueTemplate returns the profile's zone and slots, nil if the profile does not exist
	GetQueueTemplate(ctx context.Context, profileID string) (*entity.QueueTemplate, error)

	// ReplaceQueueSlots atomically swaps the profile's slots
	ReplaceQueueSlots(ctx context.Context, profileID string, slots []entity.QueueSlot) error
}

// PostRepository defines data access for posts and queue reservations
type PostRepository interface {
	// Create inserts a post that does not claim a queue slot
	Create(ctx context.Context, post *entity.Post, intent entity.ScheduleIntent) error

	// CreateReserved inserts a post and claims its queue slot in one transaction.
	// Returns entity.ErrSlotTaken when another active post holds the slot.
	CreateReserved(ctx context.Context, post *entity.Post, intent entity.ScheduleIntent) error

	// GetByID retrieves a post, nil if it does not exist
	GetByID(ctx context.Context, id string) (*entity.Post, error)

	// ListInRange returns posts scheduled in [start, end)
	ListInRange(ctx context.Context, filter PostFilter, start, end time.Time) ([]entity.Post, error)

	// OccupiedInstants returns scheduled instants after `after` held by active posts of the profile
	OccupiedInstants(ctx context.Context, profileID string, after time.Time) ([]time.Time, error)

	// UpdateStatus moves a post along its lifecycle
	UpdateStatus(ctx context.Context, id string, status entity.PostStatus) error

	// PruneReservations deletes reservations that are past or held by inactive posts
	PruneReservations(ctx context.Context, before time.Time) (int64, error)
}
