package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/neo-planner/internal/domain/planning/entity"
)

// ProfilePostgres implements ProfileRepository for PostgreSQL
type ProfilePostgres struct {
	pool *pgxpool.Pool
}

// NewProfilePostgres creates a new PostgreSQL profile repository
func NewProfilePostgres(pool *pgxpool.Pool) *ProfilePostgres {
	return &ProfilePostgres{pool: pool}
}

// GetByID retrieves a profile by ID
func (r *ProfilePostgres) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	query := `
		SELECT id, name, timezone, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	var p entity.Profile
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Timezone, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning profile: %w", err)
	}
	return &p, nil
}

// Upsert creates or updates a profile
func (r *ProfilePostgres) Upsert(ctx context.Context, p *entity.Profile) error {
	query := `
		INSERT INTO profiles (id, name, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, timezone = EXCLUDED.timezone, updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`

	now := time.Now().UTC()
	if err := r.pool.QueryRow(ctx, query, p.ID, p.Name, p.Timezone, now).Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}
	return nil
}

// GetQueueTemplate loads the profile's zone and slots
func (r *ProfilePostgres) GetQueueTemplate(ctx context.Context, profileID string) (*entity.QueueTemplate, error) {
	var zone string
	err := r.pool.QueryRow(ctx, "SELECT timezone FROM profiles WHERE id = $1", profileID).Scan(&zone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning profile timezone: %w", err)
	}

	query := `
		SELECT weekday, hour, minute
		FROM queue_slots
		WHERE profile_id = $1
		ORDER BY weekday, hour, minute
	`
	rows, err := r.pool.Query(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("querying queue slots: %w", err)
	}
	defer rows.Close()

	tmpl := &entity.QueueTemplate{ProfileID: profileID, Timezone: zone}
	for rows.Next() {
		var weekday, hour, minute int16
		if err := rows.Scan(&weekday, &hour, &minute); err != nil {
			return nil, fmt.Errorf("scanning queue slot: %w", err)
		}
		tmpl.Slots = append(tmpl.Slots, entity.QueueSlot{
			Weekday: time.Weekday(weekday),
			Hour:    int(hour),
			Minute:  int(minute),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating queue slots: %w", err)
	}

	return tmpl, nil
}

// ReplaceQueueSlots swaps all slots of a profile in one transaction
func (r *ProfilePostgres) ReplaceQueueSlots(ctx context.Context, profileID string, slots []entity.QueueSlot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM queue_slots WHERE profile_id = $1", profileID); err != nil {
		return fmt.Errorf("deleting queue slots: %w", err)
	}

	batch := &pgx.Batch{}
	for _, s := range slots {
		batch.Queue(
			"INSERT INTO queue_slots (profile_id, weekday, hour, minute) VALUES ($1, $2, $3, $4)",
			profileID, int16(s.Weekday), int16(s.Hour), int16(s.Minute),
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting queue slots: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing queue slots: %w", err)
	}
	return nil
}
