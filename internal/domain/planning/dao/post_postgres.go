package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/neo-planner/internal/domain/planning/entity"
)

// activeStatuses are the statuses that hold a queue slot
var activeStatuses = []string{string(entity.PostStatusScheduled), string(entity.PostStatusPublishing)}

// PostPostgres implements PostRepository for PostgreSQL
type PostPostgres struct {
	pool *pgxpool.Pool
}

// NewPostPostgres creates a new PostgreSQL post repository
func NewPostPostgres(pool *pgxpool.Pool) *PostPostgres {
	return &PostPostgres{pool: pool}
}

const insertPostQuery = `
	INSERT INTO posts (id, profile_id, status, content, media_items, targets, schedule_intent, scheduled_for, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
`

// Create inserts a post
func (r *PostPostgres) Create(ctx context.Context, post *entity.Post, intent entity.ScheduleIntent) error {
	args, err := postArgs(post, intent)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, insertPostQuery, args...); err != nil {
		return fmt.Errorf("inserting post: %w", err)
	}
	return nil
}

// CreateReserved inserts a post and claims (profile, scheduled_for) in the same
// transaction. A slot held by a post that is no longer active is taken over.
//
// The claim is split so that the holder is read by a statement started after a
// competing claimer committed: INSERT ... DO NOTHING waits on the primary key,
// then SELECT ... FOR UPDATE sees the committed holder and locks it.
func (r *PostPostgres) CreateReserved(ctx context.Context, post *entity.Post, intent entity.ScheduleIntent) error {
	if post.ProfileID == "" || post.ScheduledFor == nil {
		return fmt.Errorf("reserving slot: post %s has no profile or instant", post.ID)
	}
	args, err := postArgs(post, intent)
	if err != nil {
		return err
	}
	slotAt := post.ScheduledFor.UTC().Truncate(time.Minute)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insertPostQuery, args...); err != nil {
		return fmt.Errorf("inserting post: %w", err)
	}

	claimed, err := claimSlot(ctx, tx, post.ProfileID, slotAt, post.ID, post.CreatedAt)
	if err != nil {
		return err
	}
	if !claimed {
		return entity.ErrSlotTaken
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing reservation: %w", err)
	}
	return nil
}

// claimSlot reports whether postID now holds the slot
func claimSlot(ctx context.Context, tx pgx.Tx, profileID string, slotAt time.Time, postID string, at time.Time) (bool, error) {
	insert := `
		INSERT INTO queue_reservations (profile_id, slot_at, post_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (profile_id, slot_at) DO NOTHING
	`
	tag, err := tx.Exec(ctx, insert, profileID, slotAt, postID, at)
	if err != nil {
		return false, fmt.Errorf("reserving queue slot: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	holderQuery := `
		SELECT r.post_id, p.status
		FROM queue_reservations r
		JOIN posts p ON p.id = r.post_id
		WHERE r.profile_id = $1 AND r.slot_at = $2
		FOR UPDATE
	`
	var holderID, holderStatus string
	err = tx.QueryRow(ctx, holderQuery, profileID, slotAt).Scan(&holderID, &holderStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		// released between the two statements; the caller re-resolves
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading slot holder: %w", err)
	}
	if entity.PostStatus(holderStatus).OccupiesQueue() {
		return false, nil
	}

	takeover := `
		UPDATE queue_reservations
		SET post_id = $3, created_at = $4
		WHERE profile_id = $1 AND slot_at = $2 AND post_id = $5
	`
	tag, err = tx.Exec(ctx, takeover, profileID, slotAt, postID, at, holderID)
	if err != nil {
		return false, fmt.Errorf("taking over queue slot: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID retrieves a post by ID
func (r *PostPostgres) GetByID(ctx context.Context, id string) (*entity.Post, error) {
	query := `
		SELECT id, profile_id, status, content, media_items, targets, scheduled_for, created_at
		FROM posts
		WHERE id = $1
	`

	post, err := scanPost(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

// ListInRange returns posts scheduled in [start, end), ordered by instant
func (r *PostPostgres) ListInRange(ctx context.Context, filter PostFilter, start, end time.Time) ([]entity.Post, error) {
	query := `
		SELECT id, profile_id, status, content, media_items, targets, scheduled_for, created_at
		FROM posts
		WHERE scheduled_for >= $1 AND scheduled_for < $2
	`
	args := []interface{}{start.UTC(), end.UTC()}
	argNum := 3

	if filter.ProfileID != "" {
		query += fmt.Sprintf(" AND profile_id = $%d", argNum)
		args = append(args, filter.ProfileID)
		argNum++
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query += fmt.Sprintf(" AND status = ANY($%d)", argNum)
		args = append(args, statuses)
	}
	query += " ORDER BY scheduled_for, id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}
	defer rows.Close()

	var posts []entity.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating posts: %w", err)
	}
	return posts, nil
}

// OccupiedInstants returns the instants held by active posts of a profile
func (r *PostPostgres) OccupiedInstants(ctx context.Context, profileID string, after time.Time) ([]time.Time, error) {
	query := `
		SELECT scheduled_for FROM posts
		WHERE profile_id = $1 AND scheduled_for > $2 AND status = ANY($3)
		UNION
		SELECT r.slot_at FROM queue_reservations r
		JOIN posts p ON p.id = r.post_id
		WHERE r.profile_id = $1 AND r.slot_at > $2 AND p.status = ANY($3)
	`

	rows, err := r.pool.Query(ctx, query, profileID, after.UTC(), activeStatuses)
	if err != nil {
		return nil, fmt.Errorf("querying occupied instants: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning occupied instant: %w", err)
		}
		out = append(out, t.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating occupied instants: %w", err)
	}
	return out, nil
}

// UpdateStatus updates only the status of a post
func (r *PostPostgres) UpdateStatus(ctx context.Context, id string, status entity.PostStatus) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE posts SET status = $2, updated_at = $3 WHERE id = $1",
		id, status, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("updating post status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrPostNotFound
	}
	return nil
}

// PruneReservations deletes reservations before `before` or held by inactive posts
func (r *PostPostgres) PruneReservations(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM queue_reservations r
		WHERE r.slot_at < $1
		   OR NOT EXISTS (
				SELECT 1 FROM posts p
				WHERE p.id = r.post_id AND p.status = ANY($2)
		   )
	`
	tag, err := r.pool.Exec(ctx, query, before.UTC(), activeStatuses)
	if err != nil {
		return 0, fmt.Errorf("pruning reservations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func postArgs(post *entity.Post, intent entity.ScheduleIntent) ([]interface{}, error) {
	media, err := json.Marshal(nonNilMedia(post.MediaItems))
	if err != nil {
		return nil, fmt.Errorf("encoding media items: %w", err)
	}
	targets, err := json.Marshal(post.Targets)
	if err != nil {
		return nil, fmt.Errorf("encoding targets: %w", err)
	}
	var intentJSON []byte
	if intent != nil {
		if intentJSON, err = json.Marshal(intent); err != nil {
			return nil, fmt.Errorf("encoding schedule intent: %w", err)
		}
	}

	var profileID *string
	if post.ProfileID != "" {
		profileID = &post.ProfileID
	}
	var scheduledFor *time.Time
	if post.ScheduledFor != nil {
		t := post.ScheduledFor.UTC()
		scheduledFor = &t
	}

	return []interface{}{
		post.ID,
		profileID,
		post.Status,
		post.Content,
		media,
		targets,
		intentJSON,
		scheduledFor,
		post.CreatedAt,
	}, nil
}

func scanPost(row pgx.Row) (*entity.Post, error) {
	var (
		post         entity.Post
		profileID    *string
		media        []byte
		targets      []byte
		scheduledFor *time.Time
	)
	err := row.Scan(
		&post.ID,
		&profileID,
		&post.Status,
		&post.Content,
		&media,
		&targets,
		&scheduledFor,
		&post.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning post: %w", err)
	}

	if profileID != nil {
		post.ProfileID = *profileID
	}
	if scheduledFor != nil {
		t := scheduledFor.UTC()
		post.ScheduledFor = &t
	}
	if err := json.Unmarshal(media, &post.MediaItems); err != nil {
		return nil, fmt.Errorf("decoding media items: %w", err)
	}
	if err := json.Unmarshal(targets, &post.Targets); err != nil {
		return nil, fmt.Errorf("decoding targets: %w", err)
	}
	return &post, nil
}

func nonNilMedia(items []entity.MediaItem) []entity.MediaItem {
	if items == nil {
		return []entity.MediaItem{}
	}
	return items
}
