// Package dispatch hands resolved posts to the publisher through a Redis-backed task queue.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/vadim/neo-planner/internal/domain/planning/entity"
)

// TaskTypePublishPost is the task type consumed by publisher workers
const TaskTypePublishPost = "post:publish"

// DefaultQueue is used when no queue name is configured
const DefaultQueue = "publish"

// NewPublishTask encodes payload as a publish task
func NewPublishTask(payload entity.PublishPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding publish payload: %w", err)
	}
	return asynq.NewTask(TaskTypePublishPost, body), nil
}

// ParsePublishTask decodes the payload of a publish task
func ParsePublishTask(task *asynq.Task) (entity.PublishPayload, error) {
	var payload entity.PublishPayload
	if task.Type() != TaskTypePublishPost {
		return payload, fmt.Errorf("unexpected task type %q", task.Type())
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decoding publish payload: %w", err)
	}
	return payload, nil
}

// Options returns the enqueue options for payload. The post ID doubles as
// task ID so a post is queued at most once.
func Options(payload entity.PublishPayload, queue string) []asynq.Option {
	if queue == "" {
		queue = DefaultQueue
	}
	return []asynq.Option{
		asynq.TaskID(payload.PostID),
		asynq.Queue(queue),
		asynq.ProcessAt(payload.ScheduledForUTC),
	}
}

// Dispatcher enqueues publish tasks
type Dispatcher struct {
	client *asynq.Client
	queue  string
	logger *slog.Logger
}

// RedisOptions holds the connection settings of the task queue
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// New creates a dispatcher connected to Redis
func New(opts RedisOptions, queue string, logger *slog.Logger) *Dispatcher {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &Dispatcher{client: client, queue: queue, logger: logger}
}

// Dispatch enqueues payload for processing at its scheduled instant.
// Re-dispatching an already queued post is a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, payload entity.PublishPayload) error {
	task, err := NewPublishTask(payload)
	if err != nil {
		return err
	}

	info, err := d.client.EnqueueContext(ctx, task, Options(payload, d.queue)...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		d.logger.Warn("publish task already queued", "post_id", payload.PostID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueueing publish task: %w", err)
	}

	d.logger.Debug("publish task enqueued",
		"post_id", payload.PostID,
		"task_id", info.ID,
		"queue", info.Queue,
		"process_at", info.NextProcessAt,
	)
	return nil
}

// Close closes the Redis connection
func (d *Dispatcher) Close() error {
	return d.client.Close()
}
