package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ReservationPruner releases queue reservations for slots before the cutoff
// and those held by posts that are no longer active
type ReservationPruner interface {
	PruneReservations(ctx context.Context, before time.Time) (int64, error)
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClock overrides the time source used for the prune cutoff
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithRetention keeps reservations of slots that passed less than d ago
func WithRetention(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.retention = d
		}
	}
}

// Scheduler periodically prunes stale queue reservations
type Scheduler struct {
	pruner    ReservationPruner
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new scheduler
func New(pruner ReservationPruner, interval time.Duration, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		pruner:   pruner,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cutoff is the instant before which reservations are released
func (s *Scheduler) Cutoff() time.Time {
	return s.now().UTC().Add(-s.retention)
}

// Start runs a prune pass now and then every interval, until Stop or ctx ends.
// Calling Start on a running scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.logger.Info("reservation pruner started", "interval", s.interval, "retention", s.retention)

	go s.loop(ctx, s.done)
}

// Stop cancels the loop and waits for an in-flight pass to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("reservation pruner stopped")
}

func (s *Scheduler) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.RunOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce prunes reservations older than Cutoff and returns how many were released
func (s *Scheduler) RunOnce(ctx context.Context) int64 {
	cutoff := s.Cutoff()
	n, err := s.pruner.PruneReservations(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("failed to prune queue reservations", "cutoff", cutoff, "error", err)
		}
		return 0
	}
	if n > 0 {
		s.logger.Info("pruned queue reservations", "count", n, "cutoff", cutoff)
	}
	return n
}
