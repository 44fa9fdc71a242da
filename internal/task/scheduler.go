package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Entry is one recurring task: enqueue Payload as a task of Type onto
// Queue every Every.
type Entry struct {
	Name    string
	Type    string
	Queue   string
	Payload []byte
	Every   time.Duration
}

// Scheduler runs the beat role: it enqueues due recurring tasks until
// stopped. It must run as a singleton across the fleet, since duplicate
// schedulers double-enqueue. Deployment enforces that, not this type.
type Scheduler struct {
	entries []Entry
	client  Enqueuer
	logger  *slog.Logger
}

// NewScheduler creates a scheduler over a fixed set of entries built at
// startup. Entries with no type or a non-positive interval are rejected.
func NewScheduler(client Enqueuer, logger *slog.Logger, entries ...Entry) (*Scheduler, error) {
	for _, e := range entries {
		if e.Type == "" {
			return nil, fmt.Errorf("schedule entry %q has no task type", e.Name)
		}
		if e.Every <= 0 {
			return nil, fmt.Errorf("schedule entry %q has non-positive interval %s", e.Name, e.Every)
		}
	}
	return &Scheduler{
		entries: entries,
		client:  client,
		logger:  logger.With("component", "scheduler"),
	}, nil
}

// Run enqueues due entries until ctx is cancelled. Enqueue failures are
// logged and the entry is rescheduled; one broken round never stops the
// beat.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.entries) == 0 {
		s.logger.Warn("no schedule entries registered, scheduler is idle")
		<-ctx.Done()
		return nil
	}

	s.logger.Info("starting scheduler", "entry_count", len(s.entries))

	now := time.Now()
	next := make([]time.Time, len(s.entries))
	for i, e := range s.entries {
		next[i] = now.Add(e.Every)
	}

	for {
		idx := 0
		for i := range next {
			if next[i].Before(next[idx]) {
				idx = i
			}
		}

		timer := time.NewTimer(time.Until(next[idx]))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopped")
			return nil

		case <-timer.C:
			entry := s.entries[idx]
			if _, err := s.client.Enqueue(ctx, entry.Type, entry.Payload, entry.Queue); err != nil {
				s.logger.Error("failed to enqueue scheduled task",
					"entry", entry.Name,
					"task_type", entry.Type,
					"error", err)
			} else {
				s.logger.Debug("scheduled task enqueued",
					"entry", entry.Name,
					"task_type", entry.Type,
					"queue", entry.Queue)
			}
			next[idx] = time.Now().Add(entry.Every)
		}
	}
}
