package task

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seaward/base-api/internal/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// mockStore is an in-memory Store recording lifecycle transitions.
type mockStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]Record

	saveErr error
	markErr error
}

func newMockStore() *mockStore {
	return &mockStore{records: make(map[uuid.UUID]Record)}
}

func (s *mockStore) SaveTask(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.records[rec.ID] = rec
	return nil
}

func (s *mockStore) MarkProcessing(ctx context.Context, id uuid.UUID, attempt int) error {
	return s.transition(id, StatusProcessing, attempt, "", nil)
}

func (s *mockStore) MarkCompleted(ctx context.Context, id uuid.UUID, result []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	rec := s.records[id]
	rec.ID = id
	rec.Status = StatusCompleted
	rec.Result = result
	rec.UpdatedAt = time.Now().UTC()
	s.records[id] = rec
	return nil
}

func (s *mockStore) MarkRetrying(ctx context.Context, id uuid.UUID, attempt int, errMsg string) error {
	return s.transition(id, StatusPending, attempt, errMsg, nil)
}

func (s *mockStore) MarkFailed(ctx context.Context, id uuid.UUID, attempt int, errMsg string) error {
	return s.transition(id, StatusFailed, attempt, errMsg, nil)
}

func (s *mockStore) transition(id uuid.UUID, status Status, attempt int, errMsg string, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	rec := s.records[id]
	rec.ID = id
	rec.Status = status
	rec.Attempts = attempt
	rec.LastError = errMsg
	rec.UpdatedAt = time.Now().UTC()
	s.records[id] = rec
	return nil
}

func (s *mockStore) GetRecord(ctx context.Context, id uuid.UUID) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("task %s not found", id)
	}
	return rec, nil
}

func (s *mockStore) CountByStatus(ctx context.Context) (map[Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[Status]int)
	for _, rec := range s.records {
		counts[rec.Status]++
	}
	return counts, nil
}

func (s *mockStore) record(id uuid.UUID) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

// mockPublisher captures published messages.
type mockPublisher struct {
	mu        sync.Mutex
	published []queue.Message
	err       error
}

func (p *mockPublisher) Publish(ctx context.Context, msg queue.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

func (p *mockPublisher) Close() error { return nil }

func (p *mockPublisher) messages() []queue.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.Message, len(p.published))
	copy(out, p.published)
	return out
}

// mockDelivery wraps a message with an ack flag.
type mockDelivery struct {
	msg   queue.Message
	mu    sync.Mutex
	acked bool
}

func (d *mockDelivery) Message() queue.Message { return d.msg }

func (d *mockDelivery) Ack(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acked = true
	return nil
}

func (d *mockDelivery) isAcked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acked
}

// mockConsumer hands out deliveries from a buffered channel.
type mockConsumer struct {
	deliveries chan queue.Delivery
}

func newMockConsumer(size int) *mockConsumer {
	return &mockConsumer{deliveries: make(chan queue.Delivery, size)}
}

func (c *mockConsumer) Fetch(ctx context.Context) (queue.Delivery, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case d := <-c.deliveries:
		return d, nil
	}
}

func (c *mockConsumer) Close() error { return nil }
