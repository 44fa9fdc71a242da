package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seaward/base-api/internal/events"
	"github.com/seaward/base-api/internal/queue"
)

// poolFixture wires a single-worker pool over in-memory fakes.
type poolFixture struct {
	store     *mockStore
	publisher *mockPublisher
	consumer  *mockConsumer
	registry  *Registry
	pool      *Pool
	cancel    context.CancelFunc
	done      chan struct{}
}

func startPool(t *testing.T, policy RetryPolicy, register func(*Registry)) *poolFixture {
	t.Helper()

	f := &poolFixture{
		store:     newMockStore(),
		publisher: &mockPublisher{},
		consumer:  newMockConsumer(16),
		registry:  NewRegistry(),
		done:      make(chan struct{}),
	}
	register(f.registry)

	client := NewClient(f.publisher, f.store, testLogger())
	f.pool = NewPool(f.consumer, f.registry, client, f.store, PoolConfig{
		Count:  1,
		Policy: policy,
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	go func() {
		defer close(f.done)
		_ = f.pool.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-f.done:
		case <-time.After(5 * time.Second):
			t.Fatal("worker pool did not drain on shutdown")
		}
	})

	return f
}

// deliver enqueues a task through the result backend and hands its message
// to the fake consumer, mirroring what Client.Enqueue plus the broker do.
func (f *poolFixture) deliver(t *testing.T, taskType string, payload []byte, attempt int) (*mockDelivery, uuid.UUID) {
	t.Helper()

	id := uuid.New()
	now := time.Now().UTC()
	require.NoError(t, f.store.SaveTask(context.Background(), Record{
		ID:        id,
		Type:      taskType,
		Queue:     "default",
		Status:    StatusPending,
		Attempts:  attempt,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	d := &mockDelivery{msg: queue.Message{
		ID:         id,
		Type:       taskType,
		Queue:      "default",
		Payload:    payload,
		Attempt:    attempt,
		EnqueuedAt: now,
	}}
	f.consumer.deliveries <- d
	return d, id
}

func defaultPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond, Multiplier: 2}
}

func TestPoolCompletesTask(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seenPayload []byte

	f := startPool(t, defaultPolicy(), func(r *Registry) {
		require.NoError(t, r.Register("emails.send", func(ctx context.Context, payload []byte) Outcome {
			mu.Lock()
			seenPayload = payload
			mu.Unlock()
			return Completed([]byte(`"sent"`))
		}))
	})

	d, id := f.deliver(t, "emails.send", []byte(`{"to":"a@b.c"}`), 0)

	require.Eventually(t, d.isAcked, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return f.store.record(id).Status == StatusCompleted
	}, time.Second, 5*time.Millisecond)

	rec := f.store.record(id)
	assert.Equal(t, []byte(`"sent"`), rec.Result)

	mu.Lock()
	assert.JSONEq(t, `{"to":"a@b.c"}`, string(seenPayload))
	mu.Unlock()

	assert.Empty(t, f.publisher.messages(), "a completed task is never re-enqueued")
}

func TestPoolRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	f := startPool(t, defaultPolicy(), func(r *Registry) {
		require.NoError(t, r.Register("emails.send", func(ctx context.Context, payload []byte) Outcome {
			return Retry(errors.New("smtp timeout"))
		}))
	})

	d, id := f.deliver(t, "emails.send", nil, 0)

	require.Eventually(t, d.isAcked, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return len(f.publisher.messages()) == 1
	}, time.Second, 5*time.Millisecond)

	retried := f.publisher.messages()[0]
	assert.Equal(t, id, retried.ID)
	assert.Equal(t, 1, retried.Attempt)
	assert.False(t, retried.NotBefore.IsZero(), "retries carry a backoff deadline")

	rec := f.store.record(id)
	assert.Equal(t, StatusPending, rec.Status)
	assert.Equal(t, 1, rec.Attempts)
	assert.Equal(t, "smtp timeout", rec.LastError)
}

func TestPoolRetryDelaysGrow(t *testing.T) {
	t.Parallel()

	f := startPool(t, defaultPolicy(), func(r *Registry) {
		require.NoError(t, r.Register("emails.send", func(ctx context.Context, payload []byte) Outcome {
			return Retry(errors.New("smtp timeout"))
		}))
	})

	// First failure: one prior attempt recorded on the wire message.
	d1, _ := f.deliver(t, "emails.send", nil, 0)
	require.Eventually(t, d1.isAcked, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(f.publisher.messages()) == 1 }, time.Second, 5*time.Millisecond)
	first := f.publisher.messages()[0]

	// Second failure of another task that has already been tried once.
	d2, _ := f.deliver(t, "emails.send", nil, 1)
	require.Eventually(t, d2.isAcked, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(f.publisher.messages()) == 2 }, 2*time.Second, 5*time.Millisecond)
	second := f.publisher.messages()[1]

	assert.Equal(t, 1, first.Attempt)
	assert.Equal(t, 2, second.Attempt)

	// Delay is measured from publish time, so compare the policy delays
	// the pool applied rather than racing the wall clock.
	policy := defaultPolicy()
	assert.Greater(t, policy.Delay(2), policy.Delay(1))
	assert.False(t, first.NotBefore.IsZero())
	assert.False(t, second.NotBefore.IsZero())
}

func TestPoolExhaustsAttempts(t *testing.T) {
	t.Parallel()

	f := startPool(t, defaultPolicy(), func(r *Registry) {
		require.NoError(t, r.Register("emails.send", func(ctx context.Context, payload []byte) Outcome {
			return Retry(errors.New("smtp timeout"))
		}))
	})

	// Two prior attempts; this execution is the third and last allowed.
	d, id := f.deliver(t, "emails.send", nil, 2)

	require.Eventually(t, d.isAcked, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return f.store.record(id).Status == StatusFailed
	}, time.Second, 5*time.Millisecond)

	rec := f.store.record(id)
	assert.Equal(t, 3, rec.Attempts)
	assert.Equal(t, "smtp timeout", rec.LastError)
	assert.Empty(t, f.publisher.messages(), "an exhausted task is never retried again")
}

func TestPoolPermanentFailure(t *testing.T) {
	t.Parallel()

	f := startPool(t, defaultPolicy(), func(r *Registry) {
		require.NoError(t, r.Register("emails.send", func(ctx context.Context, payload []byte) Outcome {
			return Failed(errors.New("unparseable recipient"))
		}))
	})

	d, id := f.deliver(t, "emails.send", nil, 0)

	require.Eventually(t, d.isAcked, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return f.store.record(id).Status == StatusFailed
	}, time.Second, 5*time.Millisecond)

	assert.Empty(t, f.publisher.messages(), "a permanent failure must not be retried")
}

func TestPoolUnknownTaskType(t *testing.T) {
	t.Parallel()

	f := startPool(t, defaultPolicy(), func(r *Registry) {})

	d, id := f.deliver(t, "emails.unknown", nil, 0)

	require.Eventually(t, d.isAcked, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return f.store.record(id).Status == StatusFailed
	}, time.Second, 5*time.Millisecond)

	rec := f.store.record(id)
	assert.Contains(t, rec.LastError, "no handler registered")
}

func TestPoolRecoversPanickingHandler(t *testing.T) {
	t.Parallel()

	f := startPool(t, defaultPolicy(), func(r *Registry) {
		require.NoError(t, r.Register("emails.send", func(ctx context.Context, payload []byte) Outcome {
			panic("boom")
		}))
	})

	d, id := f.deliver(t, "emails.send", nil, 0)

	// The pool survives the panic and treats it as a transient failure.
	require.Eventually(t, d.isAcked, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return len(f.publisher.messages()) == 1
	}, time.Second, 5*time.Millisecond)

	rec := f.store.record(id)
	assert.Contains(t, rec.LastError, "panicked")
}

type captureEmitter struct {
	mu     sync.Mutex
	events []events.TaskEvent
}

func (e *captureEmitter) EmitEvent(ctx context.Context, event events.TaskEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *captureEmitter) kinds() []events.Kind {
	e.mu.Lock()
	defer e.mu.Unlock()
	kinds := make([]events.Kind, len(e.events))
	for i, ev := range e.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func TestPoolEmitsLifecycleEvents(t *testing.T) {
	t.Parallel()

	emitter := &captureEmitter{}
	store := newMockStore()
	publisher := &mockPublisher{}
	consumer := newMockConsumer(16)
	registry := NewRegistry()
	require.NoError(t, registry.Register("emails.send", func(ctx context.Context, payload []byte) Outcome {
		return Completed(nil)
	}))
	require.NoError(t, registry.Register("emails.flaky", func(ctx context.Context, payload []byte) Outcome {
		return Retry(errors.New("smtp timeout"))
	}))

	client := NewClient(publisher, store, testLogger())
	pool := NewPool(consumer, registry, client, store, PoolConfig{
		Count:   1,
		Policy:  defaultPolicy(),
		Emitter: emitter,
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = pool.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	now := time.Now().UTC()
	okID, flakyID := uuid.New(), uuid.New()
	for _, rec := range []Record{
		{ID: okID, Type: "emails.send", Queue: "default", Status: StatusPending, CreatedAt: now, UpdatedAt: now},
		{ID: flakyID, Type: "emails.flaky", Queue: "default", Status: StatusPending, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, store.SaveTask(context.Background(), rec))
	}

	okDelivery := &mockDelivery{msg: queue.Message{ID: okID, Type: "emails.send", Queue: "default", EnqueuedAt: now}}
	flakyDelivery := &mockDelivery{msg: queue.Message{ID: flakyID, Type: "emails.flaky", Queue: "default", EnqueuedAt: now}}
	consumer.deliveries <- okDelivery
	consumer.deliveries <- flakyDelivery

	require.Eventually(t, func() bool {
		return okDelivery.isAcked() && flakyDelivery.isAcked()
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(emitter.kinds()) == 2
	}, time.Second, 5*time.Millisecond)

	kinds := emitter.kinds()
	assert.Contains(t, kinds, events.KindCompleted)
	assert.Contains(t, kinds, events.KindRetrying)
}

func TestPoolHonorsNotBefore(t *testing.T) {
	t.Parallel()

	processed := make(chan time.Time, 1)
	f := startPool(t, defaultPolicy(), func(r *Registry) {
		require.NoError(t, r.Register("emails.send", func(ctx context.Context, payload []byte) Outcome {
			processed <- time.Now()
			return Completed(nil)
		}))
	})

	id := uuid.New()
	now := time.Now().UTC()
	require.NoError(t, f.store.SaveTask(context.Background(), Record{
		ID: id, Type: "emails.send", Queue: "default", Status: StatusPending,
		CreatedAt: now, UpdatedAt: now,
	}))

	due := now.Add(60 * time.Millisecond)
	f.consumer.deliveries <- &mockDelivery{msg: queue.Message{
		ID: id, Type: "emails.send", Queue: "default", EnqueuedAt: now, NotBefore: due,
	}}

	select {
	case at := <-processed:
		assert.False(t, at.Before(due.Add(-5*time.Millisecond)),
			"a delayed task must not run before it is due")
	case <-time.After(2 * time.Second):
		t.Fatal("delayed task was never processed")
	}
}
