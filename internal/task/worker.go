package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seaward/base-api/internal/events"
	"github.com/seaward/base-api/internal/queue"
	"github.com/seaward/base-api/internal/redact"
)

// fetchBackoff is how long a worker pauses after a transport error before
// fetching again, so a flapping broker does not produce a hot loop.
const fetchBackoff = time.Second

// PoolConfig holds configuration for the worker pool.
type PoolConfig struct {
	// Count is the number of concurrent executors, each pulling
	// independently from the shared queue.
	Count int

	// Policy governs retry delays and the attempt ceiling.
	Policy RetryPolicy

	// Emitter, when set, receives a lifecycle event for every terminal
	// transition a task makes.
	Emitter events.Emitter
}

// Pool runs the worker role: it pulls deliveries from the queue with the
// configured concurrency and executes them through the registry. Failures
// are recovered per task; nothing a handler does can crash the process.
type Pool struct {
	consumer queue.Consumer
	registry *Registry
	client   *Client
	store    Store
	config   PoolConfig
	logger   *slog.Logger
}

// NewPool creates a worker pool. The client is used to re-enqueue retried
// tasks; the store records lifecycle transitions in the result backend.
func NewPool(consumer queue.Consumer, registry *Registry, client *Client, store Store, config PoolConfig, logger *slog.Logger) *Pool {
	if config.Count <= 0 {
		config.Count = 1
	}
	return &Pool{
		consumer: consumer,
		registry: registry,
		client:   client,
		store:    store,
		config:   config,
		logger:   logger.With("component", "worker_pool"),
	}
}

// Run starts the executors and blocks until ctx is cancelled and every
// in-flight task has drained. Always returns nil; a clean shutdown is not
// an error.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info("starting worker pool",
		"worker_count", p.config.Count,
		"max_attempts", p.config.Policy.MaxAttempts,
		"task_types", p.registry.Types())

	var wg sync.WaitGroup
	for i := 0; i < p.config.Count; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id)
		}(i)
	}
	wg.Wait()

	p.logger.Info("worker pool stopped")
	return nil
}

func (p *Pool) worker(ctx context.Context, id int) {
	log := p.logger.With("worker_id", id)
	log.Debug("worker started")

	for {
		if ctx.Err() != nil {
			log.Debug("worker stopped")
			return
		}

		delivery, err := p.consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Debug("worker stopped")
				return
			}
			if errors.Is(err, queue.ErrMalformedMessage) {
				log.Warn("skipping malformed message", "error", err)
				continue
			}
			log.Error("failed to fetch from queue", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(fetchBackoff):
			}
			continue
		}

		p.process(ctx, delivery, log)
	}
}

// process executes one delivery end to end: wait until due, run the
// handler, record the outcome, acknowledge. A delivery abandoned on
// shutdown is redelivered to another worker, which is the at-least-once
// contract task authors must design for.
func (p *Pool) process(ctx context.Context, d queue.Delivery, log *slog.Logger) {
	msg := d.Message()
	attempt := msg.Attempt + 1
	log = log.With("task_id", msg.ID, "task_type", msg.Type, "attempt", attempt)

	if wait := time.Until(msg.NotBefore); wait > 0 {
		log.Debug("waiting for delayed task", "wait", wait)
		select {
		case <-ctx.Done():
			// Not acknowledged; the broker redelivers it.
			return
		case <-time.After(wait):
		}
	}

	handler, ok := p.registry.Resolve(msg.Type)
	if !ok {
		p.markFailed(ctx, msg, attempt, fmt.Errorf("no handler registered for task type %q", msg.Type), log)
		p.ack(ctx, d, log)
		return
	}

	if err := p.store.MarkProcessing(ctx, msg.ID, attempt); err != nil {
		log.Error("failed to mark task processing", "error", err)
	}

	outcome := p.execute(ctx, handler, msg.Payload)

	switch {
	case outcome.Err() == nil:
		if err := p.store.MarkCompleted(ctx, msg.ID, outcome.Result()); err != nil {
			log.Error("failed to mark task completed", "error", err)
		}
		log.Info("task completed")
		p.notify(ctx, events.KindCompleted, msg, attempt, nil)

	case outcome.ShouldRetry() && !p.config.Policy.Exhausted(attempt):
		delay := outcome.Delay()
		if delay <= 0 {
			delay = p.config.Policy.Delay(attempt)
		}
		if err := p.client.Retry(ctx, msg, delay, outcome.Err()); err != nil {
			log.Error("failed to schedule retry", "error", err)
			// Leave the delivery unacknowledged so the broker
			// redelivers the original message.
			return
		}
		p.notify(ctx, events.KindRetrying, msg, attempt, outcome.Err())

	default:
		p.markFailed(ctx, msg, attempt, outcome.Err(), log)
	}

	p.ack(ctx, d, log)
}

// execute runs the handler, converting a panic into a retryable failure so
// a broken task cannot take the worker process down.
func (p *Pool) execute(ctx context.Context, handler Handler, payload []byte) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Retry(fmt.Errorf("task handler panicked: %v", r))
		}
	}()
	return handler(ctx, payload)
}

func (p *Pool) markFailed(ctx context.Context, msg queue.Message, attempt int, cause error, log *slog.Logger) {
	if err := p.store.MarkFailed(ctx, msg.ID, attempt, redact.Error(cause)); err != nil {
		log.Error("failed to record permanent task failure", "error", err)
	}
	log.Error("task permanently failed", "error", cause)
	p.notify(ctx, events.KindFailed, msg, attempt, cause)
}

func (p *Pool) notify(ctx context.Context, kind events.Kind, msg queue.Message, attempt int, cause error) {
	if p.config.Emitter == nil {
		return
	}
	p.config.Emitter.EmitEvent(ctx, events.NewTaskEvent(kind, msg.ID, msg.Type, msg.Queue, attempt, redact.Error(cause)))
}

func (p *Pool) ack(ctx context.Context, d queue.Delivery, log *slog.Logger) {
	if err := d.Ack(ctx); err != nil {
		log.Error("failed to acknowledge delivery", "error", err)
	}
}
