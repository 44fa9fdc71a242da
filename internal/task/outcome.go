package task

import (
	"context"
	"time"
)

// Handler executes one task. The payload is the raw message payload; the
// returned Outcome carries either a success value, a retry directive, or a
// permanent failure. Retry is an explicit return value, never control flow.
//
// Handlers must be idempotent: the queue guarantees at-least-once delivery,
// never exactly-once.
type Handler func(ctx context.Context, payload []byte) Outcome

// Outcome is the result of one task execution attempt. Construct it with
// Completed, Retry, RetryAfter, or Failed; the zero value means success
// with no result.
type Outcome struct {
	result []byte
	err    error
	retry  bool
	delay  time.Duration
}

// Completed reports success with an optional result value for the backend.
func Completed(result []byte) Outcome {
	return Outcome{result: result}
}

// Retry reports a transient failure. The worker re-enqueues the task with
// the delay computed from its RetryPolicy, provided attempts remain.
func Retry(err error) Outcome {
	return Outcome{err: err, retry: true}
}

// RetryAfter is Retry with an explicit delay overriding the policy.
func RetryAfter(delay time.Duration, err error) Outcome {
	return Outcome{err: err, retry: true, delay: delay}
}

// Failed reports a permanent failure that must not be retried, such as a
// payload the handler can never process.
func Failed(err error) Outcome {
	return Outcome{err: err}
}

// Result returns the success value.
func (o Outcome) Result() []byte { return o.result }

// Err returns the failure, nil on success.
func (o Outcome) Err() error { return o.err }

// ShouldRetry reports whether the outcome asks for a retry.
func (o Outcome) ShouldRetry() bool { return o.retry }

// Delay returns the explicit delay override, zero when the policy decides.
func (o Outcome) Delay() time.Duration { return o.delay }
