// Package task manages background job queuing, execution, and lifecycle.
// Tasks are dispatched through an explicit registry built at startup, retried
// with geometric backoff up to a bounded attempt ceiling, and surfaced to the
// result backend when they permanently fail so work is never silently lost.
package task
