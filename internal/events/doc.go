// Package events provides lifecycle notifications for background tasks.
//
// The worker pool emits an event for every terminal transition a task
// makes (completed, retrying, failed). Handlers subscribe without the
// pool knowing who listens, so alerting or audit sinks can be added
// without touching task execution.
package events
