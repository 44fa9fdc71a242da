package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrMalformedMessage is returned by a Consumer when a fetched message
// cannot be decoded. The message is committed so it is not redelivered
// forever; callers should log and continue.
var ErrMalformedMessage = errors.New("malformed queue message")

// Message is the wire envelope for one unit of background work.
type Message struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	Queue      string          `json:"queue"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Attempt    int             `json:"attempt"`
	EnqueuedAt time.Time       `json:"enqueued_at"`

	// NotBefore delays execution: a worker that fetches the message
	// before this instant waits until it is due. Zero means immediately
	// eligible. Used to implement retry backoff over a broker that has
	// no native delayed delivery.
	NotBefore time.Time `json:"not_before,omitempty"`
}

// Publisher sends messages to the named queue of the broker.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Delivery is one fetched message together with its acknowledgement.
// A delivery that is never acknowledged is redelivered by the broker,
// which is what gives workers at-least-once semantics.
type Delivery interface {
	Message() Message
	Ack(ctx context.Context) error
}

// Consumer pulls deliveries from one queue on behalf of a worker fleet.
type Consumer interface {
	Fetch(ctx context.Context) (Delivery, error)
	Close() error
}
