// Package queue defines the transport boundary between this service and the
// message broker that distributes background tasks. The broker itself is an
// external collaborator; this package only specifies the message envelope
// and the publish/consume capabilities the rest of the application depends on.
package queue
