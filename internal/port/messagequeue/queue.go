// Package messagequeue defines the message queue port (interface).
package messagequeue

import (
	"context"

	"github.com/daskhq/dask/internal/domain/event"
)

// Handler processes a message received from the queue.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subjects for the task event feed.
const (
	SubjectTaskCreated   = "tasks.created"
	SubjectTaskAssigned  = "tasks.assigned"
	SubjectTaskCancelled = "tasks.cancelled"
	SubjectTaskCompleted = "tasks.completed"
)

// SubjectFor maps an event kind to its NATS subject.
func SubjectFor(kind event.Kind) string {
	switch kind {
	case event.KindCreated:
		return SubjectTaskCreated
	case event.KindAssigned:
		return SubjectTaskAssigned
	case event.KindCancelled:
		return SubjectTaskCancelled
	case event.KindCompleted:
		return SubjectTaskCompleted
	}
	return "tasks." + string(kind)
}
