// Package event defines the TaskEvent emitted on every task state change.
//
// The event stream is the only channel external observers (UI caches, feeds)
// use to mirror ledger state; each event therefore carries the full
// post-mutation task snapshot rather than a delta.
package event

import (
	"time"

	"github.com/daskhq/dask/internal/domain/task"
)

// Kind identifies the task transition an event describes.
type Kind string

const (
	KindCreated   Kind = "created"
	KindAssigned  Kind = "assigned"
	KindCancelled Kind = "cancelled"
	KindCompleted Kind = "completed"
)

// TaskEvent is a single immutable notification of a task state change.
type TaskEvent struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Seq       uint64    `json:"seq"`
	Task      task.Task `json:"task"`
	CreatedAt time.Time `json:"created_at"`
}
