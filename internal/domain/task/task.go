// Package task defines the Task domain entity.
package task

import (
	"time"

	"github.com/daskhq/dask/internal/domain/identity"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusNew       Status = "new"
	StatusAssigned  Status = "assigned"
	StatusStarted   Status = "started" // reserved, no transition reaches it
	StatusCancelled Status = "cancelled"
	StatusSuspended Status = "suspended" // reserved, no transition reaches it
	StatusCompleted Status = "completed"
)

// Task is a unit of work with an escrowed reward.
//
// Reward drops to exactly zero when the payout or recall path runs, and Paid
// flips false to true at the same moment; the two are never out of sync.
type Task struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	DescriptionRef string           `json:"description_ref"`
	Reward         int64            `json:"reward"`
	Status         Status           `json:"status"`
	Owner          identity.Address `json:"owner"`
	Assignee       identity.Address `json:"assignee"`
	Paid           bool             `json:"paid"`
	CreatedAt      time.Time        `json:"created_at"`
	CompletedAt    time.Time        `json:"completed_at,omitzero"`
}

// Member reports whether addr is the task's owner or assignee.
func (t *Task) Member(addr identity.Address) bool {
	return addr == t.Owner || (!t.Assignee.IsZero() && addr == t.Assignee)
}

// CreateRequest holds the fields needed to post a new task.
type CreateRequest struct {
	Name           string `json:"name"`
	DescriptionRef string `json:"description_ref"`
	Reward         int64  `json:"reward"`
}
