package ledger

import (
	"github.com/daskhq/dask/internal/domain/claim"
	"github.com/daskhq/dask/internal/domain/identity"
	"github.com/daskhq/dask/internal/domain/task"
)

// Read queries. All return copies; none block mutations for longer than the
// copy takes, and none mutate.

// Task returns the task with the given id.
func (l *Ledger) Task(id int64) (*task.Task, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, ok := l.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	snap := *t
	return &snap, nil
}

// TaskByRef returns the first task posted with the given content reference.
func (l *Ledger) TaskByRef(ref string) (*task.Task, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id, ok := l.taskByRef[ref]
	if !ok {
		return nil, ErrTaskNotFound
	}
	snap := *l.tasks[id]
	return &snap, nil
}

// TaskIDs returns all task ids in creation order.
func (l *Ledger) TaskIDs() []int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]int64, len(l.taskIDs))
	copy(ids, l.taskIDs)
	return ids
}

// TasksByMember returns every task where addr is owner or assignee, in
// creation/assignment order. Served from the incrementally maintained member
// index, not by scanning the store.
func (l *Ledger) TasksByMember(addr identity.Address) []task.Task {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.memberIdx[addr]
	out := make([]task.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, *l.tasks[id])
	}
	return out
}

// Claim returns the claim with the given id.
func (l *Ledger) Claim(id int64) (*claim.Claim, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.claims[id]
	if !ok {
		return nil, ErrClaimNotFound
	}
	snap := *c
	return &snap, nil
}

// TaskClaims returns the ids of all claims raised by claimant against the
// task, in raise order.
func (l *Ledger) TaskClaims(taskID int64, claimant identity.Address) []int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.taskClaims[taskID][claimant]
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}

// Confirmed reports whether addr has requested completion of the task.
func (l *Ledger) Confirmed(taskID int64, addr identity.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.confirmed[taskID][addr]
}

// Balance returns the account balance for addr.
func (l *Ledger) Balance(addr identity.Address) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.balances[addr]
}

// Admin returns the current administrator identity.
func (l *Ledger) Admin() identity.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.admin
}

// Paused reports whether the circuit breaker is engaged.
func (l *Ledger) Paused() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.paused
}

// FeeRate returns the current payout fee rate.
func (l *Ledger) FeeRate() (feePercent, feeBase int64) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.feePercent, l.feeBase
}

// AccruedFees returns the undistributed protocol fee balance.
func (l *Ledger) AccruedFees() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.accruedFees
}

// Seq returns the sequence number of the last committed operation.
func (l *Ledger) Seq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.seq
}
