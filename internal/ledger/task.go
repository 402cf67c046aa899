package ledger

import (
	"context"
	"math/bits"

	"github.com/daskhq/dask/internal/domain/event"
	"github.com/daskhq/dask/internal/domain/identity"
	"github.com/daskhq/dask/internal/domain/oplog"
	"github.com/daskhq/dask/internal/domain/task"
)

// CreateTask escrows req.Reward from the caller's balance and posts a new
// task in NEW with the caller as owner.
func (l *Ledger) CreateTask(ctx context.Context, caller identity.Address, req task.CreateRequest) (*task.Task, *event.TaskEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkNotPaused(); err != nil {
		return nil, nil, err
	}
	if req.Reward < 0 {
		return nil, nil, ErrNoAmount
	}
	if req.Reward == 0 {
		return nil, nil, ErrZeroReward
	}
	if l.balances[caller] < req.Reward {
		return nil, nil, ErrInsufficientBalance
	}

	rec := &oplog.Record{
		Op:     oplog.OpCreateTask,
		Caller: caller,
		Name:   req.Name,
		Ref:    req.DescriptionRef,
		Amount: req.Reward,
	}
	if err := l.commit(ctx, rec); err != nil {
		return nil, nil, err
	}
	t := l.applyCreateTask(rec)

	snap := *t
	return &snap, l.taskEvent(event.KindCreated, t, rec), nil
}

func (l *Ledger) applyCreateTask(rec *oplog.Record) *task.Task {
	id := l.nextTaskID
	l.nextTaskID++

	t := &task.Task{
		ID:             id,
		Name:           rec.Name,
		DescriptionRef: rec.Ref,
		Reward:         rec.Amount,
		Status:         task.StatusNew,
		Owner:          rec.Caller,
		Assignee:       identity.Zero,
		CreatedAt:      rec.At,
	}
	l.balances[rec.Caller] -= rec.Amount
	l.tasks[id] = t
	l.taskIDs = append(l.taskIDs, id)
	if _, ok := l.taskByRef[rec.Ref]; !ok {
		l.taskByRef[rec.Ref] = id
	}
	l.memberIdx[rec.Caller] = append(l.memberIdx[rec.Caller], id)
	return t
}

// AssignTask sets the assignee on a NEW task and moves it to ASSIGNED.
// Only the owner may assign. Assigning resets the confirmation set.
func (l *Ledger) AssignTask(ctx context.Context, caller identity.Address, taskID int64, assignee identity.Address) (*task.Task, *event.TaskEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkNotPaused(); err != nil {
		return nil, nil, err
	}
	t, ok := l.tasks[taskID]
	if !ok {
		return nil, nil, ErrTaskNotFound
	}
	if caller != t.Owner {
		return nil, nil, ErrOnlyOwner
	}
	if t.Status != task.StatusNew {
		return nil, nil, ErrOnlyNewTasks
	}

	rec := &oplog.Record{
		Op:     oplog.OpAssignTask,
		Caller: caller,
		TaskID: taskID,
		Target: assignee,
	}
	if err := l.commit(ctx, rec); err != nil {
		return nil, nil, err
	}
	l.applyAssignTask(rec)

	snap := *t
	return &snap, l.taskEvent(event.KindAssigned, t, rec), nil
}

func (l *Ledger) applyAssignTask(rec *oplog.Record) {
	t := l.tasks[rec.TaskID]
	t.Assignee = rec.Target
	t.Status = task.StatusAssigned
	l.confirmed[t.ID] = make(map[identity.Address]bool)
	if rec.Target != t.Owner {
		l.memberIdx[rec.Target] = append(l.memberIdx[rec.Target], t.ID)
	}
}

// CancelTask moves a NEW task to CANCELLED. Only the owner may cancel; the
// escrow stays held until RecallReward.
func (l *Ledger) CancelTask(ctx context.Context, caller identity.Address, taskID int64) (*task.Task, *event.TaskEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkNotPaused(); err != nil {
		return nil, nil, err
	}
	t, ok := l.tasks[taskID]
	if !ok {
		return nil, nil, ErrTaskNotFound
	}
	if caller != t.Owner {
		return nil, nil, ErrOnlyOwner
	}
	if t.Status != task.StatusNew {
		return nil, nil, ErrOnlyNewTasks
	}

	rec := &oplog.Record{Op: oplog.OpCancelTask, Caller: caller, TaskID: taskID}
	if err := l.commit(ctx, rec); err != nil {
		return nil, nil, err
	}
	l.applyCancelTask(rec)

	snap := *t
	return &snap, l.taskEvent(event.KindCancelled, t, rec), nil
}

func (l *Ledger) applyCancelTask(rec *oplog.Record) {
	l.tasks[rec.TaskID].Status = task.StatusCancelled
}

// CompleteTask records the caller's completion confirmation on an ASSIGNED
// task. Once both owner and assignee have confirmed, the task transitions to
// COMPLETED and CompletedAt is stamped; the returned event is nil until then.
func (l *Ledger) CompleteTask(ctx context.Context, caller identity.Address, taskID int64) (*task.Task, *event.TaskEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkNotPaused(); err != nil {
		return nil, nil, err
	}
	t, ok := l.tasks[taskID]
	if !ok {
		return nil, nil, ErrTaskNotFound
	}
	if !t.Member(caller) {
		return nil, nil, ErrOnlyMembers
	}
	if t.Status != task.StatusAssigned {
		return nil, nil, ErrNotInProgress
	}
	if l.confirmed[taskID][caller] {
		return nil, nil, ErrCompletionRequested
	}

	rec := &oplog.Record{Op: oplog.OpCompleteTask, Caller: caller, TaskID: taskID}
	if err := l.commit(ctx, rec); err != nil {
		return nil, nil, err
	}
	l.applyCompleteTask(rec)

	snap := *t
	if t.Status == task.StatusCompleted {
		return &snap, l.taskEvent(event.KindCompleted, t, rec), nil
	}
	return &snap, nil, nil
}

func (l *Ledger) applyCompleteTask(rec *oplog.Record) {
	t := l.tasks[rec.TaskID]
	set := l.confirmed[rec.TaskID]
	if set == nil {
		set = make(map[identity.Address]bool)
		l.confirmed[rec.TaskID] = set
	}
	set[rec.Caller] = true
	if set[t.Owner] && set[t.Assignee] {
		t.Status = task.StatusCompleted
		t.CompletedAt = rec.At
	}
}

// TakeReward pays the assignee of a COMPLETED, unpaid task its reward minus
// the protocol fee, accrues the fee, zeroes the reward and marks the task
// paid. The payout and fee split use the fee rate in force right now, not the
// one at creation time.
func (l *Ledger) TakeReward(ctx context.Context, caller identity.Address, taskID int64) (*task.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkNotPaused(); err != nil {
		return nil, err
	}
	t, ok := l.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	if caller != t.Assignee {
		return nil, ErrOnlyAssignee
	}
	if t.Status != task.StatusCompleted {
		return nil, ErrNotCompleted
	}
	if t.Paid {
		return nil, ErrAlreadyPaid
	}

	rec := &oplog.Record{Op: oplog.OpTakeReward, Caller: caller, TaskID: taskID}
	if err := l.commit(ctx, rec); err != nil {
		return nil, err
	}
	l.applyTakeReward(rec)

	snap := *t
	return &snap, nil
}

func (l *Ledger) applyTakeReward(rec *oplog.Record) {
	t := l.tasks[rec.TaskID]
	fee := feeOn(t.Reward, l.feePercent, l.feeBase)
	l.balances[t.Assignee] += t.Reward - fee
	l.accruedFees += fee
	t.Reward = 0
	t.Paid = true
}

// feeOn computes amount * percent / base without the intermediate product
// overflowing int64. percent <= base is enforced at configuration time, so
// the quotient always fits.
func feeOn(amount, percent, base int64) int64 {
	hi, lo := bits.Mul64(uint64(amount), uint64(percent))
	quo, _ := bits.Div64(hi, lo, uint64(base))
	return int64(quo)
}

// RecallReward returns the full escrow of a CANCELLED, unpaid task to its
// owner and marks the task paid.
func (l *Ledger) RecallReward(ctx context.Context, caller identity.Address, taskID int64) (*task.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkNotPaused(); err != nil {
		return nil, err
	}
	t, ok := l.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	if caller != t.Owner {
		return nil, ErrOnlyOwner
	}
	if t.Status != task.StatusCancelled {
		return nil, ErrNotCancelled
	}
	if t.Paid {
		return nil, ErrAlreadyPaid
	}

	rec := &oplog.Record{Op: oplog.OpRecallReward, Caller: caller, TaskID: taskID}
	if err := l.commit(ctx, rec); err != nil {
		return nil, err
	}
	l.applyRecallReward(rec)

	snap := *t
	return &snap, nil
}

func (l *Ledger) applyRecallReward(rec *oplog.Record) {
	t := l.tasks[rec.TaskID]
	l.balances[t.Owner] += t.Reward
	t.Reward = 0
	t.Paid = true
}

// Refund is an administrator-only corrective transfer to a task member,
// bounded by the task's current reward. It moves balance only: status, paid
// and the reward field itself are left untouched, so the normal payout paths
// remain available afterwards.
func (l *Ledger) Refund(ctx context.Context, caller identity.Address, taskID int64, member identity.Address, amount int64) (*task.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkNotPaused(); err != nil {
		return nil, err
	}
	if err := l.requireAdmin(caller); err != nil {
		return nil, err
	}
	t, ok := l.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	if !t.Member(member) {
		return nil, ErrOnlyMembers
	}
	if t.Paid {
		return nil, ErrAlreadyPaid
	}
	if amount <= 0 {
		return nil, ErrNoAmount
	}
	if amount > t.Reward {
		return nil, ErrRefundTooLarge
	}

	rec := &oplog.Record{
		Op:     oplog.OpRefund,
		Caller: caller,
		TaskID: taskID,
		Target: member,
		Amount: amount,
	}
	if err := l.commit(ctx, rec); err != nil {
		return nil, err
	}
	l.applyRefund(rec)

	snap := *t
	return &snap, nil
}

func (l *Ledger) applyRefund(rec *oplog.Record) {
	l.balances[rec.Target] += rec.Amount
}
