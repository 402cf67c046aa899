package ledger

import (
	"context"

	"github.com/daskhq/dask/internal/domain/claim"
	"github.com/daskhq/dask/internal/domain/identity"
	"github.com/daskhq/dask/internal/domain/oplog"
)

// RaiseClaim appends a new OPEN claim by a task member against an unpaid
// task. The claimant's cumulative claimed amount on the task, this claim
// included, must not exceed the task's reward; the check runs before any
// state changes. The aggregate across different claimants is deliberately not
// bounded here.
func (l *Ledger) RaiseClaim(ctx context.Context, caller identity.Address, taskID int64, amount int64) (*claim.Claim, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkNotPaused(); err != nil {
		return nil, err
	}
	t, ok := l.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	if !t.Member(caller) {
		return nil, ErrOnlyMembers
	}
	if t.Paid {
		return nil, ErrAlreadyPaid
	}
	if amount <= 0 {
		return nil, ErrNoAmount
	}
	var prior int64
	for _, id := range l.taskClaims[taskID][caller] {
		prior += l.claims[id].Amount
	}
	if prior+amount > t.Reward {
		return nil, ErrClaimTooHigh
	}

	rec := &oplog.Record{
		Op:     oplog.OpRaiseClaim,
		Caller: caller,
		TaskID: taskID,
		Amount: amount,
	}
	if err := l.commit(ctx, rec); err != nil {
		return nil, err
	}
	c := l.applyRaiseClaim(rec)

	snap := *c
	return &snap, nil
}

func (l *Ledger) applyRaiseClaim(rec *oplog.Record) *claim.Claim {
	id := l.nextClaimID
	l.nextClaimID++

	c := &claim.Claim{
		ID:         id,
		TaskID:     rec.TaskID,
		Claimant:   rec.Caller,
		Amount:     rec.Amount,
		Resolution: claim.ResolutionOpen,
		CreatedAt:  rec.At,
	}
	l.claims[id] = c
	byClaimant := l.taskClaims[rec.TaskID]
	if byClaimant == nil {
		byClaimant = make(map[identity.Address][]int64)
		l.taskClaims[rec.TaskID] = byClaimant
	}
	byClaimant[rec.Caller] = append(byClaimant[rec.Caller], id)
	return c
}

// SettleClaim records the administrator's decision on an open claim.
// APPROVED transfers the claimed amount to the claimant and resolves the
// claim; DENIED resolves it without a transfer; DISPUTE marks it disputed but
// leaves it unresolved, after which no settlement path remains ("only open
// claims"). The transfer is independent bookkeeping: the task's reward field
// is not reduced.
func (l *Ledger) SettleClaim(ctx context.Context, caller identity.Address, taskID int64, claimant identity.Address, claimID int64, res claim.Resolution) (*claim.Claim, error) {
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
	if !t.Member(claimant) {
		return nil, ErrOnlyMembers
	}
	if !res.Valid() {
		return nil, ErrInvalidResolution
	}
	c, ok := l.claims[claimID]
	if !ok || c.TaskID != taskID || c.Claimant != claimant {
		return nil, ErrClaimNotFound
	}
	if c.Resolved {
		return nil, ErrAlreadyResolved
	}
	if c.Resolution != claim.ResolutionOpen {
		return nil, ErrOnlyOpenClaims
	}

	rec := &oplog.Record{
		Op:         oplog.OpSettleClaim,
		Caller:     caller,
		TaskID:     taskID,
		ClaimID:    claimID,
		Target:     claimant,
		Resolution: res,
	}
	if err := l.commit(ctx, rec); err != nil {
		return nil, err
	}
	l.applySettleClaim(rec)

	snap := *c
	return &snap, nil
}

func (l *Ledger) applySettleClaim(rec *oplog.Record) {
	c := l.claims[rec.ClaimID]
	c.Resolution = rec.Resolution
	switch rec.Resolution {
	case claim.ResolutionApproved:
		l.balances[c.Claimant] += c.Amount
		c.Resolved = true
	case claim.ResolutionDenied:
		c.Resolved = true
	case claim.ResolutionDispute:
		// Stays unresolved. Settlement requires an open claim, so no
		// path leads out of dispute.
	}
}
