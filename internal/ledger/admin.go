package ledger

import (
	"context"

	"github.com/daskhq/dask/internal/domain/identity"
	"github.com/daskhq/dask/internal/domain/oplog"
)

// TransferOwnership hands the administrator role to newAdmin. Only the
// current administrator may call it, paused or not.
func (l *Ledger) TransferOwnership(ctx context.Context, caller, newAdmin identity.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if newAdmin.IsZero() {
		return ErrZeroAccount
	}

	rec := &oplog.Record{Op: oplog.OpTransferAdmin, Caller: caller, Target: newAdmin}
	if err := l.commit(ctx, rec); err != nil {
		return err
	}
	l.admin = newAdmin
	return nil
}

// Pause engages the circuit breaker. Every mutating operation except Pause,
// Unpause and TransferOwnership fails with ErrPaused until Unpause.
func (l *Ledger) Pause(ctx context.Context, caller identity.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if l.paused {
		return ErrPaused
	}

	rec := &oplog.Record{Op: oplog.OpPause, Caller: caller}
	if err := l.commit(ctx, rec); err != nil {
		return err
	}
	l.paused = true
	return nil
}

// Unpause releases the circuit breaker.
func (l *Ledger) Unpause(ctx context.Context, caller identity.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if !l.paused {
		return ErrNotPaused
	}

	rec := &oplog.Record{Op: oplog.OpUnpause, Caller: caller}
	if err := l.commit(ctx, rec); err != nil {
		return err
	}
	l.paused = false
	return nil
}

// UpdateFees replaces the fee rate used by future payouts. Completed payouts
// are unaffected.
func (l *Ledger) UpdateFees(ctx context.Context, caller identity.Address, feePercent, feeBase int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkNotPaused(); err != nil {
		return err
	}
	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if feeBase <= 0 {
		return ErrZeroFeeBase
	}
	if feePercent < 0 {
		return ErrNoAmount
	}
	// A rate above 1 would make payouts negative.
	if feePercent > feeBase {
		return ErrFeeTooHigh
	}

	rec := &oplog.Record{
		Op:         oplog.OpUpdateFees,
		Caller:     caller,
		FeePercent: feePercent,
		FeeBase:    feeBase,
	}
	if err := l.commit(ctx, rec); err != nil {
		return err
	}
	l.feePercent, l.feeBase = feePercent, feeBase
	return nil
}

// TakeFees withdraws part of the accrued protocol fees to the administrator's
// balance.
func (l *Ledger) TakeFees(ctx context.Context, caller identity.Address, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkNotPaused(); err != nil {
		return err
	}
	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if amount <= 0 {
		return ErrNoAmount
	}
	if amount > l.accruedFees {
		return ErrAmountTooLarge
	}

	rec := &oplog.Record{Op: oplog.OpTakeFees, Caller: caller, Amount: amount}
	if err := l.commit(ctx, rec); err != nil {
		return err
	}
	l.accruedFees -= amount
	l.balances[caller] += amount
	return nil
}

// Deposit credits an account. Administrator-only: this is the service-side
// analogue of funding a wallet before it can escrow rewards.
func (l *Ledger) Deposit(ctx context.Context, caller, account identity.Address, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkNotPaused(); err != nil {
		return err
	}
	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if account.IsZero() {
		return ErrZeroAccount
	}
	if amount <= 0 {
		return ErrNoAmount
	}

	rec := &oplog.Record{Op: oplog.OpDeposit, Caller: caller, Target: account, Amount: amount}
	if err := l.commit(ctx, rec); err != nil {
		return err
	}
	l.balances[account] += amount
	return nil
}
