// Package ledger implements the escrow and dispute-resolution core: task
// records with escrowed rewards, claims, the protocol fee ledger, account
// balances, and the administrator/pause gate.
//
// The engine executes one mutating call at a time to completion under a
// single mutex. Every operation validates all of its preconditions before
// touching any state, appends a journal record, and only then mutates, so a
// failure at any point leaves no partial effects. Reads take the lock shared
// and never mutate.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/daskhq/dask/internal/domain/event"
	"github.com/daskhq/dask/internal/domain/identity"
	"github.com/daskhq/dask/internal/domain/oplog"
	"github.com/daskhq/dask/internal/domain/task"
	"github.com/daskhq/dask/internal/port/journal"

	dclaim "github.com/daskhq/dask/internal/domain/claim"
)

// Config holds the engine's bootstrap parameters. Passing an explicit config
// (rather than package-level state) keeps multiple isolated ledgers trivial
// to stand up in tests.
type Config struct {
	// Admin is the initial administrator identity.
	Admin identity.Address

	// FeePercent and FeeBase define the payout fee rate as
	// amount * FeePercent / FeeBase, evaluated in integer arithmetic.
	FeePercent int64
	FeeBase    int64

	// Journal receives one record per committed mutation. Required.
	Journal journal.Store

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Ledger is the authoritative escrow state. All exported methods are safe for
// concurrent use; mutations serialize on the internal mutex.
type Ledger struct {
	mu      sync.RWMutex
	journal journal.Store
	now     func() time.Time

	admin  identity.Address
	paused bool

	feePercent  int64
	feeBase     int64
	accruedFees int64

	balances map[identity.Address]int64

	tasks      map[int64]*task.Task
	taskIDs    []int64                    // creation order
	taskByRef  map[string]int64           // first task posted with each ref
	memberIdx  map[identity.Address][]int64
	confirmed  map[int64]map[identity.Address]bool
	nextTaskID int64

	claims      map[int64]*dclaim.Claim
	taskClaims  map[int64]map[identity.Address][]int64 // raise order per (task, claimant)
	nextClaimID int64

	seq uint64
}

// New creates a ledger from cfg.
func New(cfg Config) (*Ledger, error) {
	if cfg.Admin.IsZero() {
		return nil, fmt.Errorf("ledger: admin address is required")
	}
	if cfg.Journal == nil {
		return nil, fmt.Errorf("ledger: journal store is required")
	}
	if cfg.FeeBase <= 0 {
		return nil, fmt.Errorf("ledger: %w", ErrZeroFeeBase)
	}
	if cfg.FeePercent < 0 {
		return nil, fmt.Errorf("ledger: fee percent must not be negative")
	}
	if cfg.FeePercent > cfg.FeeBase {
		return nil, fmt.Errorf("ledger: %w", ErrFeeTooHigh)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		journal:     cfg.Journal,
		now:         now,
		admin:       cfg.Admin,
		feePercent:  cfg.FeePercent,
		feeBase:     cfg.FeeBase,
		balances:    make(map[identity.Address]int64),
		tasks:       make(map[int64]*task.Task),
		taskByRef:   make(map[string]int64),
		memberIdx:   make(map[identity.Address][]int64),
		confirmed:   make(map[int64]map[identity.Address]bool),
		claims:      make(map[int64]*dclaim.Claim),
		taskClaims:  make(map[int64]map[identity.Address][]int64),
		nextTaskID:  1,
		nextClaimID: 1,
	}, nil
}

// commit stamps rec with the next sequence number and timestamp, then appends
// it to the journal. Called with the write lock held, before any mutation;
// an append failure aborts the operation with no state change.
func (l *Ledger) commit(ctx context.Context, rec *oplog.Record) error {
	rec.Seq = l.seq + 1
	if rec.At.IsZero() {
		rec.At = l.now().UTC()
	}
	if err := l.journal.Append(ctx, rec); err != nil {
		return fmt.Errorf("journal append: %w", err)
	}
	l.seq = rec.Seq
	return nil
}

// Replay rebuilds state from journal records, in order. It trusts the
// journal: records were validated when first committed, so apply functions
// mutate without re-checking preconditions. No events are emitted and nothing
// is re-appended; feeds were notified when the operations originally ran.
func (l *Ledger) Replay(recs []oplog.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range recs {
		rec := &recs[i]
		if rec.Seq != l.seq+1 {
			return fmt.Errorf("ledger replay: journal gap at seq %d (expected %d)", rec.Seq, l.seq+1)
		}
		if err := l.apply(rec); err != nil {
			return fmt.Errorf("ledger replay: seq %d op %s: %w", rec.Seq, rec.Op, err)
		}
		l.seq = rec.Seq
	}
	return nil
}

// apply mutates state according to a committed record. Must be called with
// the write lock held. Every branch is deterministic given current state and
// the record alone.
func (l *Ledger) apply(rec *oplog.Record) error {
	switch rec.Op {
	case oplog.OpCreateTask:
		l.applyCreateTask(rec)
	case oplog.OpAssignTask:
		l.applyAssignTask(rec)
	case oplog.OpCancelTask:
		l.applyCancelTask(rec)
	case oplog.OpCompleteTask:
		l.applyCompleteTask(rec)
	case oplog.OpTakeReward:
		l.applyTakeReward(rec)
	case oplog.OpRecallReward:
		l.applyRecallReward(rec)
	case oplog.OpRefund:
		l.applyRefund(rec)
	case oplog.OpRaiseClaim:
		l.applyRaiseClaim(rec)
	case oplog.OpSettleClaim:
		l.applySettleClaim(rec)
	case oplog.OpUpdateFees:
		l.feePercent, l.feeBase = rec.FeePercent, rec.FeeBase
	case oplog.OpTakeFees:
		l.accruedFees -= rec.Amount
		l.balances[rec.Caller] += rec.Amount
	case oplog.OpDeposit:
		l.balances[rec.Target] += rec.Amount
	case oplog.OpTransferAdmin:
		l.admin = rec.Target
	case oplog.OpPause:
		l.paused = true
	case oplog.OpUnpause:
		l.paused = false
	default:
		return fmt.Errorf("unknown op %q", rec.Op)
	}
	return nil
}

// taskEvent builds the notification for a committed task transition. The
// post-mutation snapshot is copied so later mutations don't race the feed.
func (l *Ledger) taskEvent(kind event.Kind, t *task.Task, rec *oplog.Record) *event.TaskEvent {
	return &event.TaskEvent{
		Kind:      kind,
		Seq:       rec.Seq,
		Task:      *t,
		CreatedAt: rec.At,
	}
}

// checkNotPaused gates mutating operations on the circuit breaker.
func (l *Ledger) checkNotPaused() error {
	if l.paused {
		return ErrPaused
	}
	return nil
}

func (l *Ledger) requireAdmin(caller identity.Address) error {
	if caller != l.admin {
		return ErrOnlyAdmin
	}
	return nil
}
