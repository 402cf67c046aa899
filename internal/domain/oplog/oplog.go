// Package oplog defines the journal record written for every committed
// ledger mutation. The journal is the ledger's source of durability: replaying
// records in sequence order through a fresh engine reproduces its exact state,
// including task-id and claim-id assignment.
package oplog

import (
	"time"

	"github.com/daskhq/dask/internal/domain/claim"
	"github.com/daskhq/dask/internal/domain/identity"
)

// Op identifies a mutating ledger operation.
type Op string

const (
	OpCreateTask    Op = "task.create"
	OpAssignTask    Op = "task.assign"
	OpCancelTask    Op = "task.cancel"
	OpCompleteTask  Op = "task.complete"
	OpTakeReward    Op = "task.take_reward"
	OpRecallReward  Op = "task.recall_reward"
	OpRefund        Op = "task.refund"
	OpRaiseClaim    Op = "claim.raise"
	OpSettleClaim   Op = "claim.settle"
	OpUpdateFees    Op = "fees.update"
	OpTakeFees      Op = "fees.take"
	OpDeposit       Op = "account.deposit"
	OpTransferAdmin Op = "admin.transfer"
	OpPause         Op = "admin.pause"
	OpUnpause       Op = "admin.unpause"
)

// Record is one committed operation. Fields beyond Seq, Op, Caller and At are
// populated only where the operation uses them.
type Record struct {
	Seq    uint64           `json:"seq"`
	Op     Op               `json:"op"`
	Caller identity.Address `json:"caller"`

	TaskID  int64 `json:"task_id,omitempty"`
	ClaimID int64 `json:"claim_id,omitempty"`

	// Target is the operation's counterparty: the assignee on assign, the
	// member on refund, the claimant on settle, the credited account on
	// deposit, the new administrator on transfer.
	Target identity.Address `json:"target,omitempty"`

	Name       string           `json:"name,omitempty"`
	Ref        string           `json:"ref,omitempty"`
	Amount     int64            `json:"amount,omitempty"`
	FeePercent int64            `json:"fee_percent,omitempty"`
	FeeBase    int64            `json:"fee_base,omitempty"`
	Resolution claim.Resolution `json:"resolution,omitempty"`

	At time.Time `json:"at"`
}
