// Package claim defines the Claim domain entity for dispute resolution.
package claim

import (
	"time"

	"github.com/daskhq/dask/internal/domain/identity"
)

// Resolution is the adjudication state of a claim.
type Resolution string

const (
	ResolutionOpen     Resolution = "open"
	ResolutionApproved Resolution = "approved"
	ResolutionDenied   Resolution = "denied"
	// ResolutionDispute parks a claim: it stays unresolved but can no longer
	// be settled, since settlement requires an open claim. Escalation beyond
	// this point happens outside the ledger.
	ResolutionDispute Resolution = "dispute"
)

// Valid reports whether r is a resolution an administrator may settle with.
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionApproved, ResolutionDenied, ResolutionDispute:
		return true
	}
	return false
}

// Claim is a request by a task member for a portion of the task's reward.
// Claims are never deleted; terminal settlement only marks them resolved.
type Claim struct {
	ID         int64            `json:"id"`
	TaskID     int64            `json:"task_id"`
	Claimant   identity.Address `json:"claimant"`
	Amount     int64            `json:"amount"`
	Resolution Resolution       `json:"resolution"`
	Resolved   bool             `json:"resolved"`
	CreatedAt  time.Time        `json:"created_at"`
}
