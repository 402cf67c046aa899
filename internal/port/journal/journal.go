// Package journal defines the port interface for the append-only operation
// journal.
package journal

import (
	"context"

	"github.com/daskhq/dask/internal/domain/oplog"
)

// Store persists committed ledger operations in sequence order.
//
// Append happens inside the ledger's critical section, before state is
// mutated: an append failure aborts the operation with no state change, so
// the journal never lags the in-memory state.
type Store interface {
	// Append persists a record. It must reject duplicate sequence numbers.
	Append(ctx context.Context, rec *oplog.Record) error

	// Load returns all records ordered by sequence number ascending.
	Load(ctx context.Context) ([]oplog.Record, error)
}
