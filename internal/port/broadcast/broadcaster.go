// Package broadcast defines the port for pushing ledger events to connected
// feed clients.
package broadcast

import (
	"context"

	"github.com/daskhq/dask/internal/domain/event"
)

// Broadcaster fans a task event out to every connected client.
type Broadcaster interface {
	BroadcastTaskEvent(ctx context.Context, ev *event.TaskEvent)
}
