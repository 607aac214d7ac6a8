// Package outbox is the durable queue of not-yet-confirmed server
// mutations. Replay order is defined by created_at ascending (id as
// tie-break), not by storage insertion order.
package outbox

import (
	"context"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
)

type Repository interface {
	// Enqueue records a mutation and returns its assigned id. A failed
	// Enqueue is fatal to the originating user action, so callers must
	// propagate the error, never swallow it.
	Enqueue(ctx context.Context, kind models.OutboxKind, payload any) (int64, error)

	// ListPending returns all entries in replay order.
	ListPending(ctx context.Context) ([]models.OutboxEntry, error)

	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)

	// BumpAttempts increments the failure counter and returns the new
	// value.
	BumpAttempts(ctx context.Context, id int64) (int, error)

	// MoveToDead retires an entry to the dead-letter table; it no
	// longer takes part in replay but stays inspectable.
	MoveToDead(ctx context.Context, id int64, reason string) error
	ListDead(ctx context.Context) ([]models.DeadEntry, error)
}
