// Package workorders stores the transactional work-order collection.
// Unlike the catalog, a work order's status is mutable locally between
// sync cycles (optimistic status toggles).
package workorders

import (
	"context"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
)

type Repository interface {
	// ReplaceAll swaps the whole collection in one transaction.
	ReplaceAll(ctx context.Context, items []models.WorkOrder) error

	UpsertMany(ctx context.Context, items []models.WorkOrder) error
	Get(ctx context.Context, id int64) (*models.WorkOrder, error)
	All(ctx context.Context) ([]models.WorkOrder, error)

	// SetStatus writes the status code and label of one work order.
	// Returns ErrNotFound when the order is not in the local store.
	SetStatus(ctx context.Context, id int64, code, label string) error
}
