// Package drafts stores autosaved report-form buffers, one per
// (kind, report id). There is no delete: a draft is only ever
// superseded by a newer Put.
package drafts

import (
	"context"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
)

type Repository interface {
	Put(ctx context.Context, d *models.Draft) error

	// Get returns nil (no error) when no draft exists.
	Get(ctx context.Context, kind models.DraftKind, reportID int64) (*models.Draft, error)
}
