// Package catalog stores the reference data collections (sites and
// systems). Both are sync-replace only: a successful catalog sync swaps
// the full content in one transaction, the client never edits them.
package catalog

import (
	"context"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
)

type Repository interface {
	// ReplaceAll clears both collections and repopulates them from the
	// given slices inside a single transaction. Callers must only pass
	// fully fetched data: a failed fetch must never get as far as the
	// clear.
	ReplaceAll(ctx context.Context, sites []models.Site, systems []models.System) error

	UpsertSites(ctx context.Context, sites []models.Site) error
	UpsertSystems(ctx context.Context, systems []models.System) error

	GetSite(ctx context.Context, id int64) (*models.Site, error)
	AllSites(ctx context.Context) ([]models.Site, error)

	GetSystem(ctx context.Context, id int64) (*models.System, error)
	AllSystems(ctx context.Context) ([]models.System, error)

	// SystemsBySite is an index read over the site_id secondary index.
	SystemsBySite(ctx context.Context, siteID int64) ([]models.System, error)
}
