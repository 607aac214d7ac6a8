package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/dbx"
)

// SQLiteRepository implements Repository over a *sql.DB. Multi-row
// writes run inside dbx.WithTx so partial writes are never visible.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, sites []models.Site, systems []models.System) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sites`); err != nil {
			return fmt.Errorf("failed to clear sites: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM systems`); err != nil {
			return fmt.Errorf("failed to clear systems: %w", err)
		}
		if err := upsertSites(ctx, tx, sites); err != nil {
			return err
		}
		return upsertSystems(ctx, tx, systems)
	})
}

func (r *SQLiteRepository) UpsertSites(ctx context.Context, sites []models.Site) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return upsertSites(ctx, tx, sites)
	})
}

func (r *SQLiteRepository) UpsertSystems(ctx context.Context, systems []models.System) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return upsertSystems(ctx, tx, systems)
	})
}

func upsertSites(ctx context.Context, tx dbx.DBTX, sites []models.Site) error {
	query := `INSERT INTO sites (id, name, street, postal_code, city, site_type, access_info, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			street = excluded.street,
			postal_code = excluded.postal_code,
			city = excluded.city,
			site_type = excluded.site_type,
			access_info = excluded.access_info,
			notes = excluded.notes
	`
	for _, s := range sites {
		_, err := tx.ExecContext(ctx, query,
			s.ID, s.Name, s.Street, s.PostalCode, s.City, s.SiteType, s.AccessInfo, s.Notes)
		if err != nil {
			return fmt.Errorf("failed to upsert site %d: %w", s.ID, err)
		}
	}
	return nil
}

func upsertSystems(ctx context.Context, tx dbx.DBTX, systems []models.System) error {
	query := `INSERT INTO systems (id, site_id, system_type, system_type_label, name,
			manufacturer, model, location_info, access_data, procedures, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET site_id = excluded.site_id,
			system_type = excluded.system_type,
			system_type_label = excluded.system_type_label,
			name = excluded.name,
			manufacturer = excluded.manufacturer,
			model = excluded.model,
			location_info = excluded.location_info,
			access_data = excluded.access_data,
			procedures = excluded.procedures,
			notes = excluded.notes
	`
	for _, s := range systems {
		_, err := tx.ExecContext(ctx, query,
			s.ID, s.SiteID, s.SystemType, s.SystemTypeLabel, s.Name,
			s.Manufacturer, s.Model, s.LocationInfo, s.AccessData, s.Procedures, s.Notes)
		if err != nil {
			return fmt.Errorf("failed to upsert system %d: %w", s.ID, err)
		}
	}
	return nil
}

const siteColumns = `id, name, street, postal_code, city, site_type, access_info, notes`

func scanSite(row interface{ Scan(...any) error }, s *models.Site) error {
	return row.Scan(&s.ID, &s.Name, &s.Street, &s.PostalCode, &s.City, &s.SiteType, &s.AccessInfo, &s.Notes)
}

func (r *SQLiteRepository) GetSite(ctx context.Context, id int64) (*models.Site, error) {
	var s models.Site
	row := r.db.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = ?`, id)
	err := scanSite(row, &s)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site %d: %w", id, err)
	}
	return &s, nil
}

func (r *SQLiteRepository) AllSites(ctx context.Context) ([]models.Site, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select sites: %w", err)
	}
	defer rows.Close()

	var result []models.Site
	for rows.Next() {
		var s models.Site
		if err := scanSite(rows, &s); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

const systemColumns = `id, site_id, system_type, system_type_label, name,
	manufacturer, model, location_info, access_data, procedures, notes`

func scanSystem(row interface{ Scan(...any) error }, s *models.System) error {
	return row.Scan(&s.ID, &s.SiteID, &s.SystemType, &s.SystemTypeLabel, &s.Name,
		&s.Manufacturer, &s.Model, &s.LocationInfo, &s.AccessData, &s.Procedures, &s.Notes)
}

func (r *SQLiteRepository) GetSystem(ctx context.Context, id int64) (*models.System, error) {
	var s models.System
	row := r.db.QueryRowContext(ctx, `SELECT `+systemColumns+` FROM systems WHERE id = ?`, id)
	err := scanSystem(row, &s)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get system %d: %w", id, err)
	}
	return &s, nil
}

func (r *SQLiteRepository) AllSystems(ctx context.Context) ([]models.System, error) {
	return r.selectSystems(ctx, `SELECT `+systemColumns+` FROM systems ORDER BY id`)
}

func (r *SQLiteRepository) SystemsBySite(ctx context.Context, siteID int64) ([]models.System, error) {
	return r.selectSystems(ctx, `SELECT `+systemColumns+` FROM systems WHERE site_id = ? ORDER BY id`, siteID)
}

func (r *SQLiteRepository) selectSystems(ctx context.Context, query string, args ...any) ([]models.System, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select systems: %w", err)
	}
	defer rows.Close()

	var result []models.System
	for rows.Next() {
		var s models.System
		if err := scanSystem(rows, &s); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
