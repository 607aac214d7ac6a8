package workorders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/dbx"
)

var ErrNotFound = errors.New("work order not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, items []models.WorkOrder) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM workorders`); err != nil {
			return fmt.Errorf("failed to clear workorders: %w", err)
		}
		return upsertMany(ctx, tx, items)
	})
}

func (r *SQLiteRepository) UpsertMany(ctx context.Context, items []models.WorkOrder) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return upsertMany(ctx, tx, items)
	})
}

func upsertMany(ctx context.Context, tx dbx.DBTX, items []models.WorkOrder) error {
	query := `INSERT INTO workorders (id, title, description, status_code, status_label,
			work_type_code, work_type_label, planned_date, planned_time_from, planned_time_to,
			site_id, site_name, site_street, site_city, system_ids, system_badges,
			service_report_id, maintenance_protocol_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title,
			description = excluded.description,
			status_code = excluded.status_code,
			status_label = excluded.status_label,
			work_type_code = excluded.work_type_code,
			work_type_label = excluded.work_type_label,
			planned_date = excluded.planned_date,
			planned_time_from = excluded.planned_time_from,
			planned_time_to = excluded.planned_time_to,
			site_id = excluded.site_id,
			site_name = excluded.site_name,
			site_street = excluded.site_street,
			site_city = excluded.site_city,
			system_ids = excluded.system_ids,
			system_badges = excluded.system_badges,
			service_report_id = excluded.service_report_id,
			maintenance_protocol_id = excluded.maintenance_protocol_id
	`
	for _, w := range items {
		ids, err := json.Marshal(w.SystemIDs)
		if err != nil {
			return fmt.Errorf("failed to encode system ids: %w", err)
		}
		badges, err := json.Marshal(w.SystemBadges)
		if err != nil {
			return fmt.Errorf("failed to encode system badges: %w", err)
		}
		_, err = tx.ExecContext(ctx, query,
			w.ID, w.Title, w.Description, w.StatusCode, w.StatusLabel,
			w.WorkTypeCode, w.WorkTypeLabel, w.PlannedDate, w.PlannedTimeFrom, w.PlannedTimeTo,
			w.Site.ID, w.Site.Name, w.Site.Street, w.Site.City, string(ids), string(badges),
			w.ServiceReportID, w.MaintenanceProtocolID)
		if err != nil {
			return fmt.Errorf("failed to upsert workorder %d: %w", w.ID, err)
		}
	}
	return nil
}

const woColumns = `id, title, description, status_code, status_label,
	work_type_code, work_type_label, planned_date, planned_time_from, planned_time_to,
	site_id, site_name, site_street, site_city, system_ids, system_badges,
	service_report_id, maintenance_protocol_id`

func scanWorkOrder(row interface{ Scan(...any) error }) (*models.WorkOrder, error) {
	var w models.WorkOrder
	var ids, badges string
	var srID, mpID sql.NullInt64
	err := row.Scan(&w.ID, &w.Title, &w.Description, &w.StatusCode, &w.StatusLabel,
		&w.WorkTypeCode, &w.WorkTypeLabel, &w.PlannedDate, &w.PlannedTimeFrom, &w.PlannedTimeTo,
		&w.Site.ID, &w.Site.Name, &w.Site.Street, &w.Site.City, &ids, &badges,
		&srID, &mpID)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ids), &w.SystemIDs); err != nil {
		return nil, fmt.Errorf("failed to decode system ids: %w", err)
	}
	if err := json.Unmarshal([]byte(badges), &w.SystemBadges); err != nil {
		return nil, fmt.Errorf("failed to decode system badges: %w", err)
	}
	if srID.Valid {
		w.ServiceReportID = &srID.Int64
	}
	if mpID.Valid {
		w.MaintenanceProtocolID = &mpID.Int64
	}
	return &w, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*models.WorkOrder, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+woColumns+` FROM workorders WHERE id = ?`, id)
	w, err := scanWorkOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workorder %d: %w", id, err)
	}
	return w, nil
}

func (r *SQLiteRepository) All(ctx context.Context) ([]models.WorkOrder, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+woColumns+` FROM workorders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select workorders: %w", err)
	}
	defer rows.Close()

	var result []models.WorkOrder
	for rows.Next() {
		w, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) SetStatus(ctx context.Context, id int64, code, label string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE workorders SET status_code = ?, status_label = ? WHERE id = ?`, code, label, id)
	if err != nil {
		return fmt.Errorf("failed to set status of workorder %d: %w", id, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return ErrNotFound
	}
	return nil
}
