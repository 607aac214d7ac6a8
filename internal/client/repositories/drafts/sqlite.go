package drafts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, d *models.Draft) error {
	fields, err := json.Marshal(d.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode draft fields: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO drafts (kind, report_id, wo_id, fields, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(kind, report_id) DO UPDATE SET wo_id = excluded.wo_id,
			fields = excluded.fields,
			saved_at = excluded.saved_at
	`, string(d.Kind), d.ReportID, d.WorkOrderID, string(fields), d.SavedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert draft %s/%d: %w", d.Kind, d.ReportID, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, kind models.DraftKind, reportID int64) (*models.Draft, error) {
	d := models.Draft{Kind: kind, ReportID: reportID}
	var fields string
	err := r.db.QueryRowContext(ctx,
		`SELECT wo_id, fields, saved_at FROM drafts WHERE kind = ? AND report_id = ?`,
		string(kind), reportID).Scan(&d.WorkOrderID, &fields, &d.SavedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft %s/%d: %w", kind, reportID, err)
	}
	if err := json.Unmarshal([]byte(fields), &d.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode draft fields: %w", err)
	}
	return &d, nil
}
