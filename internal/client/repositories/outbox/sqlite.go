package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db *sql.DB

	// OnChange, when set, is called after every successful mutation
	// (enqueue, delete, move-to-dead). Used for entries-changed
	// notifications; must not block.
	OnChange func()

	// now is overridable in tests.
	now func() int64
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: func() int64 { return time.Now().UnixMilli() }}
}

func (r *SQLiteRepository) notify() {
	if r.OnChange != nil {
		r.OnChange()
	}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, kind models.OutboxKind, payload any) (int64, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode outbox payload: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO outbox (kind, payload, created_at) VALUES (?, ?, ?)`,
		string(kind), string(body), r.now())
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue outbox entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get outbox entry id: %w", err)
	}
	r.notify()
	return id, nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]models.OutboxEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, payload, created_at, attempts FROM outbox ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list outbox: %w", err)
	}
	defer rows.Close()

	var result []models.OutboxEntry
	for rows.Next() {
		var e models.OutboxEntry
		var kind, payload string
		if err := rows.Scan(&e.ID, &kind, &payload, &e.CreatedAt, &e.Attempts); err != nil {
			return nil, err
		}
		e.Kind = models.OutboxKind(kind)
		e.Payload = json.RawMessage(payload)
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete outbox entry %d: %w", id, err)
	}
	r.notify()
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count outbox: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) BumpAttempts(ctx context.Context, id int64) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx,
		`UPDATE outbox SET attempts = attempts + 1 WHERE id = ? RETURNING attempts`, id).
		Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("failed to bump attempts of outbox entry %d: %w", id, err)
	}
	return attempts, nil
}

func (r *SQLiteRepository) MoveToDead(ctx context.Context, id int64, reason string) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO outbox_dead (id, kind, payload, created_at, attempts, reason, dead_at)
			SELECT id, kind, payload, created_at, attempts, ?, ? FROM outbox WHERE id = ?
		`, reason, r.now(), id)
		if err != nil {
			return fmt.Errorf("failed to dead-letter outbox entry %d: %w", id, err)
		}
		ra, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if ra == 0 {
			return fmt.Errorf("outbox entry %d not found", id)
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return err
	}
	r.notify()
	return nil
}

func (r *SQLiteRepository) ListDead(ctx context.Context) ([]models.DeadEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, payload, created_at, attempts, reason, dead_at FROM outbox_dead ORDER BY dead_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}
	defer rows.Close()

	var result []models.DeadEntry
	for rows.Next() {
		var e models.DeadEntry
		var kind, payload string
		if err := rows.Scan(&e.ID, &kind, &payload, &e.CreatedAt, &e.Attempts, &e.Reason, &e.DeadAt); err != nil {
			return nil, err
		}
		e.Kind = models.OutboxKind(kind)
		e.Payload = json.RawMessage(payload)
		result = append(result, e)
	}
	return result, rows.Err()
}
