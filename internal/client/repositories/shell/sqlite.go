package shell

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fieldkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, generation int, path string) (*Entry, error) {
	e := Entry{Generation: generation, Path: path}
	err := r.db.QueryRowContext(ctx,
		`SELECT content_type, body, fetched_at FROM shell_cache WHERE generation = ? AND path = ?`,
		generation, path).Scan(&e.ContentType, &e.Body, &e.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shell cache entry %q: %w", path, err)
	}
	return &e, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, e *Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shell_cache (generation, path, content_type, body, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(generation, path) DO UPDATE SET content_type = excluded.content_type,
			body = excluded.body,
			fetched_at = excluded.fetched_at
	`, e.Generation, e.Path, e.ContentType, e.Body, e.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to put shell cache entry %q: %w", e.Path, err)
	}
	return nil
}

func (r *SQLiteRepository) EvictOtherGenerations(ctx context.Context, current int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM shell_cache WHERE generation != ?`, current)
	if err != nil {
		return fmt.Errorf("failed to evict old shell cache generations: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context, generation int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shell_cache WHERE generation = ?`, generation).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count shell cache: %w", err)
	}
	return n, nil
}
