// Package store opens the durable local database, applies schema
// migrations, and bundles the per-collection repositories.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/catalog"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/drafts"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/outbox"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/shell"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/workorders"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/store/migrations"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Store owns the database handle and the repositories over it.
type Store struct {
	DB *sql.DB

	Catalog    catalog.Repository
	WorkOrders workorders.Repository
	Drafts     drafts.Repository
	Outbox     *outbox.SQLiteRepository
	Metadata   metadata.Repository
	Shell      shell.Repository
}

// RunMigrations applies the embedded goose migrations. Migrations are
// versioned and additive; re-running them is a no-op.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the local store at dsn and brings its
// schema up to date.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate local store: %w", err)
	}

	return &Store{
		DB:         db,
		Catalog:    catalog.NewSQLiteRepository(db),
		WorkOrders: workorders.NewSQLiteRepository(db),
		Drafts:     drafts.NewSQLiteRepository(db),
		Outbox:     outbox.NewSQLiteRepository(db),
		Metadata:   metadata.NewSQLiteRepository(db),
		Shell:      shell.NewSQLiteRepository(db),
	}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// ClientID returns the stable id of this client installation, creating
// it on first use.
func (s *Store) ClientID(ctx context.Context) (string, error) {
	id, err := s.Metadata.Get(ctx, models.MetaClientID)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := s.Metadata.Set(ctx, models.MetaClientID, id); err != nil {
		return "", err
	}
	return id, nil
}
