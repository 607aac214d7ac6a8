package workorders

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE workorders (
  id INTEGER PRIMARY KEY,
  title TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  status_code TEXT NOT NULL DEFAULT '',
  status_label TEXT NOT NULL DEFAULT '',
  work_type_code TEXT NOT NULL DEFAULT '',
  work_type_label TEXT NOT NULL DEFAULT '',
  planned_date TEXT NOT NULL DEFAULT '',
  planned_time_from TEXT NOT NULL DEFAULT '',
  planned_time_to TEXT NOT NULL DEFAULT '',
  site_id INTEGER NOT NULL DEFAULT 0,
  site_name TEXT NOT NULL DEFAULT '',
  site_street TEXT NOT NULL DEFAULT '',
  site_city TEXT NOT NULL DEFAULT '',
  system_ids TEXT NOT NULL DEFAULT '[]',
  system_badges TEXT NOT NULL DEFAULT '[]',
  service_report_id INTEGER,
  maintenance_protocol_id INTEGER
);`)
	require.NoError(t, err)
	return db
}

func sampleOrders() []models.WorkOrder {
	srID := int64(77)
	return []models.WorkOrder{
		{
			ID: 1, Title: "Przegląd CCTV", StatusCode: models.StatusPlanned, StatusLabel: "Planned",
			PlannedDate: "2026-09-02",
			Site:        models.SiteSummary{ID: 5, Name: "Osiedle Parkowa", City: "Warszawa"},
			SystemIDs:   []int64{10, 11}, SystemBadges: []string{"CCTV", "DOMOFON"},
			ServiceReportID: &srID,
		},
		{
			ID: 2, Title: "Awaria SSP", StatusCode: models.StatusInProgress, StatusLabel: "In progress",
			Site:      models.SiteSummary{ID: 6, Name: "Biurowiec Alfa"},
			SystemIDs: []int64{12}, SystemBadges: []string{"SSP"},
		},
	}
}

func TestReplaceAll_RoundTrip(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	orders := sampleOrders()
	require.NoError(t, r.ReplaceAll(ctx, orders))

	got, err := r.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, orders, got)
}

func TestReplaceAll_IsIdempotent(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.ReplaceAll(ctx, sampleOrders()))
	require.NoError(t, r.ReplaceAll(ctx, sampleOrders()))

	got, err := r.All(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestGet_PreservesNilReportIDs(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.ReplaceAll(ctx, sampleOrders()))

	got, err := r.Get(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.ServiceReportID)
	assert.Nil(t, got.MaintenanceProtocolID)

	withReport, err := r.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, withReport)
	require.NotNil(t, withReport.ServiceReportID)
	assert.Equal(t, int64(77), *withReport.ServiceReportID)
}

func TestGet_MissingReturnsNil(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	got, err := r.Get(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSetStatus(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.ReplaceAll(ctx, sampleOrders()))
	require.NoError(t, r.SetStatus(ctx, 2, models.StatusRealized, "Realized"))

	got, err := r.Get(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusRealized, got.StatusCode)
	assert.Equal(t, "Realized", got.StatusLabel)
}

func TestSetStatus_Missing(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	err := r.SetStatus(context.Background(), 404, models.StatusRealized, "Realized")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertMany_UpdatesWithoutClearing(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.ReplaceAll(ctx, sampleOrders()))
	require.NoError(t, r.UpsertMany(ctx, []models.WorkOrder{
		{ID: 2, Title: "Awaria SSP (pilne)", StatusCode: models.StatusInProgress,
			SystemIDs: []int64{12}, SystemBadges: []string{"SSP"}},
	}))

	got, err := r.All(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	updated, err := r.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Awaria SSP (pilne)", updated.Title)
}
