package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/api"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/netmon"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/replay"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/workorders"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/store"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBackend fakes the server side of the direct path. offline makes
// every endpoint (including ping) fail, the whole-network-down case;
// saveStatus lets a single endpoint fail while the server stays up.
type testBackend struct {
	offline    atomic.Bool
	saveStatus atomic.Int64 // non-zero forces this HTTP status on saves

	statusPosts atomic.Int64
	savePosts   atomic.Int64
}

func (b *testBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/pwa/ping/", func(w http.ResponseWriter, r *http.Request) {
		if b.offline.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/api/pwa/workorders/", func(w http.ResponseWriter, r *http.Request) {
		if b.offline.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		b.statusPosts.Add(1)
		var body struct {
			Status string `json:"status"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(models.StatusResult{
			ID: 7, StatusCode: body.Status, StatusLabel: "Canonical " + body.Status,
		})
	})
	save := func(w http.ResponseWriter, r *http.Request) {
		if b.offline.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if code := b.saveStatus.Load(); code != 0 {
			w.WriteHeader(int(code))
			return
		}
		b.savePosts.Add(1)
		w.Write([]byte(`{}`))
	}
	mux.HandleFunc("/api/pwa/servicereport/save/", save)
	mux.HandleFunc("/api/pwa/maintenanceprotocol/save/", save)
	return mux
}

type fixture struct {
	backend *testBackend
	client  *api.Client
	store   *store.Store
	monitor *netmon.Monitor
	wos     *WorkOrderService
	reports *ReportService
}

func setup(t *testing.T) *fixture {
	t.Helper()

	backend := &testBackend{}
	hs := httptest.NewServer(backend.handler())
	t.Cleanup(hs.Close)

	client, err := api.NewClient(hs.URL)
	require.NoError(t, err)

	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	monitor := netmon.NewMonitor(client, log)

	return &fixture{
		backend: backend,
		client:  client,
		store:   st,
		monitor: monitor,
		wos:     NewWorkOrderService(client, monitor, st.WorkOrders, st.Outbox, log),
		reports: NewReportService(client, monitor, st.Drafts, st.Outbox, log, 0),
	}
}

func (f *fixture) seedWorkOrder(t *testing.T, status string) {
	t.Helper()
	require.NoError(t, f.store.WorkOrders.ReplaceAll(context.Background(), []models.WorkOrder{{
		ID: 7, Title: "Przegląd", StatusCode: status, StatusLabel: models.StatusLabel(status),
		SystemIDs: []int64{}, SystemBadges: []string{},
	}}))
}

func TestNextStatus(t *testing.T) {
	assert.Equal(t, models.StatusRealized, NextStatus(models.StatusPlanned))
	assert.Equal(t, models.StatusRealized, NextStatus(models.StatusInProgress))
	assert.Equal(t, models.StatusInProgress, NextStatus(models.StatusRealized))
}

func TestToggleStatus_OnlineDirectPath(t *testing.T) {
	f := setup(t)
	f.seedWorkOrder(t, models.StatusInProgress)
	ctx := context.Background()

	res, err := f.wos.ToggleStatus(ctx, 7)
	require.NoError(t, err)
	assert.False(t, res.Queued)
	assert.Equal(t, models.StatusRealized, res.StatusCode)
	assert.Equal(t, "Canonical REALIZED", res.StatusLabel, "server label wins")

	// The canonical result was mirrored and nothing was queued.
	wo, err := f.store.WorkOrders.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Canonical REALIZED", wo.StatusLabel)

	n, err := f.store.Outbox.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestToggleStatus_OfflineQueuesExactlyOneEntry(t *testing.T) {
	f := setup(t)
	f.seedWorkOrder(t, models.StatusInProgress)
	f.backend.offline.Store(true)
	ctx := context.Background()

	res, err := f.wos.ToggleStatus(ctx, 7)
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Equal(t, models.StatusRealized, res.StatusCode)

	pending, err := f.store.Outbox.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.KindStatusChange, pending[0].Kind)

	decoded, err := pending[0].DecodePayload()
	require.NoError(t, err)
	assert.Equal(t, models.StatusChangePayload{WorkOrderID: 7, Status: models.StatusRealized}, decoded)

	// Optimistic local update with the locally derived label.
	wo, err := f.store.WorkOrders.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRealized, wo.StatusCode)
	assert.Equal(t, "Realized", wo.StatusLabel)
}

func TestToggleStatus_OfflineThenReplayRoundTrip(t *testing.T) {
	f := setup(t)
	f.seedWorkOrder(t, models.StatusInProgress)
	ctx := context.Background()

	f.backend.offline.Store(true)
	_, err := f.wos.ToggleStatus(ctx, 7)
	require.NoError(t, err)

	// Connectivity returns; the sync cycle drains the queue.
	f.backend.offline.Store(false)
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	engine := replay.NewEngine(f.client, f.store.Outbox, f.store.WorkOrders, log, 0)

	res, err := engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Replayed)

	n, err := f.store.Outbox.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// The server's canonical label replaced the optimistic one.
	wo, err := f.store.WorkOrders.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRealized, wo.StatusCode)
	assert.Equal(t, "Canonical REALIZED", wo.StatusLabel)
}

func TestToggleStatus_UnknownWorkOrder(t *testing.T) {
	f := setup(t)

	_, err := f.wos.ToggleStatus(context.Background(), 404)
	assert.ErrorIs(t, err, workorders.ErrNotFound)
}
