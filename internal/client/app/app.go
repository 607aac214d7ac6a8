// Package app wires the client together: local store, API client,
// connectivity monitor, replay engine, sync orchestrator, services,
// and a small command loop for the technician.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/api"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/config"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/netmon"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/replay"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/services"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/shellcache"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/store"
	syncx "github.com/dmitrijs2005/fieldkeeper/internal/client/sync"
	"github.com/dmitrijs2005/fieldkeeper/internal/filex"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
)

type App struct {
	config       *config.Config
	store        *store.Store
	apiClient    *api.Client
	monitor      *netmon.Monitor
	shell        *shellcache.Controller
	orchestrator *syncx.Orchestrator
	workOrders   *services.WorkOrderService
	reports      *services.ReportService
	log          logging.Logger
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	var log logging.Logger = logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	dir, err := filex.EnsureSubdDir(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, filepath.Join(dir, "fieldkeeper.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	clientID, err := st.ClientID(ctx)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	log = log.With("client", clientID)

	apiClient, err := api.NewClient(cfg.ServerBaseURL)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	monitor := netmon.NewMonitor(apiClient, log)
	engine := replay.NewEngine(apiClient, st.Outbox, st.WorkOrders, log, cfg.OutboxMaxAttempts)

	shellCfg := shellcache.DefaultConfig()
	shellCfg.Generation = cfg.ShellGeneration
	shell := shellcache.NewController(shellCfg, st.Shell, apiClient.BaseURL(), apiClient.HTTPClient(), log)

	orchestrator := syncx.NewOrchestrator(
		apiClient, monitor, engine,
		st.Catalog, st.WorkOrders, st.Metadata,
		shell, log,
		cfg.MinSyncInterval, cfg.StalenessThreshold,
	)

	return &App{
		config:       cfg,
		store:        st,
		apiClient:    apiClient,
		monitor:      monitor,
		shell:        shell,
		orchestrator: orchestrator,
		workOrders:   services.NewWorkOrderService(apiClient, monitor, st.WorkOrders, st.Outbox, log),
		reports:      services.NewReportService(apiClient, monitor, st.Drafts, st.Outbox, log, cfg.DraftDebounce),
		log:          log,
	}, nil
}

// Orchestrator exposes the sync orchestrator for embedding callers.
func (a *App) Orchestrator() *syncx.Orchestrator {
	return a.orchestrator
}

func (a *App) Close() error {
	return a.store.Close()
}

// activateShell switches the shell cache to the configured generation:
// every other generation is evicted and the shell URL set is precached.
// A failure costs offline coverage, not the session, so it only warns.
func (a *App) activateShell(ctx context.Context) {
	if err := a.shell.Activate(ctx); err != nil {
		a.log.Warn(ctx, "shell cache activation failed", "error", err)
	}
}

// Run starts the background watchers and the command loop, returning
// when the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.activateShell(ctx)

	go a.monitor.Watch(ctx, a.config.OnlineCheckInterval)
	go a.orchestrator.AutoSync(ctx, a.config.AutoSyncCheckInterval)

	a.repl(ctx)
}
