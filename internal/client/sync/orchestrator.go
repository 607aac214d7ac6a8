// Package sync coordinates a full sync cycle: outbox drain, catalog
// and work-order refresh, shell cache warming, and the last-sync
// stamp, as one single-flight sequence.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/netmon"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/replay"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/catalog"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/workorders"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var (
	// ErrSyncInProgress is returned when a cycle is already running;
	// the new request is dropped, never queued.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrUnreachable aborts a cycle whose opening probe failed.
	ErrUnreachable = errors.New("server unreachable")

	// ErrThrottled rejects a non-forced cycle inside the minimum
	// interval since the previous one.
	ErrThrottled = errors.New("sync throttled")
)

// API is the subset of the server client the orchestrator fetches
// through.
type API interface {
	CatalogDump(ctx context.Context) (*models.CatalogDump, error)
	WorkOrderDump(ctx context.Context) ([]models.WorkOrder, error)
}

// Warmer precaches shell pages; satisfied by shellcache.Controller.
type Warmer interface {
	Warm(ctx context.Context, paths []string)
}

type Options struct {
	// Silent cycles never surface failures to the user; the caller
	// only refreshes the staleness indicator on success.
	Silent bool

	// Force skips the minimum-interval throttle (manual sync button).
	Force bool
}

// Outcome summarizes a completed cycle for the interactive summary.
type Outcome struct {
	Sites      int
	Systems    int
	WorkOrders int
	NewActive  int
	Replay     replay.Result
	Stamp      string
}

type Orchestrator struct {
	api        API
	monitor    *netmon.Monitor
	engine     *replay.Engine
	catalog    catalog.Repository
	workOrders workorders.Repository
	meta       metadata.Repository
	warmer     Warmer
	log        logging.Logger

	clock      func() time.Time
	inFlight   atomic.Bool
	foreground atomic.Bool
	limiter    *rate.Limiter
	staleness  time.Duration
}

// NewOrchestrator wires a sync orchestrator. minInterval throttles
// non-forced cycles; staleness is how old the last successful sync may
// get before auto-sync fires.
func NewOrchestrator(
	api API,
	monitor *netmon.Monitor,
	engine *replay.Engine,
	cat catalog.Repository,
	wo workorders.Repository,
	meta metadata.Repository,
	warmer Warmer,
	log logging.Logger,
	minInterval, staleness time.Duration,
) *Orchestrator {
	o := &Orchestrator{
		api:        api,
		monitor:    monitor,
		engine:     engine,
		catalog:    cat,
		workOrders: wo,
		meta:       meta,
		warmer:     warmer,
		log:        log,
		clock:      time.Now,
		staleness:  staleness,
		limiter:    rate.NewLimiter(rate.Every(minInterval), 1),
	}
	o.foreground.Store(true)
	return o
}

// SetForeground records whether the app is foreground-visible;
// auto-sync only fires in the foreground.
func (o *Orchestrator) SetForeground(v bool) {
	o.foreground.Store(v)
}

// RunCycle executes one full sync cycle. Each step is gated on the
// prior network step's success; steps already committed stay committed
// if a later one fails, and the last-sync stamp is only written after
// full completion — a fresh catalog with a stale stamp is the signal
// that a retry is warranted.
func (o *Orchestrator) RunCycle(ctx context.Context, opts Options) (*Outcome, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer o.inFlight.Store(false)

	var reservation *rate.Reservation
	if !opts.Force {
		reservation = o.limiter.Reserve()
		if !reservation.OK() || reservation.Delay() > 0 {
			reservation.Cancel()
			return nil, ErrThrottled
		}
	}

	cycle := uuid.NewString()[:8]
	log := o.log.With("cycle", cycle)

	outcome, err := o.cycle(ctx, log)
	if err != nil {
		// A failed cycle did not sync anything; hand the throttle token
		// back so the next attempt is not locked out for the full
		// minimum interval.
		if reservation != nil {
			reservation.Cancel()
		}
		if opts.Silent {
			log.Warn(ctx, "silent sync failed", "error", err)
		} else {
			log.Error(ctx, "sync failed", "error", err)
		}
		return nil, err
	}

	log.Info(ctx, "sync complete",
		"sites", outcome.Sites, "systems", outcome.Systems,
		"workorders", outcome.WorkOrders, "replayed", outcome.Replay.Replayed,
		"new_active", outcome.NewActive)
	return outcome, nil
}

func (o *Orchestrator) cycle(ctx context.Context, log logging.Logger) (*Outcome, error) {
	if !o.monitor.ProbeQuick(ctx) {
		return nil, ErrUnreachable
	}

	outcome := &Outcome{}

	replayResult, err := o.engine.Drain(ctx)
	if err != nil {
		return nil, fmt.Errorf("outbox drain: %w", err)
	}
	outcome.Replay = *replayResult
	if replayResult.Halted {
		// A blocked outbox means the server is answering but rejecting
		// or flapping; refreshing the catalog now could reorder the
		// still-pending mutations against newer server state.
		return nil, fmt.Errorf("outbox drain halted with %d pending", replayResult.Remaining)
	}

	// Fetch first, replace after: a failed or partial fetch must never
	// clear the local collections.
	dump, err := o.api.CatalogDump(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog fetch: %w", err)
	}
	if err := o.catalog.ReplaceAll(ctx, dump.Sites, dump.Systems); err != nil {
		return nil, fmt.Errorf("catalog replace: %w", err)
	}
	outcome.Sites = len(dump.Sites)
	outcome.Systems = len(dump.Systems)

	incoming, err := o.api.WorkOrderDump(ctx)
	if err != nil {
		return nil, fmt.Errorf("workorder fetch: %w", err)
	}

	newActive, err := o.accumulateNewActive(ctx, incoming)
	if err != nil {
		return nil, err
	}
	outcome.NewActive = newActive

	if err := o.workOrders.ReplaceAll(ctx, incoming); err != nil {
		return nil, fmt.Errorf("workorder replace: %w", err)
	}
	outcome.WorkOrders = len(incoming)

	o.warmer.Warm(ctx, pageURLs(incoming))

	now := o.clock()
	outcome.Stamp = now.Format("02.01.2006 15:04:05")
	if err := o.meta.Set(ctx, models.MetaLastSync, outcome.Stamp); err != nil {
		return nil, err
	}
	if err := metadata.SetInt64(ctx, o.meta, models.MetaLastSyncTS, now.UnixMilli()); err != nil {
		return nil, err
	}
	return outcome, nil
}

// accumulateNewActive counts orders that transitioned into the active
// status relative to the prior local snapshot and adds the count to the
// persistent notification counter.
func (o *Orchestrator) accumulateNewActive(ctx context.Context, incoming []models.WorkOrder) (int, error) {
	prev, err := o.workOrders.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("prior workorder snapshot: %w", err)
	}
	prevStatus := make(map[int64]string, len(prev))
	for _, w := range prev {
		prevStatus[w.ID] = w.StatusCode
	}

	newOnes := 0
	for _, w := range incoming {
		if w.StatusCode != models.StatusInProgress {
			continue
		}
		if prevStatus[w.ID] != models.StatusInProgress {
			newOnes++
		}
	}
	if newOnes == 0 {
		return 0, nil
	}

	count, _, err := metadata.GetInt64(ctx, o.meta, models.MetaNotifCount)
	if err != nil {
		return 0, err
	}
	if err := metadata.SetInt64(ctx, o.meta, models.MetaNotifCount, count+int64(newOnes)); err != nil {
		return 0, err
	}
	return newOnes, nil
}

// pageURLs derives the shell pages worth precaching from a fresh
// work-order snapshot: every detail page plus linked report pages.
func pageURLs(orders []models.WorkOrder) []string {
	urls := make([]string, 0, len(orders)*2)
	for _, w := range orders {
		urls = append(urls, fmt.Sprintf("/pwa/zlecenia/%d/", w.ID))
		if w.ServiceReportID != nil {
			urls = append(urls, fmt.Sprintf("/pwa/protokoly/serwis/%d/", *w.ServiceReportID))
		}
		if w.MaintenanceProtocolID != nil {
			urls = append(urls, fmt.Sprintf("/pwa/protokoly/konserwacja/%d/", *w.MaintenanceProtocolID))
		}
	}
	return urls
}

// LastSync returns the time of the last fully completed cycle.
func (o *Orchestrator) LastSync(ctx context.Context) (time.Time, bool, error) {
	ts, ok, err := metadata.GetInt64(ctx, o.meta, models.MetaLastSyncTS)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ts), true, nil
}

// ResetNotifications zeroes the new-active counter (the user opened
// the work-order list).
func (o *Orchestrator) ResetNotifications(ctx context.Context) error {
	return metadata.SetInt64(ctx, o.meta, models.MetaNotifCount, 0)
}

// Notifications returns the accumulated new-active counter.
func (o *Orchestrator) Notifications(ctx context.Context) (int64, error) {
	n, _, err := metadata.GetInt64(ctx, o.meta, models.MetaNotifCount)
	return n, err
}

// AutoSync periodically checks whether a silent cycle is due: the app
// must be foreground, a cheap probe must pass, and the last successful
// sync must be older than the staleness threshold. Trigger attempts
// colliding with a running cycle are dropped.
func (o *Orchestrator) AutoSync(ctx context.Context, checkInterval time.Duration) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.autoSyncTick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (o *Orchestrator) autoSyncTick(ctx context.Context) {
	if !o.foreground.Load() || o.inFlight.Load() {
		return
	}
	if !o.monitor.ProbeQuick(ctx) {
		return
	}
	last, ok, err := o.LastSync(ctx)
	if err != nil {
		o.log.Warn(ctx, "failed to read last sync stamp", "error", err)
		return
	}
	if ok && o.clock().Sub(last) < o.staleness {
		return
	}
	if _, err := o.RunCycle(ctx, Options{Silent: true}); err != nil &&
		!errors.Is(err, ErrSyncInProgress) && !errors.Is(err, ErrThrottled) {
		o.log.Warn(ctx, "auto sync failed", "error", err)
	}
}
