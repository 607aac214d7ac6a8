// Package netmon decides whether the server is reachable. The passive
// network-interface status is not trusted: it reports "online" on any
// local connectivity, so every sync-sensitive decision re-probes the
// liveness endpoint under an explicit time budget.
package netmon

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
)

// Default probe budgets. Quick is for interactive decisions (submit
// online vs. fall back to the offline path), Background for the status
// indicator refresh.
const (
	QuickTimeout      = 800 * time.Millisecond
	BackgroundTimeout = 1500 * time.Millisecond
)

// Pinger is the liveness call; satisfied by api.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Monitor struct {
	pinger Pinger
	log    logging.Logger

	mu    sync.Mutex
	last  bool
	known bool
	subs  []func(reachable bool)
}

func NewMonitor(pinger Pinger, log logging.Logger) *Monitor {
	return &Monitor{pinger: pinger, log: log}
}

// Probe checks reachability within the given budget. It never returns
// an error: a timeout, transport failure, or non-success status all
// mean false. The abort deadline guarantees the result arrives within
// budget+epsilon, never hangs.
func (m *Monitor) Probe(ctx context.Context, budget time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	reachable := m.pinger.Ping(ctx) == nil
	m.update(reachable)
	return reachable
}

// ProbeQuick probes with the interactive budget.
func (m *Monitor) ProbeQuick(ctx context.Context) bool {
	return m.Probe(ctx, QuickTimeout)
}

// ProbeBackground probes with the background budget.
func (m *Monitor) ProbeBackground(ctx context.Context) bool {
	return m.Probe(ctx, BackgroundTimeout)
}

// Reachable returns the last observed state. It is a hint for display
// only: decisions must re-probe.
func (m *Monitor) Reachable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Subscribe registers a callback invoked whenever the observed
// reachability flips. The callback runs on the probing goroutine and
// must not block.
func (m *Monitor) Subscribe(fn func(reachable bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

func (m *Monitor) update(reachable bool) {
	m.mu.Lock()
	changed := !m.known || m.last != reachable
	m.last = reachable
	m.known = true
	subs := make([]func(bool), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range subs {
		fn(reachable)
	}
}

// Watch probes on a ticker until ctx is cancelled, feeding the
// subscription callbacks. Used for the background status indicator.
func (m *Monitor) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			reachable := m.ProbeBackground(ctx)
			m.log.Debug(ctx, "reachability probe", "reachable", reachable)
		case <-ctx.Done():
			return
		}
	}
}
