// Package services implements the user-facing actions over the local
// store and the server API: status toggles and report submission, with
// the probe-gated online/offline split.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/netmon"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/outbox"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/workorders"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
)

// StatusAPI is the direct-path call used when the server is reachable.
type StatusAPI interface {
	SetWorkOrderStatus(ctx context.Context, id int64, status string) (*models.StatusResult, error)
}

type WorkOrderService struct {
	api     StatusAPI
	monitor *netmon.Monitor
	repo    workorders.Repository
	outbox  outbox.Repository
	log     logging.Logger
}

func NewWorkOrderService(api StatusAPI, monitor *netmon.Monitor, repo workorders.Repository, ob outbox.Repository, log logging.Logger) *WorkOrderService {
	return &WorkOrderService{api: api, monitor: monitor, repo: repo, outbox: ob, log: log}
}

// NextStatus computes the toggle target: REALIZED flips back to
// IN_PROGRESS, everything else completes to REALIZED.
func NextStatus(current string) string {
	if current == models.StatusRealized {
		return models.StatusInProgress
	}
	return models.StatusRealized
}

// ToggleResult reports how a toggle was applied.
type ToggleResult struct {
	StatusCode  string
	StatusLabel string
	Queued      bool // true when the change went to the outbox
}

// ToggleStatus flips a work order's status. With the server reachable
// the change posts directly and the canonical result is mirrored
// locally; otherwise (or when the direct call fails) the change is
// queued in the outbox and applied optimistically so the local store
// reflects the last intended state. A failed enqueue is fatal to the
// action — the user must know it was lost.
func (s *WorkOrderService) ToggleStatus(ctx context.Context, id int64) (*ToggleResult, error) {
	wo, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if wo == nil {
		return nil, fmt.Errorf("workorder %d: %w", id, workorders.ErrNotFound)
	}
	next := NextStatus(wo.StatusCode)

	if s.monitor.ProbeQuick(ctx) {
		canonical, err := s.api.SetWorkOrderStatus(ctx, id, next)
		if err == nil {
			// Server is the source of truth now; a failed local mirror
			// is logged, not surfaced.
			if err := s.repo.SetStatus(ctx, canonical.ID, canonical.StatusCode, canonical.StatusLabel); err != nil {
				s.log.Warn(ctx, "failed to mirror status locally", "workorder", id, "error", err)
			}
			return &ToggleResult{StatusCode: canonical.StatusCode, StatusLabel: canonical.StatusLabel}, nil
		}
		s.log.Warn(ctx, "direct status change failed, falling back to outbox", "workorder", id, "error", err)
	}

	return s.toggleOffline(ctx, id, next)
}

func (s *WorkOrderService) toggleOffline(ctx context.Context, id int64, next string) (*ToggleResult, error) {
	_, err := s.outbox.Enqueue(ctx, models.KindStatusChange,
		models.StatusChangePayload{WorkOrderID: id, Status: next})
	if err != nil {
		return nil, fmt.Errorf("failed to queue status change: %w", err)
	}

	label := models.StatusLabel(next)
	if err := s.repo.SetStatus(ctx, id, next, label); err != nil {
		// The outbox entry is recorded; the optimistic mirror is best
		// effort.
		s.log.Warn(ctx, "queued status change but local update failed", "workorder", id, "error", err)
	}
	return &ToggleResult{StatusCode: next, StatusLabel: label, Queued: true}, nil
}
