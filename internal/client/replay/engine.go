// Package replay re-issues queued outbox mutations against the server
// once it is reachable. Entries replay strictly in creation order and
// the pass halts at the first transient failure: a later entry may
// logically depend on an earlier one (a report save on a preceding
// status change), so nothing after the blocker is touched.
package replay

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/api"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/forms"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/outbox"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/workorders"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
)

// DefaultMaxAttempts is the number of definitive (4xx) rejections after
// which an entry is retired to the dead-letter table instead of
// blocking replay forever. Transient failures never count.
const DefaultMaxAttempts = 5

// API is the subset of the server client the engine dispatches to.
type API interface {
	SaveServiceReport(ctx context.Context, p models.ReportSavePayload) error
	SaveMaintenanceProtocol(ctx context.Context, p models.ProtocolSavePayload) error
	SetWorkOrderStatus(ctx context.Context, id int64, status string) (*models.StatusResult, error)
}

type Engine struct {
	api         API
	outbox      outbox.Repository
	workOrders  workorders.Repository
	log         logging.Logger
	maxAttempts int
}

func NewEngine(api API, ob outbox.Repository, wo workorders.Repository, log logging.Logger, maxAttempts int) *Engine {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Engine{api: api, outbox: ob, workOrders: wo, log: log, maxAttempts: maxAttempts}
}

// Result summarizes one drain pass.
type Result struct {
	Replayed  int
	Dead      int
	Remaining int
	Halted    bool
}

// Drain replays pending entries in creation order. On success an entry
// is deleted and any canonical fields the server returned are mirrored
// into the local store (best effort). A transient failure halts the
// pass, leaving the failed entry and everything after it pending. A
// definitive rejection bumps the entry's attempt counter; at the limit
// the entry is dead-lettered and the pass continues.
func (e *Engine) Drain(ctx context.Context) (*Result, error) {
	pending, err := e.outbox.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list outbox: %w", err)
	}

	result := &Result{Remaining: len(pending)}
	for _, entry := range pending {
		err := e.dispatch(ctx, &entry)
		if err == nil {
			if err := e.outbox.Delete(ctx, entry.ID); err != nil {
				return result, fmt.Errorf("failed to delete replayed entry %d: %w", entry.ID, err)
			}
			result.Replayed++
			result.Remaining--
			continue
		}

		if errors.Is(err, errMalformed) {
			if derr := e.outbox.MoveToDead(ctx, entry.ID, err.Error()); derr != nil {
				return result, derr
			}
			e.log.Error(ctx, "dropping malformed outbox entry", "entry", entry.ID, "error", err)
			result.Dead++
			result.Remaining--
			continue
		}

		if api.IsDefinitive(err) {
			retired, derr := e.retire(ctx, &entry, err)
			if derr != nil {
				return result, derr
			}
			if retired {
				result.Dead++
				result.Remaining--
				continue
			}
		}

		// Transient failure, or a definitive one still under the
		// attempt limit: stop here so ordering is preserved.
		e.log.Warn(ctx, "outbox replay halted",
			"entry", entry.ID, "kind", entry.Kind, "error", err)
		result.Halted = true
		return result, nil
	}
	return result, nil
}

// retire handles a definitive rejection; returns true when the entry
// was moved to the dead-letter table.
func (e *Engine) retire(ctx context.Context, entry *models.OutboxEntry, cause error) (bool, error) {
	attempts, err := e.outbox.BumpAttempts(ctx, entry.ID)
	if err != nil {
		return false, err
	}
	if attempts < e.maxAttempts {
		return false, nil
	}
	reason := fmt.Sprintf("rejected %d times, last: %v", attempts, cause)
	if err := e.outbox.MoveToDead(ctx, entry.ID, reason); err != nil {
		return false, err
	}
	e.log.Error(ctx, "outbox entry dead-lettered",
		"entry", entry.ID, "kind", entry.Kind, "reason", reason)
	return true, nil
}

// errMalformed marks entries that can never replay (undecodable
// payload, unknown kind); Drain dead-letters them immediately.
var errMalformed = errors.New("malformed outbox entry")

func (e *Engine) dispatch(ctx context.Context, entry *models.OutboxEntry) error {
	decoded, err := entry.DecodePayload()
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}

	switch p := decoded.(type) {
	case models.ReportSavePayload:
		forms.NormalizeDateFields(p.Fields, false)
		return e.api.SaveServiceReport(ctx, p)

	case models.ProtocolSavePayload:
		forms.NormalizeDateFields(p.Fields, true)
		return e.api.SaveMaintenanceProtocol(ctx, p)

	case models.StatusChangePayload:
		canonical, err := e.api.SetWorkOrderStatus(ctx, p.WorkOrderID, p.Status)
		if err != nil {
			return err
		}
		// The server already applied the change; a failed local mirror
		// must not undo that, so it is logged and swallowed.
		if err := e.workOrders.SetStatus(ctx, canonical.ID, canonical.StatusCode, canonical.StatusLabel); err != nil {
			e.log.Warn(ctx, "failed to mirror canonical status",
				"workorder", canonical.ID, "error", err)
		}
		return nil

	default:
		return fmt.Errorf("%w: no dispatcher for kind %q", errMalformed, entry.Kind)
	}
}
