package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/forms"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/netmon"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/drafts"
	"github.com/dmitrijs2005/fieldkeeper/internal/client/repositories/outbox"
	"github.com/dmitrijs2005/fieldkeeper/internal/logging"
)

// ErrValidation blocks a submit locally; nothing reaches the network.
var ErrValidation = errors.New("validation failed")

// ReportAPI covers the two direct-path save calls.
type ReportAPI interface {
	SaveServiceReport(ctx context.Context, p models.ReportSavePayload) error
	SaveMaintenanceProtocol(ctx context.Context, p models.ProtocolSavePayload) error
}

type ReportService struct {
	api      ReportAPI
	monitor  *netmon.Monitor
	drafts   drafts.Repository
	outbox   outbox.Repository
	log      logging.Logger
	clock    func() time.Time
	debounce time.Duration

	// Validate, when set, runs before a submit; returning an error
	// (wrapped as ErrValidation) blocks it.
	Validate func(fields map[string]any) error
}

func NewReportService(api ReportAPI, monitor *netmon.Monitor, dr drafts.Repository, ob outbox.Repository, log logging.Logger, debounce time.Duration) *ReportService {
	return &ReportService{
		api:      api,
		monitor:  monitor,
		drafts:   dr,
		outbox:   ob,
		log:      log,
		clock:    time.Now,
		debounce: debounce,
	}
}

// SaveDraft persists the full serialized field map for a report being
// edited. Called on every debounced autosave; the newest draft simply
// overwrites the previous one.
func (s *ReportService) SaveDraft(ctx context.Context, kind models.DraftKind, reportID, woID int64, fields map[string]any) error {
	return s.drafts.Put(ctx, &models.Draft{
		Kind:        kind,
		ReportID:    reportID,
		WorkOrderID: woID,
		Fields:      fields,
		SavedAt:     s.clock().UnixMilli(),
	})
}

// RestoreDraft loads the saved draft for a report, or nil when none
// exists. Callers re-apply it onto the form with forms.Form.Apply.
func (s *ReportService) RestoreDraft(ctx context.Context, kind models.DraftKind, reportID int64) (*models.Draft, error) {
	return s.drafts.Get(ctx, kind, reportID)
}

// Autosaver returns a debouncer that snapshots the form and saves a
// draft once input goes quiet.
func (s *ReportService) Autosaver(ctx context.Context, kind models.DraftKind, reportID, woID int64, snapshot func() map[string]any) *forms.Debouncer {
	return forms.NewDebouncer(s.debounce, func() {
		if err := s.SaveDraft(ctx, kind, reportID, woID, snapshot()); err != nil {
			s.log.Warn(ctx, "draft autosave failed", "kind", kind, "report", reportID, "error", err)
		}
	})
}

// Submit validates and sends a report. Reachable: direct POST. Not
// reachable, or the direct call fails: the draft is persisted and the
// save is queued in the outbox (Queued=true). A failed enqueue
// propagates — the user's work must not be silently lost.
func (s *ReportService) Submit(ctx context.Context, kind models.DraftKind, reportID, woID int64, fields map[string]any) (queued bool, err error) {
	if s.Validate != nil {
		if verr := s.Validate(fields); verr != nil {
			return false, fmt.Errorf("%w: %v", ErrValidation, verr)
		}
	}

	if s.monitor.ProbeQuick(ctx) {
		if err := s.save(ctx, kind, reportID, woID, fields); err == nil {
			return false, nil
		} else {
			s.log.Warn(ctx, "direct report save failed, falling back to outbox",
				"kind", kind, "report", reportID, "error", err)
		}
	}

	if err := s.SaveDraft(ctx, kind, reportID, woID, fields); err != nil {
		return false, err
	}
	if err := s.enqueue(ctx, kind, reportID, woID, fields); err != nil {
		return false, fmt.Errorf("failed to queue report save: %w", err)
	}
	return true, nil
}

func (s *ReportService) save(ctx context.Context, kind models.DraftKind, reportID, woID int64, fields map[string]any) error {
	switch kind {
	case models.DraftServiceReport:
		forms.NormalizeDateFields(fields, false)
		return s.api.SaveServiceReport(ctx, models.ReportSavePayload{
			ReportID: reportID, WorkOrderID: woID, Fields: fields,
		})
	case models.DraftMaintenanceProtocol:
		forms.NormalizeDateFields(fields, true)
		return s.api.SaveMaintenanceProtocol(ctx, models.ProtocolSavePayload{
			ProtocolID: reportID, WorkOrderID: woID, Fields: fields,
		})
	default:
		return fmt.Errorf("unknown draft kind %q", kind)
	}
}

func (s *ReportService) enqueue(ctx context.Context, kind models.DraftKind, reportID, woID int64, fields map[string]any) error {
	switch kind {
	case models.DraftServiceReport:
		_, err := s.outbox.Enqueue(ctx, models.KindReportSave, models.ReportSavePayload{
			ReportID: reportID, WorkOrderID: woID, Fields: fields,
		})
		return err
	case models.DraftMaintenanceProtocol:
		_, err := s.outbox.Enqueue(ctx, models.KindProtocolSave, models.ProtocolSavePayload{
			ProtocolID: reportID, WorkOrderID: woID, Fields: fields,
		})
		return err
	default:
		return fmt.Errorf("unknown draft kind %q", kind)
	}
}
