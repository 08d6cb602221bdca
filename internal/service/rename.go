package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/summitupfitters/slugsvc/internal/domain"
	"github.com/summitupfitters/slugsvc/internal/repo"
)

// slugField is the document field whose mutation signals a possible rename.
const slugField = "slug"

// HistoryEnqueuer is the outbox handoff the rename service uses when a
// history write fails. Satisfied by repo.HistoryOutboxRepo; nil disables the
// outbox and failed writes are only logged.
type HistoryEnqueuer interface {
	Enqueue(ctx context.Context, entry domain.OutboxEntry) (domain.OutboxEntry, error)
}

// RenameService consumes change notifications from the CMS, detects slug
// renames, and records them in the vehicle's slug history.
//
// Everything here is best-effort by contract: the webhook must acknowledge
// the CMS no matter what, so per-vehicle failures are logged and swallowed,
// never returned.
type RenameService struct {
	vehicles repo.VehicleRepo
	outbox   HistoryEnqueuer
	log      *slog.Logger

	// perIDTimeout bounds the store calls for one document id, so a slow
	// history endpoint cannot stall the rest of the batch.
	perIDTimeout time.Duration

	now func() time.Time
}

// NewRenameService constructs a RenameService. outbox may be nil; failed
// history writes are then dropped after logging, as they were before the
// outbox existed.
func NewRenameService(vehicles repo.VehicleRepo, outbox HistoryEnqueuer, log *slog.Logger, perIDTimeout time.Duration) *RenameService {
	if perIDTimeout <= 0 {
		perIDTimeout = 5 * time.Second
	}
	return &RenameService{
		vehicles:     vehicles,
		outbox:       outbox,
		log:          log,
		perIDTimeout: perIDTimeout,
		now:          time.Now,
	}
}

// ProcessChange handles one webhook notification. It never returns an error:
// each affected document is processed independently and failures are logged
// at the per-document level.
func (s *RenameService) ProcessChange(ctx context.Context, n domain.ChangeNotification) {
	for _, id := range n.AffectedDocumentIDs() {
		s.processDocument(ctx, id, n.TouchesSlug(id, slugField))
	}
}

// processDocument runs the detection algorithm for one document id under its
// own timeout. slugTouched is the heuristic from the mutation scan: it says
// the slug field was written, not what the old value was.
func (s *RenameService) processDocument(ctx context.Context, id string, slugTouched bool) {
	ctx, cancel := context.WithTimeout(ctx, s.perIDTimeout)
	defer cancel()

	v, err := s.vehicles.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Deleted or not a vehicle; nothing to track.
			return
		}
		s.log.WarnContext(ctx, "rename detection: fetch failed", "vehicle_id", id, "error", err)
		return
	}

	// Brand-new document with no slug yet: lazily initialize the history
	// field and stop. No rename can have occurred.
	if v.Slug.Current == "" {
		if !v.HasHistory {
			if err := s.vehicles.InitSlugHistory(ctx, id); err != nil {
				s.log.WarnContext(ctx, "rename detection: history init failed", "vehicle_id", id, "error", err)
			}
		}
		return
	}

	if !slugTouched {
		return
	}

	prior, err := s.vehicles.PriorState(ctx, id)
	if err != nil {
		// Inconclusive is an accepted gap: a rename published too quickly,
		// or a token without history-read permission, skips capture.
		s.log.WarnContext(ctx, "rename detection: history capture inconclusive",
			"vehicle_id", id, "error", err)
		return
	}

	oldSlug := prior.Slug.Current
	if oldSlug == "" || oldSlug == v.Slug.Current {
		return
	}

	// Best-effort activeFrom: the prior snapshot's update time, falling back
	// to the document's creation time when the snapshot carried neither.
	activeFrom := prior.UpdatedAt
	if activeFrom.IsZero() {
		activeFrom = v.CreatedAt
	}

	s.capture(ctx, v, oldSlug, activeFrom)
}

// capture persists the rename into slug history, handing the write to the
// outbox when the store rejects it.
func (s *RenameService) capture(ctx context.Context, v domain.Vehicle, oldSlug string, activeFrom time.Time) {
	activeTo := s.now()
	err := s.appendEntry(ctx, v, oldSlug, activeFrom, activeTo)
	if err == nil {
		return
	}

	s.log.ErrorContext(ctx, "rename detection: history persist failed",
		"vehicle_id", v.ID, "old_slug", oldSlug, "error", err)

	if s.outbox == nil {
		return
	}
	_, err = s.outbox.Enqueue(ctx, domain.OutboxEntry{
		VehicleID:  v.ID,
		OldSlug:    oldSlug,
		ActiveFrom: activeFrom,
		ActiveTo:   activeTo,
		LastError:  err.Error(),
	})
	if err != nil {
		s.log.ErrorContext(ctx, "rename detection: outbox enqueue failed",
			"vehicle_id", v.ID, "old_slug", oldSlug, "error", err)
	}
}

// AppendHistory re-fetches the vehicle and appends a history entry for
// oldSlug, deduplicating by value. Used by the outbox worker for redelivery;
// unlike the webhook path it returns its error so the caller can schedule a
// retry.
func (s *RenameService) AppendHistory(ctx context.Context, vehicleID, oldSlug string, activeFrom, activeTo time.Time) error {
	v, err := s.vehicles.Get(ctx, vehicleID)
	if err != nil {
		return fmt.Errorf("service.RenameService.AppendHistory: %w", err)
	}
	if err := s.appendEntry(ctx, v, oldSlug, activeFrom, activeTo); err != nil {
		return fmt.Errorf("service.RenameService.AppendHistory: %w", err)
	}
	return nil
}

// appendEntry writes the history entry unless the value is already recorded.
func (s *RenameService) appendEntry(ctx context.Context, v domain.Vehicle, oldSlug string, activeFrom, activeTo time.Time) error {
	if domain.IsHistorical(v, oldSlug) {
		s.log.DebugContext(ctx, "slug already recorded in history",
			"vehicle_id", v.ID, "old_slug", oldSlug)
		return nil
	}

	entry := domain.SlugHistoryEntry{
		Key:        uuid.NewString(),
		Slug:       oldSlug,
		ActiveFrom: activeFrom,
		ActiveTo:   activeTo,
	}
	return s.vehicles.SetSlugHistory(ctx, v.ID, append(v.SlugHistory, entry))
}
