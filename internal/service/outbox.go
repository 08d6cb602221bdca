package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/summitupfitters/slugsvc/internal/domain"
	"github.com/summitupfitters/slugsvc/internal/repo"
)

// HistoryAppender is the delivery target for queued history writes.
// Satisfied by *RenameService.
type HistoryAppender interface {
	AppendHistory(ctx context.Context, vehicleID, oldSlug string, activeFrom, activeTo time.Time) error
}

// OutboxWorker redelivers slug-history writes that failed when the rename
// was first detected. Each delivery attempt is retried with bounded
// exponential backoff; an entry that keeps failing across polls is moved to
// the dead-letter state after maxAttempts and left for an operator.
type OutboxWorker struct {
	outbox   repo.HistoryOutboxRepo
	appender HistoryAppender
	log      *slog.Logger

	interval    time.Duration
	batchSize   int
	maxAttempts int

	now func() time.Time
}

// NewOutboxWorker constructs an OutboxWorker with sane defaults: a 30 second
// poll interval, batches of 50, and 5 delivery attempts before dead-letter.
func NewOutboxWorker(outbox repo.HistoryOutboxRepo, appender HistoryAppender, log *slog.Logger) *OutboxWorker {
	return &OutboxWorker{
		outbox:      outbox,
		appender:    appender,
		log:         log,
		interval:    30 * time.Second,
		batchSize:   50,
		maxAttempts: 5,
		now:         time.Now,
	}
}

// Run polls for due entries until ctx is cancelled. Intended to be started
// as a goroutine from main.
func (w *OutboxWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("history outbox worker started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			w.log.Info("history outbox worker stopped")
			return
		case <-ticker.C:
			if err := w.DeliverDue(ctx); err != nil {
				w.log.Error("outbox delivery pass failed", "error", err)
			}
		}
	}
}

// DeliverDue performs one delivery pass over the due pending entries.
// Per-entry failures are recorded on the entry, not returned; the returned
// error covers only the pass itself (the outbox being unreadable).
func (w *OutboxWorker) DeliverDue(ctx context.Context) error {
	due, err := w.outbox.DuePending(ctx, w.now(), w.batchSize)
	if err != nil {
		return fmt.Errorf("service.OutboxWorker.DeliverDue: %w", err)
	}

	for _, entry := range due {
		w.deliver(ctx, entry)
	}
	return nil
}

// deliver attempts one entry, retrying transient failures in-process before
// recording the outcome.
func (w *OutboxWorker) deliver(ctx context.Context, entry domain.OutboxEntry) {
	backoff := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := w.appender.AppendHistory(ctx, entry.VehicleID, entry.OldSlug, entry.ActiveFrom, entry.ActiveTo)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})

	if err == nil {
		if err := w.outbox.MarkDelivered(ctx, entry.ID); err != nil {
			w.log.Error("outbox: mark delivered failed", "entry_id", entry.ID, "error", err)
		}
		w.log.Info("outbox: history entry delivered",
			"vehicle_id", entry.VehicleID, "old_slug", entry.OldSlug, "attempt", entry.Attempts+1)
		return
	}

	if entry.Attempts+1 >= w.maxAttempts {
		if markErr := w.outbox.MarkDead(ctx, entry.ID, err.Error()); markErr != nil {
			w.log.Error("outbox: mark dead failed", "entry_id", entry.ID, "error", markErr)
			return
		}
		w.log.Error("outbox: history entry dead-lettered",
			"vehicle_id", entry.VehicleID, "old_slug", entry.OldSlug,
			"attempts", entry.Attempts+1, "error", err)
		return
	}

	next := w.now().Add(w.nextDelay(entry.Attempts + 1))
	if markErr := w.outbox.MarkFailed(ctx, entry.ID, err.Error(), next); markErr != nil {
		w.log.Error("outbox: mark failed failed", "entry_id", entry.ID, "error", markErr)
		return
	}
	w.log.Warn("outbox: history entry delivery failed, rescheduled",
		"vehicle_id", entry.VehicleID, "old_slug", entry.OldSlug,
		"attempt", entry.Attempts+1, "next_attempt_at", next, "error", err)
}

// nextDelay doubles the poll interval per recorded attempt, capped at an
// hour, so a struggling store is not hammered on every pass.
func (w *OutboxWorker) nextDelay(attempts int) time.Duration {
	delay := w.interval
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= time.Hour {
			return time.Hour
		}
	}
	return delay
}
