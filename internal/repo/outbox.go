package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/summitupfitters/slugsvc/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// HistoryOutboxRepo defines the persistence operations for queued slug-history
// writes that failed against the content store.
type HistoryOutboxRepo interface {
	// Enqueue inserts a pending entry. A pending entry for the same
	// (vehicle_id, old_slug) pair is a no-op: redelivery re-runs the dedup
	// check anyway, and a second queue row would only race the first.
	Enqueue(ctx context.Context, entry domain.OutboxEntry) (domain.OutboxEntry, error)

	// DuePending returns pending entries whose next_attempt_at is not after
	// now, oldest first, capped at limit.
	DuePending(ctx context.Context, now time.Time, limit int) ([]domain.OutboxEntry, error)

	// MarkDelivered removes a delivered entry.
	MarkDelivered(ctx context.Context, id uuid.UUID) error

	// MarkFailed records a failed delivery attempt and schedules the next one.
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string, nextAttempt time.Time) error

	// MarkDead moves an entry to the dead-letter state.
	MarkDead(ctx context.Context, id uuid.UUID, lastError string) error

	// ListByStatus returns all entries in the given status, oldest first.
	ListByStatus(ctx context.Context, status domain.OutboxStatus) ([]domain.OutboxEntry, error)

	// Requeue moves a dead entry back to pending with attempts reset.
	// Returns domain.ErrNotFound if no dead entry with that id exists.
	Requeue(ctx context.Context, id uuid.UUID) error
}

// pgHistoryOutboxRepo is the Postgres implementation of HistoryOutboxRepo.
type pgHistoryOutboxRepo struct {
	db db
}

// NewHistoryOutboxRepo constructs a HistoryOutboxRepo backed by the provided
// db connection. In production pass *pgxpool.Pool; in tests pass a pgx.Tx
// for rollback isolation.
func NewHistoryOutboxRepo(db db) HistoryOutboxRepo {
	return &pgHistoryOutboxRepo{db: db}
}

const outboxColumns = `id, vehicle_id, old_slug, active_from, active_to,
	attempts, next_attempt_at, status, last_error, created_at, updated_at`

// Enqueue inserts a pending entry, ignoring duplicates of an already-pending
// (vehicle_id, old_slug) pair via the partial unique index.
func (r *pgHistoryOutboxRepo) Enqueue(ctx context.Context, entry domain.OutboxEntry) (domain.OutboxEntry, error) {
	const q = `
		INSERT INTO history_outbox (vehicle_id, old_slug, active_from, active_to, last_error)
		VALUES (@vehicle_id, @old_slug, @active_from, @active_to, @last_error)
		ON CONFLICT (vehicle_id, old_slug) WHERE status = 'pending' DO UPDATE
			SET updated_at = now()
		RETURNING ` + outboxColumns

	args := pgx.NamedArgs{
		"vehicle_id":  entry.VehicleID,
		"old_slug":    entry.OldSlug,
		"active_from": entry.ActiveFrom,
		"active_to":   entry.ActiveTo,
		"last_error":  entry.LastError,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanOutboxEntry(row)
	if err != nil {
		return domain.OutboxEntry{}, fmt.Errorf("repo.HistoryOutboxRepo.Enqueue: %w", err)
	}
	return result, nil
}

// DuePending returns pending entries due for delivery, oldest first.
func (r *pgHistoryOutboxRepo) DuePending(ctx context.Context, now time.Time, limit int) ([]domain.OutboxEntry, error) {
	const q = `
		SELECT ` + outboxColumns + `
		FROM history_outbox
		WHERE status = 'pending' AND next_attempt_at <= @now
		ORDER BY created_at ASC
		LIMIT @limit`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"now": now, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("repo.HistoryOutboxRepo.DuePending: %w", err)
	}
	defer rows.Close()

	return collectOutboxEntries(rows, "DuePending")
}

// MarkDelivered removes the entry; a delivered history write needs no record
// beyond the history array itself.
func (r *pgHistoryOutboxRepo) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM history_outbox WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.HistoryOutboxRepo.MarkDelivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.HistoryOutboxRepo.MarkDelivered: %w", domain.ErrNotFound)
	}
	return nil
}

// MarkFailed bumps the attempt counter and schedules the next delivery.
func (r *pgHistoryOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, lastError string, nextAttempt time.Time) error {
	const q = `
		UPDATE history_outbox
		SET attempts        = attempts + 1,
		    next_attempt_at = @next_attempt_at,
		    last_error      = @last_error,
		    updated_at      = now()
		WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"id":              id,
		"next_attempt_at": nextAttempt,
		"last_error":      lastError,
	})
	if err != nil {
		return fmt.Errorf("repo.HistoryOutboxRepo.MarkFailed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.HistoryOutboxRepo.MarkFailed: %w", domain.ErrNotFound)
	}
	return nil
}

// MarkDead moves the entry to the dead-letter state.
func (r *pgHistoryOutboxRepo) MarkDead(ctx context.Context, id uuid.UUID, lastError string) error {
	const q = `
		UPDATE history_outbox
		SET status     = 'dead',
		    attempts   = attempts + 1,
		    last_error = @last_error,
		    updated_at = now()
		WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "last_error": lastError})
	if err != nil {
		return fmt.Errorf("repo.HistoryOutboxRepo.MarkDead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.HistoryOutboxRepo.MarkDead: %w", domain.ErrNotFound)
	}
	return nil
}

// ListByStatus returns all entries in the given status, oldest first.
func (r *pgHistoryOutboxRepo) ListByStatus(ctx context.Context, status domain.OutboxStatus) ([]domain.OutboxEntry, error) {
	const q = `
		SELECT ` + outboxColumns + `
		FROM history_outbox
		WHERE status = @status
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"status": string(status)})
	if err != nil {
		return nil, fmt.Errorf("repo.HistoryOutboxRepo.ListByStatus: %w", err)
	}
	defer rows.Close()

	return collectOutboxEntries(rows, "ListByStatus")
}

// Requeue resurrects a dead entry for immediate redelivery.
func (r *pgHistoryOutboxRepo) Requeue(ctx context.Context, id uuid.UUID) error {
	const q = `
		UPDATE history_outbox
		SET status          = 'pending',
		    attempts        = 0,
		    next_attempt_at = now(),
		    updated_at      = now()
		WHERE id = @id AND status = 'dead'`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.HistoryOutboxRepo.Requeue: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.HistoryOutboxRepo.Requeue: %w", domain.ErrNotFound)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing scanOutboxEntry
// to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanOutboxEntry maps a single database row into a domain.OutboxEntry.
func scanOutboxEntry(s scanner) (domain.OutboxEntry, error) {
	var (
		e      domain.OutboxEntry
		id     pgtype.UUID
		status string
	)

	err := s.Scan(&id, &e.VehicleID, &e.OldSlug, &e.ActiveFrom, &e.ActiveTo,
		&e.Attempts, &e.NextAttemptAt, &status, &e.LastError, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OutboxEntry{}, domain.ErrNotFound
		}
		return domain.OutboxEntry{}, err
	}

	e.ID = uuid.UUID(id.Bytes)
	e.Status = domain.OutboxStatus(status)
	return e, nil
}

// collectOutboxEntries drains rows into a slice, wrapping scan errors with op.
func collectOutboxEntries(rows pgx.Rows, op string) ([]domain.OutboxEntry, error) {
	var entries []domain.OutboxEntry
	for rows.Next() {
		e, err := scanOutboxEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.HistoryOutboxRepo.%s: scan: %w", op, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.HistoryOutboxRepo.%s: rows: %w", op, err)
	}
	return entries, nil
}
