package service_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/summitupfitters/slugsvc/internal/domain"
	"github.com/summitupfitters/slugsvc/internal/repo"
)

// mockVehicleRepo is a hand-written mock with function fields; tests set only
// the calls they expect. Unset fields answer "not found" so tests do not have
// to stub every query.
type mockVehicleRepo struct {
	getFn                  func(ctx context.Context, id string) (domain.Vehicle, error)
	findByIdentifierFn     func(ctx context.Context, identifier string) (domain.Vehicle, error)
	listAllSlugDataFn      func(ctx context.Context) ([]domain.Vehicle, error)
	otherWithCurrentSlugFn func(ctx context.Context, selfID, slug string) (domain.Vehicle, error)
	otherWithAliasFn       func(ctx context.Context, selfID, slug string) (domain.Vehicle, error)
	otherWithHistorySlugFn func(ctx context.Context, selfID, slug string) (domain.Vehicle, error)
	setSlugHistoryFn       func(ctx context.Context, id string, entries []domain.SlugHistoryEntry) error
	initSlugHistoryFn      func(ctx context.Context, id string) error
	priorStateFn           func(ctx context.Context, id string) (domain.Vehicle, error)
}

var _ repo.VehicleRepo = (*mockVehicleRepo)(nil)

func (m *mockVehicleRepo) Get(ctx context.Context, id string) (domain.Vehicle, error) {
	if m.getFn == nil {
		return domain.Vehicle{}, domain.ErrNotFound
	}
	return m.getFn(ctx, id)
}

func (m *mockVehicleRepo) FindByIdentifier(ctx context.Context, identifier string) (domain.Vehicle, error) {
	if m.findByIdentifierFn == nil {
		return domain.Vehicle{}, domain.ErrNotFound
	}
	return m.findByIdentifierFn(ctx, identifier)
}

func (m *mockVehicleRepo) ListAllSlugData(ctx context.Context) ([]domain.Vehicle, error) {
	if m.listAllSlugDataFn == nil {
		return nil, nil
	}
	return m.listAllSlugDataFn(ctx)
}

func (m *mockVehicleRepo) OtherWithCurrentSlug(ctx context.Context, selfID, slug string) (domain.Vehicle, error) {
	if m.otherWithCurrentSlugFn == nil {
		return domain.Vehicle{}, domain.ErrNotFound
	}
	return m.otherWithCurrentSlugFn(ctx, selfID, slug)
}

func (m *mockVehicleRepo) OtherWithAlias(ctx context.Context, selfID, slug string) (domain.Vehicle, error) {
	if m.otherWithAliasFn == nil {
		return domain.Vehicle{}, domain.ErrNotFound
	}
	return m.otherWithAliasFn(ctx, selfID, slug)
}

func (m *mockVehicleRepo) OtherWithHistorySlug(ctx context.Context, selfID, slug string) (domain.Vehicle, error) {
	if m.otherWithHistorySlugFn == nil {
		return domain.Vehicle{}, domain.ErrNotFound
	}
	return m.otherWithHistorySlugFn(ctx, selfID, slug)
}

func (m *mockVehicleRepo) SetSlugHistory(ctx context.Context, id string, entries []domain.SlugHistoryEntry) error {
	if m.setSlugHistoryFn == nil {
		return nil
	}
	return m.setSlugHistoryFn(ctx, id, entries)
}

func (m *mockVehicleRepo) InitSlugHistory(ctx context.Context, id string) error {
	if m.initSlugHistoryFn == nil {
		return nil
	}
	return m.initSlugHistoryFn(ctx, id)
}

func (m *mockVehicleRepo) PriorState(ctx context.Context, id string) (domain.Vehicle, error) {
	if m.priorStateFn == nil {
		return domain.Vehicle{}, domain.ErrPriorStateUnknown
	}
	return m.priorStateFn(ctx, id)
}

// mockEnqueuer records entries handed off to the outbox.
type mockEnqueuer struct {
	enqueueFn func(ctx context.Context, entry domain.OutboxEntry) (domain.OutboxEntry, error)
	entries   []domain.OutboxEntry
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, entry domain.OutboxEntry) (domain.OutboxEntry, error) {
	m.entries = append(m.entries, entry)
	if m.enqueueFn == nil {
		return entry, nil
	}
	return m.enqueueFn(ctx, entry)
}

// mockOutboxRepo is the worker-side double for the Postgres outbox.
type mockOutboxRepo struct {
	duePendingFn func(ctx context.Context, now time.Time, limit int) ([]domain.OutboxEntry, error)

	delivered []uuid.UUID
	failed    []string
	dead      []string
	nextAts   []time.Time
	requeued  []uuid.UUID
}

var _ repo.HistoryOutboxRepo = (*mockOutboxRepo)(nil)

func (m *mockOutboxRepo) Enqueue(_ context.Context, entry domain.OutboxEntry) (domain.OutboxEntry, error) {
	return entry, nil
}

func (m *mockOutboxRepo) DuePending(ctx context.Context, now time.Time, limit int) ([]domain.OutboxEntry, error) {
	if m.duePendingFn == nil {
		return nil, nil
	}
	return m.duePendingFn(ctx, now, limit)
}

func (m *mockOutboxRepo) MarkDelivered(_ context.Context, id uuid.UUID) error {
	m.delivered = append(m.delivered, id)
	return nil
}

func (m *mockOutboxRepo) MarkFailed(_ context.Context, id uuid.UUID, lastError string, nextAttempt time.Time) error {
	m.failed = append(m.failed, lastError)
	m.nextAts = append(m.nextAts, nextAttempt)
	return nil
}

func (m *mockOutboxRepo) MarkDead(_ context.Context, id uuid.UUID, lastError string) error {
	m.dead = append(m.dead, lastError)
	return nil
}

func (m *mockOutboxRepo) ListByStatus(_ context.Context, status domain.OutboxStatus) ([]domain.OutboxEntry, error) {
	return nil, nil
}

func (m *mockOutboxRepo) Requeue(_ context.Context, id uuid.UUID) error {
	m.requeued = append(m.requeued, id)
	return nil
}

// discardLogger drops all records; service tests assert behavior, not logs.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
