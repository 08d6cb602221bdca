// Package repo contains all data access for the slug service.
// Vehicles live in the content store and are reached through the cms client;
// the history outbox lives in Postgres. No business logic lives here — only
// queries, patches, and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/summitupfitters/slugsvc/internal/cms"
	"github.com/summitupfitters/slugsvc/internal/domain"
)

// vehicleProjection selects the fields the service needs from a vehicle
// document, plus whether the slugHistory field exists at all (for the lazy
// initialization path).
const vehicleProjection = `{
	_id, _type, _rev, title, slug, slugHistory, slugAliases,
	_createdAt, _updatedAt, "hasHistory": defined(slugHistory)
}`

// VehicleRepo defines the content-store operations for vehicles.
// The service layer depends on this interface, not the cms-backed
// implementation, so services can be unit-tested with a mock.
type VehicleRepo interface {
	// Get retrieves one vehicle by document id.
	// Returns domain.ErrNotFound if no such document exists.
	Get(ctx context.Context, id string) (domain.Vehicle, error)

	// FindByIdentifier performs the ranked primary lookup against current
	// slugs: exact match first, then exact case-insensitive, then
	// wildcard-substring; ties within a rank break by most recently updated.
	// Returns domain.ErrNotFound when nothing matches.
	FindByIdentifier(ctx context.Context, identifier string) (domain.Vehicle, error)

	// ListAllSlugData fetches every vehicle's slug-relevant fields for the
	// secondary full-collection scan.
	ListAllSlugData(ctx context.Context) ([]domain.Vehicle, error)

	// OtherWithCurrentSlug returns a vehicle other than selfID whose current
	// slug equals slug, or domain.ErrNotFound.
	OtherWithCurrentSlug(ctx context.Context, selfID, slug string) (domain.Vehicle, error)

	// OtherWithAlias returns a vehicle other than selfID whose alias set
	// contains slug, or domain.ErrNotFound.
	OtherWithAlias(ctx context.Context, selfID, slug string) (domain.Vehicle, error)

	// OtherWithHistorySlug returns a vehicle other than selfID whose slug
	// history contains an entry with slug, or domain.ErrNotFound.
	OtherWithHistorySlug(ctx context.Context, selfID, slug string) (domain.Vehicle, error)

	// SetSlugHistory overwrites the vehicle's full slugHistory array.
	SetSlugHistory(ctx context.Context, id string, entries []domain.SlugHistoryEntry) error

	// InitSlugHistory sets slugHistory to an empty array only when the field
	// is absent. Idempotent; safe to call on every observation.
	InitSlugHistory(ctx context.Context, id string) error

	// PriorState returns the vehicle's snapshot at the transaction
	// immediately preceding its current state.
	// Returns domain.ErrHistoryUnavailable when the revision API cannot be
	// used, and domain.ErrPriorStateUnknown when the lookup is inconclusive
	// (fewer than two transactions, or no snapshot at the prior revision).
	PriorState(ctx context.Context, id string) (domain.Vehicle, error)
}

// storeClient is the subset of *cms.Client the vehicle repo uses.
// Accepting the interface lets repo tests substitute a fake without a server.
type storeClient interface {
	Query(ctx context.Context, query string, params map[string]any, into any) error
	Transactions(ctx context.Context, documentID string, limit int) ([]cms.Transaction, error)
	DocumentAtRevision(ctx context.Context, documentID, revision string, into any) error
	Commit(ctx context.Context, mutations []cms.Mutation) error
}

// cmsVehicleRepo is the content-store implementation of VehicleRepo.
type cmsVehicleRepo struct {
	store storeClient
}

// NewVehicleRepo constructs a VehicleRepo backed by the given store client.
func NewVehicleRepo(store storeClient) VehicleRepo {
	return &cmsVehicleRepo{store: store}
}

// Get retrieves one vehicle by document id.
func (r *cmsVehicleRepo) Get(ctx context.Context, id string) (domain.Vehicle, error) {
	const q = `*[_id == $id][0]` + vehicleProjection

	var v *domain.Vehicle
	err := r.store.Query(ctx, q, map[string]any{"id": id}, &v)
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.Get: %w", err)
	}
	if v == nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.Get: %w", domain.ErrNotFound)
	}
	return *v, nil
}

// FindByIdentifier fetches every current-slug candidate in one query, ordered
// most recently updated first, then finalizes rank precedence in Go: the
// store can express the three match predicates but not the preference among
// them.
func (r *cmsVehicleRepo) FindByIdentifier(ctx context.Context, identifier string) (domain.Vehicle, error) {
	const q = `*[_type == "vehicle" && defined(slug.current) && (
		slug.current == $slug ||
		lower(slug.current) == lower($slug) ||
		slug.current match $pattern
	)] | order(_updatedAt desc)` + vehicleProjection

	params := map[string]any{
		"slug":    identifier,
		"pattern": "*" + identifier + "*",
	}

	var candidates []domain.Vehicle
	if err := r.store.Query(ctx, q, params, &candidates); err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.FindByIdentifier: %w", err)
	}

	best, ok := bestCurrentSlugMatch(identifier, candidates)
	if !ok {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.FindByIdentifier: %w", domain.ErrNotFound)
	}
	return best, nil
}

// bestCurrentSlugMatch applies the lookup precedence: exact case-sensitive,
// then exact case-insensitive, then substring/fuzzy. candidates must already
// be ordered most-recently-updated first, which settles ties within a rank.
func bestCurrentSlugMatch(identifier string, candidates []domain.Vehicle) (domain.Vehicle, bool) {
	rank := func(v domain.Vehicle) int {
		switch {
		case v.Slug.Current == identifier:
			return 0
		case strings.EqualFold(v.Slug.Current, identifier):
			return 1
		default:
			return 2
		}
	}

	var (
		best     domain.Vehicle
		bestRank = 3
	)
	for _, v := range candidates {
		if r := rank(v); r < bestRank {
			best, bestRank = v, r
		}
	}
	return best, bestRank < 3
}

// ListAllSlugData fetches the slug-relevant fields of every vehicle.
func (r *cmsVehicleRepo) ListAllSlugData(ctx context.Context) ([]domain.Vehicle, error) {
	const q = `*[_type == "vehicle"]{_id, title, slug, slugHistory, slugAliases, _updatedAt}`

	var vehicles []domain.Vehicle
	if err := r.store.Query(ctx, q, nil, &vehicles); err != nil {
		return nil, fmt.Errorf("repo.VehicleRepo.ListAllSlugData: %w", err)
	}
	return vehicles, nil
}

// OtherWithCurrentSlug finds a different vehicle claiming slug as current.
func (r *cmsVehicleRepo) OtherWithCurrentSlug(ctx context.Context, selfID, slug string) (domain.Vehicle, error) {
	const q = `*[_type == "vehicle" && _id != $self && slug.current == $slug][0]{_id, title, slug}`
	return r.findOther(ctx, "OtherWithCurrentSlug", q, selfID, slug)
}

// OtherWithAlias finds a different vehicle whose aliases contain slug.
func (r *cmsVehicleRepo) OtherWithAlias(ctx context.Context, selfID, slug string) (domain.Vehicle, error) {
	const q = `*[_type == "vehicle" && _id != $self && $slug in slugAliases][0]{_id, title, slug}`
	return r.findOther(ctx, "OtherWithAlias", q, selfID, slug)
}

// OtherWithHistorySlug finds a different vehicle whose history contains slug.
func (r *cmsVehicleRepo) OtherWithHistorySlug(ctx context.Context, selfID, slug string) (domain.Vehicle, error) {
	const q = `*[_type == "vehicle" && _id != $self && $slug in slugHistory[].slug][0]{_id, title, slug}`
	return r.findOther(ctx, "OtherWithHistorySlug", q, selfID, slug)
}

// findOther runs one of the foreign-claim queries, mapping a null result to
// domain.ErrNotFound.
func (r *cmsVehicleRepo) findOther(ctx context.Context, op, query, selfID, slug string) (domain.Vehicle, error) {
	params := map[string]any{"self": selfID, "slug": slug}

	var v *domain.Vehicle
	if err := r.store.Query(ctx, query, params, &v); err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.%s: %w", op, err)
	}
	if v == nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.%s: %w", op, domain.ErrNotFound)
	}
	return *v, nil
}

// SetSlugHistory overwrites the vehicle's slugHistory array in one patch.
func (r *cmsVehicleRepo) SetSlugHistory(ctx context.Context, id string, entries []domain.SlugHistoryEntry) error {
	if entries == nil {
		entries = []domain.SlugHistoryEntry{}
	}
	err := r.store.Commit(ctx, []cms.Mutation{{
		Patch: &cms.Patch{ID: id, Set: map[string]any{"slugHistory": entries}},
	}})
	if err != nil {
		return fmt.Errorf("repo.VehicleRepo.SetSlugHistory: %w", err)
	}
	return nil
}

// InitSlugHistory writes an empty slugHistory array only if the field is
// missing, so repeated observations of the same new document are harmless.
func (r *cmsVehicleRepo) InitSlugHistory(ctx context.Context, id string) error {
	err := r.store.Commit(ctx, []cms.Mutation{{
		Patch: &cms.Patch{ID: id, SetIfMissing: map[string]any{"slugHistory": []domain.SlugHistoryEntry{}}},
	}})
	if err != nil {
		return fmt.Errorf("repo.VehicleRepo.InitSlugHistory: %w", err)
	}
	return nil
}

// PriorState recovers the document snapshot immediately preceding the current
// state: the second-most-recent transaction's revision.
func (r *cmsVehicleRepo) PriorState(ctx context.Context, id string) (domain.Vehicle, error) {
	txns, err := r.store.Transactions(ctx, id, 2)
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.PriorState: %w", err)
	}
	if len(txns) < 2 {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.PriorState: %d transaction(s) on record: %w",
			len(txns), domain.ErrPriorStateUnknown)
	}

	prior := txns[1]
	var v domain.Vehicle
	if err := r.store.DocumentAtRevision(ctx, id, prior.ResultRev, &v); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.PriorState: no snapshot at %s: %w",
				prior.ResultRev, domain.ErrPriorStateUnknown)
		}
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.PriorState: %w", err)
	}

	// Some stores omit _updatedAt from historical snapshots; the transaction
	// timestamp is the next-best activeFrom source.
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = prior.Timestamp
	}
	return v, nil
}
