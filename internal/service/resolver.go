// Package service contains the business logic for the slug service.
// Services enforce the resolution, history, and alias rules over repo
// interfaces. No store queries live here — services depend on repo
// interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/summitupfitters/slugsvc/internal/domain"
	"github.com/summitupfitters/slugsvc/internal/repo"
)

// ResolverService maps inbound identifiers to vehicles, reporting whether the
// caller should redirect to the canonical current slug.
type ResolverService struct {
	vehicles repo.VehicleRepo
}

// NewResolverService constructs a ResolverService backed by the provided repo.
func NewResolverService(vehicles repo.VehicleRepo) *ResolverService {
	return &ResolverService{vehicles: vehicles}
}

// Resolve finds the vehicle for identifier.
//
// The primary lookup matches current slugs (exact, then case-insensitive,
// then substring). On a miss it falls back to a full-collection scan over
// slug histories and aliases; a match there returns IsRedirect=true so the
// web layer can 301 to the current slug.
//
// Returns domain.ErrEmptyIdentifier for blank input, domain.ErrNotFound when
// nothing matches, and domain.ErrResolutionFailed when the store is
// unreachable during either step.
func (s *ResolverService) Resolve(ctx context.Context, identifier string) (domain.Resolution, error) {
	identifier, err := domain.NormalizeIdentifier(identifier)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("service.ResolverService.Resolve: %w", err)
	}

	v, err := s.vehicles.FindByIdentifier(ctx, identifier)
	if err == nil {
		return domain.Resolution{Vehicle: v, IsRedirect: false}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Resolution{}, fmt.Errorf("service.ResolverService.Resolve: %w: %w", domain.ErrResolutionFailed, err)
	}

	// Fallback: the identifier may be a historical slug or a manual alias.
	// The store's query language cannot rank across documents' arrays here,
	// so fetch the slug data of the whole collection and filter.
	all, err := s.vehicles.ListAllSlugData(ctx)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("service.ResolverService.Resolve: %w: %w", domain.ErrResolutionFailed, err)
	}

	match, ok := bestFallbackMatch(identifier, all)
	if !ok {
		return domain.Resolution{}, fmt.Errorf("service.ResolverService.Resolve: %w", domain.ErrNotFound)
	}
	return domain.Resolution{Vehicle: match, IsRedirect: true}, nil
}

// bestFallbackMatch scans for vehicles claiming identifier in their history
// or aliases. More than one match should be impossible while the collision
// invariant holds; if it happens anyway, the vehicle whose matching history
// entry was replaced most recently wins (an alias match counts as a
// zero-time entry and so ranks below any dated history match).
func bestFallbackMatch(identifier string, vehicles []domain.Vehicle) (domain.Vehicle, bool) {
	var (
		best     domain.Vehicle
		bestTime time.Time
		found    bool
	)
	for _, v := range vehicles {
		entry, historical := domain.HistoryEntryFor(v, identifier)
		if !historical && !domain.IsAlias(v, identifier) {
			continue
		}
		if !found || entry.ActiveTo.After(bestTime) {
			best = v
			bestTime = entry.ActiveTo
			found = true
		}
	}
	return best, found
}
