package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/summitupfitters/slugsvc/internal/domain"
	"github.com/summitupfitters/slugsvc/internal/repo"
)

// AliasService gates editor-proposed slug aliases so no identifier is claimed
// by two vehicles at once. It runs synchronously in the authoring tool's save
// path; the per-alias store reads are acceptable because alias lists are
// short.
//
// The check is advisory: between validation and the editor's save, another
// edit can claim the same value. The store offers no unique constraint over
// nested fields, so this window is accepted.
type AliasService struct {
	vehicles repo.VehicleRepo
}

// NewAliasService constructs an AliasService backed by the provided repo.
func NewAliasService(vehicles repo.VehicleRepo) *AliasService {
	return &AliasService{vehicles: vehicles}
}

// Validate checks every proposed alias against the vehicle's own identifiers
// and the rest of the collection. All violations are collected so the editor
// sees every problem in one pass.
//
// Returns *domain.AliasValidationError when any alias is rejected, a plain
// error when a store read fails (validation could not complete), and nil when
// all aliases are acceptable.
func (s *AliasService) Validate(ctx context.Context, input domain.AliasValidationInput) error {
	ownHistory := make(map[string]bool, len(input.SlugHistory))
	for _, h := range input.SlugHistory {
		ownHistory[h] = true
	}

	var violations []domain.AliasViolation
	seen := make(map[string]bool, len(input.ProposedAliases))

	for _, alias := range input.ProposedAliases {
		switch {
		case !domain.ValidSlugFormat(alias):
			violations = append(violations, domain.AliasViolation{
				Alias:   alias,
				Reason:  domain.InvalidAliasFormat,
				Message: fmt.Sprintf("%q is not a valid slug (lowercase letters, digits, and hyphens only)", alias),
			})
			continue
		case seen[alias]:
			violations = append(violations, domain.AliasViolation{
				Alias:   alias,
				Reason:  domain.DuplicateWithinDocument,
				Message: fmt.Sprintf("%q is listed more than once", alias),
			})
			continue
		case alias == input.CurrentSlug:
			violations = append(violations, domain.AliasViolation{
				Alias:   alias,
				Reason:  domain.MatchesOwnCurrentSlug,
				Message: fmt.Sprintf("%q is this vehicle's current slug", alias),
			})
			continue
		case ownHistory[alias]:
			violations = append(violations, domain.AliasViolation{
				Alias:   alias,
				Reason:  domain.MatchesOwnHistory,
				Message: fmt.Sprintf("%q is already in this vehicle's slug history", alias),
			})
			continue
		}
		seen[alias] = true

		foreign, err := s.checkForeignClaims(ctx, input.VehicleID, alias)
		if err != nil {
			return fmt.Errorf("service.AliasService.Validate: %w", err)
		}
		if foreign != nil {
			violations = append(violations, *foreign)
		}
	}

	if len(violations) > 0 {
		return &domain.AliasValidationError{Violations: violations}
	}
	return nil
}

// checkForeignClaims queries for any other vehicle claiming alias as its
// current slug, one of its aliases, or one of its history entries, in that
// order. Returns nil when no other vehicle claims it.
func (s *AliasService) checkForeignClaims(ctx context.Context, selfID, alias string) (*domain.AliasViolation, error) {
	checks := []struct {
		reason domain.AliasViolationReason
		find   func(context.Context, string, string) (domain.Vehicle, error)
		phrase string
	}{
		{domain.CollidesWithForeignCurrentSlug, s.vehicles.OtherWithCurrentSlug, "the current slug of"},
		{domain.CollidesWithForeignAlias, s.vehicles.OtherWithAlias, "an alias of"},
		{domain.CollidesWithForeignHistory, s.vehicles.OtherWithHistorySlug, "in the slug history of"},
	}

	for _, check := range checks {
		other, err := check.find(ctx, selfID, alias)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &domain.AliasViolation{
			Alias:                   alias,
			Reason:                  check.reason,
			Message:                 fmt.Sprintf("%q is %s %s", alias, check.phrase, displayName(other)),
			ConflictingVehicleID:    other.ID,
			ConflictingVehicleTitle: other.Title,
		}, nil
	}
	return nil, nil
}

// displayName names a vehicle for editor-facing messages, preferring the
// title over the raw document id.
func displayName(v domain.Vehicle) string {
	if v.Title != "" {
		return fmt.Sprintf("%q", v.Title)
	}
	return v.ID
}
