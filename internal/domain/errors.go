package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no vehicle matches the requested identifier by
// any means (current slug, history, or alias).
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrEmptyIdentifier is returned when the caller supplied a blank identifier.
// Handlers should map this to HTTP 400.
var ErrEmptyIdentifier = errors.New("empty identifier")

// ErrResolutionFailed is returned when the content store is unreachable while
// resolving an identifier. Distinct from ErrNotFound: the identifier may well
// exist, we just could not find out.
// Handlers should map this to HTTP 500.
var ErrResolutionFailed = errors.New("resolution failed")

// ErrHistoryUnavailable is returned when the store's transaction history API
// cannot be used — missing credential, missing permission, or the endpoint
// rejecting the request. History capture degrades gracefully on this error:
// the rename is skipped, never failed.
var ErrHistoryUnavailable = errors.New("transaction history unavailable")

// ErrPriorStateUnknown is returned when the revision lookup succeeded but was
// inconclusive: fewer than two transactions exist, or the snapshot at the
// prior revision could not be fetched. Treated the same as
// ErrHistoryUnavailable by the rename detector.
var ErrPriorStateUnknown = errors.New("prior document state unknown")

// AliasViolationReason identifies why a proposed alias was rejected.
type AliasViolationReason string

// Alias violation reasons, in the order the checks run.
const (
	InvalidAliasFormat             AliasViolationReason = "InvalidAliasFormat"
	DuplicateWithinDocument        AliasViolationReason = "DuplicateWithinDocument"
	MatchesOwnCurrentSlug          AliasViolationReason = "MatchesOwnCurrentSlug"
	MatchesOwnHistory              AliasViolationReason = "MatchesOwnHistory"
	CollidesWithForeignCurrentSlug AliasViolationReason = "CollidesWithForeignCurrentSlug"
	CollidesWithForeignAlias       AliasViolationReason = "CollidesWithForeignAlias"
	CollidesWithForeignHistory     AliasViolationReason = "CollidesWithForeignHistory"
)

// AliasViolation describes one rejected alias.
type AliasViolation struct {
	// Alias is the offending proposed alias.
	Alias string `json:"alias"`

	// Reason is the machine-readable rejection code.
	Reason AliasViolationReason `json:"reason"`

	// Message is the editor-facing explanation, naming the colliding vehicle
	// where one exists.
	Message string `json:"message"`

	// ConflictingVehicleID and ConflictingVehicleTitle identify the other
	// vehicle claiming this slug, for the foreign-collision reasons.
	ConflictingVehicleID    string `json:"conflictingVehicleId,omitempty"`
	ConflictingVehicleTitle string `json:"conflictingVehicleTitle,omitempty"`
}

// AliasValidationError carries every violation found in one validation pass.
// It is an editor-facing outcome, not a system error: handlers map it to
// HTTP 422 and it is never logged as a failure.
type AliasValidationError struct {
	Violations []AliasViolation
}

// Error summarizes the violations, one clause per offending alias.
func (e *AliasValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Alias, v.Message)
	}
	return "alias validation failed: " + strings.Join(parts, "; ")
}
