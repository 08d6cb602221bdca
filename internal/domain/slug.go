package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// slugPattern is the canonical URL-safe shape for slugs and aliases:
// lowercase alphanumeric segments joined by single hyphens.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// NormalizeIdentifier trims surrounding whitespace from an inbound identifier
// (e.g. a URL path segment). Returns ErrEmptyIdentifier if nothing remains.
// It deliberately does not lowercase: resolution treats case-insensitive
// matches as a lower-ranked fallback, so the original casing must survive.
func NormalizeIdentifier(identifier string) (string, error) {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return "", ErrEmptyIdentifier
	}
	return trimmed, nil
}

// ValidSlugFormat reports whether s matches the canonical slug pattern.
// Used to reject malformed aliases before any collision check runs.
func ValidSlugFormat(s string) bool {
	return slugPattern.MatchString(s)
}

// ValidateSlugFormat returns a descriptive error when s is not a well-formed
// slug, or nil when it is.
func ValidateSlugFormat(s string) error {
	if !ValidSlugFormat(s) {
		return fmt.Errorf("invalid slug %q: must match %s", s, slugPattern.String())
	}
	return nil
}
