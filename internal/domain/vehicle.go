// Package domain contains the core data types for the slug service.
// This package has zero external dependencies beyond uuid and is imported by
// every other internal package (cms, repo, service, handler).
package domain

import "time"

// Vehicle is the renamable content entity tracked by this service.
// Field names and JSON tags mirror the CMS document shape: system fields are
// underscore-prefixed, the slug lives in a nested object, and history entries
// carry the _key the CMS requires for array items.
type Vehicle struct {
	ID          string             `json:"_id"`
	Type        string             `json:"_type,omitempty"`
	Revision    string             `json:"_rev,omitempty"`
	Title       string             `json:"title,omitempty"`
	Slug        Slug               `json:"slug"`
	SlugHistory []SlugHistoryEntry `json:"slugHistory,omitempty"`
	SlugAliases []string           `json:"slugAliases,omitempty"`
	CreatedAt   time.Time          `json:"_createdAt,omitempty"`
	UpdatedAt   time.Time          `json:"_updatedAt,omitempty"`

	// HasHistory reports whether the slugHistory field is present on the
	// document at all, as opposed to present-but-empty. It is populated only
	// by queries that project defined(slugHistory); the zero value means
	// "unknown or absent". Used for the lazy history initialization path.
	HasHistory bool `json:"hasHistory,omitempty"`
}

// Slug holds the current URL identifier of a vehicle.
// The nested object mirrors the CMS slug type ({_type: "slug", current: "..."}).
type Slug struct {
	Current string `json:"current"`
}

// SlugHistoryEntry records one interval during which a now-replaced slug was
// the vehicle's current slug.
type SlugHistoryEntry struct {
	// Key is the CMS array item key, unique within the history array.
	Key string `json:"_key"`

	// Slug is the previously-current identifier.
	Slug string `json:"slug"`

	// ActiveFrom is when this slug became active (best effort: the
	// _updatedAt of the revision snapshot that carried it).
	ActiveFrom time.Time `json:"activeFrom"`

	// ActiveTo is when this slug was replaced, i.e. the time the rename
	// was detected.
	ActiveTo time.Time `json:"activeTo"`
}

// IsCanonical reports whether candidate is the vehicle's current slug.
func IsCanonical(v Vehicle, candidate string) bool {
	return v.Slug.Current != "" && v.Slug.Current == candidate
}

// IsHistorical reports whether candidate matches any entry in the vehicle's
// slug history.
func IsHistorical(v Vehicle, candidate string) bool {
	_, ok := HistoryEntryFor(v, candidate)
	return ok
}

// IsAlias reports whether candidate is one of the vehicle's manual aliases.
func IsAlias(v Vehicle, candidate string) bool {
	for _, a := range v.SlugAliases {
		if a == candidate {
			return true
		}
	}
	return false
}

// HistoryEntryFor returns the history entry whose slug equals candidate.
// If the same value were ever recorded twice (it should not be — entries are
// deduplicated by value on append), the most recently replaced one wins.
func HistoryEntryFor(v Vehicle, candidate string) (SlugHistoryEntry, bool) {
	var (
		found SlugHistoryEntry
		ok    bool
	)
	for _, e := range v.SlugHistory {
		if e.Slug != candidate {
			continue
		}
		if !ok || e.ActiveTo.After(found.ActiveTo) {
			found = e
			ok = true
		}
	}
	return found, ok
}

// Resolution is the result of mapping an inbound identifier to a vehicle.
type Resolution struct {
	Vehicle Vehicle

	// IsRedirect is true when the identifier matched via slug history or an
	// alias rather than the current slug; the caller should redirect to
	// Vehicle.Slug.Current.
	IsRedirect bool
}
