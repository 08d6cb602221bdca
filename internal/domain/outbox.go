package domain

import (
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of a queued history write.
type OutboxStatus string

const (
	// OutboxPending entries are awaiting (re)delivery.
	OutboxPending OutboxStatus = "pending"

	// OutboxDead entries exhausted their delivery attempts and require
	// operator attention (slugctl outbox list / retry).
	OutboxDead OutboxStatus = "dead"
)

// OutboxEntry is a slug-history append that could not be persisted to the
// content store when the rename was detected. Entries carry the append
// parameters rather than a serialized history array, so redelivery re-reads
// the vehicle and re-runs the dedup check against fresh state.
type OutboxEntry struct {
	ID            uuid.UUID    `json:"id"`
	VehicleID     string       `json:"vehicleId"`
	OldSlug       string       `json:"oldSlug"`
	ActiveFrom    time.Time    `json:"activeFrom"`
	ActiveTo      time.Time    `json:"activeTo"`
	Attempts      int          `json:"attempts"`
	NextAttemptAt time.Time    `json:"nextAttemptAt"`
	Status        OutboxStatus `json:"status"`
	LastError     string       `json:"lastError,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// AliasValidationInput is the document state the authoring tool submits when
// an editor proposes aliases for a vehicle.
type AliasValidationInput struct {
	// VehicleID is the id of the vehicle being edited. Empty for a document
	// that has not been saved yet; foreign-collision checks then run against
	// the whole collection.
	VehicleID string `json:"vehicleId"`

	// CurrentSlug is the vehicle's own current slug.
	CurrentSlug string `json:"currentSlug"`

	// ProposedAliases is the full alias list as edited, not a delta.
	ProposedAliases []string `json:"proposedAliases"`

	// SlugHistory is the vehicle's own historical slug values.
	SlugHistory []string `json:"slugHistory"`
}
