package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/summitupfitters/slugsvc/internal/domain"
)

// aliasValidationResponse is the envelope for POST /aliases/validate.
// Violations is empty when Valid is true.
type aliasValidationResponse struct {
	Valid      bool                    `json:"valid"`
	Violations []domain.AliasViolation `json:"violations,omitempty"`
}

// ValidateAliases handles POST /aliases/validate, called by the authoring
// tool before it lets an editor save alias changes.
//
//	200 — all proposed aliases are acceptable
//	422 — at least one alias was rejected; body lists every violation
//	400 — request body missing or malformed
//	500 — content store unreachable (validation could not complete)
func (s *Server) ValidateAliases(w http.ResponseWriter, r *http.Request) {
	var input domain.AliasValidationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "could not parse request body")
		return
	}

	err := s.aliases.Validate(r.Context(), input)
	if err == nil {
		writeJSON(w, http.StatusOK, aliasValidationResponse{Valid: true})
		return
	}

	var validationErr *domain.AliasValidationError
	if errors.As(err, &validationErr) {
		writeJSON(w, http.StatusUnprocessableEntity, aliasValidationResponse{
			Valid:      false,
			Violations: validationErr.Violations,
		})
		return
	}

	slog.ErrorContext(r.Context(), "alias validation failed", "vehicle_id", input.VehicleID, "error", err)
	writeError(w, http.StatusInternalServerError, "alias validation could not complete")
}
