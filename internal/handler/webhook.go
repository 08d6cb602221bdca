package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/summitupfitters/slugsvc/internal/domain"
)

// Webhook handles POST /webhook, the CMS change notification.
//
// The response contract is deliberately forgiving: the CMS retries failed
// deliveries, and history capture is best-effort, so anything short of an
// unusable request is acknowledged with 200 {"success": true}. Only a body
// that cannot be read or parsed earns an error response.
func (s *Server) Webhook(w http.ResponseWriter, r *http.Request) {
	var notification domain.ChangeNotification
	if err := json.NewDecoder(r.Body).Decode(&notification); err != nil {
		status := http.StatusInternalServerError
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, webhookFailureBody{
			Error:   "invalid_payload",
			Message: "could not parse notification body: " + err.Error(),
		})
		return
	}

	s.changes.ProcessChange(r.Context(), notification)

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
