package handler

import (
	"encoding/json"
	"net/http"
)

// writeJSON serializes body to the response with the given status code.
// Serialization failures at this point cannot be reported to the client;
// the partial write is abandoned.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// errorBody is the envelope for resolution failures:
// {"success": false, "error": "..."}.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// writeError writes the standard failure envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Success: false, Error: message})
}

// webhookFailureBody is the envelope for top-level webhook failures:
// {"error": "...", "message": "..."}. Per the notification contract this is
// only used when the request itself is unusable.
type webhookFailureBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
