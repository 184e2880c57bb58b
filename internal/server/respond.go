package server

import (
	"encoding/json"
	"net/http"
)

// Client-facing error messages. Provider details are only logged.
const (
	msgNotAuthenticated = "Not authenticated"
	msgTokenRefreshed   = "Token refreshed, please try again"
	msgFetchFailed      = "Failed to fetch current track"
	msgAuthFailed       = "Authentication failed"
	msgInvalidState     = "Invalid state parameter"
	msgMissingCode      = "Missing authorization code"
)

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON writes v as a compact JSON body with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError writes {"error": msg} with status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
