package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rmca/fip/internal/apierr"
)

// Helper functions for common HTTP responses

// writeJSON writes a JSON response with the given data.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the client error envelope: {"error": msg, "code": n}.
func writeError(w http.ResponseWriter, status, code int, message string) {
	writeJSON(w, status, map[string]any{"error": message, "code": code})
}

// writeAPIError maps an error from the service layer onto the wire. Errors
// without a client-facing code become opaque 500s.
func writeAPIError(w http.ResponseWriter, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		writeError(w, ae.Status, ae.Code, ae.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, 0, "Internal error")
}
