// Package httputil carries the JSON response conventions shared by the
// monitoring endpoints.
package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// RespondJSON writes v as the JSON response body with the given status.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httputil: encode response: %v", err)
	}
}

// RespondError writes a JSON error body, {"error": msg}, with the given
// status.
func RespondError(w http.ResponseWriter, status int, msg string) {
	RespondJSON(w, status, map[string]string{"error": msg})
}

// RequireMethod replies 405 and returns false when the request method
// does not match.
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}
