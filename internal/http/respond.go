package httpx

import (
	"encoding/json"
	"net/http"
)

// writeJSON encodes payload as the response body. Encoding errors are
// swallowed: the status line is already on the wire by then.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError emits the uniform {"error": msg} failure body every
// handler uses.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
