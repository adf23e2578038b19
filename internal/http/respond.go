package httpx

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeMessage sends a single message payload.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeFieldErrors sends the validation-style error list, one entry per
// violated field.
func writeFieldErrors(w http.ResponseWriter, status int, messages []string) {
	items := make([]map[string]string, 0, len(messages))
	for _, msg := range messages {
		items = append(items, map[string]string{"msg": msg})
	}
	writeJSON(w, status, map[string]any{"errors": items})
}
