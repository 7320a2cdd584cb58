package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response is the envelope of every JSON endpoint.
type Response struct {
	Success     bool       `json:"success"`
	Data        any        `json:"data,omitempty"`
	Cached      *bool      `json:"cached,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Success: false, Error: msg})
}

func boolPtr(b bool) *bool {
	return &b
}
