package server

import (
	"encoding/json"
	"net/http"
)

// Error codes returned in JSON error bodies.
const (
	CodeValidation   = "VALIDATION"
	CodeInvalidID    = "INVALID_ID"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeRateLimited  = "RATE_LIMITED"
)

// errorResponse is the JSON error body.
type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Message: message, Code: code})
}
