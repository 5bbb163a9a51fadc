package httpserver

import (
	"encoding/json"
	"net/http"
)

// Error codes surfaced in the error envelope.
const (
	codeValidation    = "VALIDATION_ERROR"
	codeUnauthorized  = "UNAUTHORIZED"
	codeForbidden     = "FORBIDDEN"
	codeRateLimit     = "RATE_LIMIT_EXCEEDED"
	codeNotFound      = "NOT_FOUND"
	codeUnavailable   = "SERVICE_UNAVAILABLE"
	codeInternalError = "INTERNAL_ERROR"
)

type errorBody struct {
	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorBody{
		Status:    "error",
		ErrorCode: code,
		Message:   message,
		Details:   details,
	})
}
