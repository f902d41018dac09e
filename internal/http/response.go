package http

import (
	"encoding/json"
	"net/http"

	"github.com/airflowfield/dashboard/internal/backend"
)

// Pages are server-rendered; only the script endpoints (/office/map, /worker/alerts,
// /health, /ready) and the JSON branch of the role gates answer with this envelope.
// The browser code reads error.message and shows it verbatim, so messages stay in
// Spanish.

// SuccessEnvelope carries a payload; error is always null.
type SuccessEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

// ErrorEnvelope carries a failure; data is always null.
type ErrorEnvelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody codes are UPPER_SNAKE: AUTH, FORBIDDEN, NO_IDENTITY, UPSTREAM_ERROR,
// UNAVAILABLE, INTERNAL.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON answers with data. Per-user payloads must not be cached by proxies.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, SuccessEnvelope{Data: data})
}

func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	writeEnvelope(w, status, ErrorEnvelope{
		Error: &ErrorBody{Code: code, Message: message, Details: details},
	})
}

// WriteUpstreamError reports a failed API call: the API's own 4xx status and message
// are passed through, anything else becomes 502 with fallback.
func WriteUpstreamError(w http.ResponseWriter, err error, fallback string) {
	WriteError(w, statusFor(err), "UPSTREAM_ERROR", backend.Message(err, fallback), nil)
}

func writeEnvelope(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
