package handler

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/dukerupert/alojadmin/internal/calendar"
	"github.com/dukerupert/alojadmin/internal/gateway"
)

const maxRequestBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeUpstreamError answers with the status and message derived from a
// failed booking API call.
func writeUpstreamError(w http.ResponseWriter, err error) {
	writeError(w, calendar.UpstreamStatus(err), gateway.UserMessage(err))
}

// writeServiceError maps calendar service errors to responses.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *calendar.ValidationError
	var we *calendar.WriteError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Message, "field": ve.Field})
	case errors.As(err, &we):
		writeError(w, we.Status, we.Message)
	default:
		writeUpstreamError(w, err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return false
	}
	return true
}

// wantsJSON reports whether the request body or the client expects JSON.
func wantsJSON(r *http.Request) bool {
	if ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && ct == "application/json" {
		return true
	}
	accept, _, _ := mime.ParseMediaType(r.Header.Get("Accept"))
	return accept == "application/json"
}
