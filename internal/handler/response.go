package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/techsim/internal/logger"
	"github.com/freeeve/techsim/internal/service"
	"github.com/freeeve/techsim/pkg/techsim"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads and decodes JSON from a request body.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeServiceError maps service and engine errors to HTTP responses.
// Configuration errors carry the offending document path.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ce *techsim.ConfigError
	var ie *techsim.InvariantError
	switch {
	case errors.Is(err, service.ErrRunNotFound), errors.Is(err, service.ErrTributeUnknown):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrRunNotCreated), errors.Is(err, service.ErrRunNotActive),
		errors.Is(err, service.ErrRunBusy), errors.Is(err, techsim.ErrNotReady):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrBadInterval):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &ce):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": ce.Message, "path": ce.Path})
	case errors.As(err, &ie):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": ie.Message, "event": ie.Event, "position": ie.Position + 1})
	default:
		l := logger.ForRequest(r.Context())
		l.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
