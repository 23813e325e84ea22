package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nhle/todo-assistant/internal/store"
)

// respondJSON writes v as a JSON response with the given status.
func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encoding response")
	}
}

// respondError writes an error payload of the form {"detail": "..."}.
func (s *Server) respondError(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, map[string]string{"detail": detail})
}

// respondStoreError maps store errors to HTTP responses: ErrNotFound becomes
// a 404 with the given detail, anything else a 500.
func (s *Server) respondStoreError(w http.ResponseWriter, err error, notFoundDetail string) {
	if errors.Is(err, store.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, notFoundDetail)
		return
	}
	s.log.Error().Err(err).Msg("store operation failed")
	s.respondError(w, http.StatusInternalServerError, "Internal server error")
}

// decodeJSON decodes the request body into v, rejecting unknown garbage with
// a 400.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
