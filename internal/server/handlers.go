package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": Version,
		"service": "markowitz",
	}

	if s.cacheDB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.cacheDB.QuickCheck(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Cache database health check failed")
			response["status"] = "unhealthy"
			response["error"] = err.Error()
			s.writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
