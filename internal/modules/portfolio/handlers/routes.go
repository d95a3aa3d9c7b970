package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Post("/moments", h.HandleMoments)
		r.Post("/statistics", h.HandleStatistics)
		r.Post("/random", h.HandleRandom)
		r.Post("/optimize", h.HandleOptimize)
	})
}
