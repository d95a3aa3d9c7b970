package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all simulation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/simulation", func(r chi.Router) {
		r.Post("/wiener", h.HandleWiener)
		r.Post("/gbm", h.HandleGBM)
		r.Post("/gbm/calibrated", h.HandleCalibratedGBM)
	})
}
