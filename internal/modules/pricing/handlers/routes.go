package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers all pricing routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/pricing", func(r chi.Router) {
		r.Post("/runs", h.HandleTriggerRun)
		r.Get("/runs/{date}/summary", h.HandleGetRunSummary)
		r.Get("/recommendations", h.HandleListRecommendations)
		r.Get("/policy", h.HandleGetPolicy)
		r.Post("/guardrails/check", h.HandleCheckGuardrails)
	})
}
