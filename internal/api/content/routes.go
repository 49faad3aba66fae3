package content

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers content routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/content/*", h.GetContent)
}
