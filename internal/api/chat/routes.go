package chat

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers /ask and /chat. /chat streams, so the caller must
// not mount it behind a request timeout.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/ask", h.Ask)
	r.Post("/chat", h.Chat)
}
