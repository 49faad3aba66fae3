package ingest

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers ingestion routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/uploadFiles", h.UploadFiles)
	r.Post("/runScript", h.RunScript)
	r.Get("/ingestions/{id}", h.GetJob)
}
