// Package static serves the built web client.
package static

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	dir    string
	assets http.Handler
}

func NewHandler(dir string) *Handler {
	return &Handler{
		dir:    dir,
		assets: http.StripPrefix("/assets/", http.FileServer(http.Dir(filepath.Join(dir, "assets")))),
	}
}

// Index handles GET / - the client entry page
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(h.dir, "index.html"))
}

// Redirect handles GET /redirect - the MSAL redirect target, intentionally empty
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Favicon handles GET /favicon.ico
func (h *Handler) Favicon(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(h.dir, "favicon.ico"))
}

// RegisterRoutes registers static client routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/", h.Index)
	r.Get("/redirect", h.Redirect)
	r.Get("/favicon.ico", h.Favicon)
	r.Get("/assets/*", h.assets.ServeHTTP)
}
