package authsetup

import (
	"net/http"

	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/pkg/response"
	"github.com/go-chi/chi/v5"
)

type SetupProvider interface {
	GetAuthSetupForClient() entity.AuthSetup
}

type Handler struct {
	provider SetupProvider
}

func NewHandler(provider SetupProvider) *Handler {
	return &Handler{provider: provider}
}

// GetAuthSetup handles GET /auth_setup - MSAL settings for the browser client
func (h *Handler) GetAuthSetup(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.provider.GetAuthSetupForClient())
}

// RegisterRoutes registers the auth setup route
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/auth_setup", h.GetAuthSetup)
}
