package authsetup

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider entity.AuthSetup

func (p staticProvider) GetAuthSetupForClient() entity.AuthSetup { return entity.AuthSetup(p) }

func TestGetAuthSetup(t *testing.T) {
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(staticProvider{
		UseLogin:     true,
		MSALConfig:   entity.MSALConfig{Auth: entity.MSALAuth{ClientID: "client", RedirectURI: "/redirect"}},
		LoginRequest: entity.TokenRequest{Scopes: []string{".default"}},
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth_setup", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, true, got["useLogin"])
	auth := got["msalConfig"].(map[string]any)["auth"].(map[string]any)
	assert.Equal(t, "client", auth["clientId"])
	assert.Equal(t, "/redirect", auth["redirectUri"])
}
