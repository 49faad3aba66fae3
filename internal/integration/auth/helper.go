package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/futig/kbchat-backend/internal/config"
	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/integration/common"
	pkgRetry "github.com/futig/kbchat-backend/internal/pkg/retry"
	pkghttp "github.com/futig/kbchat-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const graphScope = "https://graph.microsoft.com/.default"

// TokenExchanger swaps the caller's access token for a Graph token on their behalf.
type TokenExchanger func(ctx context.Context, userToken string) (string, error)

// Helper resolves caller claims (object id and group ids) for search scoping
// and publishes the MSAL settings the browser client logs in with.
type Helper struct {
	cfg       config.AuthConfig
	connector *pkghttp.Connector
	exchange  TokenExchanger
	retryCfg  pkgRetry.RetryConfig
}

func NewHelper(cfg config.AuthConfig, logger *zap.Logger) *Helper {
	h := &Helper{
		cfg:       cfg,
		connector: common.NewBaseConnector(cfg.HTTP, strings.TrimRight(cfg.GraphURL, "/"), logger),
		retryCfg:  cfg.Retry,
	}
	h.exchange = h.onBehalfOf
	return h
}

func (h *Helper) Enabled() bool {
	return h.cfg.UseAuthentication
}

// GetAuthClaimsIfEnabled returns an empty map when authentication is off.
// Otherwise the request must carry a bearer token the Graph lookups accept.
func (h *Helper) GetAuthClaimsIfEnabled(ctx context.Context, headers http.Header) (map[string]any, error) {
	if !h.cfg.UseAuthentication {
		return map[string]any{}, nil
	}

	userToken, err := bearerToken(headers)
	if err != nil {
		return nil, err
	}

	graphToken, err := h.exchange(ctx, userToken)
	if err != nil {
		ctxzap.Error(ctx, "on-behalf-of token exchange failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", entity.ErrUnauthorized, err)
	}

	oid, err := h.objectID(ctx, graphToken)
	if err != nil {
		return nil, err
	}

	groups, err := h.groups(ctx, graphToken)
	if err != nil {
		return nil, err
	}

	ctxzap.Debug(ctx, "resolved auth claims", zap.String("oid", oid), zap.Int("group_count", len(groups)))

	return map[string]any{
		"oid":    oid,
		"groups": groups,
	}, nil
}

// GetAuthSetupForClient returns the MSAL.js configuration for the frontend.
func (h *Helper) GetAuthSetupForClient() entity.AuthSetup {
	return entity.AuthSetup{
		UseLogin: h.cfg.UseAuthentication,
		MSALConfig: entity.MSALConfig{
			Auth: entity.MSALAuth{
				ClientID:                  h.cfg.ClientAppID,
				Authority:                 "https://login.microsoftonline.com/" + h.cfg.TenantID,
				RedirectURI:               "/redirect",
				PostLogoutRedirectURI:     "/",
				NavigateToLoginRequestURL: false,
			},
			Cache: entity.MSALCache{
				CacheLocation:          "sessionStorage",
				StoreAuthStateInCookie: false,
			},
		},
		LoginRequest: entity.TokenRequest{
			Scopes: []string{".default"},
		},
		TokenRequest: entity.TokenRequest{
			Scopes: []string{fmt.Sprintf("api://%s/access_as_user", h.cfg.ServerAppID)},
		},
	}
}

func (h *Helper) onBehalfOf(ctx context.Context, userToken string) (string, error) {
	cred, err := azidentity.NewOnBehalfOfCredentialWithSecret(
		h.cfg.TenantID, h.cfg.ServerAppID, userToken, h.cfg.ServerAppSecret, nil)
	if err != nil {
		return "", fmt.Errorf("create on-behalf-of credential: %w", err)
	}

	tok, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{graphScope}})
	if err != nil {
		return "", fmt.Errorf("acquire graph token: %w", err)
	}

	return tok.Token, nil
}

type meResponse struct {
	ID string `json:"id"`
}

type memberOfResponse struct {
	Value []struct {
		ID string `json:"id"`
	} `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

func (h *Helper) objectID(ctx context.Context, graphToken string) (string, error) {
	var me meResponse
	err := h.graphGet(ctx, graphToken, "/v1.0/me", &me, pkghttp.WithQuery("$select", "id"))
	if err != nil {
		return "", fmt.Errorf("get caller object id: %w", err)
	}
	return me.ID, nil
}

func (h *Helper) groups(ctx context.Context, graphToken string) ([]string, error) {
	groups := []string{}

	var page memberOfResponse
	err := h.graphGet(ctx, graphToken, "/v1.0/me/transitiveMemberOf", &page, pkghttp.WithQuery("$select", "id"))
	for {
		if err != nil {
			return nil, fmt.Errorf("list caller groups: %w", err)
		}
		for _, g := range page.Value {
			groups = append(groups, g.ID)
		}
		if page.NextLink == "" {
			return groups, nil
		}

		next := page.NextLink
		page = memberOfResponse{}
		err = h.graphGet(ctx, graphToken, "", &page, pkghttp.WithURL(next))
	}
}

func (h *Helper) graphGet(ctx context.Context, graphToken, endpoint string, out any, opts ...pkghttp.RequestOpt) error {
	opts = append(opts, pkghttp.WithHeader("Authorization", "Bearer "+graphToken))

	err := pkgRetry.Do(ctx, h.retryCfg, func() error {
		return h.connector.DoRequest(ctx, http.MethodGet, endpoint, nil, out, opts...)
	}, pkghttp.IsRetryable)
	if err != nil {
		if status := pkghttp.StatusCode(err); status == http.StatusUnauthorized || status == http.StatusForbidden {
			return fmt.Errorf("%w: %w", entity.ErrUnauthorized, err)
		}
		return err
	}
	return nil
}

func bearerToken(headers http.Header) (string, error) {
	auth := headers.Get("Authorization")
	if auth == "" {
		return "", fmt.Errorf("%w: authorization header is expected", entity.ErrUnauthorized)
	}

	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: authorization header must be a bearer token", entity.ErrUnauthorized)
	}

	return strings.TrimSpace(token), nil
}
