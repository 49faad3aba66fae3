package http

import (
	"context"
	"fmt"
	"net/http"
)

// TokenSource yields a bearer token for each outbound request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type authTransport struct {
	tokens    TokenSource
	transport http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.tokens.Token(req.Context())
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}

	reqCopy := req.Clone(req.Context())
	reqCopy.Header.Set("Authorization", "Bearer "+token)

	return t.transport.RoundTrip(reqCopy)
}

// WithTokenSource sets the Authorization header on every request, replacing any
// value the caller already put there.
func WithTokenSource(tokens TokenSource) HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &authTransport{
			tokens:    tokens,
			transport: rt,
		}
	})
}

type headerTransport struct {
	key, value string
	transport  http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqCopy := req.Clone(req.Context())
	reqCopy.Header.Set(t.key, t.value)
	return t.transport.RoundTrip(reqCopy)
}

// WithStaticHeader sets a fixed header (an API key, say) on every request.
func WithStaticHeader(key, value string) HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &headerTransport{
			key:       key,
			value:     value,
			transport: rt,
		}
	})
}
