package http

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// WithTracing records a client span per request and propagates the trace
// context in the outgoing headers. Spans go to the global tracer provider
// unless opts name another one.
func WithTracing(opts ...otelhttp.Option) HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return otelhttp.NewTransport(rt, opts...)
	})
}
