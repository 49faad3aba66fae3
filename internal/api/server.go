package api

import (
	"net/http"
	"time"

	authsetupapi "github.com/futig/kbchat-backend/internal/api/authsetup"
	chatapi "github.com/futig/kbchat-backend/internal/api/chat"
	contentapi "github.com/futig/kbchat-backend/internal/api/content"
	"github.com/futig/kbchat-backend/internal/api/docs"
	ingestapi "github.com/futig/kbchat-backend/internal/api/ingest"
	"github.com/futig/kbchat-backend/internal/api/middleware"
	staticapi "github.com/futig/kbchat-backend/internal/api/static"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Chat      *chatapi.Handler
	Content   *contentapi.Handler
	Ingest    *ingestapi.Handler
	AuthSetup *authsetupapi.Handler
	Static    *staticapi.Handler
}

type RouterConfig struct {
	AllowedOrigin  string
	RequestTimeout time.Duration
	DocsPath       string
	// TracingService names server spans. Tracing is off when empty.
	TracingService string
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(cfg RouterConfig, h Handlers, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	if cfg.TracingService != "" {
		r.Use(middleware.Tracing(cfg.TracingService))
	}

	// Middleware stack
	r.Use(chimiddleware.Recoverer)   // Recover from panics
	r.Use(chimiddleware.RequestID)   // Add request ID
	r.Use(middleware.Logger(logger)) // Log requests
	r.Use(middleware.Metrics)        // Count requests per route

	if cfg.AllowedOrigin != "" {
		logger.Info("CORS enabled", zap.String("allowed_origin", cfg.AllowedOrigin))
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{cfg.AllowedOrigin},
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"*"},
		}))
	}

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation endpoints
	docs.RegisterRoutes(r, cfg.DocsPath)

	// Streams have no overall bound, so /chat stays outside the timeout group
	chatapi.RegisterRoutes(r, h.Chat)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

		contentapi.RegisterRoutes(r, h.Content)
		ingestapi.RegisterRoutes(r, h.Ingest)
		authsetupapi.RegisterRoutes(r, h.AuthSetup)
		staticapi.RegisterRoutes(r, h.Static)
	})

	return r
}
