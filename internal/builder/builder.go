package builder

import (
	"context"
	"fmt"
	"net/http"

	"github.com/futig/kbchat-backend/internal/api"
	authsetupapi "github.com/futig/kbchat-backend/internal/api/authsetup"
	chatapi "github.com/futig/kbchat-backend/internal/api/chat"
	contentapi "github.com/futig/kbchat-backend/internal/api/content"
	ingestapi "github.com/futig/kbchat-backend/internal/api/ingest"
	staticapi "github.com/futig/kbchat-backend/internal/api/static"
	"github.com/futig/kbchat-backend/internal/config"
	"github.com/futig/kbchat-backend/internal/corpus"
	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/integration/auth"
	"github.com/futig/kbchat-backend/internal/integration/common"
	ingestrunner "github.com/futig/kbchat-backend/internal/integration/ingest"
	oai "github.com/futig/kbchat-backend/internal/integration/openai"
	"github.com/futig/kbchat-backend/internal/pkg/logger"
	"github.com/futig/kbchat-backend/internal/pkg/prompts"
	"github.com/futig/kbchat-backend/internal/pkg/telemetry"
	"github.com/futig/kbchat-backend/internal/pkg/validator"
	"github.com/futig/kbchat-backend/internal/repository"
	"github.com/futig/kbchat-backend/internal/usecase/chat"
	"github.com/futig/kbchat-backend/internal/usecase/ingest"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.WebsiteHostname != "")
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	log.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	// Ingestion job store
	db, jobRepo, err := setupJobRepository(ctx, cfg, log)
	if err != nil {
		_ = shutdownTelemetry(ctx)
		return nil, err
	}
	cleanup := func() {
		if db != nil {
			db.Close()
		}
		_ = shutdownTelemetry(ctx)
	}

	// Shared Azure credential and model client
	cred, err := common.NewCredential()
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("create azure credential: %w", err)
	}

	model, err := oai.NewClient(cfg.Azure, cred, log)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("create openai client: %w", err)
	}

	// Bind the initial corpus
	initial := entity.Corpus{Index: cfg.Azure.SearchIndex, Container: cfg.Azure.StorageContainer}
	binding, err := corpus.New(ctx, corpus.NewAzureFactory(model, cred, log), initial)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("bind initial corpus %s: %w", initial, err)
	}
	log.Info("Corpus bound", zap.Stringer("corpus", initial))

	authHelper := auth.NewHelper(cfg.Auth, log)
	runner := ingestrunner.NewRunner(cfg.Ingest, jobRepo, log)

	// Initialize use cases
	chatUC := chat.NewUsecase(binding, authHelper, prompts.NewFileSource(cfg.PromptsPath), log)
	ingestUC := ingest.NewUsecase(binding, jobRepo, runner, validator.NewFileValidator(cfg.Upload), cfg.Ingest.DataDir, log)
	log.Info("Use cases initialized")

	// Setup router
	router := api.SetupRouter(api.RouterConfig{
		AllowedOrigin:  cfg.AllowedOrigin,
		RequestTimeout: cfg.RequestTimeout,
		DocsPath:       cfg.DocsPath,
		TracingService: tracingService(cfg.Telemetry),
	}, api.Handlers{
		Chat:      chatapi.NewHandler(chatUC),
		Content:   contentapi.NewHandler(binding),
		Ingest:    ingestapi.NewHandler(ingestUC, cfg.Upload.MaxBodySize()),
		AuthSetup: authsetupapi.NewHandler(authHelper),
		Static:    staticapi.NewHandler(cfg.StaticDir),
	}, log)
	log.Info("HTTP router configured")

	// Create HTTP server. WriteTimeout is left unset: /chat streams for as
	// long as the model produces output.
	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	log.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
		zap.Bool("auth_enabled", authHelper.Enabled()),
	)

	return &App{
		server:          server,
		db:              db,
		runner:          runner,
		telemetry:       shutdownTelemetry,
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          log,
	}, nil
}

// setupJobRepository returns a Postgres job store when DATABASE_URL is set and
// an in-memory one otherwise. The pool is nil in the latter case.
func setupJobRepository(ctx context.Context, cfg *config.Config, log *zap.Logger) (*pgxpool.Pool, repository.JobRepository, error) {
	if cfg.DatabaseURL == "" {
		log.Info("DATABASE_URL not set, keeping ingestion jobs in memory", zap.Duration("ttl", cfg.Ingest.JobTTL))
		return nil, repository.NewJobMemory(cfg.Ingest.JobTTL), nil
	}

	db, err := setupDatabase(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("setup database: %w", err)
	}

	log.Info("Running database migrations")
	if err := repository.RunMigrations(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Info("Database migrations completed successfully")

	return db, repository.NewJobPostgres(db), nil
}

func tracingService(cfg config.TelemetryConfig) string {
	if !cfg.Enabled() {
		return ""
	}
	return cfg.ServiceName
}
