package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/futig/kbchat-backend/internal/entity"
	pkgRetry "github.com/futig/kbchat-backend/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr      string        `env:"SERVER_ADDR" envDefault:":50505"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	RequestTimeout  time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	AllowedOrigin   string        `env:"ALLOWED_ORIGIN"`
	StaticDir       string        `env:"STATIC_DIR" envDefault:"static"`
	PromptsPath     string        `env:"PROMPTS_PATH" envDefault:"prompts.json"`
	DocsPath        string        `env:"DOCS_PATH" envDefault:"docs/openapi.yaml"`

	// Database configuration. Ingestion jobs are kept in memory when empty.
	DatabaseURL         string        `env:"DATABASE_URL"`
	MigrationsPath      string        `env:"DB_MIGRATIONS_PATH" envDefault:"file://internal/repository/migrations"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"1"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// Logging configuration
	LogLevel        string `env:"APP_LOG_LEVEL"`
	WebsiteHostname string `env:"WEBSITE_HOSTNAME"`

	Azure     AzureConfig
	Auth      AuthConfig
	Ingest    IngestConfig `envPrefix:"INGEST_"`
	Upload    UploadConfig `envPrefix:"UPLOAD_"`
	Telemetry TelemetryConfig

	// Environment (set from flag, not from env var)
	Environment string
}

// AzureConfig is the corpus-facing configuration. It is parsed at startup and
// again on every corpus rebind.
type AzureConfig struct {
	StorageAccount   string `env:"AZURE_STORAGE_ACCOUNT,notEmpty"`
	StorageContainer string `env:"AZURE_STORAGE_CONTAINER,notEmpty"`
	SearchService    string `env:"AZURE_SEARCH_SERVICE,notEmpty"`
	SearchIndex      string `env:"AZURE_SEARCH_INDEX,notEmpty"`
	SearchKey        string `env:"AZURE_SEARCH_KEY"`
	SearchAPIVersion string `env:"AZURE_SEARCH_API_VERSION" envDefault:"2023-10-01-Preview"`

	// Shared by all OpenAI deployments
	OpenAIHost     string `env:"OPENAI_HOST" envDefault:"azure"`
	ChatGPTModel   string `env:"AZURE_OPENAI_CHATGPT_MODEL,notEmpty"`
	EmbeddingModel string `env:"AZURE_OPENAI_EMB_MODEL_NAME" envDefault:"text-embedding-3-large"`

	// Used with Azure OpenAI deployments
	OpenAIService       string `env:"AZURE_OPENAI_SERVICE"`
	OpenAIAPIVersion    string `env:"AZURE_OPENAI_API_VERSION" envDefault:"2023-07-01-preview"`
	ChatGPTDeployment   string `env:"AZURE_OPENAI_CHATGPT_DEPLOYMENT"`
	EmbeddingDeployment string `env:"AZURE_OPENAI_EMB_DEPLOYMENT"`

	// Used only with non-Azure OpenAI deployments
	OpenAIAPIKey       string `env:"OPENAI_API_KEY"`
	OpenAIOrganization string `env:"OPENAI_ORGANIZATION"`

	ContentField    string `env:"KB_FIELDS_CONTENT" envDefault:"content"`
	SourcePageField string `env:"KB_FIELDS_SOURCEPAGE" envDefault:"sourcepage"`
	QueryLanguage   string `env:"AZURE_SEARCH_QUERY_LANGUAGE" envDefault:"en-us"`
	QuerySpeller    string `env:"AZURE_SEARCH_QUERY_SPELLER" envDefault:"lexicon"`

	HTTP HTTPClientConfig `envPrefix:"AZURE_HTTP_"`
}

// UsesAzureOpenAI reports whether completions go to an Azure OpenAI resource.
func (c AzureConfig) UsesAzureOpenAI() bool {
	return c.OpenAIHost == "azure"
}

type AuthConfig struct {
	UseAuthentication bool                 `env:"AZURE_USE_AUTHENTICATION"`
	ServerAppID       string               `env:"AZURE_SERVER_APP_ID"`
	ServerAppSecret   string               `env:"AZURE_SERVER_APP_SECRET"`
	ClientAppID       string               `env:"AZURE_CLIENT_APP_ID"`
	TenantID          string               `env:"AZURE_TENANT_ID"`
	GraphURL          string               `env:"AZURE_GRAPH_URL" envDefault:"https://graph.microsoft.com"`
	HTTP              HTTPClientConfig     `envPrefix:"AUTH_HTTP_"`
	Retry             pkgRetry.RetryConfig `envPrefix:"AUTH_RETRY_"`
}

type IngestConfig struct {
	ScriptPath    string        `env:"SCRIPT_PATH" envDefault:"scripts/prepdocs.sh"`
	Shell         string        `env:"SHELL" envDefault:"sh"`
	DataDir       string        `env:"DATA_DIR" envDefault:"data"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"30m"`
	MaxConcurrent int64         `env:"MAX_CONCURRENT" envDefault:"1"`
	JobTTL        time.Duration `env:"JOB_TTL" envDefault:"24h"`
}

// TelemetryConfig turns on request tracing. Spans are exported over OTLP to a
// collector, which forwards them to the Application Insights resource named by
// the connection string.
type TelemetryConfig struct {
	ConnectionString string `env:"APPLICATIONINSIGHTS_CONNECTION_STRING"`
	Endpoint         string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	ServiceName      string `env:"OTEL_SERVICE_NAME" envDefault:"kbchat-backend"`
}

func (c TelemetryConfig) Enabled() bool {
	return c.ConnectionString != ""
}

// UploadConfig bounds POST /uploadFiles. Zero or empty values disable a check.
type UploadConfig struct {
	MaxFileCount      int      `env:"MAX_FILE_COUNT" envDefault:"100"`
	MaxFileSize       int64    `env:"MAX_FILE_SIZE" envDefault:"52428800"`
	MaxTotalSize      int64    `env:"MAX_TOTAL_SIZE" envDefault:"209715200"`
	AllowedExtensions []string `env:"ALLOWED_EXTENSIONS" envSeparator:"," envDefault:".pdf,.txt,.md,.html,.htm,.docx,.pptx,.xlsx,.csv,.json"`
}

// bodyOverhead covers the JSON envelope and data URL prefixes around the
// base64 payloads of an upload request.
const bodyOverhead = 1 << 20

// MaxBodySize bounds the raw /uploadFiles request body: MaxTotalSize after
// base64 expansion plus the envelope. Zero means unbounded.
func (c UploadConfig) MaxBodySize() int64 {
	if c.MaxTotalSize <= 0 {
		return 0
	}
	return (c.MaxTotalSize+2)/3*4 + bodyOverhead
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"60s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"60s"`
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrConfiguration, err)
	}

	cfg.Environment = *envFlag

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadAzureConfig re-reads the corpus-facing settings from the environment.
func LoadAzureConfig() (AzureConfig, error) {
	var cfg AzureConfig
	if err := env.Parse(&cfg); err != nil {
		return AzureConfig{}, fmt.Errorf("%w: %w", entity.ErrConfiguration, err)
	}
	if err := validateAzure(cfg); err != nil {
		return AzureConfig{}, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errs []string

	if err := validateAzure(cfg.Azure); err != nil {
		errs = append(errs, err.Error())
	}

	if cfg.Auth.UseAuthentication {
		if cfg.Auth.ClientAppID == "" || cfg.Auth.ServerAppID == "" || cfg.Auth.TenantID == "" {
			errs = append(errs, "AZURE_CLIENT_APP_ID, AZURE_SERVER_APP_ID and AZURE_TENANT_ID are required when AZURE_USE_AUTHENTICATION is true")
		}
	}

	if cfg.Ingest.MaxConcurrent < 1 || cfg.Ingest.MaxConcurrent > 16 {
		errs = append(errs, fmt.Sprintf("INGEST_MAX_CONCURRENT must be between 1 and 16, got %d", cfg.Ingest.MaxConcurrent))
	}

	if cfg.Ingest.Timeout <= 0 {
		errs = append(errs, "INGEST_TIMEOUT must be positive")
	}

	if cfg.DatabaseURL != "" && (cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns) {
		errs = append(errs, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", entity.ErrConfiguration, strings.Join(errs, "\n  - "))
	}

	return nil
}

func validateAzure(cfg AzureConfig) error {
	switch cfg.OpenAIHost {
	case "azure":
		if cfg.OpenAIService == "" {
			return fmt.Errorf("%w: AZURE_OPENAI_SERVICE is required when OPENAI_HOST is azure", entity.ErrConfiguration)
		}
		if cfg.ChatGPTDeployment == "" {
			return fmt.Errorf("%w: AZURE_OPENAI_CHATGPT_DEPLOYMENT is required when OPENAI_HOST is azure", entity.ErrConfiguration)
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required when OPENAI_HOST is openai", entity.ErrConfiguration)
		}
	default:
		return errors.Join(entity.ErrConfiguration, fmt.Errorf("unknown OPENAI_HOST %q", cfg.OpenAIHost))
	}
	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
