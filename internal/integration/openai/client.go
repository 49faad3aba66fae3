// Package openai builds the completion and embedding client shared by every corpus binding.
package openai

import (
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/futig/kbchat-backend/internal/config"
	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/integration/common"
	pkghttp "github.com/futig/kbchat-backend/pkg/http"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const contentFilterCode = "content_filter"

// NewClient returns an Azure OpenAI client authenticated with cred, or a plain
// OpenAI client using the configured API key.
func NewClient(cfg config.AzureConfig, cred azcore.TokenCredential, logger *zap.Logger) (*goopenai.Client, error) {
	// Streams may legitimately outlive any fixed client timeout; the request
	// context bounds them instead.
	httpCfg := cfg.HTTP
	httpCfg.RequestTimeout = 0

	if !cfg.UsesAzureOpenAI() {
		clientCfg := goopenai.DefaultConfig(cfg.OpenAIAPIKey)
		clientCfg.OrgID = cfg.OpenAIOrganization
		clientCfg.HTTPClient = pkghttp.NewClient(common.HTTPOptions(httpCfg)...)
		return goopenai.NewClientWithConfig(clientCfg), nil
	}

	if cred == nil {
		return nil, fmt.Errorf("%w: azure openai requires a credential", entity.ErrConfiguration)
	}

	clientCfg := goopenai.DefaultAzureConfig("", fmt.Sprintf("https://%s.openai.azure.com", cfg.OpenAIService))
	clientCfg.APIType = goopenai.APITypeAzureAD
	clientCfg.APIVersion = cfg.OpenAIAPIVersion
	// Requests already name the deployment.
	clientCfg.AzureModelMapperFunc = func(model string) string { return model }
	clientCfg.HTTPClient = pkghttp.NewClient(common.HTTPOptions(httpCfg,
		pkghttp.WithTokenSource(common.NewScopedTokenSource(cred, common.ScopeCognitiveServices)),
	)...)

	logger.Info("azure openai client configured",
		zap.String("service", cfg.OpenAIService),
		zap.String("api_version", cfg.OpenAIAPIVersion),
	)

	return goopenai.NewClientWithConfig(clientCfg), nil
}

// ChatModelName is the model identifier sent with chat completions.
func ChatModelName(cfg config.AzureConfig) string {
	if cfg.UsesAzureOpenAI() && cfg.ChatGPTDeployment != "" {
		return cfg.ChatGPTDeployment
	}
	return cfg.ChatGPTModel
}

// EmbeddingModelName is the model identifier sent with embedding requests.
func EmbeddingModelName(cfg config.AzureConfig) string {
	if cfg.UsesAzureOpenAI() && cfg.EmbeddingDeployment != "" {
		return cfg.EmbeddingDeployment
	}
	return cfg.EmbeddingModel
}

// IsContentFilter reports whether err is an upstream content-policy rejection.
func IsContentFilter(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		code, _ := apiErr.Code.(string)
		return code == contentFilterCode
	}
	return false
}

// TagError marks content-policy rejections with entity.ErrContentFilter and
// leaves other errors as they are.
func TagError(err error) error {
	if err == nil || errors.Is(err, entity.ErrContentFilter) {
		return err
	}
	if IsContentFilter(err) {
		return fmt.Errorf("%w: %w", entity.ErrContentFilter, err)
	}
	return err
}
