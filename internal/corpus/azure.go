package corpus

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/futig/kbchat-backend/internal/config"
	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/integration/blob"
	oai "github.com/futig/kbchat-backend/internal/integration/openai"
	"github.com/futig/kbchat-backend/internal/integration/search"
	"github.com/futig/kbchat-backend/internal/strategy"
	"go.uber.org/zap"
)

// AzureFactory binds a corpus to Azure AI Search and Blob Storage. Settings are
// re-read from the environment on every build; the OpenAI client and the
// credential are shared by all snapshots.
type AzureFactory struct {
	model      strategy.ChatModel
	cred       azcore.TokenCredential
	loadConfig func() (config.AzureConfig, error)
	logger     *zap.Logger
}

func NewAzureFactory(model strategy.ChatModel, cred azcore.TokenCredential, logger *zap.Logger) *AzureFactory {
	return &AzureFactory{
		model:      model,
		cred:       cred,
		loadConfig: config.LoadAzureConfig,
		logger:     logger,
	}
}

func (f *AzureFactory) Build(_ context.Context, c entity.Corpus) (*Snapshot, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}

	if f.cred == nil && cfg.SearchKey == "" {
		return nil, fmt.Errorf("%w: AZURE_SEARCH_KEY is required without an azure credential", entity.ErrConfiguration)
	}

	searchClient := search.NewConnector(cfg, c.Index, f.cred, f.logger)

	container, err := blob.NewConnector(cfg.StorageAccount, c.Container, f.cred, f.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrCorpusUnavailable, err)
	}

	strategyCfg := strategy.Config{
		ChatModel:      oai.ChatModelName(cfg),
		EmbeddingModel: oai.EmbeddingModelName(cfg),
	}

	return &Snapshot{
		Corpus:    c,
		Search:    searchClient,
		Container: container,
		Ask:       strategy.NewRetrieveThenRead(searchClient, f.model, strategyCfg),
		Chat:      strategy.NewChatReadRetrieveRead(searchClient, f.model, strategyCfg),
	}, nil
}
