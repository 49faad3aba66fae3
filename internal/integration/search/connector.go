package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/futig/kbchat-backend/internal/config"
	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/integration/common"
	pkghttp "github.com/futig/kbchat-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	semanticConfiguration = "default"
	vectorField           = "embedding"
	vectorNeighbors       = 50
)

// Connector queries one Azure AI Search index over REST.
type Connector struct {
	index     string
	cfg       config.AzureConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

// NewConnector builds a client bound to index. An api key is used when
// configured, otherwise requests carry a bearer token from cred.
func NewConnector(cfg config.AzureConfig, index string, cred azcore.TokenCredential, logger *zap.Logger) *Connector {
	return NewConnectorWithURL(cfg, fmt.Sprintf("https://%s.search.windows.net", cfg.SearchService), index, cred, logger)
}

func NewConnectorWithURL(cfg config.AzureConfig, baseURL, index string, cred azcore.TokenCredential, logger *zap.Logger) *Connector {
	var auth pkghttp.HttpOpts
	if cfg.SearchKey != "" {
		auth = pkghttp.WithStaticHeader("api-key", cfg.SearchKey)
	} else {
		auth = pkghttp.WithTokenSource(common.NewScopedTokenSource(cred, common.ScopeSearch))
	}

	return &Connector{
		index:     index,
		cfg:       cfg,
		connector: common.NewBaseConnector(cfg.HTTP, baseURL, logger, auth),
		logger:    logger,
	}
}

func (c *Connector) Index() string {
	return c.index
}

type vectorQuery struct {
	Kind   string    `json:"kind"`
	Vector []float32 `json:"vector"`
	K      int       `json:"k"`
	Fields string    `json:"fields"`
}

type searchRequest struct {
	Search                string        `json:"search,omitempty"`
	Top                   int           `json:"top"`
	Filter                string        `json:"filter,omitempty"`
	Select                string        `json:"select,omitempty"`
	QueryType             string        `json:"queryType,omitempty"`
	QueryLanguage         string        `json:"queryLanguage,omitempty"`
	Speller               string        `json:"speller,omitempty"`
	SemanticConfiguration string        `json:"semanticConfiguration,omitempty"`
	Captions              string        `json:"captions,omitempty"`
	VectorQueries         []vectorQuery `json:"vectorQueries,omitempty"`
}

type searchResponse struct {
	Value []map[string]any `json:"value"`
}

// Search runs a text, vector or hybrid query and maps hits onto the configured
// content and source-page fields.
func (c *Connector) Search(ctx context.Context, q entity.SearchQuery) ([]entity.SearchDocument, error) {
	req := searchRequest{
		Search: q.Text,
		Top:    q.Top,
		Filter: q.Filter,
		Select: c.cfg.SourcePageField + "," + c.cfg.ContentField,
	}

	if q.Semantic && q.Text != "" {
		req.QueryType = "semantic"
		req.QueryLanguage = c.cfg.QueryLanguage
		req.Speller = c.cfg.QuerySpeller
		req.SemanticConfiguration = semanticConfiguration
		if q.Captions {
			req.Captions = "extractive"
		}
	}

	if len(q.Vector) > 0 {
		req.VectorQueries = []vectorQuery{{
			Kind:   "vector",
			Vector: q.Vector,
			K:      vectorNeighbors,
			Fields: vectorField,
		}}
	}

	endpoint := fmt.Sprintf("/indexes/%s/docs/search", url.PathEscape(c.index))

	ctxzap.Debug(ctx, "querying search index",
		zap.String("index", c.index),
		zap.Int("top", q.Top),
		zap.Bool("vector", len(q.Vector) > 0),
		zap.Bool("semantic", req.QueryType != ""),
	)

	var resp searchResponse
	err := c.connector.DoRequest(ctx, http.MethodPost, endpoint, req, &resp,
		pkghttp.WithQuery("api-version", c.cfg.SearchAPIVersion))
	if err != nil {
		return nil, fmt.Errorf("search index %s: %w", c.index, err)
	}

	docs := make([]entity.SearchDocument, 0, len(resp.Value))
	for _, hit := range resp.Value {
		doc := entity.SearchDocument{
			SourcePage: stringField(hit, c.cfg.SourcePageField),
			Content:    stringField(hit, c.cfg.ContentField),
		}
		if score, ok := hit["@search.score"].(float64); ok {
			doc.Score = score
		}
		if caps, ok := hit["@search.captions"].([]any); ok {
			for _, raw := range caps {
				if m, ok := raw.(map[string]any); ok {
					if text := stringField(m, "text"); text != "" {
						doc.Captions = append(doc.Captions, text)
					}
				}
			}
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
