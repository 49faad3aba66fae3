package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/futig/kbchat-backend/internal/config"
	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() config.AzureConfig {
	return config.AzureConfig{
		SearchKey:        "key-1",
		SearchAPIVersion: "2023-10-01-Preview",
		ContentField:     "content",
		SourcePageField:  "sourcepage",
		QueryLanguage:    "en-us",
		QuerySpeller:     "lexicon",
	}
}

// TestConnector_Search verifies the request body sent for a hybrid semantic
// query and the mapping of hits onto documents.
func TestConnector_Search(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/indexes/idx2/docs/search", r.URL.Path)
		assert.Equal(t, "2023-10-01-Preview", r.URL.Query().Get("api-version"))
		assert.Equal(t, "key-1", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Write([]byte(`{"value":[
			{"@search.score": 1.5, "sourcepage": "a.pdf#page=1", "content": "alpha",
			 "@search.captions": [{"text": "cap a"}]},
			{"sourcepage": "b.pdf", "content": "beta"}
		]}`))
	}))
	defer srv.Close()

	c := NewConnectorWithURL(testConfig(), srv.URL, "idx2", nil, zap.NewNop())
	docs, err := c.Search(context.Background(), entity.SearchQuery{
		Text:     "benefits",
		Vector:   []float32{0.5, 0.25},
		Top:      3,
		Filter:   "category ne 'x'",
		Semantic: true,
		Captions: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "benefits", got["search"])
	assert.EqualValues(t, 3, got["top"])
	assert.Equal(t, "category ne 'x'", got["filter"])
	assert.Equal(t, "semantic", got["queryType"])
	assert.Equal(t, "extractive", got["captions"])
	assert.Equal(t, "sourcepage,content", got["select"])
	require.Len(t, got["vectorQueries"], 1)

	require.Len(t, docs, 2)
	assert.Equal(t, "a.pdf#page=1", docs[0].SourcePage)
	assert.Equal(t, "alpha", docs[0].Content)
	assert.Equal(t, []string{"cap a"}, docs[0].Captions)
	assert.InDelta(t, 1.5, docs[0].Score, 1e-9)
	assert.Equal(t, "beta", docs[1].Content)
}

// TestConnector_Search_TextOnly verifies that plain keyword queries carry no
// semantic or vector settings.
func TestConnector_Search_TextOnly(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"value":[]}`))
	}))
	defer srv.Close()

	c := NewConnectorWithURL(testConfig(), srv.URL, "idx", nil, zap.NewNop())
	docs, err := c.Search(context.Background(), entity.SearchQuery{Text: "q", Top: 5})
	require.NoError(t, err)
	assert.Empty(t, docs)

	assert.NotContains(t, got, "queryType")
	assert.NotContains(t, got, "vectorQueries")
}

func TestConnector_Search_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewConnectorWithURL(testConfig(), srv.URL, "idx", nil, zap.NewNop())
	_, err := c.Search(context.Background(), entity.SearchQuery{Text: "q", Top: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "idx")
}
