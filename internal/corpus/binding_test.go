package corpus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/futig/kbchat-backend/internal/config"
	"github.com/futig/kbchat-backend/internal/entity"
	"github.com/futig/kbchat-backend/internal/integration/search"
	"github.com/futig/kbchat-backend/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ==================== Fakes ====================

type stubSearcher struct{ index string }

func (s *stubSearcher) Search(context.Context, entity.SearchQuery) ([]entity.SearchDocument, error) {
	return nil, nil
}

type stubContainer struct{ name string }

func (s *stubContainer) Download(context.Context, string) (*entity.Blob, error) {
	return nil, entity.ErrNotFound
}

type stubStrategy struct{ corpus entity.Corpus }

func (s *stubStrategy) Run(context.Context, strategy.Request) (*strategy.Result, error) {
	return strategy.Complete(&entity.Answer{}), nil
}

type fakeFactory struct {
	mu     sync.Mutex
	builds int
	fail   map[entity.Corpus]error
}

func (f *fakeFactory) Build(_ context.Context, c entity.Corpus) (*Snapshot, error) {
	f.mu.Lock()
	f.builds++
	err := f.fail[c]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Search:    &stubSearcher{index: c.Index},
		Container: &stubContainer{name: c.Container},
		Ask:       &stubStrategy{corpus: c},
		Chat:      &stubStrategy{corpus: c},
	}, nil
}

// assertConsistent checks every part of snap was built for the same corpus.
func assertConsistent(t *testing.T, snap *Snapshot) {
	t.Helper()
	assert.Equal(t, snap.Corpus.Index, snap.Search.(*stubSearcher).index)
	assert.Equal(t, snap.Corpus.Container, snap.Container.(*stubContainer).name)
	assert.Equal(t, snap.Corpus, snap.Ask.(*stubStrategy).corpus)
	assert.Equal(t, snap.Corpus, snap.Chat.(*stubStrategy).corpus)
}

var (
	corpusA = entity.Corpus{Index: "idx1", Container: "cont1"}
	corpusB = entity.Corpus{Index: "idx2", Container: "cont2"}
)

// ==================== Binding ====================

func TestNew_InitialFailure(t *testing.T) {
	f := &fakeFactory{fail: map[entity.Corpus]error{corpusA: errors.New("dial tcp: refused")}}

	_, err := New(context.Background(), f, corpusA)
	require.ErrorIs(t, err, entity.ErrCorpusUnavailable)
}

// TestRebind_Success verifies later readers observe the new corpus.
func TestRebind_Success(t *testing.T) {
	b, err := New(context.Background(), &fakeFactory{}, corpusA)
	require.NoError(t, err)
	assert.Equal(t, corpusA, b.Current().Corpus)

	snap, err := b.Rebind(context.Background(), corpusB)
	require.NoError(t, err)
	assert.Equal(t, corpusB, snap.Corpus)
	assert.Same(t, snap, b.Current())
	assertConsistent(t, b.Current())
}

// TestRebind_FailureKeepsPrevious verifies a failed rebind changes nothing.
func TestRebind_FailureKeepsPrevious(t *testing.T) {
	f := &fakeFactory{fail: map[entity.Corpus]error{
		corpusB: fmt.Errorf("%w: AZURE_SEARCH_SERVICE", entity.ErrConfiguration),
	}}
	b, err := New(context.Background(), f, corpusA)
	require.NoError(t, err)
	before := b.Current()

	_, err = b.Rebind(context.Background(), corpusB)
	require.ErrorIs(t, err, entity.ErrConfiguration)
	assert.NotErrorIs(t, err, entity.ErrCorpusUnavailable)

	assert.Same(t, before, b.Current())
	assertConsistent(t, b.Current())
}

// TestRebind_SameCorpusRebuilds verifies rebinding the bound pair builds new
// clients and publishes them.
func TestRebind_SameCorpusRebuilds(t *testing.T) {
	f := &fakeFactory{}
	b, err := New(context.Background(), f, corpusA)
	require.NoError(t, err)
	before := b.Current()

	snap, err := b.Rebind(context.Background(), corpusA)
	require.NoError(t, err)
	assert.NotSame(t, before, snap)
	assert.Same(t, snap, b.Current())
	assert.Equal(t, corpusA, snap.Corpus)
	assert.Equal(t, 2, f.builds)
}

func TestRebind_RequiresBothNames(t *testing.T) {
	b, err := New(context.Background(), &fakeFactory{}, corpusA)
	require.NoError(t, err)

	_, err = b.Rebind(context.Background(), entity.Corpus{Index: "only-index"})
	require.ErrorIs(t, err, entity.ErrMissingField)
	assert.Equal(t, corpusA, b.Current().Corpus)
}

// TestRebind_Concurrent verifies readers never see a half-updated binding
// while rebinds race each other.
func TestRebind_Concurrent(t *testing.T) {
	b, err := New(context.Background(), &fakeFactory{}, corpusA)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			target := corpusA
			if i%2 == 0 {
				target = corpusB
			}
			_, err := b.Rebind(context.Background(), target)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			assertConsistent(t, b.Current())
		}()
	}
	wg.Wait()

	final := b.Current().Corpus
	assert.Contains(t, []entity.Corpus{corpusA, corpusB}, final)
}

// ==================== AzureFactory ====================

type nopCredential struct{}

func (nopCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "t"}, nil
}

func TestAzureFactory_Build(t *testing.T) {
	f := NewAzureFactory(nil, nopCredential{}, zap.NewNop())
	f.loadConfig = func() (config.AzureConfig, error) {
		return config.AzureConfig{
			StorageAccount:    "acct",
			SearchService:     "svc",
			OpenAIHost:        "azure",
			ChatGPTModel:      "gpt-35-turbo",
			ChatGPTDeployment: "chat",
		}, nil
	}

	snap, err := f.Build(context.Background(), corpusB)
	require.NoError(t, err)
	assert.Equal(t, corpusB, snap.Corpus)
	assert.Equal(t, "idx2", snap.Search.(*search.Connector).Index())
	assert.NotNil(t, snap.Container)
	assert.NotNil(t, snap.Ask)
	assert.NotNil(t, snap.Chat)
}

func TestAzureFactory_ConfigError(t *testing.T) {
	f := NewAzureFactory(nil, nopCredential{}, zap.NewNop())
	f.loadConfig = func() (config.AzureConfig, error) {
		return config.AzureConfig{}, fmt.Errorf("%w: AZURE_STORAGE_ACCOUNT", entity.ErrConfiguration)
	}

	_, err := f.Build(context.Background(), corpusB)
	require.ErrorIs(t, err, entity.ErrConfiguration)
}

func TestAzureFactory_NoCredentialNoKey(t *testing.T) {
	f := NewAzureFactory(nil, nil, zap.NewNop())
	f.loadConfig = func() (config.AzureConfig, error) {
		return config.AzureConfig{StorageAccount: "acct", SearchService: "svc"}, nil
	}

	_, err := f.Build(context.Background(), corpusB)
	require.ErrorIs(t, err, entity.ErrConfiguration)
}
