package common

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// Token scopes of the Azure services the backend calls with a managed identity.
const (
	ScopeCognitiveServices = "https://cognitiveservices.azure.com/.default"
	ScopeSearch            = "https://search.azure.com/.default"
)

// NewCredential returns the default Azure credential chain (environment,
// workload identity, managed identity, Azure CLI).
func NewCredential() (azcore.TokenCredential, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("create azure credential: %w", err)
	}
	return cred, nil
}

// ScopedTokenSource adapts an azcore credential to the connector's bearer token hook.
type ScopedTokenSource struct {
	cred  azcore.TokenCredential
	scope string
}

func NewScopedTokenSource(cred azcore.TokenCredential, scope string) *ScopedTokenSource {
	return &ScopedTokenSource{cred: cred, scope: scope}
}

func (s *ScopedTokenSource) Token(ctx context.Context) (string, error) {
	tok, err := s.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{s.scope}})
	if err != nil {
		return "", fmt.Errorf("get token for %s: %w", s.scope, err)
	}
	return tok.Token, nil
}
