// Package identity resolves API keys to accounts and their service tier.
package identity

import (
	"context"
	"strings"

	"github.com/contract-scanner/internal/models"
	"github.com/contract-scanner/internal/types"
)

// AnonymousAccountID identifies callers that present no API key.
// They share the free tier quota bucket keyed by this ID.
const AnonymousAccountID = "anonymous"

// Provider resolves an API key to an account
type Provider interface {
	Resolve(ctx context.Context, apiKey string) (*models.Account, error)
}

// PrefixProvider derives the tier from the API key prefix without any
// backing store. Keys are issued with a tier prefix so the tier can be
// recovered from the key alone.
type PrefixProvider struct{}

// NewPrefixProvider creates a new prefix-based provider
func NewPrefixProvider() *PrefixProvider {
	return &PrefixProvider{}
}

// Resolve maps an API key to an account. Missing keys resolve to the
// shared anonymous free account; unrecognized prefixes also land on free.
func (p *PrefixProvider) Resolve(_ context.Context, apiKey string) (*models.Account, error) {
	if apiKey == "" {
		return &models.Account{
			ID:   AnonymousAccountID,
			Tier: types.TierFree,
		}, nil
	}

	return &models.Account{
		ID:     apiKey,
		APIKey: apiKey,
		Tier:   TierFromKey(apiKey),
	}, nil
}

// TierFromKey returns the tier encoded in an API key prefix
func TierFromKey(apiKey string) types.Tier {
	switch {
	case strings.HasPrefix(apiKey, "enterprise_"):
		return types.TierEnterprise
	case strings.HasPrefix(apiKey, "pro_"):
		return types.TierPro
	case strings.HasPrefix(apiKey, "basic_"):
		return types.TierBasic
	default:
		return types.TierFree
	}
}

// AccountGetter looks up a registered account by API key
type AccountGetter interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*models.Account, error)
}

// StoreProvider resolves accounts from a backing store, falling back to
// prefix resolution when the key is not registered. Lookup failures are
// treated as not-registered so a store outage degrades to prefix tiers
// instead of rejecting traffic.
type StoreProvider struct {
	store    AccountGetter
	fallback *PrefixProvider
}

// NewStoreProvider creates a store-backed provider
func NewStoreProvider(store AccountGetter) *StoreProvider {
	return &StoreProvider{
		store:    store,
		fallback: NewPrefixProvider(),
	}
}

// Resolve looks up the account for an API key
func (p *StoreProvider) Resolve(ctx context.Context, apiKey string) (*models.Account, error) {
	if apiKey == "" {
		return p.fallback.Resolve(ctx, apiKey)
	}

	account, err := p.store.GetByAPIKey(ctx, apiKey)
	if err != nil || account == nil {
		return p.fallback.Resolve(ctx, apiKey)
	}

	return account, nil
}
