package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/docuflow/extraction-tracker/internal/store"
	"github.com/docuflow/extraction-tracker/internal/store/model"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTokenTTL = 5 * time.Minute
	expiryLeeway    = 30 * time.Second
)

// CredentialLookup returns the extraction credential registered for a principal.
type CredentialLookup interface {
	Get(ctx context.Context, principalID string) (*model.Credential, error)
}

// CredentialProvider issues short-lived access tokens for the extraction service using the
// client credentials grant. Tokens are cached per principal until shortly before they expire.
type CredentialProvider struct {
	lookup     CredentialLookup
	fallback   *model.Credential
	httpClient *http.Client
	tokens     *cache.Cache
	group      singleflight.Group
}

// NewCredentialProvider creates a provider. fallback is used for principals without a credential of their own, it may be nil.
func NewCredentialProvider(lookup CredentialLookup, fallback *model.Credential, timeout time.Duration) *CredentialProvider {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if fallback != nil && fallback.ClientID == "" {
		fallback = nil
	}
	return &CredentialProvider{
		lookup:     lookup,
		fallback:   fallback,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     cache.New(defaultTokenTTL, 10*time.Minute),
	}
}

// AccessToken returns a bearer token for principalID or an error wrapping ErrCredentialUnavailable.
func (p *CredentialProvider) AccessToken(ctx context.Context, principalID string) (string, error) {
	if token, found := p.tokens.Get(principalID); found {
		return token.(string), nil
	}

	// the issued token is shared, so a cancelled caller must not fail the others waiting on it
	ch := p.group.DoChan(principalID, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.httpClient.Timeout)
		defer cancel()

		cred, err := p.credential(ctx, principalID)
		if err != nil {
			return "", err
		}

		cfg := clientcredentials.Config{
			ClientID:     cred.ClientID,
			ClientSecret: cred.ClientSecret,
			TokenURL:     cred.TokenURL,
		}
		token, err := cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, p.httpClient))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCredentialUnavailable, err)
		}
		if token.AccessToken == "" {
			return "", fmt.Errorf("%w: empty access token", ErrCredentialUnavailable)
		}

		ttl := defaultTokenTTL
		if !token.Expiry.IsZero() {
			ttl = time.Until(token.Expiry) - expiryLeeway
		}
		if ttl > 0 {
			p.tokens.Set(principalID, token.AccessToken, ttl)
		}
		return token.AccessToken, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Evict drops the cached token of principalID, e.g. after the extraction service rejected it.
func (p *CredentialProvider) Evict(principalID string) {
	p.tokens.Delete(principalID)
}

func (p *CredentialProvider) credential(ctx context.Context, principalID string) (*model.Credential, error) {
	cred, err := p.lookup.Get(ctx, principalID)
	switch {
	case err == nil:
		if cred.TokenURL == "" && p.fallback != nil {
			cred.TokenURL = p.fallback.TokenURL
		}
		return cred, nil
	case errors.Is(err, store.ErrRecordNotFound):
		if p.fallback == nil {
			return nil, fmt.Errorf("%w: no credential for principal %q", ErrCredentialUnavailable, principalID)
		}
		zap.S().Named("credential_provider").Debugw("using service credential", "principal", principalID)
		return p.fallback, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrCredentialUnavailable, err)
	}
}
