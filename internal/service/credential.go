package service

import (
	"context"
	"strings"

	"github.com/docuflow/extraction-tracker/internal/auth"
	"github.com/docuflow/extraction-tracker/internal/store"
	"github.com/docuflow/extraction-tracker/internal/store/model"
	"go.uber.org/zap"
)

type CredentialForm struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

type CredentialService struct {
	store  store.Store
	tokens TokenSource
}

func NewCredentialService(s store.Store, tokens TokenSource) *CredentialService {
	return &CredentialService{store: s, tokens: tokens}
}

// Put stores the requester's extraction credential and drops any token issued with the previous one.
func (s *CredentialService) Put(ctx context.Context, user auth.User, form CredentialForm) (*model.Credential, error) {
	if strings.TrimSpace(form.ClientID) == "" || strings.TrimSpace(form.ClientSecret) == "" {
		return nil, NewErrInvalidInput("client id and client secret are required")
	}

	cred, err := s.store.Credential().Upsert(ctx, model.Credential{
		PrincipalID:  user.ID,
		ClientID:     form.ClientID,
		ClientSecret: form.ClientSecret,
		TokenURL:     form.TokenURL,
	})
	if err != nil {
		return nil, err
	}
	s.tokens.Evict(user.ID)

	zap.S().Named("credential_service").Infow("extraction credential stored", "principal", user.ID)
	return cred, nil
}
