package firestore

import (
	"context"
	"fmt"
	"time"

	fs "cloud.google.com/go/firestore"
	"github.com/docuflow/extraction-tracker/internal/store"
	"github.com/docuflow/extraction-tracker/internal/store/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const credentialsCollection = "extractionCredentials"

// NewClient creates a firestore client for projectID.
func NewClient(ctx context.Context, projectID string) (*fs.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := fs.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return client, nil
}

// Store is the firestore backed store.Store. Every document merge runs in its own firestore transaction.
type Store struct {
	client     *fs.Client
	document   *DocumentStore
	credential *CredentialStore
}

var _ store.Store = (*Store)(nil)

func NewStore(client *fs.Client) *Store {
	return &Store{
		client:     client,
		document:   NewDocumentStore(client),
		credential: &CredentialStore{client: client},
	}
}

// NewTransactionContext returns ctx unchanged: firestore has no cross-request transaction to carry.
func (s *Store) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return ctx, nil
}

func (s *Store) Document() store.Document {
	return s.document
}

func (s *Store) Credential() store.Credential {
	return s.credential
}

func (s *Store) Statistics(ctx context.Context) (model.DocumentStatistics, error) {
	return s.document.Statistics(ctx)
}

func (s *Store) Close() error {
	return s.client.Close()
}

type credentialEntity struct {
	ClientID     string    `firestore:"clientId"`
	ClientSecret string    `firestore:"clientSecret"`
	TokenURL     string    `firestore:"tokenUrl"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

type CredentialStore struct {
	client *fs.Client
}

var _ store.Credential = (*CredentialStore)(nil)

func (s *CredentialStore) Get(ctx context.Context, principalID string) (*model.Credential, error) {
	snap, err := s.client.Collection(credentialsCollection).Doc(principalID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, store.ErrRecordNotFound
		}
		return nil, err
	}
	var e credentialEntity
	if err := snap.DataTo(&e); err != nil {
		return nil, err
	}
	return &model.Credential{
		PrincipalID:  principalID,
		ClientID:     e.ClientID,
		ClientSecret: e.ClientSecret,
		TokenURL:     e.TokenURL,
		UpdatedAt:    e.UpdatedAt,
	}, nil
}

func (s *CredentialStore) Upsert(ctx context.Context, cred model.Credential) (*model.Credential, error) {
	cred.UpdatedAt = time.Now().UTC()
	_, err := s.client.Collection(credentialsCollection).Doc(cred.PrincipalID).Set(ctx, credentialEntity{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		TokenURL:     cred.TokenURL,
		UpdatedAt:    cred.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("storing credential: %w", err)
	}
	return &cred, nil
}

func (s *CredentialStore) Delete(ctx context.Context, principalID string) error {
	ref := s.client.Collection(credentialsCollection).Doc(principalID)
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return store.ErrRecordNotFound
		}
		return err
	}
	_, err := ref.Delete(ctx)
	return err
}
