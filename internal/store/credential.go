package store

import (
	"context"
	"errors"
	"time"

	"github.com/docuflow/extraction-tracker/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Credential interface {
	Get(ctx context.Context, principalID string) (*model.Credential, error)
	Upsert(ctx context.Context, cred model.Credential) (*model.Credential, error)
	Delete(ctx context.Context, principalID string) error
}

type CredentialStore struct {
	db *gorm.DB
}

// Make sure we conform to Credential interface
var _ Credential = (*CredentialStore)(nil)

func NewCredentialStore(db *gorm.DB) Credential {
	return &CredentialStore{db: db}
}

func (s *CredentialStore) Get(ctx context.Context, principalID string) (*model.Credential, error) {
	var cred model.Credential
	result := s.getDB(ctx).Where("principal_id = ?", principalID).First(&cred)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &cred, nil
}

func (s *CredentialStore) Upsert(ctx context.Context, cred model.Credential) (*model.Credential, error) {
	cred.UpdatedAt = time.Now().UTC()
	result := s.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "principal_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"client_id", "client_secret", "token_url", "updated_at"}),
	}).Create(&cred)
	if result.Error != nil {
		return nil, result.Error
	}
	return &cred, nil
}

func (s *CredentialStore) Delete(ctx context.Context, principalID string) error {
	result := s.getDB(ctx).Where("principal_id = ?", principalID).Delete(&model.Credential{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *CredentialStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}
