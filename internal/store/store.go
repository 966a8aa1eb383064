package store

import (
	"context"

	"github.com/docuflow/extraction-tracker/internal/store/model"
	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Document() Document
	Credential() Credential
	Statistics(ctx context.Context) (model.DocumentStatistics, error)
	Close() error
}

type DataStore struct {
	db         *gorm.DB
	document   Document
	credential Credential
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		document:   NewDocumentStore(db),
		credential: NewCredentialStore(db),
		db:         db,
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Document() Document {
	return s.document
}

func (s *DataStore) Credential() Credential {
	return s.credential
}

func (s *DataStore) Statistics(ctx context.Context) (model.DocumentStatistics, error) {
	return s.document.Statistics(ctx)
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
