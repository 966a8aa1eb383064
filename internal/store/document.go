package store

import (
	"context"
	"errors"
	"time"

	"github.com/docuflow/extraction-tracker/internal/store/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Document interface {
	Create(ctx context.Context, doc model.Document) (*model.Document, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Document, error)
	FindByExternalJobID(ctx context.Context, jobID string) (*model.Document, error)
	GetByShareToken(ctx context.Context, token string) (*model.Document, error)
	List(ctx context.Context, filter *DocumentQueryFilter, opts *DocumentQueryOptions) (model.DocumentList, error)
	Count(ctx context.Context, filter *DocumentQueryFilter) (int64, error)
	// ApplyJobStatus merges a job status into the document with the same external job id using
	// conditional updates. MergeTransitioned is returned only by the call whose update moved the state.
	ApplyJobStatus(ctx context.Context, status model.JobStatus) (model.MergeOutcome, error)
	Share(ctx context.Context, id uuid.UUID, token string, at time.Time) (*model.Document, error)
	TeamShare(ctx context.Context, id uuid.UUID, sharedBy string, at time.Time) (*model.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Statistics(ctx context.Context) (model.DocumentStatistics, error)
}

type DocumentStore struct {
	db *gorm.DB
}

// Make sure we conform to Document interface
var _ Document = (*DocumentStore)(nil)

func NewDocumentStore(db *gorm.DB) Document {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Create(ctx context.Context, doc model.Document) (*model.Document, error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.State == "" {
		doc.State = model.DocumentStateUploading
	}
	doc.StateRank = doc.State.Rank()
	doc.SubmittedAt = doc.SubmittedAt.UTC()

	result := s.getDB(ctx).Create(&doc)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &doc, nil
}

func (s *DocumentStore) Get(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *DocumentStore) FindByExternalJobID(ctx context.Context, jobID string) (*model.Document, error) {
	return s.first(ctx, "external_job_id = ?", jobID)
}

func (s *DocumentStore) GetByShareToken(ctx context.Context, token string) (*model.Document, error) {
	return s.first(ctx, "share_token = ? AND is_shared = ?", token, true)
}

func (s *DocumentStore) first(ctx context.Context, query string, args ...any) (*model.Document, error) {
	var doc model.Document
	result := s.getDB(ctx).Where(query, args...).First(&doc)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &doc, nil
}

func (s *DocumentStore) List(ctx context.Context, filter *DocumentQueryFilter, opts *DocumentQueryOptions) (model.DocumentList, error) {
	var docs model.DocumentList
	tx := s.getDB(ctx).Model(&docs)

	for _, fn := range filter.queryFn() {
		tx = fn(tx)
	}
	for _, fn := range opts.queryFn() {
		tx = fn(tx)
	}

	if result := tx.Find(&docs); result.Error != nil {
		return nil, result.Error
	}
	return docs, nil
}

func (s *DocumentStore) Count(ctx context.Context, filter *DocumentQueryFilter) (int64, error) {
	var count int64
	tx := s.getDB(ctx).Model(&model.Document{})

	for _, fn := range filter.queryFn() {
		tx = fn(tx)
	}

	if result := tx.Count(&count); result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

func (s *DocumentStore) ApplyJobStatus(ctx context.Context, status model.JobStatus) (model.MergeOutcome, error) {
	rank := status.State.Rank()
	if rank < 0 {
		return model.MergeStale, errors.New("invalid document state")
	}

	started := utcPtr(status.StartedAt)
	updates := map[string]any{
		"state":      status.State,
		"state_rank": rank,
		"updated_at": time.Now().UTC(),
		// set once, never cleared
		"external_started_at": gorm.Expr("COALESCE(external_started_at, ?)", started),
	}
	if status.Category != nil {
		updates["category"] = *status.Category
	}
	if status.ClientID != nil {
		updates["client_id"] = *status.ClientID
	}
	if status.FinishedAt != nil {
		// the finish needs a start to compare with and must not precede it. NULL comparisons keep the stored value.
		finished := status.FinishedAt.UTC()
		updates["external_finished_at"] = gorm.Expr(
			"CASE WHEN COALESCE(external_started_at, ?) <= ? THEN COALESCE(external_finished_at, ?) ELSE external_finished_at END",
			started, finished, finished,
		)
	}

	// the rank compare lets exactly one concurrent writer move the state
	result := s.getDB(ctx).Model(&model.Document{}).
		Where("external_job_id = ? AND state_rank < ?", status.ExternalJobID, rank).
		Updates(updates)
	if result.Error != nil {
		return model.MergeStale, result.Error
	}
	if result.RowsAffected > 0 {
		return model.MergeTransitioned, nil
	}

	// a terminal state may be refreshed but never swapped for the other terminal state
	result = s.getDB(ctx).Model(&model.Document{}).
		Where("external_job_id = ? AND state = ?", status.ExternalJobID, status.State).
		Updates(updates)
	if result.Error != nil {
		return model.MergeStale, result.Error
	}
	if result.RowsAffected > 0 {
		return model.MergeRefreshed, nil
	}

	var count int64
	if err := s.getDB(ctx).Model(&model.Document{}).Where("external_job_id = ?", status.ExternalJobID).Count(&count).Error; err != nil {
		return model.MergeStale, err
	}
	if count == 0 {
		return model.MergeStale, ErrRecordNotFound
	}
	return model.MergeStale, nil
}

func (s *DocumentStore) Share(ctx context.Context, id uuid.UUID, token string, at time.Time) (*model.Document, error) {
	at = at.UTC()
	result := s.getDB(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_shared":   true,
			"share_token": token,
			"shared_at":   at,
		})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return s.Get(ctx, id)
}

func (s *DocumentStore) TeamShare(ctx context.Context, id uuid.UUID, sharedBy string, at time.Time) (*model.Document, error) {
	result := s.getDB(ctx).Model(&model.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_team_shared": true,
			"team_shared_by": sharedBy,
			"team_shared_at": at.UTC(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return s.Get(ctx, id)
}

func (s *DocumentStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.getDB(ctx).Where("id = ?", id).Delete(&model.Document{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *DocumentStore) Statistics(ctx context.Context) (model.DocumentStatistics, error) {
	stats := model.DocumentStatistics{
		ByState:    make(map[model.DocumentState]int64),
		ByCategory: make(map[string]int64),
	}

	var byState []struct {
		State string
		Total int64
	}
	if err := s.getDB(ctx).Model(&model.Document{}).Select("state, COUNT(*) AS total").Group("state").Scan(&byState).Error; err != nil {
		return stats, err
	}
	for _, row := range byState {
		stats.ByState[model.DocumentState(row.State)] = row.Total
		stats.Total += row.Total
	}

	var byCategory []struct {
		Category *string
		Total    int64
	}
	if err := s.getDB(ctx).Model(&model.Document{}).Select("category, COUNT(*) AS total").Group("category").Scan(&byCategory).Error; err != nil {
		return stats, err
	}
	for _, row := range byCategory {
		category := model.UnknownCategory
		if row.Category != nil && *row.Category != "" {
			category = *row.Category
		}
		stats.ByCategory[category] += row.Total
	}

	return stats, nil
}

func (s *DocumentStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
