package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docuflow/extraction-tracker/internal/auth"
	"github.com/docuflow/extraction-tracker/internal/client"
	"github.com/docuflow/extraction-tracker/internal/events"
	"github.com/docuflow/extraction-tracker/internal/opa"
	"github.com/docuflow/extraction-tracker/internal/store"
	"github.com/docuflow/extraction-tracker/internal/store/model"
	"github.com/docuflow/extraction-tracker/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Authorizer interface {
	Allow(ctx context.Context, input opa.Input) (bool, error)
}

type ResultFetcher interface {
	GetJobResult(ctx context.Context, token, jobID string) (json.RawMessage, error)
}

type DocumentPage struct {
	Documents  model.DocumentList
	Total      int64
	Page       int
	TotalPages int
	Stale      bool
}

type DashboardResult struct {
	Stats model.DashboardStats
	Stale bool
}

type RegisterForm struct {
	Name          string
	Size          int64
	ContentType   string
	ExternalJobID string
}

type DocumentService struct {
	store       store.Store
	reconciler  *Reconciler
	results     ResultFetcher
	authz       Authorizer
	frontendURL string
	now         func() time.Time
}

func NewDocumentService(s store.Store, reconciler *Reconciler, results ResultFetcher, authz Authorizer, frontendURL string) *DocumentService {
	return &DocumentService{
		store:       s,
		reconciler:  reconciler,
		results:     results,
		authz:       authz,
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
		now:         time.Now,
	}
}

// ListWithReconciliation reconciles the requester's jobs and returns one page of documents, most recent first.
// An unreachable extraction service is not an error: the local state is returned flagged as stale.
func (s *DocumentService) ListWithReconciliation(ctx context.Context, user auth.User, filter *DocumentFilter, page Pagination) (*DocumentPage, error) {
	stale, err := s.reconcile(ctx, user)
	if err != nil {
		return nil, err
	}
	metrics.ActivePrincipalsPerWeek.Observe(user.ID)

	page = page.normalize()
	storeFilter := filter.toStoreFilter(user, s.now())

	total, err := s.store.Document().Count(ctx, storeFilter)
	if err != nil {
		return nil, err
	}

	opts := store.NewDocumentQueryOptions().
		WithLimit(page.Limit).
		WithOffset((page.Page - 1) * page.Limit)
	docs, err := s.store.Document().List(ctx, storeFilter, opts)
	if err != nil {
		return nil, err
	}

	return &DocumentPage{
		Documents:  docs,
		Total:      total,
		Page:       page.Page,
		TotalPages: int((total + int64(page.Limit) - 1) / int64(page.Limit)),
		Stale:      stale,
	}, nil
}

// ComputeStats reconciles and aggregates over the whole filtered set.
func (s *DocumentService) ComputeStats(ctx context.Context, user auth.User, filter *DocumentFilter) (*DashboardResult, error) {
	stale, err := s.reconcile(ctx, user)
	if err != nil {
		return nil, err
	}

	docs, err := s.store.Document().List(ctx, filter.toStoreFilter(user, s.now()), nil)
	if err != nil {
		return nil, err
	}

	return &DashboardResult{
		Stats: model.NewDashboardStats(docs),
		Stale: stale,
	}, nil
}

func (s *DocumentService) Register(ctx context.Context, user auth.User, form RegisterForm) (*model.Document, error) {
	if strings.TrimSpace(form.ExternalJobID) == "" {
		return nil, NewErrInvalidInput("external job id is required")
	}
	if !model.ValidExternalJobID(form.ExternalJobID) {
		return nil, NewErrInvalidInput(fmt.Sprintf("invalid external job id %q", form.ExternalJobID))
	}
	if strings.TrimSpace(form.Name) == "" {
		return nil, NewErrInvalidInput("name is required")
	}
	if form.Size < 0 {
		return nil, NewErrInvalidInput("size must not be negative")
	}

	doc := model.NewDocument(user.ID, form.ExternalJobID, form.Name)
	doc.Size = form.Size
	doc.ContentType = form.ContentType
	doc.SubmittedAt = s.now().UTC()

	created, err := s.store.Document().Create(ctx, doc)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, NewErrDuplicateJob(form.ExternalJobID)
		}
		return nil, err
	}

	zap.S().Named("document_service").Infow("document registered", "id", created.ID, "job_id", created.ExternalJobID, "owner", user.ID)
	return created, nil
}

func (s *DocumentService) Get(ctx context.Context, user auth.User, id uuid.UUID) (*model.Document, error) {
	return s.authorized(ctx, user, opa.ActionRead, id)
}

func (s *DocumentService) Delete(ctx context.Context, user auth.User, id uuid.UUID) error {
	txCtx, err := s.store.NewTransactionContext(ctx)
	if err != nil {
		return err
	}

	doc, err := s.deleteAuthorized(txCtx, user, id)
	if err != nil {
		_, _ = store.Rollback(txCtx)
		return err
	}
	if _, err := store.Commit(txCtx); err != nil {
		return err
	}

	if s.reconciler != nil && s.reconciler.events != nil {
		event := events.DocumentDeletedEvent{DocumentID: id.String(), ExternalJobID: doc.ExternalJobID, DeletedBy: user.ID}
		if err := s.reconciler.events.WriteJSON(ctx, events.DocumentDeletedKind, event); err != nil {
			zap.S().Named("document_service").Warnw("failed to queue delete event", "id", id, "error", err)
		}
	}

	zap.S().Named("document_service").Infow("document deleted", "id", id, "by", user.ID)
	return nil
}

// Share returns the public link of the document, creating the token on first use.
func (s *DocumentService) Share(ctx context.Context, user auth.User, id uuid.UUID) (string, error) {
	doc, err := s.authorized(ctx, user, opa.ActionShare, id)
	if err != nil {
		return "", err
	}

	if doc.IsShared && doc.ShareToken != nil {
		return s.shareLink(*doc.ShareToken), nil
	}

	shared, err := s.store.Document().Share(ctx, id, uuid.NewString(), s.now())
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return "", NewErrDocumentNotFound(id)
		}
		return "", fmt.Errorf("failed to share document %s: %w", id, err)
	}

	return s.shareLink(*shared.ShareToken), nil
}

func (s *DocumentService) TeamShare(ctx context.Context, user auth.User, id uuid.UUID) (*model.Document, error) {
	if _, err := s.authorized(ctx, user, opa.ActionShareTeam, id); err != nil {
		return nil, err
	}

	doc, err := s.store.Document().TeamShare(ctx, id, user.ID, s.now())
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrDocumentNotFound(id)
		}
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) GetShared(ctx context.Context, token string) (*model.Document, error) {
	doc, err := s.store.Document().GetByShareToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrSharedDocumentNotFound()
		}
		return nil, err
	}
	return doc, nil
}

// GetExtraction proxies the extraction result of the document's job using the requester's credential.
func (s *DocumentService) GetExtraction(ctx context.Context, user auth.User, id uuid.UUID) (json.RawMessage, error) {
	doc, err := s.authorized(ctx, user, opa.ActionExtraction, id)
	if err != nil {
		return nil, err
	}

	token, err := s.reconciler.tokens.AccessToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	result, err := s.results.GetJobResult(ctx, token, doc.ExternalJobID)
	switch {
	case errors.Is(err, client.ErrJobNotFound):
		return nil, NewErrExtractionResultNotFound(doc.ExternalJobID)
	case errors.Is(err, ErrAuthExpired):
		s.reconciler.tokens.Evict(user.ID)
		return nil, err
	case err != nil:
		return nil, err
	}
	return result, nil
}

func (s *DocumentService) reconcile(ctx context.Context, user auth.User) (bool, error) {
	_, err := s.reconciler.Reconcile(ctx, user.ID)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, ErrAuthExpired), errors.Is(err, ErrCredentialUnavailable), errors.Is(err, ErrStoreUnavailable):
		return false, err
	case ctx.Err() != nil:
		return false, ctx.Err()
	case client.IsUnavailable(err):
		return true, nil
	default:
		return false, err
	}
}

func (s *DocumentService) authorized(ctx context.Context, user auth.User, action opa.Action, id uuid.UUID) (*model.Document, error) {
	doc, err := s.store.Document().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrDocumentNotFound(id)
		}
		return nil, err
	}

	allowed, err := s.authz.Allow(ctx, opa.Input{
		Action:   action,
		User:     opa.Principal{ID: user.ID, Role: user.Role},
		Document: opa.Resource{OwnerID: doc.OwnerID, TeamShared: doc.IsTeamShared},
	})
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, NewErrForbidden(string(action), id)
	}
	return doc, nil
}

func (s *DocumentService) deleteAuthorized(ctx context.Context, user auth.User, id uuid.UUID) (*model.Document, error) {
	doc, err := s.authorized(ctx, user, opa.ActionDelete, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.Document().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrDocumentNotFound(id)
		}
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) shareLink(token string) string {
	return fmt.Sprintf("%s/shared/%s", s.frontendURL, token)
}
