package firestore

import (
	"context"
	"fmt"
	"time"

	fs "cloud.google.com/go/firestore"
	"github.com/docuflow/extraction-tracker/internal/store"
	"github.com/docuflow/extraction-tracker/internal/store/model"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const documentsCollection = "documents"

type documentEntity struct {
	ID                 string     `firestore:"id"`
	ExternalJobID      string     `firestore:"externalJobId"`
	Name               string     `firestore:"name"`
	Size               int64      `firestore:"size"`
	ContentType        string     `firestore:"contentType"`
	Category           *string    `firestore:"category"`
	ClientID           *string    `firestore:"clientId"`
	OwnerID            string     `firestore:"ownerId"`
	State              string     `firestore:"state"`
	StateRank          int        `firestore:"stateRank"`
	SubmittedAt        time.Time  `firestore:"submittedAt"`
	UpdatedAt          time.Time  `firestore:"updatedAt"`
	ExternalStartedAt  *time.Time `firestore:"externalStartedAt"`
	ExternalFinishedAt *time.Time `firestore:"externalFinishedAt"`
	IsShared           bool       `firestore:"isShared"`
	ShareToken         *string    `firestore:"shareToken"`
	SharedAt           *time.Time `firestore:"sharedAt"`
	IsTeamShared       bool       `firestore:"isTeamShared"`
	TeamSharedBy       *string    `firestore:"teamSharedBy"`
	TeamSharedAt       *time.Time `firestore:"teamSharedAt"`
}

func toEntity(d model.Document) documentEntity {
	return documentEntity{
		ID:                 d.ID.String(),
		ExternalJobID:      d.ExternalJobID,
		Name:               d.Name,
		Size:               d.Size,
		ContentType:        d.ContentType,
		Category:           d.Category,
		ClientID:           d.ClientID,
		OwnerID:            d.OwnerID,
		State:              string(d.State),
		StateRank:          d.State.Rank(),
		SubmittedAt:        d.SubmittedAt.UTC(),
		UpdatedAt:          d.UpdatedAt.UTC(),
		ExternalStartedAt:  d.ExternalStartedAt,
		ExternalFinishedAt: d.ExternalFinishedAt,
		IsShared:           d.IsShared,
		ShareToken:         d.ShareToken,
		SharedAt:           d.SharedAt,
		IsTeamShared:       d.IsTeamShared,
		TeamSharedBy:       d.TeamSharedBy,
		TeamSharedAt:       d.TeamSharedAt,
	}
}

func (e documentEntity) toModel() model.Document {
	id, _ := uuid.Parse(e.ID)
	return model.Document{
		ID:                 id,
		ExternalJobID:      e.ExternalJobID,
		Name:               e.Name,
		Size:               e.Size,
		ContentType:        e.ContentType,
		Category:           e.Category,
		ClientID:           e.ClientID,
		OwnerID:            e.OwnerID,
		State:              model.DocumentState(e.State),
		StateRank:          e.StateRank,
		SubmittedAt:        e.SubmittedAt,
		UpdatedAt:          e.UpdatedAt,
		ExternalStartedAt:  e.ExternalStartedAt,
		ExternalFinishedAt: e.ExternalFinishedAt,
		IsShared:           e.IsShared,
		ShareToken:         e.ShareToken,
		SharedAt:           e.SharedAt,
		IsTeamShared:       e.IsTeamShared,
		TeamSharedBy:       e.TeamSharedBy,
		TeamSharedAt:       e.TeamSharedAt,
	}
}

// DocumentStore keeps one firestore document per external job, keyed by the external job id.
type DocumentStore struct {
	client *fs.Client
}

var _ store.Document = (*DocumentStore)(nil)

func NewDocumentStore(client *fs.Client) *DocumentStore {
	return &DocumentStore{client: client}
}

func (s *DocumentStore) collection() *fs.CollectionRef {
	return s.client.Collection(documentsCollection)
}

func (s *DocumentStore) Create(ctx context.Context, doc model.Document) (*model.Document, error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.State == "" {
		doc.State = model.DocumentStateUploading
	}
	doc.StateRank = doc.State.Rank()
	doc.UpdatedAt = time.Now().UTC()
	// the job id is the firestore document id
	if !model.ValidExternalJobID(doc.ExternalJobID) {
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidJobID, doc.ExternalJobID)
	}

	if _, err := s.collection().Doc(doc.ExternalJobID).Create(ctx, toEntity(doc)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, store.ErrDuplicateKey
		}
		return nil, fmt.Errorf("creating document: %w", err)
	}
	return &doc, nil
}

func (s *DocumentStore) Get(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	snap, err := s.findOne(ctx, s.collection().Where("id", "==", id.String()))
	if err != nil {
		return nil, err
	}
	return decode(snap)
}

func (s *DocumentStore) FindByExternalJobID(ctx context.Context, jobID string) (*model.Document, error) {
	if !model.ValidExternalJobID(jobID) {
		return nil, store.ErrRecordNotFound
	}
	snap, err := s.collection().Doc(jobID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, store.ErrRecordNotFound
		}
		return nil, err
	}
	return decode(snap)
}

func (s *DocumentStore) GetByShareToken(ctx context.Context, token string) (*model.Document, error) {
	snap, err := s.findOne(ctx, s.collection().Where("shareToken", "==", token).Where("isShared", "==", true))
	if err != nil {
		return nil, err
	}
	return decode(snap)
}

func (s *DocumentStore) List(ctx context.Context, filter *store.DocumentQueryFilter, opts *store.DocumentQueryOptions) (model.DocumentList, error) {
	q := applyFilter(s.collection().Query, filter)
	if opts == nil {
		opts = store.NewDocumentQueryOptions()
	}
	switch opts.Sort {
	case store.SortBySubmittedAsc:
		q = q.OrderBy("submittedAt", fs.Asc)
	default:
		q = q.OrderBy("submittedAt", fs.Desc)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	docs := make(model.DocumentList, 0, len(snaps))
	for _, snap := range snaps {
		d, err := decode(snap)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, nil
}

func (s *DocumentStore) Count(ctx context.Context, filter *store.DocumentQueryFilter) (int64, error) {
	snaps, err := applyFilter(s.collection().Query, filter).Select().Documents(ctx).GetAll()
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return int64(len(snaps)), nil
}

func (s *DocumentStore) ApplyJobStatus(ctx context.Context, js model.JobStatus) (model.MergeOutcome, error) {
	rank := js.State.Rank()
	if rank < 0 {
		return model.MergeStale, fmt.Errorf("invalid document state %q", js.State)
	}
	if !model.ValidExternalJobID(js.ExternalJobID) {
		return model.MergeStale, store.ErrRecordNotFound
	}
	ref := s.collection().Doc(js.ExternalJobID)

	outcome := model.MergeStale
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *fs.Transaction) error {
		outcome = model.MergeStale
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return store.ErrRecordNotFound
			}
			return err
		}
		var current documentEntity
		if err := snap.DataTo(&current); err != nil {
			return err
		}
		// a terminal state may be refreshed but never swapped for the other terminal state
		if current.StateRank > rank || (current.StateRank == rank && current.State != string(js.State)) {
			return nil
		}

		updates := []fs.Update{
			{Path: "state", Value: string(js.State)},
			{Path: "stateRank", Value: rank},
			{Path: "updatedAt", Value: time.Now().UTC()},
		}
		if js.Category != nil {
			updates = append(updates, fs.Update{Path: "category", Value: *js.Category})
		}
		if js.ClientID != nil {
			updates = append(updates, fs.Update{Path: "clientId", Value: *js.ClientID})
		}
		started := current.ExternalStartedAt
		if started == nil && js.StartedAt != nil {
			t := js.StartedAt.UTC()
			started = &t
			updates = append(updates, fs.Update{Path: "externalStartedAt", Value: t})
		}
		if current.ExternalFinishedAt == nil && js.FinishedAt != nil && started != nil && !js.FinishedAt.Before(*started) {
			updates = append(updates, fs.Update{Path: "externalFinishedAt", Value: js.FinishedAt.UTC()})
		}

		outcome = model.MergeRefreshed
		if current.StateRank < rank {
			outcome = model.MergeTransitioned
		}
		return tx.Update(ref, updates)
	})
	if err != nil {
		return model.MergeStale, err
	}
	return outcome, nil
}

func (s *DocumentStore) Share(ctx context.Context, id uuid.UUID, token string, at time.Time) (*model.Document, error) {
	return s.update(ctx, id, []fs.Update{
		{Path: "isShared", Value: true},
		{Path: "shareToken", Value: token},
		{Path: "sharedAt", Value: at.UTC()},
	})
}

func (s *DocumentStore) TeamShare(ctx context.Context, id uuid.UUID, sharedBy string, at time.Time) (*model.Document, error) {
	return s.update(ctx, id, []fs.Update{
		{Path: "isTeamShared", Value: true},
		{Path: "teamSharedBy", Value: sharedBy},
		{Path: "teamSharedAt", Value: at.UTC()},
	})
}

func (s *DocumentStore) Delete(ctx context.Context, id uuid.UUID) error {
	snap, err := s.findOne(ctx, s.collection().Where("id", "==", id.String()))
	if err != nil {
		return err
	}
	_, err = snap.Ref.Delete(ctx)
	return err
}

func (s *DocumentStore) Statistics(ctx context.Context) (model.DocumentStatistics, error) {
	stats := model.DocumentStatistics{
		ByState:    make(map[model.DocumentState]int64),
		ByCategory: make(map[string]int64),
	}

	it := s.collection().Select("state", "category").Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("reading document statistics: %w", err)
		}
		var e documentEntity
		if err := snap.DataTo(&e); err != nil {
			return stats, err
		}
		stats.Total++
		stats.ByState[model.DocumentState(e.State)]++
		stats.ByCategory[e.toModel().CategoryOrUnknown()]++
	}
	return stats, nil
}

func (s *DocumentStore) update(ctx context.Context, id uuid.UUID, updates []fs.Update) (*model.Document, error) {
	snap, err := s.findOne(ctx, s.collection().Where("id", "==", id.String()))
	if err != nil {
		return nil, err
	}
	if _, err := snap.Ref.Update(ctx, updates); err != nil {
		return nil, fmt.Errorf("updating document: %w", err)
	}
	return s.FindByExternalJobID(ctx, snap.Ref.ID)
}

func (s *DocumentStore) findOne(ctx context.Context, q fs.Query) (*fs.DocumentSnapshot, error) {
	snaps, err := q.Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, store.ErrRecordNotFound
	}
	return snaps[0], nil
}

func applyFilter(q fs.Query, filter *store.DocumentQueryFilter) fs.Query {
	if filter == nil {
		return q
	}
	if filter.OwnerID != "" {
		q = q.Where("ownerId", "==", filter.OwnerID)
	}
	if filter.State != nil {
		q = q.Where("state", "==", string(*filter.State))
	}
	if filter.Category != nil {
		if *filter.Category == model.UnknownCategory {
			q = q.Where("category", "==", nil)
		} else {
			q = q.Where("category", "==", *filter.Category)
		}
	}
	if filter.SubmittedSince != nil {
		q = q.Where("submittedAt", ">=", *filter.SubmittedSince)
	}
	return q
}

func decode(snap *fs.DocumentSnapshot) (*model.Document, error) {
	var e documentEntity
	if err := snap.DataTo(&e); err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", snap.Ref.ID, err)
	}
	d := e.toModel()
	return &d, nil
}
