package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/docuflow/extraction-tracker/internal/store"
	"github.com/docuflow/extraction-tracker/internal/store/model"
)

func ptr[T any](v T) *T {
	return &v
}

type fakeFetcher struct {
	mu     sync.Mutex
	jobs   []model.JobStatus
	err    error
	delay  time.Duration
	gate   chan struct{}
	calls  atomic.Int32
	result json.RawMessage
}

func (f *fakeFetcher) FetchAllJobs(ctx context.Context, token string) ([]model.JobStatus, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.JobStatus(nil), f.jobs...), nil
}

func (f *fakeFetcher) GetJobResult(ctx context.Context, token, jobID string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeFetcher) set(jobs ...model.JobStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = jobs
}

func (f *fakeFetcher) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeTokens struct {
	mu      sync.Mutex
	err     error
	evicted []string
	issued  []string
}

func (t *fakeTokens) AccessToken(ctx context.Context, principalID string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return "", t.err
	}
	t.issued = append(t.issued, principalID)
	return "token-" + principalID, nil
}

func (t *fakeTokens) Evict(principalID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evicted = append(t.evicted, principalID)
}

func (t *fakeTokens) Evicted() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.evicted...)
}

type recordedEvent struct {
	Kind string
	Body any
}

type recordingWriter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (w *recordingWriter) WriteJSON(ctx context.Context, kind string, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, recordedEvent{Kind: kind, Body: v})
	return nil
}

func (w *recordingWriter) Events() []recordedEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]recordedEvent(nil), w.events...)
}

// brokenStore fails every status merge.
type brokenStore struct {
	store.Store
}

func (b *brokenStore) Document() store.Document {
	return &brokenDocuments{Document: b.Store.Document()}
}

type brokenDocuments struct {
	store.Document
}

func (b *brokenDocuments) ApplyJobStatus(ctx context.Context, status model.JobStatus) (model.MergeOutcome, error) {
	return model.MergeStale, errors.New("database is locked")
}

// slowStore delays every document read so concurrent passes read the same state before writing.
type slowStore struct {
	store.Store
	delay time.Duration
}

func (s *slowStore) Document() store.Document {
	return &slowDocuments{Document: s.Store.Document(), delay: s.delay}
}

type slowDocuments struct {
	store.Document
	delay time.Duration
}

func (s *slowDocuments) FindByExternalJobID(ctx context.Context, jobID string) (*model.Document, error) {
	doc, err := s.Document.FindByExternalJobID(ctx, jobID)
	time.Sleep(s.delay)
	return doc, err
}
