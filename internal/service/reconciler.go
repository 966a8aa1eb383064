package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/docuflow/extraction-tracker/internal/client"
	"github.com/docuflow/extraction-tracker/internal/events"
	"github.com/docuflow/extraction-tracker/internal/store"
	"github.com/docuflow/extraction-tracker/internal/store/model"
	"github.com/docuflow/extraction-tracker/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultWorkers                = 4
	defaultMaxConsecutiveFailures = 3
	defaultFetchTimeout           = 10 * time.Second
)

type JobFetcher interface {
	FetchAllJobs(ctx context.Context, token string) ([]model.JobStatus, error)
}

type TokenSource interface {
	AccessToken(ctx context.Context, principalID string) (string, error)
	Evict(principalID string)
}

type EventWriter interface {
	WriteJSON(ctx context.Context, kind string, v any) error
}

type Transition struct {
	DocumentID    uuid.UUID
	ExternalJobID string
	OwnerID       string
	From          model.DocumentState
	To            model.DocumentState
	Category      *string
}

type ReconcileReport struct {
	Fetched     int
	Applied     int
	Stale       int
	NotFound    int
	Failed      int
	Transitions []Transition
}

// Reconciler pulls job statuses from the extraction service and merges them into the store.
type Reconciler struct {
	store                  store.Store
	fetcher                JobFetcher
	tokens                 TokenSource
	events                 EventWriter
	workers                int
	maxConsecutiveFailures int
	timeout                time.Duration
	group                  singleflight.Group
}

type ReconcilerOption func(r *Reconciler)

func WithWorkers(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithMaxConsecutiveFailures(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n > 0 {
			r.maxConsecutiveFailures = n
		}
	}
}

func WithFetchTimeout(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithEventWriter(w EventWriter) ReconcilerOption {
	return func(r *Reconciler) {
		r.events = w
	}
}

func NewReconciler(s store.Store, fetcher JobFetcher, tokens TokenSource, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store:                  s,
		fetcher:                fetcher,
		tokens:                 tokens,
		workers:                defaultWorkers,
		maxConsecutiveFailures: defaultMaxConsecutiveFailures,
		timeout:                defaultFetchTimeout,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reconcile runs one pass for principalID. Merges applied before an error stay committed.
func (r *Reconciler) Reconcile(ctx context.Context, principalID string) (ReconcileReport, error) {
	logger := zap.S().Named("reconciler")
	report := ReconcileReport{}

	jobs, err := r.fetch(ctx, principalID)
	if err != nil {
		if client.IsUnavailable(err) {
			metrics.IncreaseReconcilePassesMetric(metrics.PassResultDegraded)
		} else {
			metrics.IncreaseReconcilePassesMetric(metrics.PassResultFailed)
		}
		logger.Warnw("failed to fetch job statuses", "principal", principalID, "error", err)
		return report, err
	}
	report.Fetched = len(jobs)

	if err := r.merge(ctx, jobs, &report); err != nil {
		metrics.IncreaseReconcilePassesMetric(metrics.PassResultFailed)
		logger.Errorw("reconciliation aborted", "principal", principalID, "applied", report.Applied, "failed", report.Failed, "error", err)
		return report, err
	}

	metrics.IncreaseReconcilePassesMetric(metrics.PassResultOK)
	logger.Infow("reconciliation done",
		"principal", principalID,
		"fetched", report.Fetched,
		"applied", report.Applied,
		"stale", report.Stale,
		"not_found", report.NotFound,
		"failed", report.Failed,
		"transitions", len(report.Transitions),
	)
	return report, nil
}

// fetch shares one in-flight external call between concurrent passes of the same principal.
// The shared call outlives a cancelled caller; each caller only waits as long as its own ctx allows.
func (r *Reconciler) fetch(ctx context.Context, principalID string) ([]model.JobStatus, error) {
	ch := r.group.DoChan(principalID, func() (interface{}, error) {
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		token, err := r.tokens.AccessToken(sharedCtx, principalID)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		jobs, err := r.fetcher.FetchAllJobs(sharedCtx, token)
		metrics.ObserveExtractionFetchDuration(time.Since(start))
		if err != nil {
			switch {
			case errors.Is(err, ErrAuthExpired):
				r.tokens.Evict(principalID)
			case errors.Is(sharedCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrServiceUnavailable):
				err = fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
			}
			return nil, err
		}
		return jobs, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]model.JobStatus), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Reconciler) merge(ctx context.Context, jobs []model.JobStatus, report *ReconcileReport) error {
	var (
		mu          sync.Mutex
		consecutive int
		aborted     bool
	)

	record := func(outcome string, t *Transition) error {
		mu.Lock()
		defer mu.Unlock()

		if aborted {
			return nil
		}
		metrics.IncreaseReconcileUpdatesMetric(outcome)

		switch outcome {
		case metrics.UpdateOutcomeFailed:
			report.Failed++
			consecutive++
			if consecutive >= r.maxConsecutiveFailures {
				aborted = true
				return fmt.Errorf("%w: %d consecutive merge failures", ErrStoreUnavailable, consecutive)
			}
			return nil
		case metrics.UpdateOutcomeApplied:
			report.Applied++
			if t != nil {
				report.Transitions = append(report.Transitions, *t)
			}
		case metrics.UpdateOutcomeStale:
			report.Stale++
		case metrics.UpdateOutcomeNotFound:
			report.NotFound++
		}
		consecutive = 0
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		job := job.Normalize()
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			return record(r.apply(gctx, job))
		})
	}

	err := g.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (r *Reconciler) apply(ctx context.Context, job model.JobStatus) (string, *Transition) {
	logger := zap.S().Named("reconciler")

	current, err := r.store.Document().FindByExternalJobID(ctx, job.ExternalJobID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return metrics.UpdateOutcomeNotFound, nil
		}
		logger.Warnw("failed to read document", "job_id", job.ExternalJobID, "error", err)
		return metrics.UpdateOutcomeFailed, nil
	}

	outcome, err := r.store.Document().ApplyJobStatus(ctx, job)
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		return metrics.UpdateOutcomeNotFound, nil
	case err != nil:
		logger.Warnw("failed to merge job status", "job_id", job.ExternalJobID, "error", err)
		return metrics.UpdateOutcomeFailed, nil
	case outcome == model.MergeStale:
		logger.Debugw("stale job status ignored", "job_id", job.ExternalJobID, "current", current.State, "incoming", job.State)
		return metrics.UpdateOutcomeStale, nil
	case outcome == model.MergeRefreshed:
		return metrics.UpdateOutcomeApplied, nil
	}

	// only the merge that moved the state reports it, concurrent passes see MergeRefreshed
	t := &Transition{
		DocumentID:    current.ID,
		ExternalJobID: current.ExternalJobID,
		OwnerID:       current.OwnerID,
		From:          current.State,
		To:            job.State,
		Category:      job.Category,
	}
	if t.Category == nil {
		t.Category = current.Category
	}
	r.emit(ctx, t)
	return metrics.UpdateOutcomeApplied, t
}

func (r *Reconciler) emit(ctx context.Context, t *Transition) {
	if r.events == nil {
		return
	}

	event := events.DocumentStateChangedEvent{
		DocumentID:    t.DocumentID.String(),
		ExternalJobID: t.ExternalJobID,
		OwnerID:       t.OwnerID,
		From:          t.From.String(),
		To:            t.To.String(),
		ChangedAt:     time.Now().UTC(),
	}
	if t.Category != nil {
		event.Category = *t.Category
	}
	if err := r.events.WriteJSON(ctx, events.DocumentStateChangedKind, event); err != nil {
		zap.S().Named("reconciler").Warnw("failed to queue state change event", "document_id", t.DocumentID, "error", err)
	}
}
