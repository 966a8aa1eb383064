package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/docuflow/extraction-tracker/internal/store/model"
)

const jobsPath = "/document-information-extraction/v1/document/jobs"

// ExtractionClient is an HTTP client for the document extraction service
type ExtractionClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewExtractionClient(baseURL string, timeout time.Duration) *ExtractionClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &ExtractionClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type jobsResponse struct {
	Results []jobEntry `json:"results"`
}

type jobEntry struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	ClientID     string     `json:"clientId,omitempty"`
	DocumentType string     `json:"documentType,omitempty"`
	Created      *time.Time `json:"created,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	Finished     *time.Time `json:"finished,omitempty"`
}

func (j jobEntry) toJobStatus() model.JobStatus {
	status := model.JobStatus{
		ExternalJobID: j.ID,
		State:         MapJobState(j.Status),
		StartedAt:     j.Created,
		FinishedAt:    j.Finished,
	}
	if status.StartedAt == nil {
		status.StartedAt = j.CreatedAt
	}
	if j.DocumentType != "" {
		category := j.DocumentType
		status.Category = &category
	}
	if j.ClientID != "" {
		clientID := j.ClientID
		status.ClientID = &clientID
	}
	return status.Normalize()
}

// MapJobState maps an extraction service status onto the local lifecycle. Unknown statuses are still in flight.
func MapJobState(status string) model.DocumentState {
	switch strings.ToUpper(status) {
	case "DONE", "SUCCEEDED", "SUCCESS", "COMPLETED":
		return model.DocumentStateDone
	case "FAILED", "ERROR":
		return model.DocumentStateFailed
	default:
		return model.DocumentStatePending
	}
}

// FetchAllJobs returns every job the extraction service knows for the principal behind token.
func (c *ExtractionClient) FetchAllJobs(ctx context.Context, token string) ([]model.JobStatus, error) {
	body, err := c.get(ctx, token, c.baseURL+jobsPath)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return nil, fmt.Errorf("%w: jobs endpoint not found", ErrServiceUnavailable)
		}
		return nil, err
	}

	var jobs jobsResponse
	if err := json.Unmarshal(body, &jobs); err != nil {
		return nil, fmt.Errorf("%w: failed to decode jobs: %v", ErrServiceUnavailable, err)
	}

	statuses := make([]model.JobStatus, 0, len(jobs.Results))
	for _, j := range jobs.Results {
		if j.ID == "" {
			continue
		}
		statuses = append(statuses, j.toJobStatus())
	}
	return statuses, nil
}

// GetJobResult returns the raw extraction result of one job.
func (c *ExtractionClient) GetJobResult(ctx context.Context, token, jobID string) (json.RawMessage, error) {
	body, err := c.get(ctx, token, fmt.Sprintf("%s%s/%s", c.baseURL, jobsPath, url.PathEscape(jobID)))
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: job result is not valid json", ErrServiceUnavailable)
	}
	return json.RawMessage(body), nil
}

func (c *ExtractionClient) get(ctx context.Context, token, u string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrServiceUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return bodyBytes, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrAuthExpired, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrJobNotFound
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrServiceUnavailable, resp.StatusCode, string(bodyBytes))
	}
}

// IsUnavailable reports whether err means the extraction service could not be reached in time.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, context.DeadlineExceeded)
}
