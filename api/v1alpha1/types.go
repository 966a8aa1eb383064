package v1alpha1

import (
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentStatusUploading DocumentStatus = "uploading"
	DocumentStatusPending   DocumentStatus = "pending"
	DocumentStatusDone      DocumentStatus = "done"
	DocumentStatusFailed    DocumentStatus = "failed"
)

type Error struct {
	Message string  `json:"message"`
	Code    *string `json:"code,omitempty"`
}

type Status struct {
	Message string `json:"message,omitempty"`
}

type DocumentCreate struct {
	Name          string  `json:"name" validate:"required,max=255"`
	Size          *int64  `json:"size,omitempty" validate:"omitempty,min=0"`
	ContentType   *string `json:"contentType,omitempty" validate:"omitempty,max=255"`
	ExternalJobId string  `json:"externalJobId" validate:"required,max=255,job_id"`
}

type CredentialUpdate struct {
	ClientId     string  `json:"clientId" validate:"required"`
	ClientSecret string  `json:"clientSecret" validate:"required"`
	TokenUrl     *string `json:"tokenUrl,omitempty" validate:"omitempty,url"`
}

type Document struct {
	Id                 uuid.UUID      `json:"id"`
	Name               string         `json:"name"`
	Size               int64          `json:"size"`
	ContentType        string         `json:"contentType,omitempty"`
	ExternalJobId      string         `json:"externalJobId"`
	Status             DocumentStatus `json:"status"`
	Category           *string        `json:"category,omitempty"`
	ClientId           *string        `json:"clientId,omitempty"`
	OwnerId            string         `json:"ownerId"`
	SubmittedAt        time.Time      `json:"submittedAt"`
	ExternalStartedAt  *time.Time     `json:"externalStartedAt,omitempty"`
	ExternalFinishedAt *time.Time     `json:"externalFinishedAt,omitempty"`
	IsShared           bool           `json:"isShared"`
	IsTeamShared       bool           `json:"isTeamShared"`
	TeamSharedBy       *string        `json:"teamSharedBy,omitempty"`
}

type DocumentList struct {
	Documents   []Document `json:"documents"`
	Total       int64      `json:"total"`
	TotalPages  int        `json:"totalPages"`
	CurrentPage int        `json:"currentPage"`
	Stale       bool       `json:"stale"`
}

type CategoryStats struct {
	Total                int     `json:"total"`
	Done                 int     `json:"done"`
	SuccessRate          int     `json:"successRate"`
	AvgTurnaroundSeconds float64 `json:"avgTurnaroundSeconds"`
}

type DashboardStats struct {
	Total                int                      `json:"total"`
	Completed            int                      `json:"completed"`
	InProgress           int                      `json:"inProgress"`
	Error                int                      `json:"error"`
	SuccessRate          int                      `json:"successRate"`
	AvgTurnaroundSeconds float64                  `json:"avgTurnaroundSeconds"`
	ByCategory           map[string]CategoryStats `json:"byCategory"`
	Stale                bool                     `json:"stale"`
}

type ShareLink struct {
	ShareLink string `json:"shareLink"`
}

// DocumentQuery holds the filters shared by the listing, stats and export endpoints.
type DocumentQuery struct {
	Scope    string `validate:"omitempty,oneof=mine team"`
	Status   string `validate:"omitempty,doc_state"`
	Category string `validate:"omitempty,max=128"`
	Window   string `validate:"omitempty,time_window"`
	Page     int    `validate:"min=0"`
	Limit    int    `validate:"min=0,max=100"`
	Format   string `validate:"omitempty,oneof=csv xlsx"`
}
