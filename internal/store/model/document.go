package model

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

type DocumentState string

const (
	DocumentStateUploading DocumentState = "Uploading"
	DocumentStatePending   DocumentState = "Pending"
	DocumentStateDone      DocumentState = "Done"
	DocumentStateFailed    DocumentState = "Failed"
)

// MergeOutcome is what merging one job status did to the stored document.
type MergeOutcome int

const (
	// MergeStale means the stored state outranks the incoming one and nothing was written.
	MergeStale MergeOutcome = iota
	// MergeRefreshed means the state was already the incoming one. Timestamps and labels may have been filled in.
	MergeRefreshed
	// MergeTransitioned means this merge moved the document to a new state.
	MergeTransitioned
)

var externalJobIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._:-]*$`)

// ValidExternalJobID reports whether id can be stored as an external job id.
// Path separators are refused since some backends use the id as a key.
func ValidExternalJobID(id string) bool {
	return len(id) <= 255 && externalJobIDRegex.MatchString(id)
}

// UnknownCategory groups documents the extraction service has not classified yet.
const UnknownCategory = "unknown"

// Rank orders states along the processing lifecycle. Done and Failed share the terminal rank.
func (s DocumentState) Rank() int {
	switch s {
	case DocumentStateUploading:
		return 0
	case DocumentStatePending:
		return 1
	case DocumentStateDone, DocumentStateFailed:
		return 2
	default:
		return -1
	}
}

func (s DocumentState) IsTerminal() bool {
	return s == DocumentStateDone || s == DocumentStateFailed
}

func (s DocumentState) IsValid() bool {
	return s.Rank() >= 0
}

func (s DocumentState) String() string {
	return string(s)
}

// ParseDocumentState accepts a state name in any case.
func ParseDocumentState(s string) (DocumentState, bool) {
	for _, st := range []DocumentState{DocumentStateUploading, DocumentStatePending, DocumentStateDone, DocumentStateFailed} {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

type Document struct {
	ID                 uuid.UUID     `gorm:"primaryKey;type:TEXT;"`
	ExternalJobID      string        `gorm:"column:external_job_id;uniqueIndex;not null"`
	Name               string        `gorm:"not null"`
	Size               int64
	ContentType        string
	Category           *string
	ClientID           *string       `gorm:"column:client_id"`
	OwnerID            string        `gorm:"column:owner_id;index;not null"`
	State              DocumentState `gorm:"column:state;not null"`
	StateRank          int           `gorm:"column:state_rank;not null"`
	SubmittedAt        time.Time     `gorm:"column:submitted_at;index;not null"`
	UpdatedAt          time.Time
	ExternalStartedAt  *time.Time `gorm:"column:external_started_at"`
	ExternalFinishedAt *time.Time `gorm:"column:external_finished_at"`
	IsShared           bool       `gorm:"column:is_shared"`
	ShareToken         *string    `gorm:"column:share_token;uniqueIndex"`
	SharedAt           *time.Time `gorm:"column:shared_at"`
	IsTeamShared       bool       `gorm:"column:is_team_shared"`
	TeamSharedBy       *string    `gorm:"column:team_shared_by"`
	TeamSharedAt       *time.Time `gorm:"column:team_shared_at"`
}

type DocumentList []Document

func NewDocument(ownerID, externalJobID, name string) Document {
	return Document{
		ID:            uuid.New(),
		ExternalJobID: externalJobID,
		Name:          name,
		OwnerID:       ownerID,
		State:         DocumentStateUploading,
		StateRank:     DocumentStateUploading.Rank(),
		SubmittedAt:   time.Now().UTC(),
	}
}

func (d Document) CategoryOrUnknown() string {
	if d.Category == nil || *d.Category == "" {
		return UnknownCategory
	}
	return *d.Category
}

// Turnaround is the external processing time. It is false when either endpoint is missing.
func (d Document) Turnaround() (time.Duration, bool) {
	if d.ExternalStartedAt == nil || d.ExternalFinishedAt == nil {
		return 0, false
	}
	return d.ExternalFinishedAt.Sub(*d.ExternalStartedAt), true
}

func (d Document) String() string {
	val, _ := json.Marshal(d)
	return string(val)
}

// JobStatus is one job entry as reported by the extraction service.
type JobStatus struct {
	ExternalJobID string
	State         DocumentState
	Category      *string
	ClientID      *string
	StartedAt     *time.Time
	FinishedAt    *time.Time
}

// Normalize drops a finished timestamp that precedes the started one.
func (j JobStatus) Normalize() JobStatus {
	if j.Category != nil && *j.Category == "" {
		j.Category = nil
	}
	if j.StartedAt != nil && j.FinishedAt != nil && j.FinishedAt.Before(*j.StartedAt) {
		j.FinishedAt = nil
	}
	return j
}

// DocumentStatistics is a point-in-time count of stored documents.
type DocumentStatistics struct {
	Total      int64
	ByState    map[DocumentState]int64
	ByCategory map[string]int64
}
