package events

import "time"

// DocumentStateChangedEvent is emitted when a reconciliation moves a document to a new state.
type DocumentStateChangedEvent struct {
	DocumentID    string    `json:"documentId"`
	ExternalJobID string    `json:"externalJobId"`
	OwnerID       string    `json:"ownerId"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	Category      string    `json:"category,omitempty"`
	ChangedAt     time.Time `json:"changedAt"`
}

type DocumentDeletedEvent struct {
	DocumentID    string `json:"documentId"`
	ExternalJobID string `json:"externalJobId"`
	DeletedBy     string `json:"deletedBy"`
}
