package model

import "time"

// Credential holds the client credentials a principal uses against the extraction service.
type Credential struct {
	PrincipalID  string `gorm:"primaryKey;column:principal_id;type:TEXT;"`
	ClientID     string `gorm:"column:client_id;not null"`
	ClientSecret string `gorm:"column:client_secret;not null"`
	TokenURL     string `gorm:"column:token_url"`
	UpdatedAt    time.Time
}

func (Credential) TableName() string {
	return "extraction_credentials"
}
