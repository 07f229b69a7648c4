package models

import "time"

// QuotaRecord tracks accepted non-duplicate uploads per submitter identity
type QuotaRecord struct {
	IdentityKey string    `json:"identity_key" db:"identity_key"`
	UploadCount int       `json:"upload_count" db:"upload_count"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
