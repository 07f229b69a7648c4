package models

import "time"

// UploadRequest carries one submitted asset through the ingestion pipeline
type UploadRequest struct {
	Content           []byte
	OriginalFilename  string
	Name              string
	Description       string
	Tags              []string
	ContentType       string
	IP                string
	DeviceFingerprint string
}

// UploadResponse is the caller-facing result of an accepted (or duplicate)
// upload
type UploadResponse struct {
	Message     string    `json:"message"`
	IsDuplicate bool      `json:"is_duplicate"`
	AssetID     string    `json:"image_id"`
	Filename    string    `json:"filename"`
	URL         string    `json:"url"`
	TaskID      string    `json:"task_id,omitempty"`
	FileHash    string    `json:"file_hash,omitempty"`
	UploadsUsed string    `json:"uploads_used,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// MyUploadsResponse lists all uploads attributed to one submitter identity
type MyUploadsResponse struct {
	TotalUploads int     `json:"total_uploads"`
	UploadsUsed  string  `json:"uploads_used"`
	Remaining    int     `json:"remaining"`
	Images       []Asset `json:"images"`
}
