package models

import "time"

// Asset is the canonical record of one accepted upload
type Asset struct {
	ID               string    `json:"id" db:"id"`
	ContentHash      string    `json:"file_hash" db:"content_hash"`
	StoredName       string    `json:"filename" db:"stored_name"`
	OriginalFilename string    `json:"original_filename" db:"original_filename"`
	Name             string    `json:"name" db:"name"`
	Description      string    `json:"description" db:"description"`
	Tags             []string  `json:"tags" db:"tags"`
	Size             int64     `json:"file_size" db:"size"`
	ContentType      string    `json:"mime_type" db:"content_type"`
	UploaderKey      string    `json:"-" db:"uploader_key"`
	UploaderIP       string    `json:"-" db:"uploader_ip"`
	UploadedAt       time.Time `json:"uploaded_at" db:"uploaded_at"`
	Processed        bool      `json:"processed" db:"processed"`
}

// AssetStats holds aggregate statistics over all assets
type AssetStats struct {
	TotalAssets     int64 `json:"total_images"`
	UniqueUploaders int64 `json:"unique_uploaders"`
	TotalSize       int64 `json:"total_size_bytes"`
	ProcessedAssets int64 `json:"processed_images"`
}
