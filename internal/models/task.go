package models

// TaskStatus is the caller-facing lifecycle state of a processing task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusNotFound   TaskStatus = "not_found"
)

// ProcessPayload is the queue payload identifying the asset to process
type ProcessPayload struct {
	AssetID    string `json:"asset_id"`
	StoredName string `json:"stored_name"`
}

// ProcessResult is the terminal result payload of a completed processing task
type ProcessResult struct {
	AssetID       string `json:"asset_id"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
	ThumbnailPath string `json:"thumbnail"`
}

// TaskStatusResponse is the payload returned by the status endpoint.
// Exactly one of Message, Result or Error is set depending on Status.
type TaskStatusResponse struct {
	Status  TaskStatus     `json:"status"`
	Message string         `json:"message,omitempty"`
	Result  *ProcessResult `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}
