package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/imagevault/backend/internal/models"
	"go.uber.org/zap"
)

// taskInspector is the slice of asynq.Inspector the reporter needs
type taskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
}

// progressReader reads the latest progress text of a running task
type progressReader interface {
	Latest(ctx context.Context, taskID string) (string, error)
}

// StatusReporter translates queue-native task state into the caller-facing
// lifecycle vocabulary
type StatusReporter struct {
	inspector taskInspector
	progress  progressReader
	logger    *zap.Logger
}

// NewStatusReporter creates a status reporter
func NewStatusReporter(inspector taskInspector, progress progressReader, logger *zap.Logger) *StatusReporter {
	return &StatusReporter{
		inspector: inspector,
		progress:  progress,
		logger:    logger,
	}
}

// NewInspector creates the asynq inspector used by the reporter
func NewInspector(redisOpt asynq.RedisClientOpt) *asynq.Inspector {
	return asynq.NewInspector(redisOpt)
}

// Status reports the current lifecycle state of a task. An identifier the
// queue has never seen (or whose retention expired) reports as not_found
// rather than pending, so callers can tell a bad handle from a queued task.
func (r *StatusReporter) Status(ctx context.Context, taskID string) (*models.TaskStatusResponse, error) {
	info, err := r.inspector.GetTaskInfo(QueueName, taskID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return &models.TaskStatusResponse{Status: models.TaskStatusNotFound}, nil
		}
		return nil, fmt.Errorf("failed to get task info: %w", err)
	}

	switch info.State {
	case asynq.TaskStateActive:
		message, err := r.progress.Latest(ctx, taskID)
		if err != nil {
			r.logger.Warn("failed to read task progress", zap.String("task_id", taskID), zap.Error(err))
			message = ""
		}
		if message == "" {
			message = "processing"
		}
		return &models.TaskStatusResponse{
			Status:  models.TaskStatusProcessing,
			Message: message,
		}, nil

	case asynq.TaskStateCompleted:
		resp := &models.TaskStatusResponse{Status: models.TaskStatusCompleted}
		if len(info.Result) > 0 {
			result := &models.ProcessResult{}
			if err := json.Unmarshal(info.Result, result); err != nil {
				r.logger.Warn("failed to decode task result", zap.String("task_id", taskID), zap.Error(err))
			} else {
				resp.Result = result
			}
		}
		return resp, nil

	case asynq.TaskStateRetry, asynq.TaskStateArchived:
		return &models.TaskStatusResponse{
			Status: models.TaskStatusFailed,
			Error:  info.LastErr,
		}, nil

	default:
		// pending, scheduled, aggregating: waiting in queue
		return &models.TaskStatusResponse{
			Status:  models.TaskStatusPending,
			Message: "task is waiting in queue",
		}, nil
	}
}
