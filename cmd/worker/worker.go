package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/imagevault/backend/internal/models"
	"github.com/imagevault/backend/internal/processing"
	"github.com/imagevault/backend/internal/queue"
	"go.uber.org/zap"
)

// Worker handles asset processing tasks delivered by asynq
type Worker struct {
	processor *processing.Processor
	progress  *queue.ProgressStore
	logger    *zap.Logger
}

// NewWorker creates a new worker
func NewWorker(processor *processing.Processor, progress *queue.ProgressStore, logger *zap.Logger) *Worker {
	return &Worker{
		processor: processor,
		progress:  progress,
		logger:    logger,
	}
}

// HandleProcessTask handles one asset processing task. A returned error moves
// the task to its terminal failed state; tasks are configured without retry.
func (w *Worker) HandleProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload models.ProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// A payload that cannot be decoded will never succeed.
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	taskID, _ := asynq.GetTaskID(ctx)

	w.logger.Info("processing task started",
		zap.String("task_id", taskID),
		zap.String("asset_id", payload.AssetID),
	)

	result, err := w.processor.Process(ctx, taskID, payload)

	if clearErr := w.progress.Clear(ctx, taskID); clearErr != nil {
		w.logger.Warn("failed to clear task progress",
			zap.String("task_id", taskID), zap.Error(clearErr))
	}

	if err != nil {
		w.logger.Error("processing task failed",
			zap.String("task_id", taskID),
			zap.String("asset_id", payload.AssetID),
			zap.Error(err),
		)
		return err
	}

	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal task result: %w", err)
		}
		if _, err := t.ResultWriter().Write(data); err != nil {
			return fmt.Errorf("failed to write task result: %w", err)
		}
	}

	w.logger.Info("processing task completed", zap.String("task_id", taskID))
	return nil
}
