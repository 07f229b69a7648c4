// Package queue connects the ingestion pipeline to the asynq-backed
// processing queue and exposes task status to callers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/imagevault/backend/internal/models"
)

const (
	// QueueName is the asynq queue processing tasks are routed to
	QueueName = "processing"

	// TypeProcessAsset is the asynq task type for asset post-processing
	TypeProcessAsset = "asset:process"

	// resultRetention keeps terminal task state inspectable for this long
	// after completion
	resultRetention = 24 * time.Hour

	// taskTimeout bounds a single processing run
	taskTimeout = 5 * time.Minute
)

// Client enqueues processing tasks
type Client struct {
	asynqClient *asynq.Client
}

// NewClient creates a queue client on the given Redis connection settings
func NewClient(redisOpt asynq.RedisClientOpt) *Client {
	return &Client{
		asynqClient: asynq.NewClient(redisOpt),
	}
}

// Enqueue schedules post-processing for an asset and returns the task
// identifier. Tasks run exactly once to a terminal state: there is no retry
// and no cancellation path.
func (c *Client) Enqueue(ctx context.Context, payload models.ProcessPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(TypeProcessAsset, data)
	info, err := c.asynqClient.EnqueueContext(ctx, task,
		asynq.Queue(QueueName),
		asynq.MaxRetry(0),
		asynq.Timeout(taskTimeout),
		asynq.Retention(resultRetention),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue processing task: %w", err)
	}

	return info.ID, nil
}

// Close releases the underlying asynq client
func (c *Client) Close() error {
	return c.asynqClient.Close()
}
