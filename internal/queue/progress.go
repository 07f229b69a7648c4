package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// progressTTL keeps progress text around long enough to outlive any running
// task; terminal tasks clear their key explicitly
const progressTTL = time.Hour

// ProgressStore publishes and reads the latest progress text of a running
// task through Redis
type ProgressStore struct {
	client *redis.Client
}

// NewProgressStore creates a progress store on the given Redis client
func NewProgressStore(client *redis.Client) *ProgressStore {
	return &ProgressStore{
		client: client,
	}
}

func progressKey(taskID string) string {
	return fmt.Sprintf("task:progress:%s", taskID)
}

// Publish records the latest progress text for a task
func (s *ProgressStore) Publish(ctx context.Context, taskID, text string) error {
	if err := s.client.Set(ctx, progressKey(taskID), text, progressTTL).Err(); err != nil {
		return fmt.Errorf("failed to publish progress: %w", err)
	}
	return nil
}

// Latest returns the most recent progress text for a task, or empty string
// when none was published
func (s *ProgressStore) Latest(ctx context.Context, taskID string) (string, error) {
	text, err := s.client.Get(ctx, progressKey(taskID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read progress: %w", err)
	}
	return text, nil
}

// Clear removes the progress text of a task once it reaches a terminal state
func (s *ProgressStore) Clear(ctx context.Context, taskID string) error {
	if err := s.client.Del(ctx, progressKey(taskID)).Err(); err != nil {
		return fmt.Errorf("failed to clear progress: %w", err)
	}
	return nil
}
