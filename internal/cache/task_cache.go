package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const TaskCacheTTL = 1 * time.Hour

// TaskCache is a read-through cache for task records. Writes are best-effort;
// a cache failure never fails the request.
type TaskCache struct {
	client *redis.Client
}

func NewTaskCache(client *redis.Client) *TaskCache {
	return &TaskCache{client: client}
}

func (c *TaskCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil // cache miss
	}
	if err != nil {
		return nil, err
	}
	return []byte(val), nil
}

func (c *TaskCache) Set(ctx context.Context, key string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, jsonData, TaskCacheTTL).Err()
}

// Invalidate drops the cached entries touched by a status transition, so a
// poller never reads a stale terminal state.
func (c *TaskCache) Invalidate(ctx context.Context, taskID, userID int) error {
	return c.client.Del(ctx, TaskKey(taskID), UserTasksKey(userID)).Err()
}

func TaskKey(taskID int) string {
	return fmt.Sprintf("task:%d", taskID)
}

func UserTasksKey(userID int) string {
	return fmt.Sprintf("tasks:user:%d", userID)
}
