package job

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	QueueDefault = "default"
	QueueLow     = "low"

	// TaskWarmReadCache rebuilds the cached read list after a write.
	TaskWarmReadCache = "reads:warm_cache"
)

// WarmReadCachePayload is the JSON body of a TaskWarmReadCache task.
type WarmReadCachePayload struct {
	Reason string `json:"reason"`
	ReadID int    `json:"read_id,omitempty"`
}

// NewWarmReadCacheTask builds the cache warm task. Identical tasks enqueued
// within a few seconds of each other collapse into one.
func NewWarmReadCacheTask(reason string, readID int) (*asynq.Task, error) {
	payload, err := json.Marshal(WarmReadCachePayload{
		Reason: reason,
		ReadID: readID,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskWarmReadCache,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue(QueueLow),
		asynq.Timeout(30*time.Second),
		asynq.Unique(5*time.Second),
	), nil
}
