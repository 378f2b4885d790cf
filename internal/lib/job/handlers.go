package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// ReadCacheWarmer reloads the cached read list from the database.
type ReadCacheWarmer interface {
	WarmReadCache(ctx context.Context) error
}

// InitHandlers registers the task handlers on the worker mux.
func (j *JobService) InitHandlers(warmer ReadCacheWarmer) {
	j.mux.HandleFunc(TaskWarmReadCache, j.warmReadCacheHandler(warmer))
}

func (j *JobService) warmReadCacheHandler(warmer ReadCacheWarmer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p WarmReadCachePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("failed to unmarshal warm cache payload: %w: %w", err, asynq.SkipRetry)
		}

		j.logger.Info().
			Str("type", TaskWarmReadCache).
			Str("reason", p.Reason).
			Int("read_id", p.ReadID).
			Msg("Processing warm read cache task")

		if err := warmer.WarmReadCache(ctx); err != nil {
			j.logger.Error().
				Str("type", TaskWarmReadCache).
				Err(err).
				Msg("Failed to warm read cache")
			return err
		}

		j.logger.Info().
			Str("type", TaskWarmReadCache).
			Msg("Read cache warmed")
		return nil
	}
}
