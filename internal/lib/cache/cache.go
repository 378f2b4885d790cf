// Package cache keeps a copy of the sorted read list in Redis.
//
// Every write bumps a generation counter. A list loaded from the database
// is only stored when the generation it was loaded under is still current,
// so a slow reader cannot put back a list that a newer write invalidated.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/deppfellow/readlog/internal/model"
)

const (
	// ReadListKey holds the JSON encoded result of GET /.
	ReadListKey = "readlog:reads:all"

	// ReadGenerationKey counts invalidations of ReadListKey.
	ReadGenerationKey = "readlog:reads:generation"
)

type ReadCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReadCache(client *redis.Client, ttl time.Duration) *ReadCache {
	return &ReadCache{client: client, ttl: ttl}
}

// GetReads returns the cached list. ok is false on a cache miss.
func (c *ReadCache) GetReads(ctx context.Context) (reads []model.Read, ok bool, err error) {
	data, err := c.client.Get(ctx, ReadListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "get cached reads")
	}

	if err := json.Unmarshal(data, &reads); err != nil {
		return nil, false, errors.Wrap(err, "decode cached reads")
	}
	return reads, true, nil
}

// Generation returns the current generation. Read it before loading the
// list that will be passed to SetReads.
func (c *ReadCache) Generation(ctx context.Context) (int64, error) {
	return generation(ctx, c.client)
}

// SetReads stores reads if no invalidation happened since generation was
// read. stored reports whether the list was written.
func (c *ReadCache) SetReads(ctx context.Context, gen int64, reads []model.Read) (stored bool, err error) {
	data, err := json.Marshal(reads)
	if err != nil {
		return false, errors.Wrap(err, "encode reads")
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generation(ctx, tx)
		if err != nil {
			return err
		}
		if current != gen {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, ReadListKey, data, c.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		stored = true
		return nil
	}, ReadGenerationKey)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "set cached reads")
	}
	return stored, nil
}

// Invalidate drops the cached list and bumps the generation in one
// transaction.
func (c *ReadCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, ReadGenerationKey)
		pipe.Del(ctx, ReadListKey)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "invalidate cached reads")
	}
	return nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func generation(ctx context.Context, g getter) (int64, error) {
	n, err := g.Get(ctx, ReadGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "get read cache generation")
	}
	return n, nil
}
