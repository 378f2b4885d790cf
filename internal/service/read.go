package service

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/deppfellow/readlog/internal/lib/job"
	"github.com/deppfellow/readlog/internal/model"
)

const readCreatedMessage = "Read added successfully"

type ReadStore interface {
	ListReads(ctx context.Context) ([]model.Read, error)
	CreateRead(ctx context.Context, read model.Read) (int, error)
}

// ReadCache stores the list under a generation that Invalidate bumps.
// SetReads is a no-op when the generation moved since it was read.
type ReadCache interface {
	GetReads(ctx context.Context) ([]model.Read, bool, error)
	Generation(ctx context.Context) (int64, error)
	SetReads(ctx context.Context, generation int64, reads []model.Read) (bool, error)
	Invalidate(ctx context.Context) error
}

type TaskEnqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task) error
}

// ReadService owns the read log. cache and jobs are optional; without
// them every list goes to the database.
type ReadService struct {
	store  ReadStore
	cache  ReadCache
	jobs   TaskEnqueuer
	logger *zerolog.Logger
}

func NewReadService(store ReadStore, cache ReadCache, jobs TaskEnqueuer, logger *zerolog.Logger) *ReadService {
	return &ReadService{
		store:  store,
		cache:  cache,
		jobs:   jobs,
		logger: logger,
	}
}

// ListReads returns every read ordered by finish date, then title.
// Cache failures are logged and the database answers instead.
func (s *ReadService) ListReads(ctx context.Context) ([]model.Read, error) {
	log := s.log(ctx)

	if s.cache == nil {
		return s.store.ListReads(ctx)
	}

	reads, ok, err := s.cache.GetReads(ctx)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("read cache unavailable, falling back to database")
	case ok:
		return reads, nil
	}

	return s.loadAndCache(ctx, log)
}

// loadAndCache reads the list from the database and caches it under the
// generation taken before the query, so a write that commits meanwhile
// keeps its invalidation.
func (s *ReadService) loadAndCache(ctx context.Context, log *zerolog.Logger) ([]model.Read, error) {
	generation, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		log.Warn().Err(genErr).Msg("failed to read cache generation")
	}

	reads, err := s.store.ListReads(ctx)
	if err != nil {
		return nil, err
	}

	if genErr != nil {
		return reads, nil
	}

	stored, err := s.cache.SetReads(ctx, generation, reads)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("failed to cache read list")
	case !stored:
		log.Debug().Int64("generation", generation).Msg("read list changed while loading, not cached")
	}

	return reads, nil
}

// CreateRead stores a validated payload and schedules a cache rebuild.
func (s *ReadService) CreateRead(ctx context.Context, payload *model.CreateReadPayload) (*model.CreateReadResponse, error) {
	log := s.log(ctx)

	id, err := s.store.CreateRead(ctx, payload.ToRead())
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("read_id", id).
		Str("title", payload.Title).
		Msg("read created")

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to invalidate read cache")
		}
	}

	if s.jobs != nil {
		if err := s.enqueueWarm(ctx, "read_created", id); err != nil {
			log.Warn().Err(err).Msg("failed to enqueue read cache warm task")
		}
	}

	return &model.CreateReadResponse{
		Message: readCreatedMessage,
		ID:      id,
	}, nil
}

// Stats summarizes the reads that match the payload's filters.
func (s *ReadService) Stats(ctx context.Context, payload *model.StatsPayload) (*model.ReadingStats, error) {
	reads, err := s.ListReads(ctx)
	if err != nil {
		return nil, err
	}

	stats := model.Summarize(reads, *payload)
	return &stats, nil
}

// WarmReadCache reloads the cached list straight from the database.
func (s *ReadService) WarmReadCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}

	generation, err := s.cache.Generation(ctx)
	if err != nil {
		return errors.Wrap(err, "read cache generation")
	}

	reads, err := s.store.ListReads(ctx)
	if err != nil {
		return errors.Wrap(err, "load reads for cache")
	}

	// A newer write queued its own warm task, which will fill the cache.
	_, err = s.cache.SetReads(ctx, generation, reads)
	return err
}

func (s *ReadService) enqueueWarm(ctx context.Context, reason string, readID int) error {
	task, err := job.NewWarmReadCacheTask(reason, readID)
	if err != nil {
		return errors.Wrap(err, "build warm cache task")
	}
	return s.jobs.Enqueue(ctx, task)
}

// log prefers the request scoped logger stored on ctx.
func (s *ReadService) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return s.logger
}
