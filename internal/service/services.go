// Package service contains the business logic.
//
// It sits between the handler and repository layers.
// It receives validated data from the handler, performs
// business operations, and calls repository methods to interact
// with the data
package service

import (
	"github.com/deppfellow/readlog/internal/lib/cache"
	"github.com/deppfellow/readlog/internal/lib/job"
	"github.com/deppfellow/readlog/internal/repository"
	"github.com/deppfellow/readlog/internal/server"
)

type Services struct {
	Read *ReadService
	Job  *job.JobService
}

func NewServices(s *server.Server, repos *repository.Repositories) (*Services, error) {
	var (
		readCache ReadCache
		jobs      TaskEnqueuer
	)

	if s.Redis != nil {
		readCache = cache.NewReadCache(s.Redis, s.Config.Cache.ReadListTTL)
	}
	if s.Job != nil {
		jobs = s.Job
	}

	readService := NewReadService(repos.Read, readCache, jobs, s.Logger)

	if s.Job != nil {
		s.Job.InitHandlers(readService)
	}

	return &Services{
		Read: readService,
		Job:  s.Job,
	}, nil
}

var (
	_ ReadStore           = (*repository.ReadRepository)(nil)
	_ ReadCache           = (*cache.ReadCache)(nil)
	_ TaskEnqueuer        = (*job.JobService)(nil)
	_ job.ReadCacheWarmer = (*ReadService)(nil)
)
