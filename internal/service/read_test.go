package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/readlog/internal/lib/job"
	"github.com/deppfellow/readlog/internal/model"
)

type mockReadStore struct {
	mock.Mock
}

func (m *mockReadStore) ListReads(ctx context.Context) ([]model.Read, error) {
	args := m.Called(ctx)
	reads, _ := args.Get(0).([]model.Read)
	return reads, args.Error(1)
}

func (m *mockReadStore) CreateRead(ctx context.Context, read model.Read) (int, error) {
	args := m.Called(ctx, read)
	return args.Int(0), args.Error(1)
}

type mockReadCache struct {
	mock.Mock
}

func (m *mockReadCache) GetReads(ctx context.Context) ([]model.Read, bool, error) {
	args := m.Called(ctx)
	reads, _ := args.Get(0).([]model.Read)
	return reads, args.Bool(1), args.Error(2)
}

func (m *mockReadCache) Generation(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

func (m *mockReadCache) SetReads(ctx context.Context, generation int64, reads []model.Read) (bool, error) {
	args := m.Called(ctx, generation, reads)
	return args.Bool(0), args.Error(1)
}

func (m *mockReadCache) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, task *asynq.Task) error {
	return m.Called(ctx, task).Error(0)
}

func ptr[T any](v T) *T { return &v }

func duneReads() []model.Read {
	return []model.Read{{
		ID:          1,
		Title:       "Dune",
		Author:      "Frank Herbert",
		BookType:    "Novel",
		PageCount:   412,
		StartDate:   model.NewDate(2024, 1, 1),
		FinishDate:  model.NewDate(2024, 1, 10),
		Demographic: "Adult",
		Fiction:     true,
	}}
}

func dunePayload() *model.CreateReadPayload {
	return &model.CreateReadPayload{
		Title:       "Dune",
		Author:      "Frank Herbert",
		BookType:    "Novel",
		PageCount:   ptr(412),
		Rating:      ptr(4.5),
		StartDate:   "2024-01-01",
		FinishDate:  "2024-01-10",
		Demographic: "Adult",
		Standalone:  ptr(false),
		Fiction:     ptr(true),
	}
}

func newTestService(store ReadStore, cache ReadCache, jobs TaskEnqueuer) *ReadService {
	logger := zerolog.Nop()
	return NewReadService(store, cache, jobs, &logger)
}

func TestListReads_NoCache(t *testing.T) {
	store := new(mockReadStore)
	store.On("ListReads", mock.Anything).Return(duneReads(), nil)

	reads, err := newTestService(store, nil, nil).ListReads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, duneReads(), reads)
	store.AssertExpectations(t)
}

func TestListReads_CacheHit(t *testing.T) {
	store := new(mockReadStore)
	cache := new(mockReadCache)
	cache.On("GetReads", mock.Anything).Return(duneReads(), true, nil)

	reads, err := newTestService(store, cache, nil).ListReads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, duneReads(), reads)
	store.AssertNotCalled(t, "ListReads", mock.Anything)
}

func TestListReads_CacheMissFillsCache(t *testing.T) {
	store := new(mockReadStore)
	store.On("ListReads", mock.Anything).Return(duneReads(), nil)
	cache := new(mockReadCache)
	cache.On("GetReads", mock.Anything).Return(nil, false, nil)
	cache.On("Generation", mock.Anything).Return(int64(4), nil)
	cache.On("SetReads", mock.Anything, int64(4), duneReads()).Return(true, nil)

	_, err := newTestService(store, cache, nil).ListReads(context.Background())
	require.NoError(t, err)
	store.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestListReads_CacheErrorFallsThrough(t *testing.T) {
	store := new(mockReadStore)
	store.On("ListReads", mock.Anything).Return(duneReads(), nil)
	cache := new(mockReadCache)
	cache.On("GetReads", mock.Anything).Return(nil, false, errors.New("connection refused"))
	cache.On("Generation", mock.Anything).Return(int64(0), errors.New("connection refused"))

	reads, err := newTestService(store, cache, nil).ListReads(context.Background())
	require.NoError(t, err)
	assert.Len(t, reads, 1)
	cache.AssertNotCalled(t, "SetReads", mock.Anything, mock.Anything, mock.Anything)
}

func TestListReads_StoreError(t *testing.T) {
	store := new(mockReadStore)
	store.On("ListReads", mock.Anything).Return(nil, errors.New("boom"))

	_, err := newTestService(store, nil, nil).ListReads(context.Background())
	require.Error(t, err)
}

func TestCreateRead(t *testing.T) {
	store := new(mockReadStore)
	store.On("CreateRead", mock.Anything, mock.MatchedBy(func(r model.Read) bool {
		return r.Title == "Dune" && r.PageCount == 412 && r.FinishDate == model.NewDate(2024, 1, 10)
	})).Return(7, nil)
	cache := new(mockReadCache)
	cache.On("Invalidate", mock.Anything).Return(nil)
	jobs := new(mockEnqueuer)
	jobs.On("Enqueue", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		return task.Type() == job.TaskWarmReadCache
	})).Return(nil)

	res, err := newTestService(store, cache, jobs).CreateRead(context.Background(), dunePayload())
	require.NoError(t, err)
	assert.Equal(t, "Read added successfully", res.Message)
	assert.Equal(t, 7, res.ID)

	store.AssertExpectations(t)
	cache.AssertExpectations(t)
	jobs.AssertExpectations(t)
}

func TestCreateRead_SideEffectFailuresDoNotFail(t *testing.T) {
	store := new(mockReadStore)
	store.On("CreateRead", mock.Anything, mock.Anything).Return(3, nil)
	cache := new(mockReadCache)
	cache.On("Invalidate", mock.Anything).Return(errors.New("redis down"))
	jobs := new(mockEnqueuer)
	jobs.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	res, err := newTestService(store, cache, jobs).CreateRead(context.Background(), dunePayload())
	require.NoError(t, err)
	assert.Equal(t, 3, res.ID)
}

func TestCreateRead_StoreErrorSkipsSideEffects(t *testing.T) {
	store := new(mockReadStore)
	store.On("CreateRead", mock.Anything, mock.Anything).Return(0, errors.New("insert failed"))
	cache := new(mockReadCache)
	jobs := new(mockEnqueuer)

	_, err := newTestService(store, cache, jobs).CreateRead(context.Background(), dunePayload())
	require.Error(t, err)
	cache.AssertNotCalled(t, "Invalidate", mock.Anything)
	jobs.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestStats(t *testing.T) {
	store := new(mockReadStore)
	store.On("ListReads", mock.Anything).Return(duneReads(), nil)

	stats, err := newTestService(store, nil, nil).Stats(context.Background(), &model.StatsPayload{Years: []int{2024}})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalReads)
	assert.Equal(t, 412, stats.TotalPages)
}

func TestWarmReadCache(t *testing.T) {
	store := new(mockReadStore)
	store.On("ListReads", mock.Anything).Return(duneReads(), nil)
	cache := new(mockReadCache)
	cache.On("Generation", mock.Anything).Return(int64(2), nil)
	cache.On("SetReads", mock.Anything, int64(2), duneReads()).Return(true, nil)

	require.NoError(t, newTestService(store, cache, nil).WarmReadCache(context.Background()))
	cache.AssertNotCalled(t, "GetReads", mock.Anything)
	cache.AssertExpectations(t)
}

func TestWarmReadCache_NoCache(t *testing.T) {
	store := new(mockReadStore)
	require.NoError(t, newTestService(store, nil, nil).WarmReadCache(context.Background()))
	store.AssertNotCalled(t, "ListReads", mock.Anything)
}

// memoryCache follows the generation rules of the Redis read cache.
type memoryCache struct {
	mu         sync.Mutex
	generation int64
	reads      []model.Read
	cached     bool
}

func (c *memoryCache) GetReads(context.Context) ([]model.Read, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads, c.cached, nil
}

func (c *memoryCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation, nil
}

func (c *memoryCache) SetReads(_ context.Context, generation int64, reads []model.Read) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return false, nil
	}
	c.reads, c.cached = reads, true
	return true, nil
}

func (c *memoryCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.reads, c.cached = nil, false
	return nil
}

// pausingStore holds the first ListReads after it has taken its snapshot
// until release is closed.
type pausingStore struct {
	mu      sync.Mutex
	reads   []model.Read
	paused  bool
	entered chan struct{}
	release chan struct{}
}

func (s *pausingStore) ListReads(context.Context) ([]model.Read, error) {
	s.mu.Lock()
	snapshot := append([]model.Read{}, s.reads...)
	pause := !s.paused
	s.paused = true
	s.mu.Unlock()

	if pause {
		close(s.entered)
		<-s.release
	}
	return snapshot, nil
}

func (s *pausingStore) CreateRead(_ context.Context, read model.Read) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	read.ID = len(s.reads) + 1
	s.reads = append(s.reads, read)
	return read.ID, nil
}

func TestListReads_SlowListDoesNotHideNewerCreate(t *testing.T) {
	store := &pausingStore{entered: make(chan struct{}), release: make(chan struct{})}
	svc := newTestService(store, &memoryCache{}, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.ListReads(ctx)
		done <- err
	}()

	<-store.entered
	_, err := svc.CreateRead(ctx, dunePayload())
	require.NoError(t, err)

	close(store.release)
	require.NoError(t, <-done)

	reads, err := svc.ListReads(ctx)
	require.NoError(t, err)
	require.Len(t, reads, 1)
	assert.Equal(t, "Dune", reads[0].Title)
}
