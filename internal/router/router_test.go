package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/readlog/internal/config"
	"github.com/deppfellow/readlog/internal/errs"
	"github.com/deppfellow/readlog/internal/handler"
	"github.com/deppfellow/readlog/internal/model"
	"github.com/deppfellow/readlog/internal/server"
	"github.com/deppfellow/readlog/internal/service"
)

const dunePayload = `{
	"title": "Dune",
	"author": "Frank Herbert",
	"book_type": "Novel",
	"page_count": 412,
	"rating": 4.5,
	"start_date": "2024-01-01",
	"finish_date": "2024-01-10",
	"demographic": "Adult",
	"standalone": false,
	"partofseries": "Dune Chronicles",
	"fiction": true
}`

// memoryStore mimics the allreads table ordering.
type memoryStore struct {
	mu     sync.Mutex
	reads  []model.Read
	nextID int
	err    error
}

func (m *memoryStore) ListReads(context.Context) ([]model.Read, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	out := append([]model.Read{}, m.reads...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].FinishDate.Equal(out[j].FinishDate.Time) {
			return out[i].FinishDate.Before(out[j].FinishDate.Time)
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (m *memoryStore) CreateRead(_ context.Context, read model.Read) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return 0, m.err
	}

	m.nextID++
	read.ID = m.nextID
	m.reads = append(m.reads, read)
	return read.ID, nil
}

func newTestRouter(t *testing.T, store *memoryStore) *echo.Echo {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Primary.Env = "test"
	cfg.Observability.Environment = "test"

	logger := zerolog.Nop()
	s := &server.Server{
		Config: cfg,
		Logger: &logger,
	}

	readService := service.NewReadService(store, nil, nil, &logger)
	h := &handler.Handlers{
		Health:  handler.NewHealthHandler(s),
		OpenAPI: handler.NewOpenAPIHandler(s),
		Read:    handler.NewReadHandler(s, readService),
	}

	return NewRouter(s, h)
}

func do(r *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestListReads_Empty(t *testing.T) {
	r := newTestRouter(t, &memoryStore{})

	rec := do(r, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCreateThenList(t *testing.T) {
	store := &memoryStore{}
	r := newTestRouter(t, store)

	rec := do(r, http.MethodPost, "/post-read", dunePayload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Read added successfully","id":1}`, rec.Body.String())

	rec = do(r, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var reads []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reads))
	require.Len(t, reads, 1)

	got := reads[0]
	assert.EqualValues(t, 1, got["id"])
	assert.Equal(t, "Dune", got["title"])
	assert.Equal(t, "2024-01-01", got["start_date"])
	assert.Equal(t, "2024-01-10", got["finish_date"])
	assert.EqualValues(t, 412, got["page_count"])
	assert.Equal(t, 4.5, got["rating"])
	assert.Equal(t, "Dune Chronicles", got["partofseries"])
	assert.Equal(t, false, got["standalone"])
	assert.Equal(t, true, got["fiction"])
	assert.Nil(t, got["reread"])
}

func TestCreateRead_OptionalFieldsMayBeAbsent(t *testing.T) {
	store := &memoryStore{}
	r := newTestRouter(t, store)

	body := `{"title":"Educated","author":"Tara Westover","book_type":"Memoir","page_count":352,
		"start_date":"2023-06-01","finish_date":"2023-06-21","demographic":"Adult",
		"standalone":true,"fiction":false}`

	rec := do(r, http.MethodPost, "/post-read", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, store.reads, 1)
	assert.Nil(t, store.reads[0].Rating)
	assert.Nil(t, store.reads[0].PartOfSeries)
	assert.Nil(t, store.reads[0].Reread)
}

func TestCreateRead_MissingFieldsStoresNothing(t *testing.T) {
	store := &memoryStore{}
	r := newTestRouter(t, store)

	rec := do(r, http.MethodPost, "/post-read", `{"title":"Dune"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errs.HTTPError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "BAD_REQUEST", body.Code)
	assert.Equal(t, "Validation failed", body.Message)

	fields := map[string]string{}
	for _, fe := range body.Errors {
		fields[fe.Field] = fe.Error
	}
	assert.Equal(t, "is required", fields["author"])
	assert.Equal(t, "is required", fields["finish_date"])
	assert.Equal(t, "is required", fields["fiction"])
	assert.NotContains(t, fields, "title")

	assert.Empty(t, store.reads)
}

func TestCreateRead_RejectsOverlongAndMalformed(t *testing.T) {
	store := &memoryStore{}
	r := newTestRouter(t, store)

	overlong := strings.Replace(dunePayload, `"Frank Herbert"`, `"`+strings.Repeat("x", 36)+`"`, 1)
	rec := do(r, http.MethodPost, "/post-read", overlong)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "must not exceed 35 characters")

	badDate := strings.Replace(dunePayload, `"2024-01-10"`, `"10/01/2024"`, 1)
	rec = do(r, http.MethodPost, "/post-read", badDate)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "finish_date")

	backwards := strings.Replace(dunePayload, `"2024-01-10"`, `"2023-12-25"`, 1)
	rec = do(r, http.MethodPost, "/post-read", backwards)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "must not be before start_date")

	blankTitle := strings.Replace(dunePayload, `"Dune"`, `"   "`, 1)
	rec = do(r, http.MethodPost, "/post-read", blankTitle)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"title"`)

	rec = do(r, http.MethodPost, "/post-read", `{"title": "Dune",`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/post-read", strings.Replace(dunePayload, `412`, `"many"`, 1))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, store.reads)
}

func TestListReads_SortedByFinishDateThenTitle(t *testing.T) {
	r := newTestRouter(t, &memoryStore{})

	for _, p := range []struct{ title, finish string }{
		{"Children of Dune", "2024-03-01"},
		{"Dune Messiah", "2024-01-10"},
		{"Dune", "2024-01-10"},
		{"God Emperor of Dune", "2023-11-05"},
	} {
		body := strings.Replace(dunePayload, `"Dune"`, `"`+p.title+`"`, 1)
		body = strings.Replace(body, `"2024-01-10"`, `"`+p.finish+`"`, 1)
		body = strings.Replace(body, `"2024-01-01"`, `"2023-01-01"`, 1)
		rec := do(r, http.MethodPost, "/post-read", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := do(r, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var reads []model.Read
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reads))

	var titles []string
	for _, read := range reads {
		titles = append(titles, read.Title)
	}
	assert.Equal(t, []string{"God Emperor of Dune", "Dune", "Dune Messiah", "Children of Dune"}, titles)
}

func TestListReads_StoreFailureIs500(t *testing.T) {
	r := newTestRouter(t, &memoryStore{err: errors.New("connection refused")})

	rec := do(r, http.MethodGet, "/", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body errs.HTTPError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_SERVER_ERROR", body.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestStats(t *testing.T) {
	r := newTestRouter(t, &memoryStore{})

	rec := do(r, http.MethodPost, "/post-read", dunePayload)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(r, http.MethodGet, "/stats?year=2024", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stats model.ReadingStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalReads)
	assert.Equal(t, 412, stats.TotalPages)
	assert.Equal(t, 9.0, stats.AverageDays)

	rec = do(r, http.MethodGet, "/stats?year=2020&year=2021", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Zero(t, stats.TotalReads)

	rec = do(r, http.MethodGet, "/stats?year=last", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodGet, "/stats?kind=comics", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	r := newTestRouter(t, &memoryStore{})

	rec := do(r, http.MethodGet, "/reads/42", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body errs.HTTPError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Route not found", body.Message)

	rec = do(r, http.MethodDelete, "/", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "METHOD_NOT_ALLOWED", body.Code)
}

func TestCORS(t *testing.T) {
	r := newTestRouter(t, &memoryStore{})

	req := httptest.NewRequest(http.MethodOptions, "/post-read", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5173")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderOrigin, "https://elsewhere.example")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestStatus_NoChecksConfigured(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Observability.HealthChecks.Enabled = false

	logger := zerolog.Nop()
	s := &server.Server{Config: cfg, Logger: &logger}
	h := &handler.Handlers{
		Health:  handler.NewHealthHandler(s),
		OpenAPI: handler.NewOpenAPIHandler(s),
		Read:    handler.NewReadHandler(s, service.NewReadService(&memoryStore{}, nil, nil, &logger)),
	}

	rec := do(NewRouter(s, h), http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Empty(t, body["checks"])
}
