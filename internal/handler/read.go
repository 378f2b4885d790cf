package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/readlog/internal/model"
	"github.com/deppfellow/readlog/internal/server"
	"github.com/deppfellow/readlog/internal/service"
)

type ReadHandler struct {
	Handler
	readService *service.ReadService
}

func NewReadHandler(s *server.Server, readService *service.ReadService) *ReadHandler {
	return &ReadHandler{
		Handler:     NewHandler(s),
		readService: readService,
	}
}

func (h *ReadHandler) ListReads(c echo.Context, _ *model.ListReadsPayload) ([]model.Read, error) {
	return h.readService.ListReads(c.Request().Context())
}

func (h *ReadHandler) CreateRead(c echo.Context, payload *model.CreateReadPayload) (*model.CreateReadResponse, error) {
	return h.readService.CreateRead(c.Request().Context(), payload)
}

func (h *ReadHandler) GetStats(c echo.Context, payload *model.StatsPayload) (*model.ReadingStats, error) {
	return h.readService.Stats(c.Request().Context(), payload)
}
