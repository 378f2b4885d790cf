package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/readlog/internal/handler"
	"github.com/deppfellow/readlog/internal/model"
)

func registerReadRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/", handler.Handle(
		h.Read.Handler,
		h.Read.ListReads,
		http.StatusOK,
		&model.ListReadsPayload{},
	))

	r.POST("/post-read", handler.Handle(
		h.Read.Handler,
		h.Read.CreateRead,
		http.StatusCreated,
		&model.CreateReadPayload{},
	))

	r.GET("/stats", handler.Handle(
		h.Read.Handler,
		h.Read.GetStats,
		http.StatusOK,
		&model.StatsPayload{},
	))
}
