// Package handler is the HTTP layer that sits right after the router.
//
// Handlers bind and validate input through the validation package, call
// the service layer and shape the response.
package handler

import (
	"github.com/deppfellow/readlog/internal/server"
	"github.com/deppfellow/readlog/internal/service"
)

type Handlers struct {
	Health  *HealthHandler
	OpenAPI *OpenAPIHandler
	Read    *ReadHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(s),
		OpenAPI: NewOpenAPIHandler(s),
		Read:    NewReadHandler(s, services.Read),
	}
}
