// Package repository holds the SQL for every table the API touches.
package repository

import (
	"github.com/deppfellow/readlog/internal/server"
)

type Repositories struct {
	Read *ReadRepository
}

func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		Read: NewReadRepository(s.DB.Pool),
	}
}
